// Package transport delivers connection events from the listeners to the
// hub and routes outbound frames back to connections. The hub only ever
// sees opaque connection ids and decoded text frames; framing, encodings
// and socket details stay here.
package transport

import (
	"errors"
	"sync"
)

// EventType tags a transport event.
type EventType int

const (
	Connect EventType = iota
	Data
	Disconnect
)

// Event is one transport occurrence. Payload is the decoded text frame and
// is only set for Data events.
type Event struct {
	Type    EventType
	Conn    string
	Payload string
}

// Conn is one live client connection. Send must be safe for concurrent use.
type Conn interface {
	ID() string
	Send(payload string) error
	Close() error
}

var ErrUnknownConn = errors.New("unknown connection")

// Registry tracks live connections across every listener so the hub can
// unicast by connection id regardless of which adapter accepted the client.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]Conn)}
}

func (r *Registry) add(c Conn) {
	r.mu.Lock()
	r.conns[c.ID()] = c
	r.mu.Unlock()
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	delete(r.conns, id)
	r.mu.Unlock()
}

// Send unicasts one frame to the connection.
func (r *Registry) Send(id, payload string) error {
	r.mu.RLock()
	c, ok := r.conns[id]
	r.mu.RUnlock()
	if !ok {
		return ErrUnknownConn
	}
	return c.Send(payload)
}

// Len returns the live connection count.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
