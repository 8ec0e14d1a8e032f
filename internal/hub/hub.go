// Package hub runs the session orchestration core. A single goroutine
// consumes the transport event stream and runs every handler to completion
// before the next event, so the sessions map, the matchmaking slot, the room
// collection and the replay index have exactly one writer and need no locks.
package hub

import (
	"context"
	"time"

	"github.com/kapu/gridmatch/internal/account"
	"github.com/kapu/gridmatch/internal/game"
	"github.com/kapu/gridmatch/internal/msgcat"
	"github.com/kapu/gridmatch/internal/obslog"
	"github.com/kapu/gridmatch/internal/replay"
	"github.com/kapu/gridmatch/internal/results"
	"github.com/kapu/gridmatch/internal/transport"
	"go.uber.org/zap"
)

// Sender unicasts one frame to a connection. *transport.Registry satisfies
// it; tests plug in a recorder.
type Sender interface {
	Send(id, payload string) error
}

// Hub owns all mutable session state.
type Hub struct {
	events <-chan transport.Event
	sender Sender

	accounts *account.Store
	rooms    *game.Manager
	replays  replay.Store
	repo     *results.Repository // optional, nil when no DATABASE_URL
	cat      *msgcat.Catalog

	sessions map[string]string // connection id → display name
	waiting  string            // matchmaking slot, "" when empty

	gameStart map[int]time.Time // room id → start of the running game

	queries chan func()
	done    chan struct{}
}

type Options struct {
	Events   <-chan transport.Event
	Sender   Sender
	Accounts *account.Store
	Rooms    *game.Manager
	Replays  replay.Store
	Results  *results.Repository
	Catalog  *msgcat.Catalog
}

func New(opts Options) *Hub {
	return &Hub{
		events:    opts.Events,
		sender:    opts.Sender,
		accounts:  opts.Accounts,
		rooms:     opts.Rooms,
		replays:   opts.Replays,
		repo:      opts.Results,
		cat:       opts.Catalog,
		sessions:  make(map[string]string),
		gameStart: make(map[int]time.Time),
		queries:   make(chan func(), 16),
		done:      make(chan struct{}),
	}
}

// Run consumes events until the channel closes or ctx is cancelled. It is
// the only goroutine that touches hub state.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-h.queries:
			fn()
		case ev, ok := <-h.events:
			if !ok {
				return
			}
			h.handle(ctx, ev)
		}
	}
}

// do runs fn on the hub goroutine and waits for it, so read-only callers
// (the admin endpoint) never observe state mid-mutation.
func (h *Hub) do(fn func()) bool {
	ready := make(chan struct{})
	select {
	case h.queries <- func() { fn(); close(ready) }:
	case <-h.done:
		return false
	}
	select {
	case <-ready:
		return true
	case <-h.done:
		return false
	}
}

// RoomList returns a point-in-time room snapshot.
func (h *Hub) RoomList() []game.RoomInfo {
	var out []game.RoomInfo
	h.do(func() { out = h.rooms.Snapshot() })
	return out
}

// SessionCount returns the number of bound sessions.
func (h *Hub) SessionCount() int {
	var n int
	h.do(func() { n = len(h.sessions) })
	return n
}

// ReplayEntries returns the replay index.
func (h *Hub) ReplayEntries(ctx context.Context) []replay.IndexEntry {
	var out []replay.IndexEntry
	h.do(func() {
		entries, err := h.replays.Entries(ctx)
		if err != nil {
			obslog.L().Error("replay_entries_error", zap.Error(err))
			return
		}
		out = entries
	})
	return out
}
