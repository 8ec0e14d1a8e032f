package transport

import (
	"bufio"
	"bytes"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
	"unicode/utf16"

	"github.com/google/uuid"
	"github.com/kapu/gridmatch/internal/obslog"
	"go.uber.org/zap"
)

// Frame encodings supported on the TCP listener. The original client sends
// UTF-16LE text; new clients use UTF-8. Frames are newline-terminated either
// way.
const (
	EncodingUTF8    = "utf8"
	EncodingUTF16LE = "utf16le"
)

// TCPServer accepts socket clients and pumps their frames into the shared
// event channel. One goroutine per connection reads; the hub never blocks
// on a socket.
type TCPServer struct {
	addr     string
	encoding string
	idle     time.Duration

	reg    *Registry
	events chan<- Event

	ln        net.Listener
	wg        sync.WaitGroup
	closeOnce sync.Once
	done      chan struct{}
}

func NewTCPServer(addr, encoding string, idle time.Duration, reg *Registry, events chan<- Event) *TCPServer {
	return &TCPServer{
		addr:     addr,
		encoding: encoding,
		idle:     idle,
		reg:      reg,
		events:   events,
		done:     make(chan struct{}),
	}
}

// Start begins listening and returns once the accept loop is running.
func (s *TCPServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("tcp listen: %w", err)
	}
	s.ln = ln
	obslog.L().Info("tcp_listen", zap.String("addr", ln.Addr().String()), zap.String("encoding", s.encoding))
	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr returns the bound listen address.
func (s *TCPServer) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *TCPServer) acceptLoop() {
	defer s.wg.Done()
	for {
		nc, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			obslog.L().Warn("tcp_accept_error", zap.Error(err))
			continue
		}
		c := &tcpConn{id: uuid.NewString(), nc: nc, encoding: s.encoding}
		s.reg.add(c)
		s.events <- Event{Type: Connect, Conn: c.id}
		s.wg.Add(1)
		go s.readLoop(c)
	}
}

func (s *TCPServer) readLoop(c *tcpConn) {
	defer s.wg.Done()
	defer func() {
		s.reg.remove(c.id)
		_ = c.Close()
		s.events <- Event{Type: Disconnect, Conn: c.id}
	}()

	sc := bufio.NewScanner(c.nc)
	if s.encoding == EncodingUTF16LE {
		sc.Split(splitUTF16LE)
	}
	for {
		if s.idle > 0 {
			_ = c.nc.SetReadDeadline(time.Now().Add(s.idle))
		}
		if !sc.Scan() {
			return
		}
		payload := decodeFrame(sc.Bytes(), s.encoding)
		if payload == "" {
			continue
		}
		s.events <- Event{Type: Data, Conn: c.id, Payload: payload}
	}
}

// Close stops accepting, drops every live connection and waits for the
// per-connection loops (and their Disconnect events) to finish.
func (s *TCPServer) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	s.wg.Wait()
	return err
}

type tcpConn struct {
	id       string
	nc       net.Conn
	encoding string
	wmu      sync.Mutex
}

func (c *tcpConn) ID() string { return c.id }

func (c *tcpConn) Send(payload string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.nc.SetWriteDeadline(time.Now().Add(10 * time.Second))
	_, err := c.nc.Write(encodeFrame(payload, c.encoding))
	return err
}

func (c *tcpConn) Close() error { return c.nc.Close() }

// splitUTF16LE splits a byte stream on UTF-16LE newlines (0x0A 0x00 on an
// even offset).
func splitUTF16LE(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := 0; i+1 < len(data); i += 2 {
		if data[i] == '\n' && data[i+1] == 0x00 {
			return i + 2, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func decodeFrame(raw []byte, encoding string) string {
	var text string
	if encoding == EncodingUTF16LE {
		units := make([]uint16, 0, len(raw)/2)
		for i := 0; i+1 < len(raw); i += 2 {
			units = append(units, uint16(raw[i])|uint16(raw[i+1])<<8)
		}
		text = string(utf16.Decode(units))
	} else {
		text = string(raw)
	}
	return strings.TrimRight(text, "\r\n\x00")
}

func encodeFrame(payload, encoding string) []byte {
	if encoding == EncodingUTF16LE {
		units := utf16.Encode([]rune(payload + "\n"))
		var b bytes.Buffer
		b.Grow(len(units) * 2)
		for _, u := range units {
			b.WriteByte(byte(u))
			b.WriteByte(byte(u >> 8))
		}
		return b.Bytes()
	}
	return []byte(payload + "\n")
}
