package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kapu/gridmatch/internal/obslog"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// WSServer exposes the same wire protocol over WebSocket, one text message
// per frame, for browser clients. It feeds the same event channel and
// registry as the TCP listener, so the hub cannot tell the adapters apart.
type WSServer struct {
	addr string
	idle time.Duration

	reg    *Registry
	events chan<- Event

	srv *http.Server
	wg  sync.WaitGroup
}

func NewWSServer(addr string, idle time.Duration, reg *Registry, events chan<- Event) *WSServer {
	return &WSServer{addr: addr, idle: idle, reg: reg, events: events}
}

// Start begins serving the /play endpoint.
func (s *WSServer) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/play", s.handle)
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("ws listen: %w", err)
	}
	s.srv = &http.Server{Handler: mux}
	obslog.L().Info("ws_listen", zap.String("addr", ln.Addr().String()))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obslog.L().Error("ws_serve_error", zap.Error(err))
		}
	}()
	return nil
}

func (s *WSServer) handle(w http.ResponseWriter, r *http.Request) {
	wc, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		obslog.L().Warn("ws_accept_error", zap.Error(err))
		return
	}
	c := &wsConn{id: uuid.NewString(), wc: wc}
	s.reg.add(c)
	s.events <- Event{Type: Connect, Conn: c.id}
	defer func() {
		s.reg.remove(c.id)
		_ = c.Close()
		s.events <- Event{Type: Disconnect, Conn: c.id}
	}()

	ctx := r.Context()
	for {
		rctx := ctx
		var cancel context.CancelFunc
		if s.idle > 0 {
			rctx, cancel = context.WithTimeout(ctx, s.idle)
		}
		typ, data, err := wc.Read(rctx)
		if cancel != nil {
			cancel()
		}
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		s.events <- Event{Type: Data, Conn: c.id, Payload: string(data)}
	}
}

func (s *WSServer) Close() error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.srv.Shutdown(ctx)
	s.wg.Wait()
	return err
}

type wsConn struct {
	id string
	wc *websocket.Conn
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(payload string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return c.wc.Write(ctx, websocket.MessageText, []byte(payload))
}

func (c *wsConn) Close() error { return c.wc.Close(websocket.StatusNormalClosure, "") }
