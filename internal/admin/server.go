// Package admin serves a read-only status endpoint for operators. Queries
// are funneled through the hub's query channel, so admin reads never race
// the orchestration state.
package admin

import (
	"encoding/json"

	"github.com/kapu/gridmatch/internal/hub"
	"github.com/kapu/gridmatch/internal/obslog"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

type Server struct {
	addr string
	hub  *hub.Hub
	srv  *fasthttp.Server
}

func NewServer(addr string, h *hub.Hub) *Server {
	return &Server{addr: addr, hub: h}
}

type roomView struct {
	RoomID        int  `json:"room_id"`
	ObserverCount int  `json:"observer_count"`
	InProgress    bool `json:"in_progress"`
}

type replayView struct {
	Index   int    `json:"index"`
	Player1 string `json:"player1"`
	Player2 string `json:"player2"`
}

// Start serves in a background goroutine.
func (s *Server) Start() {
	s.srv = &fasthttp.Server{Handler: s.route, Name: "gridmatch-admin"}
	obslog.L().Info("admin_listen", zap.String("addr", s.addr))
	go func() {
		if err := s.srv.ListenAndServe(s.addr); err != nil {
			obslog.L().Error("admin_serve_error", zap.Error(err))
		}
	}()
}

func (s *Server) Close() error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown()
}

func (s *Server) route(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case "/healthz":
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	case "/rooms":
		rooms := s.hub.RoomList()
		views := make([]roomView, 0, len(rooms))
		for _, r := range rooms {
			views = append(views, roomView{RoomID: r.ID, ObserverCount: r.ObserverCount, InProgress: r.InProgress})
		}
		writeJSON(ctx, views)
	case "/replays":
		entries := s.hub.ReplayEntries(ctx)
		views := make([]replayView, 0, len(entries))
		for _, e := range entries {
			views = append(views, replayView{Index: e.Index, Player1: e.Player1, Player2: e.Player2})
		}
		writeJSON(ctx, views)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func writeJSON(ctx *fasthttp.RequestCtx, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetBody(raw)
}
