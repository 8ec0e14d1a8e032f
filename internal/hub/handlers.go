package hub

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/kapu/gridmatch/internal/account"
	"github.com/kapu/gridmatch/internal/game"
	"github.com/kapu/gridmatch/internal/obslog"
	"github.com/kapu/gridmatch/internal/protocol"
	"github.com/kapu/gridmatch/internal/results"
	"github.com/kapu/gridmatch/internal/transport"
	"go.uber.org/zap"
)

func (h *Hub) handle(ctx context.Context, ev transport.Event) {
	switch ev.Type {
	case transport.Connect:
		obslog.L().Info("conn_open", zap.String("conn", ev.Conn))
	case transport.Data:
		h.handleData(ctx, ev.Conn, ev.Payload)
	case transport.Disconnect:
		h.handleDisconnect(ctx, ev.Conn)
	}
}

func (h *Hub) handleData(ctx context.Context, id, payload string) {
	req, err := protocol.Decode(payload)
	if err != nil {
		// malformed input drops the frame, never the server
		obslog.L().Warn("frame_drop", zap.String("conn", id), zap.Error(err))
		return
	}

	switch req.Signifier {
	case protocol.CreateAccount:
		h.handleCreateAccount(id, req)
	case protocol.Login:
		h.handleLogin(id, req)
	case protocol.JoinQueueForGameRoom:
		h.handleJoinQueue(id)
	case protocol.TicTacToePlay:
		h.handlePlay(ctx, id, req)
	case protocol.LeaveRoom:
		h.handleLeave(ctx, id, true)
	case protocol.TextMessage:
		h.handleText(id, req)
	case protocol.RequestReplayList:
		h.handleReplayList(ctx, id)
	case protocol.RequestReplayByIndex:
		h.handleReplayByIndex(ctx, id, req)
	case protocol.GetGameRoomList:
		h.handleRoomList(id)
	case protocol.SpectateGame:
		h.handleSpectate(id, req)
	}
}

func (h *Hub) handleDisconnect(ctx context.Context, id string) {
	obslog.L().Info("conn_close", zap.String("conn", id))
	if h.waiting == id {
		h.waiting = ""
	}
	// a connection may observe several rooms; detach it from every one so no
	// room keeps a dead id in its observer set
	for h.rooms.FindByOccupant(id) != nil {
		h.handleLeave(ctx, id, false)
	}
	delete(h.sessions, id)
}

func (h *Hub) handleCreateAccount(id string, req protocol.Request) {
	name, password := req.Fields[0], req.Fields[1]
	err := h.accounts.Create(name, password)
	switch {
	case errors.Is(err, account.ErrNameInUse):
		h.unicast(id, protocol.Encode(protocol.AccountCreationFailed, h.cat.Text("auth.name_in_use")))
		return
	case errors.Is(err, account.ErrBadName):
		h.unicast(id, protocol.Encode(protocol.AccountCreationFailed, h.cat.Text("auth.bad_name")))
		return
	case err != nil:
		obslog.L().Error("account_persist_error", zap.String("name", name), zap.Error(err))
		h.unicast(id, protocol.Encode(protocol.AccountCreationFailed, h.cat.Text("server.storage_error")))
		return
	}
	h.sessions[id] = name
	obslog.L().Info("account_create", zap.String("conn", id), zap.String("name", name))
	h.unicast(id, protocol.Encode(protocol.AccountCreationOK, h.cat.Text("auth.create_ok")))
}

func (h *Hub) handleLogin(id string, req protocol.Request) {
	name, password := req.Fields[0], req.Fields[1]
	err := h.accounts.Login(name, password)
	switch {
	case errors.Is(err, account.ErrUnknownAccount):
		h.unicast(id, protocol.Encode(protocol.LoginFailed, h.cat.Text("auth.unknown_account")))
		return
	case errors.Is(err, account.ErrWrongPassword):
		h.unicast(id, protocol.Encode(protocol.LoginFailed, h.cat.Text("auth.wrong_password")))
		return
	}
	h.sessions[id] = name
	obslog.L().Info("login", zap.String("conn", id), zap.String("name", name))
	h.unicast(id, protocol.Encode(protocol.LoginComplete, h.cat.Text("auth.login_ok")))
}

// handleJoinQueue pairs the arrival with the waiting player, or parks it in
// the single waiting slot. First arrival always gets the first-moving team.
func (h *Hub) handleJoinQueue(id string) {
	if h.waiting == "" || h.waiting == id {
		h.waiting = id
		obslog.L().Info("queue_wait", zap.String("conn", id))
		return
	}

	first := h.waiting
	h.waiting = ""
	room := h.rooms.Allocate(first, id)
	h.gameStart[room.ID] = time.Now()
	obslog.L().Info("game_start",
		zap.Int("room_id", room.ID),
		zap.String("team_a", h.displayName(first)),
		zap.String("team_b", h.displayName(id)),
	)

	h.unicast(first, protocol.EncodeInts(protocol.GameStart, int(game.TeamA)))
	h.unicast(id, protocol.EncodeInts(protocol.GameStart, int(game.TeamB)))
	for _, obs := range room.Observers() {
		h.unicast(obs, protocol.EncodeInts(protocol.GameStart, int(game.TeamNone)))
	}
}

func (h *Hub) handlePlay(ctx context.Context, id string, req protocol.Request) {
	loc, err := req.Int(0)
	if err != nil {
		obslog.L().Warn("frame_drop", zap.String("conn", id), zap.Error(err))
		return
	}
	room := h.rooms.FindByOccupant(id)
	if room == nil {
		h.unicast(id, protocol.Encode(protocol.ServerTextMessage, h.cat.Text("room.not_in_room")))
		return
	}
	if !room.IsOccupant(id) {
		h.unicast(id, protocol.Encode(protocol.ServerTextMessage, h.cat.Text("room.not_your_seat")))
		return
	}
	if !room.InProgress() {
		h.unicast(id, protocol.Encode(protocol.ServerTextMessage, h.cat.Text("room.game_over")))
		return
	}

	team := room.TeamOf(id)
	outcome, err := room.Apply(team, loc)
	if errors.Is(err, game.ErrIllegalMove) {
		h.unicast(id, protocol.Encode(protocol.ServerTextMessage, h.cat.Text("room.illegal_move")))
		return
	}

	// the mover already knows its own move: fan out to the opponent and the
	// observers only
	move := protocol.EncodeInts(protocol.OpponentPlayed, loc, int(team), int(outcome))
	h.roomcast(room, id, move)

	if outcome == game.ContinuePlay {
		return
	}
	h.declareResult(ctx, room, outcome)
}

// declareResult finishes a natural completion: game-over fan-out to both
// occupants and every observer, then the replay save and the optional
// results row.
func (h *Hub) declareResult(ctx context.Context, room *game.Room, outcome game.Outcome) {
	over := protocol.EncodeInts(protocol.GameOver, int(outcome))
	h.roomcast(room, "", over)

	p1 := h.displayName(room.PlayerA())
	p2 := h.displayName(room.PlayerB())
	index, err := h.replays.Save(ctx, room.Steps(), p1, p2)
	if err != nil {
		// a failed save must not take the room down with it
		obslog.L().Error("replay_save_error", zap.Int("room_id", room.ID), zap.Error(err))
	} else {
		obslog.L().Info("replay_save", zap.Int("room_id", room.ID), zap.Int("index", index))
	}
	h.saveResult(ctx, room, p1, p2, outcome, results.MethodNatural)
}

// handleLeave detaches id from its room. An occupant leaving a running game
// forfeits: the opponent wins. Forfeits do not produce a replay; only
// natural completions do (see DESIGN.md).
func (h *Hub) handleLeave(ctx context.Context, id string, explicit bool) {
	room := h.rooms.FindByOccupant(id)
	if room == nil {
		if explicit {
			h.unicast(id, protocol.Encode(protocol.ServerTextMessage, h.cat.Text("room.not_in_room")))
		}
		return
	}

	p1 := h.displayName(room.PlayerA())
	p2 := h.displayName(room.PlayerB())
	forfeit, winner := room.Leave(id)
	if !forfeit {
		obslog.L().Info("room_leave", zap.Int("room_id", room.ID), zap.String("conn", id))
		return
	}

	obslog.L().Info("game_forfeit",
		zap.Int("room_id", room.ID),
		zap.String("leaver", h.displayName(id)),
		zap.Int("winner_team", int(winner)),
	)
	over := protocol.EncodeInts(protocol.GameOver, int(game.WinnerOutcome(winner)))
	h.roomcast(room, id, over)
	h.saveResult(ctx, room, p1, p2, game.WinnerOutcome(winner), results.MethodForfeit)
}

func (h *Hub) handleText(id string, req protocol.Request) {
	room := h.rooms.FindByOccupant(id)
	if room == nil {
		h.unicast(id, protocol.Encode(protocol.ServerTextMessage, h.cat.Text("room.not_in_room")))
		return
	}
	text := h.displayName(id) + ": " + req.Fields[0]
	h.roomcast(room, id, protocol.Encode(protocol.ServerTextMessage, text))
}

func (h *Hub) handleReplayList(ctx context.Context, id string) {
	name, ok := h.sessions[id]
	if !ok {
		h.unicast(id, protocol.Encode(protocol.ServerTextMessage, h.cat.Text("auth.login_first")))
		return
	}
	indices, err := h.replays.ListIndicesForPlayer(ctx, name)
	if err != nil {
		obslog.L().Error("replay_list_error", zap.String("name", name), zap.Error(err))
		h.unicast(id, protocol.Encode(protocol.ServerTextMessage, h.cat.Text("server.storage_error")))
		return
	}
	fields := make([]int, 0, len(indices)+1)
	fields = append(fields, protocol.SubopFull)
	fields = append(fields, indices...)
	h.unicast(id, protocol.EncodeInts(protocol.ReplayIndexList, fields...))
}

func (h *Hub) handleReplayByIndex(ctx context.Context, id string, req protocol.Request) {
	index, err := req.Int(0)
	if err != nil {
		obslog.L().Warn("frame_drop", zap.String("conn", id), zap.Error(err))
		return
	}
	steps, err := h.replays.LoadSteps(ctx, index)
	if err != nil {
		obslog.L().Error("replay_load_error", zap.Int("index", index), zap.Error(err))
		h.unicast(id, protocol.Encode(protocol.ServerTextMessage, h.cat.Text("server.storage_error")))
		return
	}
	fields := []string{strconv.Itoa(protocol.SubopFull)}
	for _, step := range steps {
		if step == "" {
			continue // turn boundaries are implied by field position on the wire
		}
		fields = append(fields, strings.ReplaceAll(step, ",", "."))
	}
	h.unicast(id, protocol.Encode(protocol.ReplayInformation, fields...))
}

func (h *Hub) handleRoomList(id string) {
	sent := false
	for _, info := range h.rooms.Snapshot() {
		if !info.InProgress {
			continue
		}
		h.unicast(id, protocol.EncodeInts(protocol.GameRoomList, info.ID, info.ObserverCount))
		sent = true
	}
	if !sent {
		// room id -1 marks an empty listing; the request never goes unanswered
		h.unicast(id, protocol.EncodeInts(protocol.GameRoomList, -1, 0))
	}
}

func (h *Hub) handleSpectate(id string, req protocol.Request) {
	roomID, err := req.Int(0)
	if err != nil {
		obslog.L().Warn("frame_drop", zap.String("conn", id), zap.Error(err))
		return
	}
	room, err := h.rooms.Get(roomID)
	if err != nil {
		h.unicast(id, protocol.Encode(protocol.ServerTextMessage, h.cat.Text("room.not_found")))
		return
	}
	room.AddObserver(id)
	obslog.L().Info("spectate", zap.Int("room_id", room.ID), zap.String("conn", id))
	h.unicast(id, protocol.EncodeInts(protocol.GameStart, int(game.TeamNone)))
}

// roomcast unicasts payload to both occupants and every observer, skipping
// origin and empty seats. Each delivery is an independent unicast; there is
// no ordering guarantee across recipients.
func (h *Hub) roomcast(room *game.Room, origin, payload string) {
	for _, id := range []string{room.PlayerA(), room.PlayerB()} {
		if id != "" && id != origin {
			h.unicast(id, payload)
		}
	}
	for _, id := range room.Observers() {
		if id != origin {
			h.unicast(id, payload)
		}
	}
}

func (h *Hub) unicast(id, payload string) {
	if err := h.sender.Send(id, payload); err != nil {
		obslog.L().Warn("send_error", zap.String("conn", id), zap.Error(err))
	}
}

func (h *Hub) saveResult(ctx context.Context, room *game.Room, p1, p2 string, outcome game.Outcome, method string) {
	if h.repo == nil {
		return
	}
	started, ok := h.gameStart[room.ID]
	if !ok {
		started = time.Now()
	}
	delete(h.gameStart, room.ID)
	moves := 0
	for _, step := range room.Steps() {
		if step != "" {
			moves++
		}
	}
	res := &results.MatchResult{
		Player1:   p1,
		Player2:   p2,
		Outcome:   outcomeToken(outcome),
		Method:    method,
		MoveCount: moves,
		StartedAt: started,
		EndedAt:   time.Now(),
	}
	if err := h.repo.SaveResult(ctx, res); err != nil {
		obslog.L().Error("result_persist_error", zap.Int("room_id", room.ID), zap.Error(err))
	}
}

func outcomeToken(o game.Outcome) string {
	switch o {
	case game.TeamAWin:
		return "team_a"
	case game.TeamBWin:
		return "team_b"
	case game.Tie:
		return "tie"
	}
	return "unknown"
}

// displayName resolves a connection to its account name, falling back to a
// short connection tag for unauthenticated players.
func (h *Hub) displayName(id string) string {
	if name, ok := h.sessions[id]; ok {
		return name
	}
	if id == "" {
		return ""
	}
	tag := id
	if len(tag) > 8 {
		tag = tag[:8]
	}
	return "Player-" + tag
}
