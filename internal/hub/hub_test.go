package hub

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kapu/gridmatch/internal/account"
	"github.com/kapu/gridmatch/internal/game"
	"github.com/kapu/gridmatch/internal/msgcat"
	"github.com/kapu/gridmatch/internal/replay"
	"github.com/kapu/gridmatch/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCtx = context.Background()

// recorder captures every unicast per connection id.
type recorder struct {
	frames map[string][]string
}

func newRecorder() *recorder { return &recorder{frames: make(map[string][]string)} }

func (r *recorder) Send(id, payload string) error {
	r.frames[id] = append(r.frames[id], payload)
	return nil
}

func (r *recorder) take(id string) []string {
	out := r.frames[id]
	delete(r.frames, id)
	return out
}

func newTestHub(t *testing.T) (*Hub, *recorder) {
	t.Helper()
	dir := t.TempDir()
	accounts, err := account.Open(filepath.Join(dir, "accounts.txt"))
	require.NoError(t, err)
	replays, err := replay.OpenFileStore(filepath.Join(dir, "replays"))
	require.NoError(t, err)
	cat, err := msgcat.New("")
	require.NoError(t, err)

	rec := newRecorder()
	h := New(Options{
		Sender:   rec,
		Accounts: accounts,
		Rooms:    game.NewManager(),
		Replays:  replays,
		Catalog:  cat,
	})
	return h, rec
}

func send(h *Hub, conn, frame string) {
	h.handle(testCtx, transport.Event{Type: transport.Data, Conn: conn, Payload: frame})
}

func disconnect(h *Hub, conn string) {
	h.handle(testCtx, transport.Event{Type: transport.Disconnect, Conn: conn})
}

// pair logs two players in and runs them through the matchmaking queue.
func pair(t *testing.T, h *Hub, rec *recorder, connA, nameA, connB, nameB string) {
	t.Helper()
	send(h, connA, "1,"+nameA+",pw")
	send(h, connB, "1,"+nameB+",pw")
	send(h, connA, "3")
	send(h, connB, "3")
	require.Equal(t, []string{"3,account created", "6,0"}, rec.take(connA))
	require.Equal(t, []string{"3,account created", "6,1"}, rec.take(connB))
}

func TestCreateAccountScenario(t *testing.T) {
	h, rec := newTestHub(t)

	send(h, "c1", "1,ann,pw1")
	assert.Equal(t, []string{"3,account created"}, rec.take("c1"))

	send(h, "c2", "1,ann,pw2")
	assert.Equal(t, []string{"4,name already in use"}, rec.take("c2"))
}

func TestLoginOutcomes(t *testing.T) {
	h, rec := newTestHub(t)
	send(h, "c1", "1,ann,pw1")
	rec.take("c1")

	send(h, "c2", "2,ann,nope")
	assert.Equal(t, []string{"2,wrong password"}, rec.take("c2"))

	send(h, "c2", "2,bob,pw1")
	assert.Equal(t, []string{"2,no account exists"}, rec.take("c2"))

	send(h, "c2", "2,ann,pw1")
	assert.Equal(t, []string{"1,login successful"}, rec.take("c2"))
	assert.Equal(t, "ann", h.sessions["c2"])
}

func TestMatchmakingPairsFirstTwoArrivals(t *testing.T) {
	h, rec := newTestHub(t)

	send(h, "c1", "3")
	assert.Empty(t, rec.take("c1"))
	assert.Equal(t, "c1", h.waiting)

	send(h, "c2", "3")
	assert.Equal(t, []string{"6,0"}, rec.take("c1"))
	assert.Equal(t, []string{"6,1"}, rec.take("c2"))
	assert.Equal(t, "", h.waiting)
	require.Len(t, h.rooms.Snapshot(), 1)

	// a third arrival starts a fresh wait
	send(h, "c3", "3")
	assert.Empty(t, rec.take("c3"))
	assert.Equal(t, "c3", h.waiting)
}

func TestFullGameWinFanOutAndReplay(t *testing.T) {
	h, rec := newTestHub(t)
	pair(t, h, rec, "ca", "alice", "cb", "bob")

	send(h, "cs", "10,0") // spectate room 0
	assert.Equal(t, []string{"6,-1"}, rec.take("cs"))

	send(h, "ca", "4,0")
	assert.Empty(t, rec.take("ca")) // a move is never echoed to the mover
	assert.Equal(t, []string{"5,0,0,0"}, rec.take("cb"))
	assert.Equal(t, []string{"5,0,0,0"}, rec.take("cs"))

	send(h, "cb", "4,3")
	send(h, "ca", "4,1")
	send(h, "cb", "4,4")
	rec.take("ca")
	rec.take("cb")
	rec.take("cs")

	send(h, "ca", "4,2") // completes the top row, TeamA wins
	assert.Equal(t, []string{"7,1"}, rec.take("ca"))
	assert.Equal(t, []string{"5,2,0,1", "7,1"}, rec.take("cb"))
	assert.Equal(t, []string{"5,2,0,1", "7,1"}, rec.take("cs"))

	// a natural completion stores a replay under both participants
	send(h, "ca", "7")
	assert.Equal(t, []string{"10,1,1"}, rec.take("ca"))
	send(h, "cb", "7")
	assert.Equal(t, []string{"10,1,1"}, rec.take("cb"))

	send(h, "ca", "8,1")
	assert.Equal(t, []string{"9,1,0.0,3.1,1.0,4.1,2.0"}, rec.take("ca"))
}

func TestLeaveMidGameForfeit(t *testing.T) {
	h, rec := newTestHub(t)
	pair(t, h, rec, "ca", "alice", "cb", "bob")

	send(h, "ca", "4,0")
	rec.take("cb")

	send(h, "ca", "5") // alice abandons the running game
	assert.Equal(t, []string{"7,2"}, rec.take("cb"))
	assert.Empty(t, rec.take("ca"))

	room, err := h.rooms.Get(0)
	require.NoError(t, err)
	assert.Equal(t, game.StateCompleted, room.State())

	// forfeits do not produce a replay
	entries, err := h.replays.Entries(testCtx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDisconnectIsImplicitLeave(t *testing.T) {
	h, rec := newTestHub(t)
	pair(t, h, rec, "ca", "alice", "cb", "bob")

	disconnect(h, "cb")
	assert.Equal(t, []string{"7,1"}, rec.take("ca"))
	_, bound := h.sessions["cb"]
	assert.False(t, bound)
}

func TestWaitingSlotClearedOnDisconnect(t *testing.T) {
	h, rec := newTestHub(t)

	send(h, "c1", "3")
	disconnect(h, "c1")
	assert.Equal(t, "", h.waiting)

	send(h, "c2", "3")
	assert.Empty(t, rec.take("c2"))
	assert.Equal(t, "c2", h.waiting)
	assert.Empty(t, h.rooms.Snapshot())
}

func TestIllegalMoveRejected(t *testing.T) {
	h, rec := newTestHub(t)
	pair(t, h, rec, "ca", "alice", "cb", "bob")

	send(h, "ca", "4,0")
	rec.take("cb")
	send(h, "cb", "4,0") // occupied cell
	assert.Equal(t, []string{"8,illegal move"}, rec.take("cb"))
	assert.Empty(t, rec.take("ca"))

	send(h, "cb", "4,42") // out of range
	assert.Equal(t, []string{"8,illegal move"}, rec.take("cb"))
}

func TestPlayOutsideRoomRejected(t *testing.T) {
	h, rec := newTestHub(t)
	send(h, "c1", "4,0")
	assert.Equal(t, []string{"8,you are not in a game room"}, rec.take("c1"))
}

func TestSpectateUnknownRoom(t *testing.T) {
	h, rec := newTestHub(t)
	send(h, "cs", "10,5")
	assert.Equal(t, []string{"8,no such room"}, rec.take("cs"))
}

func TestSpectatorCannotPlay(t *testing.T) {
	h, rec := newTestHub(t)
	pair(t, h, rec, "ca", "alice", "cb", "bob")
	send(h, "cs", "10,0")
	rec.take("cs")

	send(h, "cs", "4,0")
	assert.Equal(t, []string{"8,you are not seated in this room"}, rec.take("cs"))
}

func TestRoomListing(t *testing.T) {
	h, rec := newTestHub(t)
	pair(t, h, rec, "ca", "alice", "cb", "bob")
	send(h, "cs", "10,0")
	rec.take("cs")

	send(h, "cq", "9")
	assert.Equal(t, []string{"11,0,1"}, rec.take("cq"))
}

func TestRoomListingEmptySentinel(t *testing.T) {
	h, rec := newTestHub(t)
	send(h, "cq", "9")
	assert.Equal(t, []string{"11,-1,0"}, rec.take("cq"))

	// a completed room is not listed either
	pair(t, h, rec, "ca", "alice", "cb", "bob")
	send(h, "ca", "5")
	rec.take("cb")
	send(h, "cq", "9")
	assert.Equal(t, []string{"11,-1,0"}, rec.take("cq"))
}

func TestTextMessageRouting(t *testing.T) {
	h, rec := newTestHub(t)
	pair(t, h, rec, "ca", "alice", "cb", "bob")
	send(h, "cs", "10,0")
	rec.take("cs")

	send(h, "ca", "6,good luck, have fun")
	assert.Empty(t, rec.take("ca"))
	assert.Equal(t, []string{"8,alice: good luck, have fun"}, rec.take("cb"))
	assert.Equal(t, []string{"8,alice: good luck, have fun"}, rec.take("cs"))
}

func TestReplayListRequiresLogin(t *testing.T) {
	h, rec := newTestHub(t)
	send(h, "c1", "7")
	assert.Equal(t, []string{"8,log in before playing"}, rec.take("c1"))
}

func TestMalformedFramesDropped(t *testing.T) {
	h, rec := newTestHub(t)
	for _, frame := range []string{"", "nope", "1,short", "4,notanint", "99,x"} {
		send(h, "c1", frame)
	}
	assert.Empty(t, rec.take("c1"))
}

func TestDisconnectDetachesEveryObservedRoom(t *testing.T) {
	h, rec := newTestHub(t)
	pair(t, h, rec, "ca", "alice", "cb", "bob")
	pair(t, h, rec, "cc", "carol", "cd", "dave")

	send(h, "cs", "10,0")
	send(h, "cs", "10,1")
	require.Equal(t, []string{"6,-1", "6,-1"}, rec.take("cs"))

	disconnect(h, "cs")
	for _, roomID := range []int{0, 1} {
		room, err := h.rooms.Get(roomID)
		require.NoError(t, err)
		assert.Equal(t, 0, room.ObserverCount(), "room %d", roomID)
	}

	// the second room's fan-out must not reach the gone connection
	send(h, "cc", "4,0")
	rec.take("cd")
	assert.Empty(t, rec.take("cs"))

	// both games keep running
	for _, roomID := range []int{0, 1} {
		room, err := h.rooms.Get(roomID)
		require.NoError(t, err)
		assert.True(t, room.InProgress(), "room %d", roomID)
	}
}

func TestRoomReusedAfterCompletion(t *testing.T) {
	h, rec := newTestHub(t)
	pair(t, h, rec, "ca", "alice", "cb", "bob")

	// both leave the completed room
	send(h, "ca", "5")
	rec.take("cb")
	send(h, "cb", "5")

	pair(t, h, rec, "cc", "carol", "cd", "dave")
	require.Len(t, h.rooms.Snapshot(), 1) // same room, reseated
	room, err := h.rooms.Get(0)
	require.NoError(t, err)
	assert.True(t, room.InProgress())
}
