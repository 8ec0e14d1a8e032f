package game

import (
	"github.com/kapu/gridmatch/internal/obslog"
	"go.uber.org/zap"
)

// Manager owns the room collection. Allocation reuses the first available
// room in creation order; rooms are never removed, so a room's id doubles as
// its position and spectate-by-id lookups stay stable for the process
// lifetime.
type Manager struct {
	rooms []*Room
}

func NewManager() *Manager { return &Manager{} }

// Allocate seats idA (first mover) and idB in the first available room,
// creating a new one when every room is occupied.
func (m *Manager) Allocate(idA, idB string) *Room {
	var room *Room
	for _, r := range m.rooms {
		if r.Available() {
			room = r
			break
		}
	}
	if room == nil {
		room = newRoom(len(m.rooms))
		m.rooms = append(m.rooms, room)
		obslog.L().Info("room_create", zap.Int("room_id", room.ID))
	}
	room.seat(idA, idB)
	return room
}

// Get returns the room with the given id, or ErrRoomNotFound when the id is
// out of range.
func (m *Manager) Get(roomID int) (*Room, error) {
	if roomID < 0 || roomID >= len(m.rooms) {
		return nil, ErrRoomNotFound
	}
	return m.rooms[roomID], nil
}

// FindByOccupant returns the first room where id holds a seat or observes,
// or nil.
func (m *Manager) FindByOccupant(id string) *Room {
	for _, r := range m.rooms {
		if r.IsOccupant(id) || r.IsObserver(id) {
			return r
		}
	}
	return nil
}

// RoomInfo is a point-in-time view for room listings.
type RoomInfo struct {
	ID            int
	ObserverCount int
	InProgress    bool
}

// Snapshot lists every room in creation order.
func (m *Manager) Snapshot() []RoomInfo {
	out := make([]RoomInfo, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, RoomInfo{ID: r.ID, ObserverCount: r.ObserverCount(), InProgress: r.InProgress()})
	}
	return out
}
