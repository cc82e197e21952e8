package runtime

import (
	"chat-relay/domain"
	"sync"

	"github.com/samber/lo"
)

type sessionSet map[domain.SessionID]struct{}
type roomSet map[domain.RoomID]struct{}

// RoomTable is the only owner of room membership.
// It keeps a reverse index so a session's rooms and a room's sessions never disagree.
type RoomTable struct {
	mu           sync.RWMutex
	roomMembers  map[domain.RoomID]sessionSet // map room to sessions
	sessionRooms map[domain.SessionID]roomSet // map session to rooms
}

func NewRoomTable() *RoomTable {
	return &RoomTable{
		roomMembers:  make(map[domain.RoomID]sessionSet),
		sessionRooms: make(map[domain.SessionID]roomSet),
	}
}

// Join adds the session to the room, creating the room on the fly.
// It returns false when the session was already a member.
func (t *RoomTable) Join(sessionID domain.SessionID, roomID domain.RoomID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	members, ok := t.roomMembers[roomID]
	if !ok {
		members = make(sessionSet)
		t.roomMembers[roomID] = members
	}
	if _, already := members[sessionID]; already {
		return false
	}
	members[sessionID] = struct{}{}

	rooms, ok := t.sessionRooms[sessionID]
	if !ok {
		rooms = make(roomSet)
		t.sessionRooms[sessionID] = rooms
	}
	rooms[roomID] = struct{}{}
	return true
}

// Leave removes the session from one room.
// Empty rooms are dropped so nothing dangles.
func (t *RoomTable) Leave(sessionID domain.SessionID, roomID domain.RoomID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.leave(sessionID, roomID)
}

// LeaveAll removes the session from every room it belongs to under a single lock,
// so a concurrent MembersOf sees the session either in all its rooms or in none.
func (t *RoomTable) LeaveAll(sessionID domain.SessionID) []domain.RoomID {
	t.mu.Lock()
	defer t.mu.Unlock()

	rooms := lo.Keys(t.sessionRooms[sessionID])
	for _, roomID := range rooms {
		t.leave(sessionID, roomID)
	}
	return rooms
}

func (t *RoomTable) leave(sessionID domain.SessionID, roomID domain.RoomID) {
	if members, ok := t.roomMembers[roomID]; ok {
		delete(members, sessionID)
		if len(members) == 0 {
			delete(t.roomMembers, roomID)
		}
	}
	if rooms, ok := t.sessionRooms[sessionID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(t.sessionRooms, sessionID)
		}
	}
}

// MembersOf returns a snapshot of the room. An unknown room yields an empty slice.
func (t *RoomTable) MembersOf(roomID domain.RoomID) []domain.SessionID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return lo.Keys(t.roomMembers[roomID])
}

func (t *RoomTable) RoomsOf(sessionID domain.SessionID) []domain.RoomID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return lo.Keys(t.sessionRooms[sessionID])
}

func (t *RoomTable) Snapshot() map[domain.RoomID][]domain.SessionID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	res := make(map[domain.RoomID][]domain.SessionID, len(t.roomMembers))
	for roomID, members := range t.roomMembers {
		res[roomID] = lo.Keys(members)
	}
	return res
}

// Len is the number of non-empty rooms.
func (t *RoomTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.roomMembers)
}
