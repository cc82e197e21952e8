package domain

// Targets is a union of rooms and explicit sessions to deliver to.
type Targets struct {
	Rooms    []RoomID
	Sessions []SessionID
}

func ToRooms(rooms ...RoomID) Targets {
	return Targets{Rooms: rooms}
}

func ToSessions(sessions ...SessionID) Targets {
	return Targets{Sessions: sessions}
}

func (t Targets) IsEmpty() bool {
	return len(t.Rooms) == 0 && len(t.Sessions) == 0
}
