// Package domain contains core concepts of the relay.
// This file defines Room identifiers and their two kinds.
// No runtime, network, or UI logic should be added here.
package domain

import "fmt"

type RoomKind int

const (
	// Personal rooms are keyed by identity and reach every session of one user.
	Personal RoomKind = iota + 1
	// Chat rooms are keyed by chat id and scope typing indicators.
	Chat
)

func (k RoomKind) String() string {
	switch k {
	case Personal:
		return "personal"
	case Chat:
		return "chat"
	default:
		return "unknown"
	}
}

// RoomID is comparable and safe to use as a map key.
// A chat id and an identity with the same text never name the same room.
type RoomID struct {
	Kind RoomKind
	Key  string
}

func PersonalRoom(identity Identity) RoomID {
	return RoomID{Kind: Personal, Key: string(identity)}
}

func ChatRoom(chatID string) RoomID {
	return RoomID{Kind: Chat, Key: chatID}
}

func (r RoomID) IsPersonal() bool { return r.Kind == Personal }

func (r RoomID) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.Key)
}
