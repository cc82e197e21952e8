// Package domain contains core concepts of the relay.
// This file defines Session identifiers and the per-session lifecycle.
package domain

import "github.com/google/uuid"

type SessionID string

func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// SessionState follows Connected -> Identified -> Closed.
type SessionState int

const (
	Connected SessionState = iota
	Identified
	Closed
)

func (s SessionState) String() string {
	switch s {
	case Connected:
		return "connected"
	case Identified:
		return "identified"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is a read-only view handed out by the registry.
type Session struct {
	ID       SessionID
	Identity Identity
	State    SessionState
}
