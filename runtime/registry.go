package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"fmt"
	"sync"

	"github.com/samber/lo"
)

type session struct {
	identity domain.Identity
	state    domain.SessionState
	sink     contract.EventSink
}

// Registry owns live sessions and their identity.
// Membership changes that depend on liveness go through it so a released
// session can never be joined back into a room.
// Lock order is always Registry then RoomTable.
type Registry struct {
	mu         sync.RWMutex
	sessions   map[domain.SessionID]*session // map session -> connection state
	identities map[domain.Identity]int       // map identity -> number of live sessions
	rooms      contract.IRoomTable
}

func NewRegistry(rooms contract.IRoomTable) *Registry {
	return &Registry{
		sessions:   make(map[domain.SessionID]*session),
		identities: make(map[domain.Identity]int),
		rooms:      rooms,
	}
}

// Register creates a session with no identity and no rooms.
func (r *Registry) Register(sink contract.EventSink) domain.SessionID {
	id := domain.NewSessionID()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = &session{state: domain.Connected, sink: sink}
	return id
}

// Associate binds an identity once and joins the session to its personal room.
// Repeating the same identity is a no-op returning false. A different identity
// is rejected and the first association is kept.
func (r *Registry) Associate(sessionID domain.SessionID, identity domain.Identity) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return false, fmt.Errorf("%w: %s", errors.ErrUnknownSession, sessionID)
	}
	switch {
	case s.state == domain.Connected:
		s.identity = identity
		s.state = domain.Identified
		r.identities[identity]++
		r.rooms.Join(sessionID, domain.PersonalRoom(identity))
		return true, nil
	case s.identity == identity:
		return false, nil
	default:
		return false, fmt.Errorf("%w: %s is bound to %q", errors.ErrAlreadyAssociated, sessionID, s.identity)
	}
}

// JoinRoom joins a live session to a room. It returns false when the session
// was already a member.
func (r *Registry) JoinRoom(sessionID domain.SessionID, roomID domain.RoomID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.sessions[sessionID]; !ok {
		return false, fmt.Errorf("%w: %s", errors.ErrUnknownSession, sessionID)
	}
	return r.rooms.Join(sessionID, roomID), nil
}

// Release removes the session from every room and from the registry.
// Only the first call for a session returns true, later ones are no-ops.
// The sink is closed after the registry lock is dropped.
func (r *Registry) Release(sessionID domain.SessionID) bool {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.sessions, sessionID)
	r.rooms.LeaveAll(sessionID)
	if s.state == domain.Identified {
		r.identities[s.identity]--
		if r.identities[s.identity] <= 0 {
			delete(r.identities, s.identity)
		}
	}
	s.state = domain.Closed
	r.mu.Unlock()

	if s.sink != nil {
		s.sink.Close()
	}
	return true
}

func (r *Registry) Lookup(sessionID domain.SessionID) (domain.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return domain.Session{ID: sessionID, State: domain.Closed}, false
	}
	return domain.Session{ID: sessionID, Identity: s.identity, State: s.state}, true
}

func (r *Registry) Sink(sessionID domain.SessionID) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[sessionID]
	if !ok || s.sink == nil {
		return nil, false
	}
	return s.sink, true
}

func (r *Registry) Sessions() []domain.SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.sessions)
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Identities is the number of distinct identities with at least one live session.
func (r *Registry) Identities() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.identities)
}
