// Package runtime holds the relay engine: session registry, room table,
// dispatcher and broadcaster. It has no knowledge of the transport.
package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/observability"
	"context"
	stderrors "errors"
	"log/slog"
	"sort"
	"time"

	"github.com/samber/lo"
)

// Relay is what a transport talks to: one Connect per accepted connection,
// Handle for every inbound frame in arrival order, one Disconnect on close.
type Relay struct {
	log         *slog.Logger
	rooms       *RoomTable
	registry    *Registry
	broadcaster *Broadcaster
	dispatcher  *Dispatcher
	counters    *observability.Counters
}

func NewRelay(log *slog.Logger, sinkTimeout time.Duration) *Relay {
	counters := observability.NewCounters()
	rooms := NewRoomTable()
	registry := NewRegistry(rooms)
	broadcaster := NewBroadcaster(log, registry, rooms, counters, sinkTimeout)
	return &Relay{
		log:         log,
		rooms:       rooms,
		registry:    registry,
		broadcaster: broadcaster,
		dispatcher:  NewDispatcher(log, registry, broadcaster, counters),
		counters:    counters,
	}
}

func (r *Relay) Connect(sink contract.EventSink) domain.SessionID {
	sessionID := r.registry.Register(sink)
	r.counters.Connected()
	r.log.Debug("Session connected", "session_id", sessionID)
	return sessionID
}

// Handle decodes and dispatches one frame. Every failure is handled here and
// returned for information only, none of them should close the connection.
func (r *Relay) Handle(ctx context.Context, sessionID domain.SessionID, frame []byte) error {
	evt, err := event.Decode(frame)
	if err == nil {
		err = r.dispatcher.Dispatch(ctx, sessionID, evt)
	}
	if err != nil {
		r.report(sessionID, err)
	}
	return err
}

func (r *Relay) report(sessionID domain.SessionID, err error) {
	switch {
	case stderrors.Is(err, errors.ErrMalformedMessagePayload):
		r.log.Warn("Message dropped, users not found", "session_id", sessionID, "error", err)
	case stderrors.Is(err, errors.ErrAlreadyAssociated):
		r.log.Warn("Setup rejected", "session_id", sessionID, "error", err)
	case stderrors.Is(err, errors.ErrUnknownSession):
		r.log.Debug("Event for released session ignored", "session_id", sessionID)
	default:
		r.log.Warn("Event dropped", "session_id", sessionID, "error", err)
	}
}

// Disconnect releases the session. Safe under concurrent close signals,
// only the first call does anything.
func (r *Relay) Disconnect(sessionID domain.SessionID) bool {
	if !r.registry.Release(sessionID) {
		return false
	}
	r.counters.Disconnected()
	r.log.Debug("Session released", "session_id", sessionID)
	return true
}

// Shutdown releases every live session and returns how many were closed.
func (r *Relay) Shutdown() int {
	closed := 0
	for _, sessionID := range r.registry.Sessions() {
		if r.Disconnect(sessionID) {
			closed++
		}
	}
	return closed
}

func (r *Relay) Session(sessionID domain.SessionID) (domain.Session, bool) {
	return r.registry.Lookup(sessionID)
}

func (r *Relay) RoomsOf(sessionID domain.SessionID) []domain.RoomID {
	return r.rooms.RoomsOf(sessionID)
}

func (r *Relay) Stats() observability.RelayStats {
	stats := observability.RelayStats{
		Sessions:   r.registry.Count(),
		Identities: r.registry.Identities(),
		Rooms:      r.rooms.Len(),
	}
	r.counters.Fill(&stats)
	return stats
}

type RoomView struct {
	Room     string   `json:"room"`
	Kind     string   `json:"kind"`
	Key      string   `json:"key"`
	Sessions []string `json:"sessions"`
}

// RoomsSnapshot lists rooms sorted by name, members sorted by session id.
func (r *Relay) RoomsSnapshot() []RoomView {
	snapshot := r.rooms.Snapshot()
	views := make([]RoomView, 0, len(snapshot))
	for roomID, members := range snapshot {
		sessions := lo.Map(members, func(id domain.SessionID, _ int) string { return string(id) })
		sort.Strings(sessions)
		views = append(views, RoomView{
			Room:     roomID.String(),
			Kind:     roomID.Kind.String(),
			Key:      roomID.Key,
			Sessions: sessions,
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Room < views[j].Room })
	return views
}
