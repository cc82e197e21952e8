package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/observability"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
)

const defaultSinkTimeout = time.Second

// Broadcaster fans one outbound event out to a computed set of sessions.
//
// Delivery is best-effort and at-most-once: no queuing, no retry. A target
// released between resolution and delivery is skipped silently, the registry
// is the authority on liveness.
//
// Broadcaster is safe for concurrent use by multiple goroutines.
type Broadcaster struct {
	log         *slog.Logger
	registry    contract.ISessionRegistry
	rooms       contract.IRoomTable
	counters    *observability.Counters
	sinkTimeout time.Duration
}

func NewBroadcaster(log *slog.Logger, registry contract.ISessionRegistry, rooms contract.IRoomTable,
	counters *observability.Counters, sinkTimeout time.Duration) *Broadcaster {
	if sinkTimeout <= 0 {
		sinkTimeout = defaultSinkTimeout
	}
	return &Broadcaster{
		log:         log,
		registry:    registry,
		rooms:       rooms,
		counters:    counters,
		sinkTimeout: sinkTimeout,
	}
}

// Deliver returns the number of sessions the event was handed to.
func (b *Broadcaster) Deliver(ctx context.Context, targets domain.Targets, evt event.Outbound, excluding *domain.SessionID) int {
	recipients := b.resolve(targets, excluding)
	delivered := 0
	for _, sessionID := range recipients {
		err := b.deliverTo(ctx, sessionID, evt)
		switch {
		case err == nil:
			delivered++
		case stderrors.Is(err, errors.ErrStaleDeliveryTarget), stderrors.Is(err, errors.ErrSinkClosed):
			b.counters.Stale()
			b.log.Debug("Skipping stale delivery target", "session_id", sessionID, "event", evt.Event)
		default:
			b.counters.Dropped()
			b.log.Warn("Event dropped for session", "session_id", sessionID, "event", evt.Event, "error", err)
		}
	}
	b.counters.Delivered(delivered)
	return delivered
}

// resolve unions room members with explicit sessions, once each, minus excluding.
func (b *Broadcaster) resolve(targets domain.Targets, excluding *domain.SessionID) []domain.SessionID {
	var ids []domain.SessionID
	for _, roomID := range targets.Rooms {
		ids = append(ids, b.rooms.MembersOf(roomID)...)
	}
	ids = append(ids, targets.Sessions...)
	ids = lo.Uniq(ids)
	if excluding != nil {
		ids = lo.Without(ids, *excluding)
	}
	return ids
}

// deliverTo hands evt to one session's sink within sinkTimeout.
func (b *Broadcaster) deliverTo(ctx context.Context, sessionID domain.SessionID, evt event.Outbound) error {
	sink, ok := b.registry.Sink(sessionID)
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrStaleDeliveryTarget, sessionID)
	}
	sinkCtx, cancel := context.WithTimeout(ctx, b.sinkTimeout)
	defer cancel()
	return sink.Consume(sinkCtx, evt)
}
