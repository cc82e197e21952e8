package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/observability"
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
)

type handler func(ctx context.Context, sessionID domain.SessionID, evt event.Inbound) error

// Dispatcher routes one inbound event of a session to its handler.
// Errors it returns are local: the caller logs them and keeps the connection.
type Dispatcher struct {
	log         *slog.Logger
	validator   *validator.Validate
	registry    contract.ISessionRegistry
	broadcaster contract.IBroadcaster
	counters    *observability.Counters
	handlers    map[event.Name]handler
}

func NewDispatcher(log *slog.Logger, registry contract.ISessionRegistry,
	broadcaster contract.IBroadcaster, counters *observability.Counters) *Dispatcher {
	d := &Dispatcher{
		log:         log,
		validator:   validator.New(),
		registry:    registry,
		broadcaster: broadcaster,
		counters:    counters,
	}
	d.handlers = map[event.Name]handler{
		event.Setup:      d.setup,
		event.JoinChat:   d.joinChat,
		event.Typing:     d.typing,
		event.StopTyping: d.typing,
		event.NewMessage: d.newMessage,
	}
	return d
}

func (d *Dispatcher) Dispatch(ctx context.Context, sessionID domain.SessionID, evt event.Inbound) error {
	h, ok := d.handlers[evt.Name()]
	if !ok {
		return fmt.Errorf("%w: %q", errors.ErrUnknownEvent, evt.Name())
	}
	return h(ctx, sessionID, evt)
}

func (d *Dispatcher) setup(ctx context.Context, sessionID domain.SessionID, evt event.Inbound) error {
	e := evt.(event.SetupEvent)
	if err := d.validator.Struct(e); err != nil {
		return fmt.Errorf("%w: setup: %v", errors.ErrInvalidPayload, err)
	}

	associated, err := d.registry.Associate(sessionID, e.Identity)
	if err != nil {
		d.counters.Rejected()
		return err
	}
	// A repeated setup with the same identity is not acked twice.
	if !associated {
		return nil
	}
	d.log.Debug("Session identified", "session_id", sessionID, "identity", e.Identity)
	d.broadcaster.Deliver(ctx, domain.ToSessions(sessionID), event.ConnectedAck(), nil)
	return nil
}

func (d *Dispatcher) joinChat(_ context.Context, sessionID domain.SessionID, evt event.Inbound) error {
	e := evt.(event.JoinChatEvent)
	if err := d.validator.Struct(e); err != nil {
		return fmt.Errorf("%w: join chat: %v", errors.ErrInvalidPayload, err)
	}

	roomID := domain.ChatRoom(e.ChatID)
	joined, err := d.registry.JoinRoom(sessionID, roomID)
	if err != nil {
		return err
	}
	if joined {
		d.log.Info("User joined room", "session_id", sessionID, "room", roomID)
	}
	return nil
}

// typing serves both typing and stop typing, the sender never hears itself.
func (d *Dispatcher) typing(ctx context.Context, sessionID domain.SessionID, evt event.Inbound) error {
	var (
		chatID string
		out    event.Outbound
	)
	switch e := evt.(type) {
	case event.TypingEvent:
		if err := d.validator.Struct(e); err != nil {
			return fmt.Errorf("%w: typing: %v", errors.ErrInvalidPayload, err)
		}
		chatID, out = e.ChatID, event.TypingNotice(e.ChatID)
	case event.StopTypingEvent:
		if err := d.validator.Struct(e); err != nil {
			return fmt.Errorf("%w: stop typing: %v", errors.ErrInvalidPayload, err)
		}
		chatID, out = e.ChatID, event.StopTypingNotice(e.ChatID)
	default:
		return fmt.Errorf("%w: %q", errors.ErrUnknownEvent, evt.Name())
	}

	d.broadcaster.Deliver(ctx, domain.ToRooms(domain.ChatRoom(chatID)), out, &sessionID)
	return nil
}

// newMessage reaches the personal room of every participant but the sender.
// A payload without participants is dropped, there is no correlation id to reply to.
func (d *Dispatcher) newMessage(ctx context.Context, sessionID domain.SessionID, evt event.Inbound) error {
	e := evt.(event.NewMessageEvent)
	if err := d.validator.Struct(e.Payload); err != nil {
		d.counters.Malformed()
		return fmt.Errorf("%w: %v", errors.ErrMalformedMessagePayload, err)
	}

	recipients := e.Payload.Recipients()
	rooms := make([]domain.RoomID, 0, len(recipients))
	for _, identity := range recipients {
		rooms = append(rooms, domain.PersonalRoom(identity))
	}
	if len(rooms) == 0 {
		d.log.Debug("Message has no recipient besides its sender", "session_id", sessionID)
		return nil
	}

	delivered := d.broadcaster.Deliver(ctx, domain.ToRooms(rooms...), event.MessageReceivedEvent(e.Payload.Raw), nil)
	d.log.Debug("Message relayed", "session_id", sessionID, "recipients", len(recipients), "sessions", delivered)
	return nil
}
