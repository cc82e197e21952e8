// Package event defines the frames exchanged with relay clients.
// Inbound frames are decoded into one tagged variant per event name.
package event

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"encoding/json"
	"fmt"
)

type Name string

// Inbound names.
const (
	Setup      Name = "setup"
	JoinChat   Name = "join chat"
	Typing     Name = "typing"
	StopTyping Name = "stop typing"
	NewMessage Name = "new message"
)

// Outbound names.
const (
	Connected       Name = "Connected"
	MessageReceived Name = "message received"
)

// Envelope is the JSON shape of every websocket text frame.
type Envelope struct {
	Event Name            `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type Inbound interface {
	Name() Name
}

type SetupEvent struct {
	Identity domain.Identity `validate:"required"`
}

func (SetupEvent) Name() Name { return Setup }

type JoinChatEvent struct {
	ChatID string `validate:"required"`
}

func (JoinChatEvent) Name() Name { return JoinChat }

type TypingEvent struct {
	ChatID string `validate:"required"`
}

func (TypingEvent) Name() Name { return Typing }

type StopTypingEvent struct {
	ChatID string `validate:"required"`
}

func (StopTypingEvent) Name() Name { return StopTyping }

type NewMessageEvent struct {
	Payload domain.MessagePayload
}

func (NewMessageEvent) Name() Name { return NewMessage }

// Decode parses a raw frame into its tagged variant.
// Only JSON shape is checked here, required fields are validated by the dispatcher.
func Decode(frame []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	return DecodeEnvelope(env)
}

func DecodeEnvelope(env Envelope) (Inbound, error) {
	switch env.Event {
	case Setup:
		var p domain.Participant
		if err := unmarshalData(env.Data, &p); err != nil {
			return nil, err
		}
		return SetupEvent{Identity: p.ID}, nil
	case JoinChat:
		var chatID string
		if err := unmarshalData(env.Data, &chatID); err != nil {
			return nil, err
		}
		return JoinChatEvent{ChatID: chatID}, nil
	case Typing:
		var chatID string
		if err := unmarshalData(env.Data, &chatID); err != nil {
			return nil, err
		}
		return TypingEvent{ChatID: chatID}, nil
	case StopTyping:
		var chatID string
		if err := unmarshalData(env.Data, &chatID); err != nil {
			return nil, err
		}
		return StopTypingEvent{ChatID: chatID}, nil
	case NewMessage:
		if len(env.Data) == 0 {
			return nil, fmt.Errorf("%w: empty data", errors.ErrMalformedMessagePayload)
		}
		payload, err := domain.ParseMessagePayload(env.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrMalformedMessagePayload, err)
		}
		return NewMessageEvent{Payload: payload}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, env.Event)
	}
}

func unmarshalData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty data", errors.ErrInvalidPayload)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	return nil
}
