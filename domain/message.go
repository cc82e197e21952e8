// Package domain contains core concepts of the relay.
// This file defines the message document relayed by "new message".
// The relay never rewrites it: recipients get the raw bytes back.
package domain

import (
	"encoding/json"
	"fmt"
)

type ChatDocument struct {
	ID    string        `json:"_id,omitempty"`
	Users []Participant `json:"users" validate:"required,min=1"`
}

// MessagePayload keeps only the fields routing depends on. Raw holds the
// document exactly as received.
type MessagePayload struct {
	Chat   *ChatDocument   `json:"chat" validate:"required"`
	Sender Participant     `json:"sender"`
	Raw    json.RawMessage `json:"-"`
}

func ParseMessagePayload(data []byte) (MessagePayload, error) {
	var p MessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return MessagePayload{}, fmt.Errorf("decode message payload: %w", err)
	}
	p.Raw = append(json.RawMessage(nil), data...)
	return p, nil
}

// Recipients returns every participant except the sender, in payload order.
// Duplicate identities are kept once.
func (p MessagePayload) Recipients() []Identity {
	if p.Chat == nil {
		return nil
	}
	seen := make(map[Identity]struct{}, len(p.Chat.Users))
	var res []Identity
	for _, u := range p.Chat.Users {
		if u.ID.IsZero() || u.ID == p.Sender.ID {
			continue
		}
		if _, ok := seen[u.ID]; ok {
			continue
		}
		seen[u.ID] = struct{}{}
		res = append(res, u.ID)
	}
	return res
}
