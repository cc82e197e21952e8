// Package domain contains core concepts of the relay.
// This file defines Identity and Participant, the way a user is referenced
// by clients in setup and message payloads.
package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Identity is supplied by the client after authentication elsewhere.
// It is trusted as is.
type Identity string

func (i Identity) IsZero() bool { return strings.TrimSpace(string(i)) == "" }

// Participant accepts either a bare string or a user document carrying
// "_id" (document store convention) or "id".
type Participant struct {
	ID Identity
}

type participantDocument struct {
	MongoID string `json:"_id,omitempty"`
	ID      string `json:"id,omitempty"`
}

func (p *Participant) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		p.ID = Identity(raw)
		return nil
	}
	var doc participantDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("participant must be a string or an object: %w", err)
	}
	if doc.MongoID != "" {
		p.ID = Identity(doc.MongoID)
	} else {
		p.ID = Identity(doc.ID)
	}
	return nil
}

func (p Participant) MarshalJSON() ([]byte, error) {
	return json.Marshal(participantDocument{ID: string(p.ID)})
}
