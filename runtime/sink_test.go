package runtime

import (
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	"sync"
)

// recordingSink keeps every event it was handed.
type recordingSink struct {
	mu     sync.Mutex
	events []event.Outbound
	closed bool
}

func (s *recordingSink) Consume(_ context.Context, e event.Outbound) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrSinkClosed
	}
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *recordingSink) Names() []event.Name {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]event.Name, 0, len(s.events))
	for _, e := range s.events {
		names = append(names, e.Event)
	}
	return names
}

func (s *recordingSink) Events() []event.Outbound {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.Outbound(nil), s.events...)
}

func (s *recordingSink) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
