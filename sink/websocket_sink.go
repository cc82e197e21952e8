package sink

import (
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	"fmt"
	"sync"
)

// WebsocketSink is the outbound queue of one connection.
// The broadcaster pushes encoded frames, the connection write pump drains them.
// When the buffer is full the frame is dropped for this session only.
type WebsocketSink struct {
	outbox    chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewWebsocketSink(bufferSize int) *WebsocketSink {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &WebsocketSink{
		outbox: make(chan []byte, bufferSize),
		done:   make(chan struct{}),
	}
}

// Consume is called by the broadcaster.
// It never blocks longer than ctx allows.
func (s *WebsocketSink) Consume(ctx context.Context, e event.Outbound) error {
	select {
	case <-s.done:
		return errors.ErrSinkClosed
	default:
	}

	frame, err := e.Encode()
	if err != nil {
		return fmt.Errorf("encode %q: %w", e.Event, err)
	}

	select {
	case s.outbox <- frame:
		return nil
	case <-s.done:
		return errors.ErrSinkClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.ErrSinkFull
	}
}

// Close stops the sink. The outbox is never closed so a late Consume cannot panic.
func (s *WebsocketSink) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *WebsocketSink) Outbox() <-chan []byte { return s.outbox }

func (s *WebsocketSink) Done() <-chan struct{} { return s.done }
