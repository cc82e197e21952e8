package runtime

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func frame(name event.Name, data string) []byte {
	if data == "" {
		return []byte(fmt.Sprintf(`{"event":%q}`, name))
	}
	return []byte(fmt.Sprintf(`{"event":%q,"data":%s}`, name, data))
}

func newTestRelay() *Relay {
	return NewRelay(logs.GetLoggerFromLevel(slog.LevelDebug), time.Second)
}

// connect opens a session, identifies it and joins the given chats.
func connect(t *testing.T, relay *Relay, identity string, chats ...string) (domain.SessionID, *recordingSink) {
	t.Helper()
	ctx := context.Background()
	sink := &recordingSink{}
	sessionID := relay.Connect(sink)
	require.NoError(t, relay.Handle(ctx, sessionID, frame(event.Setup, fmt.Sprintf("%q", identity))))
	for _, chat := range chats {
		require.NoError(t, relay.Handle(ctx, sessionID, frame(event.JoinChat, fmt.Sprintf("%q", chat))))
	}
	return sessionID, sink
}

func TestRelay_TwoUsersChatting(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	relay := newTestRelay()

	// Given two identified sessions in the same chat
	s1, sink1 := connect(t, relay, "u1", "c1")
	s2, sink2 := connect(t, relay, "u2", "c1")
	req.Equal([]event.Name{event.Connected}, sink1.Names())
	req.Equal([]event.Name{event.Connected}, sink2.Names())

	// When u1 types
	req.NoError(relay.Handle(ctx, s1, frame(event.Typing, `"c1"`)))

	// Then only u2 hears it
	req.Equal([]event.Name{event.Connected}, sink1.Names())
	req.Equal([]event.Name{event.Connected, event.Typing}, sink2.Names())

	// When u1 sends a message
	payload := `{"chat":{"users":["u1","u2"]},"sender":{"id":"u1"},"text":"hi"}`
	req.NoError(relay.Handle(ctx, s1, frame(event.NewMessage, payload)))

	// Then u2 receives the full document and u1 nothing
	events := sink2.Events()
	req.Len(events, 3)
	req.Equal(event.MessageReceived, events[2].Event)
	req.JSONEq(payload, string(events[2].Data))
	req.Len(sink1.Events(), 1)

	// When u2 stops typing
	req.NoError(relay.Handle(ctx, s2, frame(event.StopTyping, `"c1"`)))
	req.Equal([]event.Name{event.Connected, event.StopTyping}, sink1.Names())
}

func TestRelay_MessageReachesEveryDeviceOfRecipient(t *testing.T) {
	req := require.New(t)
	relay := newTestRelay()

	s1, sink1 := connect(t, relay, "u1")
	_, phone := connect(t, relay, "u2")
	_, laptop := connect(t, relay, "u2")
	// A second device of the sender is not a recipient, the sender is excluded by identity
	_, otherSender := connect(t, relay, "u1")

	payload := `{"chat":{"users":[{"_id":"u1"},{"_id":"u2"}]},"sender":{"_id":"u1"},"content":"hey"}`
	req.NoError(relay.Handle(context.Background(), s1, frame(event.NewMessage, payload)))

	req.Equal([]event.Name{event.Connected, event.MessageReceived}, phone.Names())
	req.Equal([]event.Name{event.Connected, event.MessageReceived}, laptop.Names())
	req.Equal([]event.Name{event.Connected}, sink1.Names())
	req.Equal([]event.Name{event.Connected}, otherSender.Names())
}

func TestRelay_MessageDoesNotNeedChatMembership(t *testing.T) {
	req := require.New(t)
	relay := newTestRelay()

	s1, _ := connect(t, relay, "u1")
	_, sink2 := connect(t, relay, "u2")

	payload := `{"chat":{"users":["u1","u2"]},"sender":"u1"}`
	req.NoError(relay.Handle(context.Background(), s1, frame(event.NewMessage, payload)))
	req.Equal([]event.Name{event.Connected, event.MessageReceived}, sink2.Names())
}

func TestRelay_MalformedMessageIsDropped(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	relay := newTestRelay()

	s1, sink1 := connect(t, relay, "u1", "c1")
	_, sink2 := connect(t, relay, "u2", "c1")

	// When the payload has no chat users
	err := relay.Handle(ctx, s1, frame(event.NewMessage, `{"sender":{"_id":"u1"}}`))
	req.ErrorIs(err, errors.ErrMalformedMessagePayload)

	// Then nobody receives anything and the sender stays usable
	req.Len(sink2.Events(), 1)
	req.NoError(relay.Handle(ctx, s1, frame(event.Typing, `"c1"`)))
	req.Equal([]event.Name{event.Connected, event.Typing}, sink2.Names())
	req.False(sink1.IsClosed())
	req.Equal(uint64(1), relay.Stats().Malformed)
}

func TestRelay_InvalidFramesKeepTheSession(t *testing.T) {
	tests := []struct {
		name   string
		frame  []byte
		target error
	}{
		{name: "not json", frame: []byte(`{"event":`), target: errors.ErrInvalidPayload},
		{name: "unknown event", frame: frame("shout", `"c1"`), target: errors.ErrUnknownEvent},
		{name: "join without chat", frame: frame(event.JoinChat, ""), target: errors.ErrInvalidPayload},
		{name: "typing with object", frame: frame(event.Typing, `{"id":1}`), target: errors.ErrInvalidPayload},
		{name: "empty message", frame: frame(event.NewMessage, ""), target: errors.ErrMalformedMessagePayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			relay := newTestRelay()
			s1, sink := connect(t, relay, "u1")

			err := relay.Handle(context.Background(), s1, tt.frame)

			req.ErrorIs(err, tt.target)
			session, ok := relay.Session(s1)
			req.True(ok)
			req.Equal(domain.Identified, session.State)
			req.False(sink.IsClosed())
		})
	}
}

func TestRelay_RepeatedSetupAcksOnce(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	relay := newTestRelay()

	s1, sink := connect(t, relay, "u1")
	req.NoError(relay.Handle(ctx, s1, frame(event.Setup, `"u1"`)))
	req.Equal([]event.Name{event.Connected}, sink.Names())

	// A different identity is refused, the first one stays
	err := relay.Handle(ctx, s1, frame(event.Setup, `"u2"`))
	req.ErrorIs(err, errors.ErrAlreadyAssociated)
	session, _ := relay.Session(s1)
	req.Equal(domain.Identity("u1"), session.Identity)
	req.Equal([]domain.RoomID{domain.PersonalRoom("u1")}, relay.RoomsOf(s1))
}

func TestRelay_EventsBeforeSetup(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	relay := newTestRelay()

	// Given a session that never identified
	anonymous := &recordingSink{}
	s0 := relay.Connect(anonymous)
	_, sink2 := connect(t, relay, "u2", "c1")

	// Joining and typing still work, nothing is addressed to it personally
	req.NoError(relay.Handle(ctx, s0, frame(event.JoinChat, `"c1"`)))
	req.NoError(relay.Handle(ctx, s0, frame(event.Typing, `"c1"`)))
	req.Equal([]event.Name{event.Connected, event.Typing}, sink2.Names())
	req.Empty(anonymous.Events())
}

func TestRelay_TypingInEmptyChat(t *testing.T) {
	req := require.New(t)
	relay := newTestRelay()
	s1, sink := connect(t, relay, "u1")

	req.NoError(relay.Handle(context.Background(), s1, frame(event.Typing, `"nobody-here"`)))
	req.Len(sink.Events(), 1)
}

func TestRelay_DisconnectCleansEverything(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	relay := newTestRelay()

	s1, sink1 := connect(t, relay, "u1", "c1", "c2")
	s2, sink2 := connect(t, relay, "u2", "c1")

	// When s1 disconnects
	req.True(relay.Disconnect(s1))
	req.False(relay.Disconnect(s1))

	// Then it is in no room and receives nothing anymore
	req.True(sink1.IsClosed())
	req.Empty(relay.RoomsOf(s1))
	_, ok := relay.Session(s1)
	req.False(ok)

	req.NoError(relay.Handle(ctx, s2, frame(event.Typing, `"c1"`)))
	payload := `{"chat":{"users":["u1","u2"]},"sender":{"_id":"u2"}}`
	req.NoError(relay.Handle(ctx, s2, frame(event.NewMessage, payload)))
	req.Len(sink1.Events(), 1)

	// And a frame racing behind the close is ignored
	err := relay.Handle(ctx, s1, frame(event.JoinChat, `"c1"`))
	req.ErrorIs(err, errors.ErrUnknownSession)
	req.Empty(relay.RoomsOf(s1))

	stats := relay.Stats()
	req.Equal(1, stats.Sessions)
	req.Equal(1, stats.Identities)
	req.Equal(uint64(2), stats.Connections)
	req.Equal(uint64(1), stats.Disconnections)
	req.Len(sink2.Events(), 1)
}

func TestRelay_ConcurrentDisconnectAndDelivery(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	relay := newTestRelay()

	sender, _ := connect(t, relay, "sender", "c1")
	var sessions []domain.SessionID
	for i := 0; i < 20; i++ {
		id, _ := connect(t, relay, fmt.Sprintf("u%d", i), "c1")
		sessions = append(sessions, id)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_ = relay.Handle(ctx, sender, frame(event.Typing, `"c1"`))
		}
	}()
	go func() {
		defer wg.Done()
		for _, id := range sessions {
			relay.Disconnect(id)
		}
	}()
	wg.Wait()

	req.Equal(1, relay.Stats().Sessions)
	snapshot := relay.RoomsSnapshot()
	for _, room := range snapshot {
		req.Equal([]string{string(sender)}, room.Sessions)
	}
}

func TestRelay_RoomsSnapshotSorted(t *testing.T) {
	req := require.New(t)
	relay := newTestRelay()
	connect(t, relay, "u1", "c2", "c1")

	snapshot := relay.RoomsSnapshot()

	req.Len(snapshot, 3)
	req.Equal("chat:c1", snapshot[0].Room)
	req.Equal("chat:c2", snapshot[1].Room)
	req.Equal("personal:u1", snapshot[2].Room)
	req.Equal("personal", snapshot[2].Kind)
	req.Equal("u1", snapshot[2].Key)
}

func TestRelay_Shutdown(t *testing.T) {
	req := require.New(t)
	relay := newTestRelay()
	_, sink1 := connect(t, relay, "u1", "c1")
	_, sink2 := connect(t, relay, "u2", "c1")

	req.Equal(2, relay.Shutdown())
	req.True(sink1.IsClosed())
	req.True(sink2.IsClosed())
	req.Equal(0, relay.Stats().Sessions)
	req.Empty(relay.RoomsSnapshot())
	req.Equal(0, relay.Shutdown())
}
