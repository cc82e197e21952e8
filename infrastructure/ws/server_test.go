package ws

import (
	"chat-relay/client"
	"chat-relay/domain/event"
	"chat-relay/runtime"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const (
	testOrigin = "http://localhost:3000"
	waitFor    = 2 * time.Second
)

func startServer(t *testing.T, options Options) (*runtime.Relay, string) {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	relay := runtime.NewRelay(log, time.Second)
	srv := httptest.NewServer(NewServer(log, relay, options))
	t.Cleanup(srv.Close)
	return relay, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url, origin string) *client.Client {
	t.Helper()
	c, err := client.Dial(context.Background(), url, origin, 16)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// identified dials, sends setup and joins chats, waiting for the ack.
func identified(t *testing.T, url, identity string, chats ...string) *client.Client {
	t.Helper()
	c := dial(t, url, testOrigin)
	require.NoError(t, c.Setup(identity))
	_, ok := c.WaitFor(event.Connected, waitFor)
	require.True(t, ok, "no Connected ack for %s", identity)
	for _, chat := range chats {
		require.NoError(t, c.JoinChat(chat))
	}
	return c
}

func chatMembers(relay *runtime.Relay, chatID string) int {
	for _, room := range relay.RoomsSnapshot() {
		if room.Room == "chat:"+chatID {
			return len(room.Sessions)
		}
	}
	return 0
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, waitFor, 10*time.Millisecond)
}

func TestServer_TypingAndMessage(t *testing.T) {
	req := require.New(t)
	relay, url := startServer(t, Options{AllowedOrigin: testOrigin})

	c1 := identified(t, url, "u1", "c1")
	c2 := identified(t, url, "u2", "c1")
	eventually(t, func() bool { return chatMembers(relay, "c1") == 2 })

	// When u1 types then sends a message
	req.NoError(c1.Typing("c1"))
	typing, ok := c2.Next(waitFor)
	req.True(ok)
	req.Equal(event.Typing, typing.Event)
	req.JSONEq(`"c1"`, string(typing.Data))

	payload := map[string]any{
		"chat":   map[string]any{"users": []string{"u1", "u2"}},
		"sender": map[string]any{"id": "u1"},
		"text":   "hi",
	}
	req.NoError(c1.NewMessage(payload))

	// Then u2 gets the whole document back
	received, ok := c2.Next(waitFor)
	req.True(ok)
	req.Equal(event.MessageReceived, received.Event)
	expected, err := json.Marshal(payload)
	req.NoError(err)
	req.JSONEq(string(expected), string(received.Data))

	// And u1 heard nothing of its own actions
	_, ok = c1.Next(100 * time.Millisecond)
	req.False(ok)
}

func TestServer_MalformedFrameKeepsConnection(t *testing.T) {
	req := require.New(t)
	relay, url := startServer(t, Options{AllowedOrigin: testOrigin})

	c1 := identified(t, url, "u1", "c1")
	c2 := identified(t, url, "u2", "c1")
	eventually(t, func() bool { return chatMembers(relay, "c1") == 2 })

	req.NoError(c1.SendRaw(event.Envelope{Event: "nonsense"}))
	req.NoError(c1.NewMessage(map[string]any{"sender": "u1"}))
	req.NoError(c1.Typing("c1"))

	typing, ok := c2.WaitFor(event.Typing, waitFor)
	req.True(ok)
	req.Equal(event.Typing, typing.Event)
}

func TestServer_DisconnectReleasesSession(t *testing.T) {
	relay, url := startServer(t, Options{AllowedOrigin: testOrigin})

	c1 := identified(t, url, "u1", "c1")
	identified(t, url, "u2", "c1")
	eventually(t, func() bool { return relay.Stats().Sessions == 2 })

	require.NoError(t, c1.Close())

	eventually(t, func() bool { return relay.Stats().Sessions == 1 })
	eventually(t, func() bool {
		for _, room := range relay.RoomsSnapshot() {
			if room.Room == "personal:u1" {
				return false
			}
		}
		return true
	})
}

func TestServer_OriginPolicy(t *testing.T) {
	_, url := startServer(t, Options{AllowedOrigin: testOrigin})

	tests := []struct {
		name    string
		origin  string
		allowed bool
	}{
		{name: "configured origin", origin: testOrigin, allowed: true},
		{name: "trailing slash and case", origin: "HTTP://localhost:3000/", allowed: true},
		{name: "no origin header", origin: "", allowed: true},
		{name: "foreign origin", origin: "http://evil.example", allowed: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := client.Dial(context.Background(), url, tt.origin, 1)
			if !tt.allowed {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			_ = c.Close()
		})
	}
}

func TestServer_SilentPeerTimesOut(t *testing.T) {
	relay, url := startServer(t, Options{
		AllowedOrigin: testOrigin,
		PingTimeout:   150 * time.Millisecond,
	})

	// Given a peer that never reads, so pings stay unanswered
	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{testOrigin}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	eventually(t, func() bool { return relay.Stats().Sessions == 1 })

	// Then the read deadline expires and the session is released
	eventually(t, func() bool { return relay.Stats().Sessions == 0 })
	require.Equal(t, uint64(1), relay.Stats().Disconnections)
}

func TestServer_ShutdownClosesClients(t *testing.T) {
	relay, url := startServer(t, Options{AllowedOrigin: testOrigin})
	c := identified(t, url, "u1")

	require.Equal(t, 1, relay.Shutdown())

	// The events channel closes once the server close frame arrives
	eventually(t, func() bool {
		select {
		case _, open := <-c.Events():
			return !open
		default:
			return false
		}
	})
}

func TestOptions_WithDefaults(t *testing.T) {
	req := require.New(t)

	o := Options{}.withDefaults()
	req.Equal(defaultPingTimeout, o.PingTimeout)
	req.Equal(defaultPingInterval, o.PingInterval)
	req.Equal(defaultWriteTimeout, o.WriteTimeout)
	req.Equal(defaultBufferSize, o.BufferSize)

	o = Options{PingTimeout: 12 * time.Second, PingInterval: 30 * time.Second}.withDefaults()
	req.Equal(5*time.Second, o.PingInterval)
}
