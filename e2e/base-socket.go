package e2e

import (
	"chat-relay/client"
	"chat-relay/domain/event"
	"chat-relay/infrastructure/rest"
	"chat-relay/infrastructure/ws"
	"chat-relay/runtime"
	"context"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
)

const eventTimeout = 3 * time.Second

type BaseSocketSuite struct {
	suite.Suite
	Config Config
	server *httptest.Server
}

// SetupSuite loads the environment configuration and, without RELAY_URL,
// starts a relay on a random local port.
func (s *BaseSocketSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	if s.Config.RelayURL != "" {
		return
	}
	log := logs.GetLoggerFromLevel(slog.LevelWarn)
	relay := runtime.NewRelay(log, time.Second)
	socket := ws.NewServer(log, relay, ws.Options{AllowedOrigin: s.Config.RelayOrigin})
	s.server = httptest.NewServer(rest.NewRouter(log, socket, relay, rest.RouterOptions{
		SocketPath:    "/socket",
		AllowedOrigin: s.Config.RelayOrigin,
	}))
	s.Config.RelayURL = "ws" + strings.TrimPrefix(s.server.URL, "http") + "/socket"
}

func (s *BaseSocketSuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
}

// Connect dials the relay with a colorized header in the logs.
// The connection is closed at the end of the test.
func (s *BaseSocketSuite) Connect(name string) *client.Client {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c, err := client.Dial(ctx, s.Config.RelayURL, s.Config.RelayOrigin, 64)
	s.Require().NoError(err, "Failed to connect to relay at "+s.Config.RelayURL)
	s.T().Cleanup(func() { _ = c.Close() })
	return c
}

// Identified connects, sends setup and waits for the Connected ack.
func (s *BaseSocketSuite) Identified(name, identity string, chats ...string) *client.Client {
	c := s.Connect(name)
	s.Require().NoError(c.Setup(identity))
	s.Expect(c, event.Connected)
	for _, chat := range chats {
		s.Require().NoError(c.JoinChat(chat))
	}
	return c
}

// Expect waits for the next event and requires it to be named name.
func (s *BaseSocketSuite) Expect(c *client.Client, name event.Name) event.Envelope {
	env, ok := c.Next(eventTimeout)
	s.Require().True(ok, "no %q event received", name)
	s.logFrame(env)
	s.Require().Equal(name, env.Event)
	return env
}

// ExpectSilence requires that nothing arrives within d.
func (s *BaseSocketSuite) ExpectSilence(c *client.Client, d time.Duration) {
	env, ok := c.Next(d)
	if ok {
		s.logFrame(env)
	}
	s.Require().False(ok, "unexpected %q event", env.Event)
}

func (s *BaseSocketSuite) logFrame(env event.Envelope) {
	if !s.Config.DebugJSON {
		return
	}
	line := fmt.Sprintf("RECV %s %s", env.Event, string(env.Data))
	if s.Config.Colours {
		line = color.Cyan.Render(line)
	}
	s.T().Log(line)
}
