package ws

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/sink"
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

type Options struct {
	AllowedOrigin  string
	PingTimeout    time.Duration
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	MaxMessageSize int64
	BufferSize     int
}

const (
	defaultPingTimeout  = 60 * time.Second
	defaultPingInterval = 25 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultBufferSize   = 64
)

func (o Options) withDefaults() Options {
	if o.PingTimeout <= 0 {
		o.PingTimeout = defaultPingTimeout
	}
	if o.PingInterval <= 0 {
		o.PingInterval = defaultPingInterval
	}
	// Pings must land well inside the read deadline of the peer.
	if o.PingInterval >= o.PingTimeout {
		o.PingInterval = o.PingTimeout * 5 / 12
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}
	if o.BufferSize <= 0 {
		o.BufferSize = defaultBufferSize
	}
	return o
}

// Server upgrades HTTP requests into relay sessions.
// Each connection runs one read pump (inbound frames, in order) and one write pump
// (outbound frames and keep-alive pings).
type Server struct {
	log      *slog.Logger
	relay    contract.IRelay
	options  Options
	upgrader websocket.Upgrader
}

func NewServer(log *slog.Logger, relay contract.IRelay, options Options) *Server {
	s := &Server{log: log, relay: relay, options: options.withDefaults()}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// checkOrigin lets through the configured origin and non-browser clients
// that send no Origin header at all.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || s.options.AllowedOrigin == "*" {
		return true
	}
	if strings.EqualFold(strings.TrimRight(origin, "/"), strings.TrimRight(s.options.AllowedOrigin, "/")) {
		return true
	}
	s.log.Warn("Websocket origin rejected", "origin", origin)
	return false
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	out := sink.NewWebsocketSink(s.options.BufferSize)
	sessionID := s.relay.Connect(out)
	s.log.Info("Connected to socket", "session_id", sessionID, "remote", r.RemoteAddr)

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	go s.writePump(conn, out, sessionID)
	s.readPump(ctx, conn, sessionID)

	if s.relay.Disconnect(sessionID) {
		s.log.Info("User disconnected", "session_id", sessionID)
	}
}

// readPump hands frames to the relay one at a time, which keeps per-session order.
// Any frame or pong counts as a heartbeat.
func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, sessionID domain.SessionID) {
	if s.options.MaxMessageSize > 0 {
		conn.SetReadLimit(s.options.MaxMessageSize)
	}
	heartbeat := func() {
		_ = conn.SetReadDeadline(time.Now().Add(s.options.PingTimeout))
	}
	heartbeat()
	conn.SetPongHandler(func(string) error {
		heartbeat()
		return nil
	})

	for {
		messageType, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.log.Debug("Websocket read ended", "session_id", sessionID, "error", err)
			}
			return
		}
		heartbeat()
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		_ = s.relay.Handle(ctx, sessionID, frame)
	}
}

func (s *Server) writePump(conn *websocket.Conn, out *sink.WebsocketSink, sessionID domain.SessionID) {
	ticker := time.NewTicker(s.options.PingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case frame := <-out.Outbox():
			_ = conn.SetWriteDeadline(time.Now().Add(s.options.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.log.Debug("Websocket write failed", "session_id", sessionID, "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(s.options.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-out.Done():
			closeFrame := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = conn.WriteControl(websocket.CloseMessage, closeFrame, time.Now().Add(s.options.WriteTimeout))
			return
		}
	}
}
