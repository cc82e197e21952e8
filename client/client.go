// Package client speaks the relay protocol over a websocket.
// It is used by the command line client and the end-to-end suite.
package client

import (
	"chat-relay/domain/event"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type Client struct {
	conn      *websocket.Conn
	events    chan event.Envelope
	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Dial connects to url, sending origin as the Origin header when not empty.
// Incoming frames are buffered up to bufferSize, extra frames are dropped.
func Dial(ctx context.Context, url, origin string, bufferSize int) (*Client, error) {
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	if bufferSize <= 0 {
		bufferSize = 64
	}
	c := &Client{
		conn:   conn,
		events: make(chan event.Envelope, bufferSize),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer close(c.events)
	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var env event.Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			continue
		}
		select {
		case c.events <- env:
		default:
		}
	}
}

// Events is closed once the connection ends.
func (c *Client) Events() <-chan event.Envelope { return c.events }

func (c *Client) Send(name event.Name, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %q: %w", name, err)
	}
	return c.SendRaw(event.Envelope{Event: name, Data: raw})
}

func (c *Client) SendRaw(env event.Envelope) error {
	frame, err := json.Marshal(env)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

func (c *Client) Setup(identity string) error { return c.Send(event.Setup, identity) }
func (c *Client) JoinChat(chatID string) error { return c.Send(event.JoinChat, chatID) }
func (c *Client) Typing(chatID string) error { return c.Send(event.Typing, chatID) }
func (c *Client) StopTyping(chatID string) error { return c.Send(event.StopTyping, chatID) }
func (c *Client) NewMessage(message any) error { return c.Send(event.NewMessage, message) }

// Next waits for the next event, or returns false on timeout or closed connection.
func (c *Client) Next(timeout time.Duration) (event.Envelope, bool) {
	select {
	case env, ok := <-c.events:
		return env, ok
	case <-time.After(timeout):
		return event.Envelope{}, false
	}
}

// WaitFor skips events until one named name arrives.
func (c *Client) WaitFor(name event.Name, timeout time.Duration) (event.Envelope, bool) {
	deadline := time.After(timeout)
	for {
		select {
		case env, ok := <-c.events:
			if !ok {
				return event.Envelope{}, false
			}
			if env.Event == name {
				return env, true
			}
		case <-deadline:
			return event.Envelope{}, false
		}
	}
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}
