// Package client provides a Go client for the vitrine server: a persistent
// WebSocket with named-event handlers and automatic reconnection with
// bounded exponential backoff.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
)

// Handler is invoked with the raw payload of a received event.
type Handler func(data json.RawMessage)

// envelope mirrors the server's wire frame.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Config holds client settings.
type Config struct {
	// URL is the WebSocket endpoint, e.g. "ws://localhost:3000/v0/ws".
	URL string

	// Reconnect policy. MaxRetries bounds the attempts per outage; after
	// that the client gives up and stays closed.
	MaxRetries      uint
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// Optional connection lifecycle callbacks.
	OnConnect    func()
	OnDisconnect func(err error)
}

func (c *Config) applyDefaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = 5
	}
	if c.InitialInterval == 0 {
		c.InitialInterval = 500 * time.Millisecond
	}
	if c.MaxInterval == 0 {
		c.MaxInterval = 5 * time.Second
	}
}

// Client is a reconnecting event socket. Register handlers with On before
// calling Connect; Emit is safe from multiple goroutines.
type Client struct {
	cfg Config

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers map[string]Handler
	closed   bool

	done chan struct{}
}

// New creates a client. It does not connect until Connect is called.
func New(cfg Config) *Client {
	cfg.applyDefaults()
	return &Client{
		cfg:      cfg,
		handlers: make(map[string]Handler),
		done:     make(chan struct{}),
	}
}

// On registers a handler for a named event, replacing any previous one.
func (c *Client) On(event string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = h
}

// Connect dials the server, retrying with exponential backoff up to the
// configured attempt count, then starts the read loop.
func (c *Client) Connect(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	if c.cfg.OnConnect != nil {
		c.cfg.OnConnect()
	}

	go c.readLoop()
	return nil
}

// Emit sends a named event with a structured payload.
func (c *Client) Emit(event string, data any) error {
	var raw json.RawMessage
	if data != nil {
		var err error
		raw, err = json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to encode %s payload: %w", event, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.conn == nil {
		return fmt.Errorf("client is not connected")
	}
	return c.conn.WriteJSON(&envelope{Event: event, Data: raw})
}

// Close shuts the client down. No reconnection is attempted afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Done is closed when the client has permanently stopped, either via Close
// or after exhausting reconnect attempts.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialInterval
	bo.MaxInterval = c.cfg.MaxInterval

	return backoff.Retry(ctx, func() (*websocket.Conn, error) {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.URL, nil)
		return conn, err
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(c.cfg.MaxRetries))
}

// readLoop reads frames and dispatches them; on a broken connection it
// reconnects with backoff until the retry budget is spent.
func (c *Client) readLoop() {
	for {
		c.mu.Lock()
		conn := c.conn
		closed := c.closed
		c.mu.Unlock()
		if closed || conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed = c.closed
			c.mu.Unlock()
			if closed {
				return
			}

			if c.cfg.OnDisconnect != nil {
				c.cfg.OnDisconnect(err)
			}

			next, derr := c.dial(context.Background())
			if derr != nil {
				// Retry budget spent; stop for good.
				c.mu.Lock()
				if !c.closed {
					c.closed = true
					close(c.done)
				}
				c.mu.Unlock()
				return
			}

			c.mu.Lock()
			if c.closed {
				// Close landed while the dial was in flight.
				c.mu.Unlock()
				next.Close()
				return
			}
			c.conn = next
			c.mu.Unlock()

			if c.cfg.OnConnect != nil {
				c.cfg.OnConnect()
			}
			continue
		}

		var env envelope
		if err := json.Unmarshal(message, &env); err != nil {
			continue
		}

		c.mu.Lock()
		h := c.handlers[env.Event]
		c.mu.Unlock()
		if h != nil {
			h(env.Data)
		}
	}
}
