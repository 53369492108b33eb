// Package feed subscribes to the catalog-change event stream over a
// websocket. Consumers watch for changes to the series they resolved and
// drop their tree snapshots when one arrives.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Errors
var (
	ErrNotConnected  = errors.New("not connected")
	ErrAlreadyClosed = errors.New("already closed")
)

// Event is one catalog-change notification.
type Event struct {
	// Kind is "created", "updated" or "removed".
	Kind string `json:"event"`

	// NodeID is the changed node; SymbolID is set for concrete instruments.
	NodeID   string `json:"instrumentId"`
	SymbolID string `json:"symbolId,omitempty"`

	// ReceivedAt is the local receive timestamp.
	ReceivedAt time.Time `json:"-"`
}

// command is the subscribe/unsubscribe request frame.
type command struct {
	Command string   `json:"command"`
	NodeIDs []string `json:"instrumentIds,omitempty"`
}

// Config configures a feed client.
type Config struct {
	URL                string
	SessionID          string
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration
	PingInterval       time.Duration
	ReadTimeout        time.Duration
	BufferSize         int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReconnectBaseDelay: 1 * time.Second,
		ReconnectMaxDelay:  60 * time.Second,
		PingInterval:       15 * time.Second,
		ReadTimeout:        30 * time.Second,
		BufferSize:         1024,
	}
}

// Client maintains one websocket subscription to the change stream,
// reconnecting with capped exponential backoff. Events arrive on Events();
// the channel closes when the client shuts down.
type Client struct {
	cfg    Config
	logger *slog.Logger

	events chan Event
	done   chan struct{}

	writeMu sync.Mutex

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	closed    bool
	watched   []string
}

// NewClient creates a feed client. A nil logger falls back to slog.Default.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	return &Client{
		cfg:    cfg,
		logger: logger,
		events: make(chan Event, cfg.BufferSize),
		done:   make(chan struct{}),
	}
}

// Events returns the change-event channel.
func (c *Client) Events() <-chan Event {
	return c.events
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Run connects and keeps the subscription alive until the context is
// cancelled or Close is called. Each reconnect re-sends the current watch
// list.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.events)

	backoff := c.cfg.ReconnectBaseDelay
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		default:
		}

		if err := c.connect(ctx); err != nil {
			c.logger.Warn("feed connect failed", "url", c.cfg.URL, "error", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.done:
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > c.cfg.ReconnectMaxDelay {
				backoff = c.cfg.ReconnectMaxDelay
			}
			continue
		}
		backoff = c.cfg.ReconnectBaseDelay

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		stopPing := make(chan struct{})
		go c.pingLoop(conn, stopPing)

		c.readLoop()
		close(stopPing)

		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	}
}

// pingLoop keeps the connection alive between events. Pong replies reset the
// read deadline in readLoop; a dead peer surfaces as a read timeout there.
func (c *Client) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	if c.cfg.PingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// Watch subscribes to change events for the given nodes. The list is
// remembered and re-sent after every reconnect.
func (c *Client) Watch(nodeIDs ...string) error {
	c.mu.Lock()
	c.watched = append(c.watched, nodeIDs...)
	connected := c.connected
	c.mu.Unlock()

	if !connected {
		return nil // sent on connect
	}
	return c.send(command{Command: "subscribe", NodeIDs: nodeIDs})
}

// Unwatch drops nodes from the subscription.
func (c *Client) Unwatch(nodeIDs ...string) error {
	c.mu.Lock()
	drop := map[string]struct{}{}
	for _, id := range nodeIDs {
		drop[id] = struct{}{}
	}
	kept := c.watched[:0]
	for _, id := range c.watched {
		if _, ok := drop[id]; !ok {
			kept = append(kept, id)
		}
	}
	c.watched = kept
	connected := c.connected
	c.mu.Unlock()

	if !connected {
		return nil
	}
	return c.send(command{Command: "unsubscribe", NodeIDs: nodeIDs})
}

// Close shuts the client down. Run returns after the current read unblocks.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	conn := c.conn
	c.mu.Unlock()

	close(c.done)

	if conn != nil {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		return conn.Close()
	}
	return nil
}

func (c *Client) connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	c.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	var header http.Header
	if c.cfg.SessionID != "" {
		header = http.Header{"X-Auth-SessionId": []string{c.cfg.SessionID}}
	}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	watched := append([]string(nil), c.watched...)
	c.mu.Unlock()

	c.logger.Debug("feed connected", "url", c.cfg.URL)

	if len(watched) > 0 {
		if err := c.send(command{Command: "subscribe", NodeIDs: watched}); err != nil {
			conn.Close()
			return err
		}
	}
	return nil
}

func (c *Client) send(cmd command) error {
	c.mu.RLock()
	conn, connected := c.conn, c.connected
	c.mu.RUnlock()
	if !connected {
		return ErrNotConnected
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) readLoop() {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if c.cfg.ReadTimeout > 0 {
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		})
	}

	for {
		if c.cfg.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		}
		_, data, err := conn.ReadMessage()
		receivedAt := time.Now()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Warn("feed read failed, reconnecting", "error", err)
			}
			conn.Close()
			return
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			c.logger.Warn("feed message not understood", "error", err)
			continue
		}
		ev.ReceivedAt = receivedAt

		select {
		case c.events <- ev:
		case <-c.done:
			return
		default:
			c.logger.Warn("event buffer full, dropping event")
		}
	}
}
