// Package feed subscribes to the live quote transport. The transport
// publishes raw protocol lines on per-instrument channels; this client
// delivers them as an ordered line stream for the dispatcher.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// DefaultReconnectDelay is the fixed pause between reconnect attempts.
// Retries are unbounded with no exponential backoff: the feed host is on
// the local network and a flat delay keeps the behavior predictable.
const DefaultReconnectDelay = 5 * time.Second

const defaultBuffer = 4096

// Options configures a Client.
type Options struct {
	// URL is the websocket endpoint of the quote gateway.
	URL string

	// Channels are the instrument ids to subscribe. Required: the
	// transport has no subscribe-all channel.
	Channels []string

	// ReconnectDelay overrides DefaultReconnectDelay when > 0.
	ReconnectDelay time.Duration

	// Buffer is the line channel capacity; sends block when full so no
	// line is ever dropped.
	Buffer int

	// OnConnect and OnDisconnect are optional hooks for connection
	// accounting. Called from the run loop.
	OnConnect    func()
	OnDisconnect func()

	Logger *zap.Logger
}

// Client is a websocket subscriber with unbounded fixed-delay reconnect.
type Client struct {
	url          string
	channels     []string
	delay        time.Duration
	logger       *zap.Logger
	onConnect    func()
	onDisconnect func()

	lines  chan string
	done   chan struct{}
	closed atomic.Bool
}

// envelope is one transport frame: a raw protocol line tagged with the
// instrument channel it was published on.
type envelope struct {
	Channel string `json:"channel"`
	Data    string `json:"data"`
}

// subscribeRequest is sent once per (re)connect.
type subscribeRequest struct {
	Op       string   `json:"op"`
	Channels []string `json:"channels"`
}

// NewClient creates a Client. Run must be called to start receiving.
func NewClient(opts Options) (*Client, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("feed: endpoint URL required")
	}
	if len(opts.Channels) == 0 {
		return nil, fmt.Errorf("feed: at least one channel required")
	}

	delay := opts.ReconnectDelay
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		url:          opts.URL,
		channels:     opts.Channels,
		delay:        delay,
		logger:       logger,
		onConnect:    opts.OnConnect,
		onDisconnect: opts.OnDisconnect,
		lines:        make(chan string, buffer),
		done:         make(chan struct{}),
	}, nil
}

// Lines is the ordered stream of raw protocol lines. It is closed when Run
// returns.
func (c *Client) Lines() <-chan string {
	return c.lines
}

// Close stops the client. Safe to call more than once.
func (c *Client) Close() {
	if c.closed.Swap(true) {
		return
	}
	close(c.done)
}

// Run connects, subscribes and pumps lines until the context is cancelled
// or Close is called. A dropped connection is never fatal: the client
// retries forever with a fixed delay and resubscribes after reconnecting.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.lines)

	for {
		if err := c.stopped(ctx); err != nil {
			return err
		}

		conn, err := c.connect(ctx)
		if err != nil {
			c.logger.Warn("feed connect failed, retrying",
				zap.String("url", c.url),
				zap.Duration("delay", c.delay),
				zap.Error(err))
			if err := c.sleep(ctx); err != nil {
				return err
			}
			continue
		}

		c.logger.Info("feed connected",
			zap.String("url", c.url),
			zap.Int("channels", len(c.channels)))
		if c.onConnect != nil {
			c.onConnect()
		}

		err = c.pump(ctx, conn)
		conn.Close()
		if err != nil {
			if c.onDisconnect != nil {
				c.onDisconnect()
			}
			if stopErr := c.stopped(ctx); stopErr != nil {
				return stopErr
			}
			c.logger.Warn("feed disconnected, retrying",
				zap.Duration("delay", c.delay), zap.Error(err))
			if err := c.sleep(ctx); err != nil {
				return err
			}
		}
	}
}

// connect dials the gateway and sends the subscribe request.
func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial feed: %w", err)
	}

	req := subscribeRequest{Op: "subscribe", Channels: c.channels}
	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	return conn, nil
}

// pump reads frames until the connection drops. The stop signal is checked
// once per received message.
func (c *Client) pump(ctx context.Context, conn *websocket.Conn) error {
	for {
		if err := c.stopped(ctx); err != nil {
			return nil
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read feed frame: %w", err)
		}

		line, ok := decodeEnvelope(message)
		if !ok {
			continue
		}

		select {
		case c.lines <- line:
		case <-c.done:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// decodeEnvelope extracts the raw line from a transport frame. Frames
// without a payload (acks, keepalives) are skipped.
func decodeEnvelope(message []byte) (string, bool) {
	var env envelope
	if err := json.Unmarshal(message, &env); err != nil {
		return "", false
	}
	if env.Data == "" {
		return "", false
	}
	return env.Data, true
}

func (c *Client) stopped(ctx context.Context) error {
	select {
	case <-c.done:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (c *Client) sleep(ctx context.Context) error {
	timer := time.NewTimer(c.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-c.done:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}
