package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/rickgao/mexc-futures/internal/auth"
	"github.com/rickgao/mexc-futures/internal/metrics"
	"github.com/rickgao/mexc-futures/internal/sdkerr"
)

// connection is one live socket plus the goroutines serving it.
type connection struct {
	ws       *websocket.Conn
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	pingDone chan struct{}
}

// shutdown stops both loops, waits for them, then closes the socket.
func (cc *connection) shutdown(writeTimeout time.Duration) {
	cc.cancel()

	cc.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		writeDeadline(writeTimeout),
	)
	cc.ws.SetReadDeadline(time.Now())

	cc.wg.Wait()
	cc.ws.Close()
}

// writeDeadline returns the deadline for a write starting now. A zero timeout
// falls back to the default.
func writeDeadline(timeout time.Duration) time.Time {
	if timeout <= 0 {
		timeout = DefaultConfig().WriteTimeout
	}
	return time.Now().Add(timeout)
}

// Client is a WebSocket client for market and account streams.
type Client struct {
	cfg       Config
	logger    *slog.Logger
	creds     *auth.Credentials
	limiter   *rate.Limiter
	callbacks *registry
	now       func() time.Time

	mu              sync.Mutex
	conn            *connection
	dialing         int
	loggedIn        bool
	shouldReconnect bool
	reconnectCancel context.CancelFunc
	reconnectDone   chan struct{}

	// gorilla/websocket allows one concurrent writer.
	writeMu sync.Mutex
}

// NewClient creates a Client. Credentials are optional; without them only
// public channels are available.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		cfg:             cfg,
		logger:          logger,
		callbacks:       newRegistry(),
		now:             time.Now,
		shouldReconnect: cfg.AutoReconnect,
	}

	if cfg.APIKey != "" && cfg.SecretKey != "" {
		c.creds = &auth.Credentials{APIKey: cfg.APIKey, SecretKey: cfg.SecretKey}
	}
	if cfg.SendRate > 0 {
		burst := cfg.SendBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.SendRate), burst)
	}

	return c
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.conn != nil && c.loggedIn:
		return StateAuthenticated
	case c.conn != nil:
		return StateConnected
	case c.dialing > 0:
		return StateConnecting
	case c.reconnectDone != nil:
		return StateReconnecting
	default:
		return StateDisconnected
	}
}

// IsConnected reports whether a socket is open.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// IsLoggedIn reports whether the server acknowledged a login on the current
// connection.
func (c *Client) IsLoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loggedIn
}

// Connect opens the connection and starts the ping and read loops. It is a
// no-op when already connected. Connect re-arms auto-reconnect if it is
// enabled in the config.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	c.shouldReconnect = c.cfg.AutoReconnect
	c.mu.Unlock()

	return c.connect(ctx)
}

func (c *Client) connect(ctx context.Context) error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.dialing++
	c.mu.Unlock()

	c.logger.Info("connecting", "url", c.cfg.URL)

	ws, err := c.dial(ctx)

	c.mu.Lock()
	c.dialing--
	if err == nil && ctx.Err() != nil {
		// Disconnect cancelled us after the dial completed.
		ws.Close()
		err = ctx.Err()
	}
	if err != nil {
		c.mu.Unlock()
		c.logger.Error("connection failed", "error", err)
		return sdkerr.Connection("connect", err)
	}
	if c.conn != nil {
		c.mu.Unlock()
		ws.Close()
		return nil
	}

	connCtx, cancel := context.WithCancel(context.Background())
	cc := &connection{
		ws:       ws,
		ctx:      connCtx,
		cancel:   cancel,
		pingDone: make(chan struct{}),
	}
	c.conn = cc
	c.loggedIn = false
	c.mu.Unlock()

	metrics.StreamConnected.Set(1)
	c.logger.Info("websocket connected")
	c.emit(Event{Name: EventConnected, ReceivedAt: c.now()})

	// Loops start after the connected event so callbacks see it first.
	c.mu.Lock()
	if c.conn == cc {
		cc.wg.Add(2)
		go c.pingLoop(cc)
		go c.readLoop(cc)
	} else {
		close(cc.pingDone)
	}
	c.mu.Unlock()

	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
		Proxy:            http.ProxyFromEnvironment,
	}
	if c.cfg.Proxy != "" {
		u, err := url.Parse(c.cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parse proxy: %w", err)
		}
		dialer.Proxy = http.ProxyURL(u)
	}

	ws, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return nil, err
	}
	return ws, nil
}

// Disconnect disables auto-reconnect, stops all background goroutines and
// closes the socket. It is safe to call in any state and more than once, but
// not from inside a callback.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	c.shouldReconnect = false
	if c.reconnectCancel != nil {
		c.reconnectCancel()
	}
	done := c.reconnectDone
	c.mu.Unlock()

	if done != nil {
		<-done
	}

	c.mu.Lock()
	cc := c.conn
	c.conn = nil
	c.loggedIn = false
	c.reconnectCancel = nil
	c.reconnectDone = nil
	c.mu.Unlock()

	if cc == nil {
		return nil
	}

	c.logger.Info("disconnecting websocket")
	cc.shutdown(c.cfg.WriteTimeout)
	metrics.StreamConnected.Set(0)

	return nil
}

// Send marshals msg and writes it as a text frame.
func (c *Client) Send(ctx context.Context, msg any) error {
	cc := c.current()
	if cc == nil {
		return sdkerr.Connection("send", ErrNotConnected)
	}
	return c.write(ctx, cc, msg)
}

func (c *Client) current() *connection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *Client) write(ctx context.Context, cc *connection, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	cc.ws.SetWriteDeadline(writeDeadline(c.cfg.WriteTimeout))
	if err := cc.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return sdkerr.Connection("send", err)
	}

	metrics.StreamSentTotal.Inc()
	c.logger.Debug("sent", "message", string(data))
	return nil
}

// pingLoop sends an application-level ping every PingInterval. Failures are
// logged; the read loop is responsible for detecting a dead socket.
func (c *Client) pingLoop(cc *connection) {
	defer cc.wg.Done()
	defer close(cc.pingDone)

	interval := c.cfg.PingInterval
	if interval <= 0 {
		interval = DefaultConfig().PingInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-cc.ctx.Done():
			return
		case <-ticker.C:
		}

		if err := c.write(cc.ctx, cc, Message{Method: "ping"}); err != nil {
			if cc.ctx.Err() != nil {
				return
			}
			metrics.StreamErrorsTotal.WithLabelValues("ping").Inc()
			c.logger.Error("ping error", "error", err)
			continue
		}
		c.logger.Debug("ping sent")
	}
}

// readLoop reads frames until the socket fails. An unexpected close marks the
// client disconnected and, if enabled, starts reconnecting.
func (c *Client) readLoop(cc *connection) {
	defer cc.wg.Done()

	for {
		mt, data, err := cc.ws.ReadMessage()
		if err != nil {
			if cc.ctx.Err() != nil {
				return
			}
			c.handleClosed(cc, err)
			return
		}
		c.handleFrame(mt, data)
	}
}

func (c *Client) handleClosed(cc *connection, err error) {
	code, reason := closeDetails(err)

	c.mu.Lock()
	if c.conn != cc {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.loggedIn = false

	var (
		reconnectCtx context.Context
		cancel       context.CancelFunc
		done         chan struct{}
	)
	if c.shouldReconnect {
		reconnectCtx, cancel = context.WithCancel(context.Background())
		done = make(chan struct{})
		c.reconnectCancel = cancel
		c.reconnectDone = done
	}
	c.mu.Unlock()

	cc.cancel()
	<-cc.pingDone
	cc.ws.Close()

	metrics.StreamConnected.Set(0)
	c.logger.Warn("websocket closed", "code", code, "reason", reason)

	// The reconnect goroutine exists before the event so a Disconnect from
	// another goroutine can cancel and join it, but it does not dial until
	// every disconnected callback has returned.
	emitted := make(chan struct{})
	if done != nil {
		go c.reconnectLoop(reconnectCtx, cancel, done, emitted)
	}

	c.emit(Event{
		Name:        EventDisconnected,
		CloseCode:   code,
		CloseReason: reason,
		Err:         sdkerr.Connection("receive", err),
		ReceivedAt:  c.now(),
	})
	close(emitted)
}

// reconnectLoop waits for start, then redials at a fixed interval until it
// succeeds or ctx is cancelled.
func (c *Client) reconnectLoop(ctx context.Context, cancel context.CancelFunc, done chan struct{}, start <-chan struct{}) {
	defer close(done)
	defer cancel()

	select {
	case <-ctx.Done():
		return
	case <-start:
	}

	for {
		c.logger.Info("reconnecting", "in", c.cfg.ReconnectInterval)

		timer := time.NewTimer(c.cfg.ReconnectInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		err := c.connect(ctx)
		if err == nil {
			metrics.StreamReconnectsTotal.WithLabelValues("ok").Inc()
			c.mu.Lock()
			if c.reconnectDone == done {
				c.reconnectCancel = nil
				c.reconnectDone = nil
			}
			c.mu.Unlock()
			return
		}
		if ctx.Err() != nil {
			return
		}

		metrics.StreamReconnectsTotal.WithLabelValues("error").Inc()
		c.logger.Error("reconnect failed", "error", err)
	}
}

func closeDetails(err error) (int, string) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text
	}
	return websocket.CloseAbnormalClosure, err.Error()
}
