package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/mexc-futures/internal/metrics"
	"github.com/rickgao/mexc-futures/internal/sdkerr"
)

// Option configures a Manager.
type Option func(*Manager)

// WithClientFactory overrides how the underlying HTTP client is built.
func WithClientFactory(f ClientFactory) Option {
	return func(m *Manager) {
		m.newClient = f
	}
}

// handle is one live session. It is created and replaced under Manager.mu.
// An expired handle stays current, marked closed, until Client or Close
// replaces it and joins its keep-alive goroutine.
type handle struct {
	client    *http.Client
	closed    atomic.Bool
	idlePings atomic.Int64
	cancel    context.CancelFunc
	done      chan struct{} // closed when the keep-alive goroutine exits
}

func (h *handle) teardown() {
	h.closed.Store(true)
	h.client.CloseIdleConnections()
}

// Manager owns a single warmed REST client and its keep-alive loop.
type Manager struct {
	cfg       Config
	logger    *slog.Logger
	newClient ClientFactory
	probeURL  string

	mu      sync.RWMutex
	current *handle
}

// New creates a Manager. No connection is made until Client is called.
func New(cfg Config, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		cfg:       cfg,
		logger:    logger,
		newClient: NewHTTPClient,
		probeURL:  cfg.BaseURL + ProbePath + "?symbol=" + url.QueryEscape(ProbeSymbol),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Client returns the active HTTP client, creating and warming one if needed.
// Concurrent callers share a single construction.
func (m *Manager) Client(ctx context.Context) (*http.Client, error) {
	m.mu.RLock()
	if h := m.current; h != nil && !h.closed.Load() {
		m.mu.RUnlock()
		return h.client, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if h := m.current; h != nil && !h.closed.Load() {
		return h.client, nil
	}

	// The keep-alive goroutine never takes mu, so joining it here is safe.
	if old := m.current; old != nil {
		old.cancel()
		<-old.done
		old.teardown()
		m.current = nil
	}

	client, err := m.newClient(m.cfg)
	if err != nil {
		return nil, sdkerr.Connection("create session", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	h := &handle{
		client: client,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	m.logger.Debug("creating session",
		"base_url", m.cfg.BaseURL,
		"http2", !m.cfg.DisableHTTP2,
		"proxy", m.cfg.Proxy != "",
		"keepalive_expiry", m.cfg.KeepaliveExpiry,
	)
	metrics.SessionsCreatedTotal.Inc()

	m.warmup(ctx, client)

	m.current = h
	metrics.SessionActive.Set(1)

	go m.keepalive(loopCtx, h)

	return client, nil
}

// NotifyActivity resets the idle-ping counter. Call it after every real
// request succeeds.
func (m *Manager) NotifyActivity() {
	m.mu.RLock()
	h := m.current
	m.mu.RUnlock()

	if h != nil {
		h.idlePings.Store(0)
	}
}

// IdlePings returns the number of consecutive keep-alive pings since the
// last real activity.
func (m *Manager) IdlePings() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return 0
	}
	return int(m.current.idlePings.Load())
}

// IsActive reports whether a session exists and has not been torn down.
func (m *Manager) IsActive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current != nil && !m.current.closed.Load()
}

// Close stops the keep-alive loop and tears down the session. Safe to call
// more than once; a later Client call starts a new session.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h := m.current
	if h == nil {
		return nil
	}
	m.current = nil

	h.cancel()
	<-h.done
	h.teardown()
	metrics.SessionActive.Set(0)

	m.logger.Debug("session closed")
	return nil
}

func (m *Manager) warmup(ctx context.Context, client *http.Client) {
	m.logger.Info("warming up session")
	if err := m.probe(ctx, client); err != nil {
		m.logger.Warn("warm-up request failed", "error", err)
		return
	}
	m.logger.Info("session warm-up complete")
}

// probe issues the public ticker request used for warm-up and keep-alive.
func (m *Manager) probe(ctx context.Context, client *http.Client) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.probeURL, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("probe returned status %d", resp.StatusCode)
	}
	return nil
}

// keepalive pings every PingInterval until the session goes idle, a ping
// fails, or the loop is cancelled.
func (m *Manager) keepalive(ctx context.Context, h *handle) {
	defer close(h.done)

	ticker := newTicker(m.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if n := h.idlePings.Load(); n >= int64(m.cfg.MaxIdlePings) {
			m.logger.Info("session idle, letting it expire", "idle_pings", n)
			m.expire(h, "idle")
			return
		}

		if err := m.probe(ctx, h.client); err != nil {
			if ctx.Err() != nil {
				return
			}
			metrics.SessionPingsTotal.WithLabelValues("error").Inc()
			m.logger.Warn("keep-alive ping failed", "error", err)
			m.expire(h, "ping_failed")
			return
		}

		n := h.idlePings.Add(1)
		metrics.SessionPingsTotal.WithLabelValues("ok").Inc()
		m.logger.Debug("keep-alive ping ok", "idle_pings", n, "max_idle_pings", m.cfg.MaxIdlePings)
	}
}

// expire marks h closed from its own keep-alive goroutine. It must not take
// mu: Client and Close hold mu while joining this goroutine. The next Client
// call replaces the closed handle.
func (m *Manager) expire(h *handle, reason string) {
	if !h.closed.CompareAndSwap(false, true) {
		return
	}
	h.cancel()
	h.client.CloseIdleConnections()

	metrics.SessionsExpiredTotal.WithLabelValues(reason).Inc()
	metrics.SessionActive.Set(0)
}

// newTicker guards against a zero interval, which time.NewTicker rejects.
func newTicker(d time.Duration) *time.Ticker {
	if d <= 0 {
		d = DefaultConfig().PingInterval
	}
	return time.NewTicker(d)
}
