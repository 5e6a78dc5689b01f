package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/mexc-futures/internal/api"
	"github.com/rickgao/mexc-futures/internal/metrics"
)

// TickerFetcher fetches one ticker. *api.Client implements it.
type TickerFetcher interface {
	GetTicker(ctx context.Context, symbol string) (*api.Ticker, error)
}

// TickerHandler receives fetched tickers.
type TickerHandler interface {
	HandleTicker(ticker api.Ticker, polledAt time.Time) error
}

// TickerHandlerFunc is a function adapter for TickerHandler.
type TickerHandlerFunc func(api.Ticker, time.Time) error

func (f TickerHandlerFunc) HandleTicker(t api.Ticker, polledAt time.Time) error {
	return f(t, polledAt)
}

// Config holds poller configuration.
type Config struct {
	Symbols     []string      // Contracts to poll
	Interval    time.Duration // Poll interval (default: 1m)
	Concurrency int           // Max concurrent requests (default: 4)
	Timeout     time.Duration // Per-request timeout (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Symbols:     []string{"BTC_USDT"},
		Interval:    time.Minute,
		Concurrency: 4,
		Timeout:     10 * time.Second,
	}
}

// Poller periodically fetches tickers via the REST API.
type Poller struct {
	cfg     Config
	client  TickerFetcher
	handler TickerHandler
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller.
func New(cfg Config, client TickerFetcher, handler TickerHandler, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Poller{
		cfg:     cfg,
		client:  client,
		handler: handler,
		logger:  logger,
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("ticker poller started",
		"symbols", len(p.cfg.Symbols),
		"interval", p.cfg.Interval,
		"concurrency", p.cfg.Concurrency,
	)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("ticker poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	p.pollAll()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.pollAll()
		}
	}
}

// pollAll fetches tickers for all symbols concurrently.
func (p *Poller) pollAll() {
	start := time.Now()

	if len(p.cfg.Symbols) == 0 {
		p.logger.Debug("no symbols to poll")
		return
	}

	// Semaphore for bounded concurrency.
	sem := make(chan struct{}, p.cfg.Concurrency)
	var wg sync.WaitGroup
	var fetched, errors atomic.Int64

	for _, symbol := range p.cfg.Symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()

			// Acquire semaphore slot.
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-p.ctx.Done():
				return
			}

			err := p.pollSymbol(symbol)
			metrics.PollerPollsTotal.WithLabelValues(metrics.ResultLabel(err)).Inc()
			if err != nil {
				p.logger.Warn("failed to poll ticker",
					"symbol", symbol,
					"err", err,
				)
				errors.Add(1)
				return
			}

			fetched.Add(1)
		}(symbol)
	}

	wg.Wait()

	p.logger.Info("poll cycle complete",
		"symbols", len(p.cfg.Symbols),
		"fetched", fetched.Load(),
		"errors", errors.Load(),
		"duration", time.Since(start),
	)
}

// pollSymbol fetches and handles a single ticker.
func (p *Poller) pollSymbol(symbol string) error {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	t, err := p.client.GetTicker(ctx, symbol)
	if err != nil {
		return err
	}

	if p.handler != nil {
		if err := p.handler.HandleTicker(*t, time.Now()); err != nil {
			return err
		}
	}

	return nil
}
