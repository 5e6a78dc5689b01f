package recorder

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/mexc-futures/internal/api"
	"github.com/rickgao/mexc-futures/internal/metrics"
	"github.com/rickgao/mexc-futures/internal/stream"
)

// Config holds recorder batching configuration.
type Config struct {
	Events        []string      // Stream events to record
	BatchSize     int           // Max records per sink write (default: 500)
	FlushInterval time.Duration // Max time between flushes (default: 1s)
	BufferSize    int           // Max buffered records before dropping the oldest (default: 10000)
	WriteTimeout  time.Duration // Per-batch sink timeout (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Events:        []string{stream.EventTicker, stream.EventDeal, stream.EventDepth},
		BatchSize:     500,
		FlushInterval: time.Second,
		BufferSize:    10000,
		WriteTimeout:  10 * time.Second,
	}
}

// Stats holds recorder counters.
type Stats struct {
	Recorded int64
	Flushes  int64
	Errors   int64
	Buffer   BufferStats
}

// Recorder buffers records and flushes them to sinks.
type Recorder struct {
	cfg    Config
	sinks  []Sink
	logger *slog.Logger

	buf     *RingBuffer[Record]
	flushCh chan struct{}

	// Flushes are serialized so batches reach sinks in order.
	flushMu sync.Mutex

	statsMu sync.Mutex
	stats   Stats

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Recorder.
func New(cfg Config, sinks []Sink, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	if cfg.BufferSize < cfg.BatchSize {
		cfg.BufferSize = cfg.BatchSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	initial := cfg.BatchSize
	if initial > 1024 {
		initial = 1024
	}

	return &Recorder{
		cfg:     cfg,
		sinks:   sinks,
		logger:  logger,
		buf:     NewRingBuffer[Record](initial, cfg.BufferSize),
		flushCh: make(chan struct{}, 1),
	}
}

// Attach registers callbacks for the configured events on client. It returns
// a function that removes them.
func (r *Recorder) Attach(client *stream.Client) func() {
	ids := make(map[string]stream.CallbackID, len(r.cfg.Events))
	for _, event := range r.cfg.Events {
		ids[event] = client.On(event, r.HandleEvent)
	}
	return func() {
		for event, id := range ids {
			client.RemoveCallback(event, id)
		}
	}
}

// HandleEvent records a stream event. It never blocks on sinks.
func (r *Recorder) HandleEvent(ev stream.Event) error {
	r.Add(FromEvent(ev))
	return nil
}

// HandleTicker records a polled ticker.
func (r *Recorder) HandleTicker(t api.Ticker, polledAt time.Time) error {
	rec, err := FromTicker(t, polledAt)
	if err != nil {
		return err
	}
	r.Add(rec)
	return nil
}

// Add appends a record and wakes the flush loop once a batch is ready.
func (r *Recorder) Add(rec Record) {
	n, evicted, ok := r.buf.Push(rec)
	if !ok || evicted {
		metrics.RecorderDroppedTotal.Inc()
	}
	if !ok {
		return
	}

	metrics.RecorderRecordsTotal.Inc()
	metrics.RecorderBufferLen.Set(float64(n))

	r.statsMu.Lock()
	r.stats.Recorded++
	r.statsMu.Unlock()

	if n >= r.cfg.BatchSize {
		select {
		case r.flushCh <- struct{}{}:
		default:
		}
	}
}

// Start begins the flush loop.
func (r *Recorder) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.flushLoop()

	r.logger.Info("recorder started",
		"sinks", len(r.sinks),
		"batch_size", r.cfg.BatchSize,
		"flush_interval", r.cfg.FlushInterval,
	)
	return nil
}

// Stop stops the flush loop and flushes what is left.
func (r *Recorder) Stop(ctx context.Context) error {
	r.logger.Info("stopping recorder")

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		r.logger.Warn("recorder stop timed out")
		return ctx.Err()
	}

	r.buf.Close()
	r.Flush(ctx)

	r.logger.Info("recorder stopped")
	return nil
}

// Stats returns current counters.
func (r *Recorder) Stats() Stats {
	r.statsMu.Lock()
	s := r.stats
	r.statsMu.Unlock()
	s.Buffer = r.buf.Stats()
	return s
}

// flushLoop flushes on the interval or when a full batch is waiting.
func (r *Recorder) flushLoop() {
	defer r.wg.Done()

	interval := r.cfg.FlushInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.Flush(r.ctx)
		case <-r.flushCh:
			r.Flush(r.ctx)
		}
	}
}

// Flush drains the buffer in batches and writes each batch to every sink.
func (r *Recorder) Flush(ctx context.Context) {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	for {
		batch := r.buf.Drain(r.cfg.BatchSize)
		metrics.RecorderBufferLen.Set(float64(r.buf.Len()))
		if len(batch) == 0 {
			return
		}
		r.writeBatch(ctx, batch)
	}
}

// writeBatch fans a batch out to all sinks concurrently. A failing sink is
// logged and does not cancel the others.
func (r *Recorder) writeBatch(ctx context.Context, batch []Record) {
	if ctx.Err() != nil {
		// Shutdown: sinks still get a bounded attempt.
		ctx = context.WithoutCancel(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	metrics.RecorderBatchSize.Observe(float64(len(batch)))

	var g errgroup.Group
	var failed atomic.Int64
	for _, sink := range r.sinks {
		sink := sink
		g.Go(func() error {
			start := time.Now()
			err := sink.Write(ctx, batch)
			metrics.RecorderFlushSeconds.WithLabelValues(sink.Name()).Observe(time.Since(start).Seconds())
			metrics.RecorderFlushesTotal.WithLabelValues(sink.Name(), metrics.ResultLabel(err)).Inc()
			if err != nil {
				r.logger.Error("sink write failed",
					"sink", sink.Name(),
					"count", len(batch),
					"error", err,
				)
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	errs := failed.Load()

	r.statsMu.Lock()
	r.stats.Flushes++
	r.stats.Errors += errs
	r.statsMu.Unlock()

	r.logger.Debug("flushed records",
		"count", len(batch),
		"sinks", len(r.sinks),
		"errors", errs,
	)
}
