package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/mexc-futures/internal/database"
	"github.com/rickgao/mexc-futures/internal/poller"
	"github.com/rickgao/mexc-futures/internal/recorder"
	"github.com/rickgao/mexc-futures/internal/session"
	"github.com/rickgao/mexc-futures/internal/stream"
)

var recordNoPoll bool

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record stream events and polled tickers to Postgres and Redis",
	Long: `Subscribes to recorder.events for recorder.symbols, polls REST tickers as a
backup source, and writes everything in batches to the configured sinks.

Health and Prometheus metrics are served on metrics.port.`,
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().BoolVar(&recordNoPoll, "no-poll", false, "disable the REST ticker poller")
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rc := recorderConfig(cfg)
	plan, err := planSubscriptions(rc.Events, cfg.Recorder.Symbols)
	if err != nil {
		return fmt.Errorf("recorder: %w", err)
	}
	if plan.NeedsLogin() && cfg.API.APIKey == "" {
		return errors.New("private events require api.api_key and api.secret_key")
	}

	// Sinks
	var sinks []recorder.Sink
	deps := healthDeps{}

	if database.Enabled(cfg.Database) {
		logger.Info("connecting to database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()

		pg := recorder.NewPostgresSink(pool, cfg.Database.Table)
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks = append(sinks, pg)
		deps.Ping = pool.Ping
	}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		sinks = append(sinks, recorder.NewRedisSink(rdb, cfg.Redis.ChannelPrefix))
	}

	if len(sinks) == 0 {
		logger.Warn("no sinks configured, records are counted and discarded")
	}

	rec := recorder.New(rc, sinks, logger)

	// REST session and poller
	sess := session.New(sessionConfig(cfg), logger)
	defer sess.Close()

	var poll *poller.Poller
	if pc := pollerConfig(cfg); !recordNoPoll && len(pc.Symbols) > 0 {
		poll = poller.New(pc, newAPIClient(cfg, sess, logger), rec, logger)
	}

	// Stream
	client := stream.NewClient(streamConfig(cfg), logger)
	detach := rec.Attach(client)
	defer detach()
	plan.attach(ctx, client, logger)

	deps.StreamState = client.State
	deps.SessionLive = sess.IsActive
	deps.Recorder = rec.Stats

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           newRouter(deps, cfg.Metrics.Path),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if err := rec.Start(ctx); err != nil {
		return err
	}
	if poll != nil {
		if err := poll.Start(ctx); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting health server", "port", cfg.Metrics.Port)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		// The stream heals itself once connected; only the first dial can fail hard.
		if err := client.Connect(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		logger.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := client.Disconnect(); err != nil {
			logger.Warn("stream disconnect failed", "error", err)
		}
		if poll != nil {
			if err := poll.Stop(shutdownCtx); err != nil {
				logger.Warn("poller stop failed", "error", err)
			}
		}
		if err := rec.Stop(shutdownCtx); err != nil {
			logger.Warn("recorder stop failed", "error", err)
		}
		return server.Shutdown(shutdownCtx)
	})

	logger.Info("recorder running",
		"symbols", cfg.Recorder.Symbols,
		"events", rc.Events,
		"sinks", len(sinks),
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("recorder stopped", "recorded", rec.Stats().Recorded)
	return nil
}
