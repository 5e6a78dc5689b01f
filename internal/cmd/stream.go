package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rickgao/mexc-futures/internal/stream"
)

var (
	streamSymbols  []string
	streamEvents   []string
	streamDuration time.Duration
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Print WebSocket events as JSON lines",
	Long: `Connects to the futures WebSocket, subscribes to the requested events and
prints every received event as one JSON object per line.

Private events (order_update, position_update, asset_update, ...) log in with
api.api_key/api.secret_key and select them with a personal filter.`,
	RunE: runStream,
}

func init() {
	streamCmd.Flags().StringSliceVarP(&streamSymbols, "symbol", "s", []string{"BTC_USDT"}, "contract symbols")
	streamCmd.Flags().StringSliceVarP(&streamEvents, "events", "e", []string{stream.EventTicker}, "events to subscribe (ticker, deal, depth, kline, funding_rate, tickers, order_update, ...)")
	streamCmd.Flags().DurationVar(&streamDuration, "duration", 0, "stop after this long (0 runs until interrupted)")
	rootCmd.AddCommand(streamCmd)
}

// eventLine is the printed form of an event.
type eventLine struct {
	Event      string          `json:"event"`
	Channel    string          `json:"channel,omitempty"`
	Symbol     string          `json:"symbol,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	Error      string          `json:"error,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
}

func runStream(cmd *cobra.Command, args []string) error {
	plan, err := planSubscriptions(streamEvents, streamSymbols)
	if err != nil {
		return err
	}
	if plan.NeedsLogin() && cfg.API.APIKey == "" {
		return errors.New("private events require api.api_key and api.secret_key")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if streamDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, streamDuration)
		defer cancel()
	}

	client := stream.NewClient(streamConfig(cfg), logger)

	var mu sync.Mutex
	enc := json.NewEncoder(os.Stdout)
	printEvent := func(ev stream.Event) error {
		line := eventLine{
			Event:      ev.Name,
			Channel:    ev.Channel,
			Symbol:     ev.Symbol,
			Data:       ev.Data,
			ReceivedAt: ev.ReceivedAt,
		}
		if ev.Err != nil {
			line.Error = ev.Err.Error()
		}
		mu.Lock()
		defer mu.Unlock()
		return enc.Encode(line)
	}

	for _, ev := range append(append([]string{}, streamEvents...), stream.EventDisconnected, stream.EventError, stream.EventSubscribed) {
		client.On(ev, printEvent)
	}
	plan.attach(ctx, client, logger)

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	<-ctx.Done()
	logger.Info("stopping stream", "state", client.State().String())
	return client.Disconnect()
}
