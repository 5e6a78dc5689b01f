package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rickgao/mexc-futures/internal/session"
)

var tickerCmd = &cobra.Command{
	Use:   "ticker SYMBOL...",
	Short: "Fetch contract tickers over the pooled REST session",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTicker,
}

func init() {
	rootCmd.AddCommand(tickerCmd)
}

func runTicker(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.API.Timeout)
	defer cancel()

	sess := session.New(sessionConfig(cfg), logger)
	defer sess.Close()

	client := newAPIClient(cfg, sess, logger)

	enc := json.NewEncoder(os.Stdout)
	for _, symbol := range args {
		t, err := client.GetTicker(ctx, symbol)
		if err != nil {
			return fmt.Errorf("get ticker %s: %w", symbol, err)
		}
		if err := enc.Encode(t); err != nil {
			return err
		}
	}
	return nil
}
