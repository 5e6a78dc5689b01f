// Package cmd provides the mexcctl CLI commands.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rickgao/mexc-futures/internal/config"
	"github.com/rickgao/mexc-futures/internal/logging"
)

var (
	// Global flags
	configPath string
	logLevel   string
	jsonLogs   bool

	// Loaded configuration and logger
	cfg       *config.Config
	logger    *slog.Logger
	logCloser io.Closer
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mexcctl",
	Short: "mexcctl - MEXC futures REST session and WebSocket stream tool",
	Long: `mexcctl talks to the MEXC futures API.

It keeps a pooled REST session warm, maintains a self-healing WebSocket
stream, and can record stream and ticker data to Postgres and Redis.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
			return nil
		}

		loaded, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.Log.Level = logLevel
		}
		if jsonLogs {
			loaded.Log.JSON = true
		}

		l, closer, err := logging.New(loaded.Log, os.Stderr)
		if err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		slog.SetDefault(l)

		cfg, logger, logCloser = loaded, l, closer
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser != nil {
			return logCloser.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file (defaults apply when omitted)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit logs as JSON")
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads and validates path, or returns defaults when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		c := config.Default()
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("validate default config: %w", err)
		}
		return c, nil
	}
	c, err := config.LoadAndValidate(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", path, err)
	}
	return c, nil
}
