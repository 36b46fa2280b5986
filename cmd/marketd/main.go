package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "marketd",
		Short:        "NFT market pair factory daemon",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the market daemon",
		RunE:  runServe,
	}

	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	serveCmd.Flags().String("genesis", "./genesis.json", "genesis file path")
	serveCmd.Flags().Bool("dev", false, "enable devnet endpoints")
	serveCmd.Flags().String("events-out", "./data/events.jsonl", "exported events JSONL path")
	serveCmd.Flags().String("pairs-out", "./data/pairs.jsonl", "exported pair records JSONL path")
	serveCmd.Flags().String("state-file", "./data/export_state.json", "export cursor file path")
	serveCmd.Flags().String("pg-dsn", "", "Postgres DSN (optional second sink)")
	serveCmd.Flags().Duration("flush-interval", 2*time.Second, "export flush interval")
	serveCmd.Flags().Int("export-batch", 256, "events per export batch")
	serveCmd.Flags().Int("max-retries", 5, "maximum sink write retries")
	serveCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial sink retry backoff")
	serveCmd.Flags().Float64("rate-limit", 50, "requests per second")
	serveCmd.Flags().Int("rate-burst", 100, "request burst size")
	serveCmd.Flags().Duration("request-timeout", 30*time.Second, "per-request timeout")
	serveCmd.Flags().StringSlice("cors-origins", nil, "allowed CORS origins (comma-separated)")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(serveCmd)

	migrateCmd := &cobra.Command{
		Use:   "migrate [up|down|status]",
		Short: "Apply export schema migrations",
		Args:  cobra.ExactArgs(1),
		RunE:  runMigrate,
	}

	migrateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	migrateCmd.Flags().String("dir", "migrations", "directory with migration files")
	migrateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(migrateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
