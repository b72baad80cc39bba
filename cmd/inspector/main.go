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
		Use:          "inspector",
		Short:        "Per-block MEV inspection pipeline",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Inspect a range of blocks",
		RunE:  runPipeline,
	}

	runCmd.Flags().String("rpc", "", "execution node RPC URL (needs debug tracing)")
	runCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	runCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	runCmd.Flags().Int("workers", 4, "concurrent block workers")
	runCmd.Flags().String("quote-asset", "", "quote asset address for pricing")
	runCmd.Flags().String("native-asset", "", "gas token address for execution cost")
	runCmd.Flags().String("min-liquidity", "0", "minimum pool depth for the price graph")
	runCmd.Flags().String("epsilon", "0", "materiality threshold in quote terms")
	runCmd.Flags().Uint64("quote-window", 12, "market quote window in seconds around block time")
	runCmd.Flags().String("quotes", "", "market quotes JSONL path")
	runCmd.Flags().String("metadata", "", "address metadata JSON path")
	runCmd.Flags().String("out", "./data", "output directory")
	runCmd.Flags().String("pg-dsn", "", "optional Postgres DSN")
	runCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	runCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect a single block and print a summary",
		RunE:  runInspect,
	}

	inspectCmd.Flags().String("rpc", "", "execution node RPC URL (needs debug tracing)")
	inspectCmd.Flags().Uint64("block", 0, "block number to inspect")
	inspectCmd.Flags().String("quote-asset", "", "quote asset address for pricing")
	inspectCmd.Flags().String("native-asset", "", "gas token address for execution cost")
	inspectCmd.Flags().String("min-liquidity", "0", "minimum pool depth for the price graph")
	inspectCmd.Flags().String("epsilon", "0", "materiality threshold in quote terms")
	inspectCmd.Flags().Uint64("quote-window", 12, "market quote window in seconds around block time")
	inspectCmd.Flags().String("quotes", "", "market quotes JSONL path")
	inspectCmd.Flags().String("metadata", "", "address metadata JSON path")
	inspectCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(inspectCmd)

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
