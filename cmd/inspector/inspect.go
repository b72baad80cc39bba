package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mevscope/internal/chain"
	"mevscope/internal/config"
	"mevscope/internal/model"
	"mevscope/internal/pipeline"
)

func runInspect(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	block, err := cmd.Flags().GetUint64("block")
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	if block == 0 {
		latest, err := chainClient.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		block = latest
	}

	deps, err := buildAnalysis(cfg, logger)
	if err != nil {
		return err
	}

	blockTrace, err := chainClient.TraceBlock(ctx, block)
	if err != nil {
		return fmt.Errorf("trace block %d: %w", block, err)
	}

	forest, err := deps.builder.Build(ctx, blockTrace)
	if err != nil {
		return fmt.Errorf("build block %d: %w", block, err)
	}

	runner := pipeline.New(pipeline.RunConfig{Workers: cfg.Workers}, chainClient,
		deps.builder, deps.book, deps.oracle, deps.inspectors, deps.quotes, nil, logger)

	prices, bundles, err := runner.InspectForest(ctx, forest)
	if err != nil {
		return err
	}

	printSummary(forest, prices, bundles)
	return nil
}

func printSummary(forest *model.ClassifiedForest, prices *model.PriceMap, bundles []model.Bundle) {
	fmt.Printf("block %d (%s)\n", forest.BlockNumber, forest.BlockHash.Hex())
	fmt.Printf("  transactions: %d\n", len(forest.Trees))
	fmt.Printf("  priced assets: %d\n", prices.Len())
	fmt.Printf("  bundles: %d\n", len(bundles))

	for _, bundle := range bundles {
		fmt.Printf("\n  %s by %s\n", bundle.Kind, bundle.Signer.Hex())
		for _, hash := range bundle.TxHashes {
			fmt.Printf("    tx %s\n", hash.Hex())
		}
		for _, hash := range bundle.VictimTxHashes {
			fmt.Printf("    victim %s\n", hash.Hex())
		}
		if bundle.Profit != nil {
			fmt.Printf("    profit %s\n", bundle.Profit.FloatString(6))
		}
		for _, venue := range bundle.Venues {
			fmt.Printf("    venue %s mid %s taker %s\n",
				venue.Venue, ratString(venue.Mid), ratString(venue.MakerTaker))
		}
	}
}

func ratString(value *big.Rat) string {
	if value == nil {
		return "-"
	}
	return value.FloatString(6)
}
