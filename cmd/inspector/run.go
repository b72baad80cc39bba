package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mevscope/internal/chain"
	"mevscope/internal/classifier"
	"mevscope/internal/config"
	"mevscope/internal/inspect"
	"mevscope/internal/metadata"
	"mevscope/internal/pipeline"
	"mevscope/internal/pricing"
	"mevscope/internal/quotes"
	"mevscope/internal/storage"
	"mevscope/internal/storage/postgres"
	"mevscope/internal/tree"
)

func runPipeline(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
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

	to := cfg.ToBlock
	if to == 0 {
		latest, err := chainClient.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	deps, err := buildAnalysis(cfg, logger)
	if err != nil {
		return err
	}

	var sink storage.Sink = storage.NewJsonlSink(cfg.OutDir)
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		sink = storage.NewMultiSink(sink, store)
	}

	runner := pipeline.New(pipeline.RunConfig{
		FromBlock:         cfg.FromBlock,
		ToBlock:           to,
		Workers:           cfg.Workers,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
	}, chainClient, deps.builder, deps.book, deps.oracle, deps.inspectors, deps.quotes, sink, logger)

	logger.Info("inspector start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", to),
		zap.Int("workers", cfg.Workers),
		zap.String("quote_asset", cfg.QuoteAsset),
		zap.String("out", cfg.OutDir),
	)

	return runner.Run(ctx)
}

// analysisDeps bundles the per-run analysis components shared by the run and
// inspect commands.
type analysisDeps struct {
	builder    *tree.Builder
	book       *pricing.StateBook
	oracle     *pricing.Oracle
	inspectors []inspect.Inspector
	quotes     inspect.QuoteSource
}

func buildAnalysis(cfg config.Config, logger *zap.Logger) (analysisDeps, error) {
	if !common.IsHexAddress(cfg.QuoteAsset) {
		return analysisDeps{}, fmt.Errorf("quote asset address is required")
	}
	quoteAsset := common.HexToAddress(cfg.QuoteAsset)

	var nativeAsset common.Address
	if cfg.NativeAsset != "" {
		if !common.IsHexAddress(cfg.NativeAsset) {
			return analysisDeps{}, fmt.Errorf("invalid native asset address: %s", cfg.NativeAsset)
		}
		nativeAsset = common.HexToAddress(cfg.NativeAsset)
	}

	minLiquidity, ok := new(big.Int).SetString(cfg.MinLiquidity, 10)
	if !ok {
		return analysisDeps{}, fmt.Errorf("invalid min liquidity: %s", cfg.MinLiquidity)
	}
	epsilon, ok := new(big.Rat).SetString(cfg.Epsilon)
	if !ok {
		return analysisDeps{}, fmt.Errorf("invalid epsilon: %s", cfg.Epsilon)
	}

	var source metadata.Source
	if cfg.MetadataPath != "" {
		fileSource, err := metadata.NewFileSource(cfg.MetadataPath)
		if err != nil {
			return analysisDeps{}, err
		}
		source = fileSource
	} else {
		logger.Warn("no metadata source configured; pool calls will classify as unknown")
	}
	cache := metadata.NewCache(source)

	registry, err := classifier.DefaultRegistry()
	if err != nil {
		return analysisDeps{}, err
	}

	var quoteIndex inspect.QuoteSource
	if cfg.QuotesPath != "" {
		samples, err := quotes.LoadJSONL(cfg.QuotesPath)
		if err != nil {
			return analysisDeps{}, err
		}
		quoteIndex = quotes.NewIndex(samples, cfg.QuoteWindowSecs)
	}

	return analysisDeps{
		builder: tree.NewBuilder(registry, cache, cfg.Workers, logger),
		book:    pricing.NewStateBook(cache, logger),
		oracle:  pricing.NewOracle(quoteAsset, minLiquidity, logger),
		inspectors: []inspect.Inspector{
			inspect.NewSandwichInspector(),
			inspect.NewJITInspector(),
			inspect.NewAtomicArbInspector(epsilon),
			inspect.NewCexDexInspector(nativeAsset, epsilon),
			inspect.NewLiquidationInspector(),
		},
		quotes: quoteIndex,
	}, nil
}
