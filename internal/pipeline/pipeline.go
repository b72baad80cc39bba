package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mevscope/internal/inspect"
	"mevscope/internal/model"
	"mevscope/internal/pricing"
	"mevscope/internal/storage"
	"mevscope/internal/tree"
)

// TraceSource provides raw block traces.
type TraceSource interface {
	TraceBlock(ctx context.Context, number uint64) (model.BlockTrace, error)
}

// RunConfig holds runtime settings for the pipeline.
type RunConfig struct {
	FromBlock         uint64
	ToBlock           uint64
	Workers           int
	MaxRetries        int
	RetryBackoff      time.Duration
	CheckpointPath    string
	CheckpointEnabled bool
}

// Pipeline drives per-block analysis: trace acquisition, classification,
// pricing, inspection, and composition. Blocks are the unit of parallelism
// for acquisition and classification; pool state layering and final
// reporting advance in block order.
type Pipeline struct {
	cfg        RunConfig
	source     TraceSource
	builder    *tree.Builder
	book       *pricing.StateBook
	oracle     *pricing.Oracle
	inspectors []inspect.Inspector
	quotes     inspect.QuoteSource
	sink       storage.Sink
	logger     *zap.Logger
	checkpoint *CheckpointStore
}

// New wires a pipeline with its dependencies.
func New(cfg RunConfig, source TraceSource, builder *tree.Builder, book *pricing.StateBook, oracle *pricing.Oracle, inspectors []inspect.Inspector, quotes inspect.QuoteSource, sink storage.Sink, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Pipeline{
		cfg:        cfg,
		source:     source,
		builder:    builder,
		book:       book,
		oracle:     oracle,
		inspectors: inspectors,
		quotes:     quotes,
		sink:       sink,
		logger:     logger,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
}

type blockResult struct {
	number  uint64
	forest  *model.ClassifiedForest
	failure *model.BlockFailure
}

// Run processes the configured block range.
func (p *Pipeline) Run(ctx context.Context) error {
	if p.source == nil {
		return fmt.Errorf("trace source is nil")
	}
	if p.builder == nil {
		return fmt.Errorf("tree builder is nil")
	}
	if p.sink == nil {
		return fmt.Errorf("sink is nil")
	}

	from := p.cfg.FromBlock
	to := p.cfg.ToBlock
	if p.checkpoint != nil {
		cp, ok, err := p.checkpoint.Load()
		if err != nil {
			return err
		}
		if ok && cp.LastProcessedBlock >= from {
			from = cp.LastProcessedBlock + 1
			p.logger.Info("resume from checkpoint", zap.Uint64("last_processed", cp.LastProcessedBlock), zap.Uint64("from", from))
		}
	}
	if from > to {
		p.logger.Info("nothing to process", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	batches, err := SplitRange(from, to, uint64(p.cfg.Workers))
	if err != nil {
		return err
	}

	for _, batch := range batches {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		results, err := p.buildBatch(ctx, batch)
		if err != nil {
			return err
		}
		for _, result := range results {
			if err := p.finalizeBlock(ctx, result); err != nil {
				return err
			}
		}

		if p.checkpoint != nil {
			if err := p.checkpoint.Save(batch.To); err != nil {
				return err
			}
		}
		p.logger.Info("batch complete", zap.Uint64("from", batch.From), zap.Uint64("to", batch.To))
	}

	return nil
}

// buildBatch fetches and classifies a batch of blocks concurrently. A block
// whose trace is structurally invalid becomes a failure result; any other
// error aborts the run.
func (p *Pipeline) buildBatch(ctx context.Context, batch BlockRange) ([]blockResult, error) {
	count := int(batch.To - batch.From + 1)
	results := make([]blockResult, count)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.cfg.Workers)

	for i := 0; i < count; i++ {
		i := i
		number := batch.From + uint64(i)
		group.Go(func() error {
			results[i] = p.buildBlock(groupCtx, number)
			if results[i].failure == nil && results[i].forest == nil {
				return fmt.Errorf("block %d: no result", number)
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Pipeline) buildBlock(ctx context.Context, number uint64) blockResult {
	var blockTrace model.BlockTrace
	err := withRetry(ctx, p.cfg.MaxRetries, p.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		blockTrace, err = p.source.TraceBlock(ctx, number)
		if err != nil {
			p.logger.Warn("trace fetch failed", zap.Uint64("block", number), zap.Error(err))
		}
		return err
	})
	if err != nil {
		return blockResult{number: number, failure: &model.BlockFailure{
			BlockNumber: number,
			Stage:       "acquire",
			Reason:      err.Error(),
		}}
	}

	forest, err := p.builder.Build(ctx, blockTrace)
	if err != nil {
		stage := "classify"
		if errors.Is(err, tree.ErrMalformedTrace) {
			stage = "malformed_trace"
		}
		return blockResult{number: number, failure: &model.BlockFailure{
			BlockNumber: number,
			Stage:       stage,
			Reason:      err.Error(),
		}}
	}
	return blockResult{number: number, forest: forest}
}

// finalizeBlock layers pool state, resolves prices, runs the inspectors,
// and persists the block's outputs. Runs in block order.
func (p *Pipeline) finalizeBlock(ctx context.Context, result blockResult) error {
	if result.failure != nil {
		p.logger.Warn("block abandoned",
			zap.Uint64("block", result.failure.BlockNumber),
			zap.String("stage", result.failure.Stage),
			zap.String("reason", result.failure.Reason))
		return p.sink.PutFailure(ctx, *result.failure)
	}

	prices, bundles, err := p.InspectForest(ctx, result.forest)
	if err != nil {
		return err
	}

	if err := p.sink.PutForest(ctx, result.forest); err != nil {
		return fmt.Errorf("store forest %d: %w", result.number, err)
	}
	if err := p.sink.PutPriceMap(ctx, prices); err != nil {
		return fmt.Errorf("store prices %d: %w", result.number, err)
	}
	if err := p.sink.PutBundles(ctx, bundles); err != nil {
		return fmt.Errorf("store bundles %d: %w", result.number, err)
	}

	p.logger.Info("block inspected",
		zap.Uint64("block", result.number),
		zap.Int("txs", len(result.forest.Trees)),
		zap.Int("priced_assets", prices.Len()),
		zap.Int("bundles", len(bundles)))
	return nil
}

// InspectForest prices one classified forest and runs every inspector over
// it. Price resolution completes before any inspector starts; inspectors run
// concurrently and composition reduces their output after all report.
func (p *Pipeline) InspectForest(ctx context.Context, forest *model.ClassifiedForest) (*model.PriceMap, []model.Bundle, error) {
	states := p.book.Layer(ctx, forest)
	prices := p.oracle.Resolve(forest.BlockNumber, states)

	candidates := make([][]model.Bundle, len(p.inspectors))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, inspector := range p.inspectors {
		i, inspector := i, inspector
		group.Go(func() error {
			candidates[i] = inspector.Inspect(groupCtx, forest, prices, p.quotes)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, nil, err
	}

	var merged []model.Bundle
	for _, list := range candidates {
		merged = append(merged, list...)
	}
	return prices, inspect.Compose(merged), nil
}
