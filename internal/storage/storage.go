package storage

import (
	"context"

	"mevscope/internal/model"
)

// Sink receives the per-block outputs of the pipeline.
type Sink interface {
	PutForest(ctx context.Context, forest *model.ClassifiedForest) error
	PutPriceMap(ctx context.Context, prices *model.PriceMap) error
	PutBundles(ctx context.Context, bundles []model.Bundle) error
	PutFailure(ctx context.Context, failure model.BlockFailure) error
}
