package storage

import (
	"context"

	"mevscope/internal/model"
)

// MultiSink fans each artifact out to several sinks.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink combines sinks; writes go to each in order.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) PutForest(ctx context.Context, forest *model.ClassifiedForest) error {
	for _, sink := range m.sinks {
		if err := sink.PutForest(ctx, forest); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiSink) PutPriceMap(ctx context.Context, prices *model.PriceMap) error {
	for _, sink := range m.sinks {
		if err := sink.PutPriceMap(ctx, prices); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiSink) PutBundles(ctx context.Context, bundles []model.Bundle) error {
	for _, sink := range m.sinks {
		if err := sink.PutBundles(ctx, bundles); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiSink) PutFailure(ctx context.Context, failure model.BlockFailure) error {
	for _, sink := range m.sinks {
		if err := sink.PutFailure(ctx, failure); err != nil {
			return err
		}
	}
	return nil
}
