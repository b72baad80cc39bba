package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"mevscope/internal/classifier"
	"mevscope/internal/inspect"
	"mevscope/internal/metadata"
	"mevscope/internal/model"
	"mevscope/internal/pricing"
	"mevscope/internal/tree"
)

type fakeSource struct {
	mu        sync.Mutex
	failures  map[uint64]int
	malformed map[uint64]bool
}

func (s *fakeSource) TraceBlock(_ context.Context, number uint64) (model.BlockTrace, error) {
	s.mu.Lock()
	if remaining := s.failures[number]; remaining > 0 {
		s.failures[number] = remaining - 1
		s.mu.Unlock()
		return model.BlockTrace{}, fmt.Errorf("rpc unavailable")
	}
	malformed := s.malformed[number]
	s.mu.Unlock()

	frame := model.RawCallTrace{Kind: model.CallKindCall, Input: []byte{0x01, 0x02, 0x03, 0x04}}
	if malformed {
		frame.TraceAddress = []int{0}
	}
	return model.BlockTrace{
		Number: number,
		Hash:   common.Hash{byte(number)},
		Txs: []model.TxTrace{{
			Hash:   common.Hash{31: byte(number)},
			Frames: []model.RawCallTrace{frame},
		}},
	}, nil
}

type memorySink struct {
	mu       sync.Mutex
	forests  []*model.ClassifiedForest
	prices   []*model.PriceMap
	failures []model.BlockFailure
}

func (s *memorySink) PutForest(_ context.Context, forest *model.ClassifiedForest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forests = append(s.forests, forest)
	return nil
}

func (s *memorySink) PutPriceMap(_ context.Context, prices *model.PriceMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices = append(s.prices, prices)
	return nil
}

func (s *memorySink) PutBundles(_ context.Context, _ []model.Bundle) error { return nil }

func (s *memorySink) PutFailure(_ context.Context, failure model.BlockFailure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure)
	return nil
}

func newTestPipeline(t *testing.T, cfg RunConfig, source TraceSource, sink *memorySink) *Pipeline {
	t.Helper()
	registry, err := classifier.DefaultRegistry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	cache := metadata.NewCache(nil)
	builder := tree.NewBuilder(registry, cache, cfg.Workers, nil)
	book := pricing.NewStateBook(cache, nil)
	oracle := pricing.NewOracle(common.Address{0xaa}, nil, nil)
	inspectors := []inspect.Inspector{inspect.NewAtomicArbInspector(nil)}
	return New(cfg, source, builder, book, oracle, inspectors, nil, sink, nil)
}

func TestRunProcessesRangeInOrder(t *testing.T) {
	source := &fakeSource{}
	sink := &memorySink{}
	p := newTestPipeline(t, RunConfig{FromBlock: 10, ToBlock: 15, Workers: 3}, source, sink)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(sink.forests) != 6 {
		t.Fatalf("forest count mismatch: %d", len(sink.forests))
	}
	for i, forest := range sink.forests {
		if forest.BlockNumber != uint64(10+i) {
			t.Fatalf("forest %d out of block order: %d", i, forest.BlockNumber)
		}
	}
	if len(sink.prices) != 6 {
		t.Fatalf("price map count mismatch: %d", len(sink.prices))
	}
	if len(sink.failures) != 0 {
		t.Fatalf("unexpected failures: %+v", sink.failures)
	}
}

func TestRunRetriesTransientFetch(t *testing.T) {
	source := &fakeSource{failures: map[uint64]int{11: 2}}
	sink := &memorySink{}
	p := newTestPipeline(t, RunConfig{FromBlock: 10, ToBlock: 12, Workers: 2, MaxRetries: 3, RetryBackoff: 1}, source, sink)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sink.forests) != 3 || len(sink.failures) != 0 {
		t.Fatalf("retry did not recover: forests=%d failures=%+v", len(sink.forests), sink.failures)
	}
}

func TestRunReportsExhaustedFetch(t *testing.T) {
	source := &fakeSource{failures: map[uint64]int{11: 100}}
	sink := &memorySink{}
	p := newTestPipeline(t, RunConfig{FromBlock: 10, ToBlock: 12, Workers: 2, MaxRetries: 1, RetryBackoff: 1}, source, sink)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sink.forests) != 2 {
		t.Fatalf("healthy blocks must still land: %d", len(sink.forests))
	}
	if len(sink.failures) != 1 || sink.failures[0].BlockNumber != 11 || sink.failures[0].Stage != "acquire" {
		t.Fatalf("failure report mismatch: %+v", sink.failures)
	}
}

func TestRunAbandonsMalformedBlock(t *testing.T) {
	source := &fakeSource{malformed: map[uint64]bool{11: true}}
	sink := &memorySink{}
	p := newTestPipeline(t, RunConfig{FromBlock: 10, ToBlock: 12, Workers: 2}, source, sink)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sink.forests) != 2 {
		t.Fatalf("other blocks must survive: %d", len(sink.forests))
	}
	if len(sink.failures) != 1 || sink.failures[0].Stage != "malformed_trace" {
		t.Fatalf("failure report mismatch: %+v", sink.failures)
	}
}

func TestRunResumesFromCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	if err := NewCheckpointStore(path, true).Save(11); err != nil {
		t.Fatalf("seed checkpoint: %v", err)
	}

	source := &fakeSource{}
	sink := &memorySink{}
	cfg := RunConfig{FromBlock: 10, ToBlock: 14, Workers: 2, CheckpointPath: path, CheckpointEnabled: true}
	p := newTestPipeline(t, cfg, source, sink)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sink.forests) != 3 {
		t.Fatalf("resume did not skip processed blocks: %d", len(sink.forests))
	}
	if sink.forests[0].BlockNumber != 12 {
		t.Fatalf("resume start mismatch: %d", sink.forests[0].BlockNumber)
	}

	cp, ok, err := NewCheckpointStore(path, true).Load()
	if err != nil || !ok || cp.LastProcessedBlock != 14 {
		t.Fatalf("final checkpoint mismatch: %+v ok=%v err=%v", cp, ok, err)
	}
}
