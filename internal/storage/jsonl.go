package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"mevscope/internal/model"
)

// JsonlSink writes pipeline outputs as JSON lines, one file per artifact
// kind under a base directory.
type JsonlSink struct {
	dir string
	mu  sync.Mutex
}

// NewJsonlSink builds a sink rooted at dir.
func NewJsonlSink(dir string) *JsonlSink {
	return &JsonlSink{dir: dir}
}

// PutForest appends one classified forest.
func (s *JsonlSink) PutForest(_ context.Context, forest *model.ClassifiedForest) error {
	return s.appendLines("forests.jsonl", forest)
}

// priceRecord is the serialized form of a price map; prices are rational
// strings keyed by asset address.
type priceRecord struct {
	BlockNumber uint64            `json:"block_number"`
	Quote       string            `json:"quote"`
	Prices      map[string]string `json:"prices"`
}

// PutPriceMap appends one block's resolved prices.
func (s *JsonlSink) PutPriceMap(_ context.Context, prices *model.PriceMap) error {
	record := priceRecord{
		BlockNumber: prices.BlockNumber,
		Quote:       prices.Quote.Hex(),
		Prices:      make(map[string]string, prices.Len()),
	}
	for _, asset := range prices.Assets() {
		if price, ok := prices.Price(asset); ok {
			record.Prices[asset.Hex()] = price.RatString()
		}
	}
	return s.appendLines("prices.jsonl", record)
}

// PutBundles appends a block's final bundles.
func (s *JsonlSink) PutBundles(_ context.Context, bundles []model.Bundle) error {
	if len(bundles) == 0 {
		return nil
	}
	records := make([]interface{}, len(bundles))
	for i := range bundles {
		records[i] = bundles[i]
	}
	return s.appendLines("bundles.jsonl", records...)
}

// PutFailure appends one block failure report.
func (s *JsonlSink) PutFailure(_ context.Context, failure model.BlockFailure) error {
	return s.appendLines("failures.jsonl", failure)
}

func (s *JsonlSink) appendLines(name string, records ...interface{}) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal %s record: %w", name, err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write %s record: %w", name, err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", name, err)
	}
	return nil
}
