package quotes

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"

	"mevscope/internal/model"
)

// quoteRecord is the JSONL wire form of a market quote; prices are decimal
// strings.
type quoteRecord struct {
	Timestamp uint64 `json:"timestamp"`
	Venue     string `json:"venue"`
	Asset     string `json:"asset"`
	Bid       string `json:"bid"`
	Ask       string `json:"ask"`
}

// LoadJSONL reads market quotes from a JSONL file.
func LoadJSONL(path string) ([]model.MarketQuote, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open quotes: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var samples []model.MarketQuote
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var record quoteRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("quotes line %d: %w", line, err)
		}
		sample, err := record.toQuote()
		if err != nil {
			return nil, fmt.Errorf("quotes line %d: %w", line, err)
		}
		samples = append(samples, sample)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan quotes: %w", err)
	}

	return samples, nil
}

func (r quoteRecord) toQuote() (model.MarketQuote, error) {
	if !common.IsHexAddress(r.Asset) {
		return model.MarketQuote{}, fmt.Errorf("invalid asset address: %s", r.Asset)
	}
	bid, ok := new(big.Rat).SetString(r.Bid)
	if !ok {
		return model.MarketQuote{}, fmt.Errorf("invalid bid: %s", r.Bid)
	}
	ask, ok := new(big.Rat).SetString(r.Ask)
	if !ok {
		return model.MarketQuote{}, fmt.Errorf("invalid ask: %s", r.Ask)
	}
	return model.MarketQuote{
		Timestamp: r.Timestamp,
		Venue:     r.Venue,
		Asset:     common.HexToAddress(r.Asset),
		Bid:       bid,
		Ask:       ask,
	}, nil
}
