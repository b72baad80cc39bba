package quotes

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"mevscope/internal/model"
)

// Index serves market quotes within a bounded window around a timestamp.
// It is read-only after construction and safe for concurrent use.
type Index struct {
	windowSecs uint64
	byAsset    map[common.Address][]model.MarketQuote
}

// NewIndex builds an index over the given quotes with a symmetric lookup
// window of windowSecs around the requested timestamp.
func NewIndex(samples []model.MarketQuote, windowSecs uint64) *Index {
	byAsset := make(map[common.Address][]model.MarketQuote)
	for _, sample := range samples {
		byAsset[sample.Asset] = append(byAsset[sample.Asset], sample)
	}
	for asset := range byAsset {
		series := byAsset[asset]
		sort.Slice(series, func(a, b int) bool { return series[a].Timestamp < series[b].Timestamp })
	}
	return &Index{windowSecs: windowSecs, byAsset: byAsset}
}

// Window returns the asset's quotes with timestamps within the window around
// center, in time order. An empty result means the leg cannot be evaluated.
func (i *Index) Window(asset common.Address, center uint64) []model.MarketQuote {
	series := i.byAsset[asset]
	if len(series) == 0 {
		return nil
	}

	low := uint64(0)
	if center > i.windowSecs {
		low = center - i.windowSecs
	}
	high := center + i.windowSecs

	start := sort.Search(len(series), func(k int) bool { return series[k].Timestamp >= low })
	end := sort.Search(len(series), func(k int) bool { return series[k].Timestamp > high })
	if start >= end {
		return nil
	}
	out := make([]model.MarketQuote, end-start)
	copy(out, series[start:end])
	return out
}
