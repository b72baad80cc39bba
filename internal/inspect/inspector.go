package inspect

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"mevscope/internal/model"
)

// QuoteSource serves off-chain market quotes within a bounded time window
// around a block timestamp.
type QuoteSource interface {
	Window(asset common.Address, center uint64) []model.MarketQuote
}

// Inspector is one pattern detector. Inspect is a pure function of its
// inputs and emits candidates in block order; it never mutates the forest or
// the price map.
type Inspector interface {
	Name() string
	Inspect(ctx context.Context, forest *model.ClassifiedForest, prices *model.PriceMap, quotes QuoteSource) []model.Bundle
}
