package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// MarketQuote is one off-chain order book sample for an asset pair.
type MarketQuote struct {
	Timestamp uint64         `json:"timestamp"`
	Venue     string         `json:"venue"`
	Asset     common.Address `json:"asset"`
	Bid       *big.Rat       `json:"bid"`
	Ask       *big.Rat       `json:"ask"`
}

// Mid returns the bid/ask midpoint, or nil if either side is missing.
func (q *MarketQuote) Mid() *big.Rat {
	if q.Bid == nil || q.Ask == nil {
		return nil
	}
	mid := new(big.Rat).Add(q.Bid, q.Ask)
	return mid.Quo(mid, big.NewRat(2, 1))
}
