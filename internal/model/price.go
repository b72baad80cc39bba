package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PriceMap holds per-block reference prices relative to a quote asset, as
// rationals to avoid floating-point error. An asset with no path to the quote
// asset has no entry; consumers must treat absence as unpriced, never zero.
type PriceMap struct {
	BlockNumber uint64
	Quote       common.Address
	prices      map[common.Address]*big.Rat
}

// NewPriceMap builds an empty price map with the quote asset pinned to 1.
func NewPriceMap(block uint64, quote common.Address) *PriceMap {
	pm := &PriceMap{
		BlockNumber: block,
		Quote:       quote,
		prices:      make(map[common.Address]*big.Rat),
	}
	pm.prices[quote] = big.NewRat(1, 1)
	return pm
}

// Set records the price of asset in quote terms. A nil or non-positive price
// is ignored: absence is the only representation of "unpriced".
func (m *PriceMap) Set(asset common.Address, price *big.Rat) {
	if price == nil || price.Sign() <= 0 {
		return
	}
	m.prices[asset] = price
}

// Price returns the quote-terms price of asset, if priced this block.
func (m *PriceMap) Price(asset common.Address) (*big.Rat, bool) {
	price, ok := m.prices[asset]
	return price, ok
}

// Assets returns every priced asset, quote included.
func (m *PriceMap) Assets() []common.Address {
	assets := make([]common.Address, 0, len(m.prices))
	for asset := range m.prices {
		assets = append(assets, asset)
	}
	return assets
}

// Len returns the number of priced assets.
func (m *PriceMap) Len() int {
	return len(m.prices)
}

// Value converts a raw token amount into quote terms, or reports the asset as
// unpriced.
func (m *PriceMap) Value(asset common.Address, amount *big.Int) (*big.Rat, bool) {
	price, ok := m.prices[asset]
	if !ok || amount == nil {
		return nil, false
	}
	value := new(big.Rat).SetInt(amount)
	return value.Mul(value, price), true
}
