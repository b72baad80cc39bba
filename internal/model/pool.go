package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PoolProtocol distinguishes pool pricing curves.
type PoolProtocol string

const (
	PoolConstantProduct PoolProtocol = "constant_product"
	PoolConcentrated    PoolProtocol = "concentrated"
)

// PoolState is the liquidity state of one pool at one block height. A new
// state supersedes the prior block's state; states are never edited in place.
type PoolState struct {
	Address  common.Address `json:"address"`
	Protocol PoolProtocol   `json:"protocol"`
	Token0   common.Address `json:"token0"`
	Token1   common.Address `json:"token1"`
	Reserve0 *big.Int       `json:"reserve0"`
	Reserve1 *big.Int       `json:"reserve1"`
	// SqrtPriceX96 and Liquidity describe the current tick of a
	// concentrated pool; nil for constant-product pools.
	SqrtPriceX96 *big.Int `json:"sqrt_price_x96,omitempty"`
	Liquidity    *big.Int `json:"liquidity,omitempty"`
	FeePPM       uint32   `json:"fee_ppm"`
	BlockNumber  uint64   `json:"block_number"`
}

// Clone returns a deep copy with the given block number.
func (p *PoolState) Clone(block uint64) *PoolState {
	next := *p
	next.BlockNumber = block
	if p.Reserve0 != nil {
		next.Reserve0 = new(big.Int).Set(p.Reserve0)
	}
	if p.Reserve1 != nil {
		next.Reserve1 = new(big.Int).Set(p.Reserve1)
	}
	if p.SqrtPriceX96 != nil {
		next.SqrtPriceX96 = new(big.Int).Set(p.SqrtPriceX96)
	}
	if p.Liquidity != nil {
		next.Liquidity = new(big.Int).Set(p.Liquidity)
	}
	return &next
}
