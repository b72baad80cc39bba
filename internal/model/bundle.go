package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// BundleKind tags a detected MEV occurrence.
type BundleKind string

const (
	BundleSandwich    BundleKind = "sandwich"
	BundleJITSandwich BundleKind = "jit_sandwich"
	BundleJIT         BundleKind = "jit_liquidity"
	BundleAtomicArb   BundleKind = "atomic_arbitrage"
	BundleCexDex      BundleKind = "cex_dex"
	BundleLiquidation BundleKind = "liquidation"
)

// VenuePnL is a per-venue profit estimate for a cross-venue bundle, carrying
// both the mid-price and maker/taker variants.
type VenuePnL struct {
	Venue      string   `json:"venue"`
	Mid        *big.Rat `json:"mid"`
	MakerTaker *big.Rat `json:"maker_taker"`
}

// Bundle is one candidate MEV occurrence: its kind, the ordered transactions
// composing it, implicated actions, and profit in quote-asset terms.
// Immutable once finalized by composition.
type Bundle struct {
	Kind        BundleKind     `json:"kind"`
	BlockNumber uint64         `json:"block_number"`
	TxHashes    []common.Hash  `json:"tx_hashes"`
	Signer      common.Address `json:"signer"`
	// VictimTxHashes lists transactions exploited by the bundle, when the
	// pattern has victims (sandwich, jit).
	VictimTxHashes []common.Hash  `json:"victim_tx_hashes,omitempty"`
	Pool           common.Address `json:"pool,omitempty"`
	Actions        []Action       `json:"actions,omitempty"`
	// Profit is denominated in the block's quote asset.
	Profit *big.Rat   `json:"profit,omitempty"`
	Venues []VenuePnL `json:"venues,omitempty"`
}

// TxSetKey returns a canonical key for the bundle's transaction set, used by
// composition to detect overlapping candidates.
func (b *Bundle) TxSetKey() string {
	hashes := make([]common.Hash, len(b.TxHashes))
	copy(hashes, b.TxHashes)
	for i := 1; i < len(hashes); i++ {
		for j := i; j > 0 && hashes[j].Hex() < hashes[j-1].Hex(); j-- {
			hashes[j], hashes[j-1] = hashes[j-1], hashes[j]
		}
	}
	key := ""
	for _, h := range hashes {
		key += h.Hex() + "|"
	}
	return key
}
