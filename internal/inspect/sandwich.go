package inspect

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"mevscope/internal/model"
)

// SandwichInspector detects a front-run and back-run pair bracketing one or
// more victim trades against the same pool.
type SandwichInspector struct{}

// NewSandwichInspector builds the detector.
func NewSandwichInspector() *SandwichInspector { return &SandwichInspector{} }

func (s *SandwichInspector) Name() string { return "sandwich" }

// Inspect scans each pool's trades for a (front-run, victim+, back-run)
// triple: front and back share a signer and reverse each other, victims trade
// the front-run's side between them, and no other trade against the pool
// intervenes.
func (s *SandwichInspector) Inspect(_ context.Context, forest *model.ClassifiedForest, prices *model.PriceMap, _ QuoteSource) []model.Bundle {
	var bundles []model.Bundle

	for pool, events := range poolEvents(forest) {
		swaps := make([]poolEvent, 0, len(events))
		for _, event := range events {
			if event.Swap != nil {
				swaps = append(swaps, event)
			}
		}

		for i := 0; i < len(swaps); i++ {
			bundle, next := s.match(pool, swaps, i, forest.BlockNumber, prices)
			if bundle != nil {
				bundles = append(bundles, *bundle)
				i = next
			}
		}
	}

	return bundles
}

// match tries to complete a sandwich starting at the front-run candidate.
// It returns the bundle and the index of the back-run, or nil.
func (s *SandwichInspector) match(pool common.Address, swaps []poolEvent, frontIdx int, block uint64, prices *model.PriceMap) (*model.Bundle, int) {
	front := swaps[frontIdx]
	var victims []poolEvent

	for k := frontIdx + 1; k < len(swaps); k++ {
		candidate := swaps[k]
		if candidate.TxIndex == front.TxIndex {
			continue
		}

		if candidate.Signer == front.Signer {
			if !opposite(front.Swap, candidate.Swap) {
				// The attacker trading the same side again breaks the
				// bracket; restart from here.
				return nil, 0
			}
			if len(victims) == 0 {
				return nil, 0
			}
			bundle := s.bundle(pool, block, front, candidate, victims, prices)
			return bundle, k
		}

		if sameDirection(front.Swap, candidate.Swap) {
			victims = append(victims, candidate)
			continue
		}
		// Someone else traded against the front-run's side before the
		// back-run landed: the pattern is broken.
		return nil, 0
	}
	return nil, 0
}

func (s *SandwichInspector) bundle(pool common.Address, block uint64, front, back poolEvent, victims []poolEvent, prices *model.PriceMap) *model.Bundle {
	bundle := &model.Bundle{
		Kind:        model.BundleSandwich,
		BlockNumber: block,
		TxHashes:    []common.Hash{front.TxHash, back.TxHash},
		Signer:      front.Signer,
		Pool:        pool,
		Actions: []model.Action{
			{Kind: model.ActionSwap, Data: *front.Swap},
			{Kind: model.ActionSwap, Data: *back.Swap},
		},
	}
	for _, victim := range victims {
		bundle.VictimTxHashes = append(bundle.VictimTxHashes, victim.TxHash)
	}

	// Profit in the front-run's input token: what the back-run returned
	// minus what the front-run spent. Left unset when either amount is
	// unavailable or the token is unpriced this block.
	if front.Swap.AmountIn != nil && back.Swap.AmountOut != nil && front.Swap.TokenIn == back.Swap.TokenOut {
		delta := new(big.Int).Sub(back.Swap.AmountOut, front.Swap.AmountIn)
		if value, ok := prices.Value(front.Swap.TokenIn, delta); ok {
			bundle.Profit = value
		}
	}
	return bundle
}
