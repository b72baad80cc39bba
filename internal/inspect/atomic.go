package inspect

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"mevscope/internal/model"
)

// AtomicArbInspector detects single transactions whose swap legs route an
// asset through two or more pools and return to the starting asset with a
// net profit above the materiality threshold.
type AtomicArbInspector struct {
	// epsilon is the materiality threshold in quote-asset terms; candidates
	// at or below it are noise and dropped.
	epsilon *big.Rat
}

// NewAtomicArbInspector builds the detector. A nil epsilon means zero.
func NewAtomicArbInspector(epsilon *big.Rat) *AtomicArbInspector {
	if epsilon == nil {
		epsilon = new(big.Rat)
	}
	return &AtomicArbInspector{epsilon: epsilon}
}

func (a *AtomicArbInspector) Name() string { return "atomic_arbitrage" }

// Inspect examines each transaction's swap sequence for a closed cycle.
func (a *AtomicArbInspector) Inspect(_ context.Context, forest *model.ClassifiedForest, prices *model.PriceMap, _ QuoteSource) []model.Bundle {
	var bundles []model.Bundle

	for ti := range forest.Trees {
		tree := &forest.Trees[ti]
		swaps := txSwaps(tree)
		if len(swaps) < 2 {
			continue
		}
		if bundle := a.evaluate(tree, swaps, forest.BlockNumber, prices); bundle != nil {
			bundles = append(bundles, *bundle)
		}
	}

	return bundles
}

func (a *AtomicArbInspector) evaluate(tree *model.ClassifiedTree, swaps []model.SwapAction, block uint64, prices *model.PriceMap) *model.Bundle {
	// Legs must chain and distinct pools must be traversed.
	pools := map[common.Address]bool{swaps[0].Pool: true}
	for i := 1; i < len(swaps); i++ {
		if swaps[i-1].TokenOut != swaps[i].TokenIn {
			return nil
		}
		pools[swaps[i].Pool] = true
	}
	if len(pools) < 2 {
		return nil
	}

	first, last := swaps[0], swaps[len(swaps)-1]
	if first.TokenIn != last.TokenOut {
		return nil
	}
	if first.AmountIn == nil || last.AmountOut == nil {
		return nil
	}

	// Net flow in the starting asset; valued through the price map. An
	// unpriced starting asset cannot be evaluated, so the candidate is
	// skipped rather than guessed at.
	net := new(big.Int).Sub(last.AmountOut, first.AmountIn)
	profit, ok := prices.Value(first.TokenIn, net)
	if !ok {
		return nil
	}
	if profit.Cmp(a.epsilon) <= 0 {
		return nil
	}

	actions := make([]model.Action, 0, len(swaps))
	for _, swap := range swaps {
		actions = append(actions, model.Action{Kind: model.ActionSwap, Data: swap})
	}

	return &model.Bundle{
		Kind:        model.BundleAtomicArb,
		BlockNumber: block,
		TxHashes:    []common.Hash{tree.TxHash},
		Signer:      tree.Signer,
		Actions:     actions,
		Profit:      profit,
	}
}
