package inspect

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"mevscope/internal/model"
)

// JITInspector detects just-in-time liquidity: a mint immediately preceding
// and a burn immediately following victim swaps in the same pool, capturing
// their fees through a briefly widened position. When the provider also
// trades around the victims the occurrence is classified jit-sandwich.
type JITInspector struct{}

// NewJITInspector builds the detector.
func NewJITInspector() *JITInspector { return &JITInspector{} }

func (j *JITInspector) Name() string { return "jit" }

// Inspect scans each pool for mint → victim swaps → burn by one signer.
func (j *JITInspector) Inspect(_ context.Context, forest *model.ClassifiedForest, prices *model.PriceMap, _ QuoteSource) []model.Bundle {
	var bundles []model.Bundle

	for pool, events := range poolEvents(forest) {
		for i, event := range events {
			if event.Kind != model.ActionMint || event.Mint == nil {
				continue
			}
			if bundle := j.match(pool, events, i, forest.BlockNumber, prices); bundle != nil {
				bundles = append(bundles, *bundle)
			}
		}
	}

	return bundles
}

func (j *JITInspector) match(pool common.Address, events []poolEvent, mintIdx int, block uint64, prices *model.PriceMap) *model.Bundle {
	mint := events[mintIdx]
	var victims []poolEvent
	providerSwapped := false

	for k := mintIdx + 1; k < len(events); k++ {
		event := events[k]
		switch {
		case event.Kind == model.ActionBurn && event.Burn != nil && event.Signer == mint.Signer:
			if len(victims) == 0 {
				return nil
			}
			return j.bundle(pool, block, mint, event, victims, providerSwapped, prices)
		case event.Kind == model.ActionSwap && event.Swap != nil:
			if event.Signer == mint.Signer {
				providerSwapped = true
				continue
			}
			victims = append(victims, event)
		case event.Kind == model.ActionMint && event.Signer != mint.Signer:
			// Another provider widening the pool dilutes the window;
			// treat the pattern as broken.
			return nil
		}
	}
	return nil
}

func (j *JITInspector) bundle(pool common.Address, block uint64, mint, burn poolEvent, victims []poolEvent, providerSwapped bool, prices *model.PriceMap) *model.Bundle {
	kind := model.BundleJIT
	if providerSwapped {
		kind = model.BundleJITSandwich
	}

	bundle := &model.Bundle{
		Kind:        kind,
		BlockNumber: block,
		TxHashes:    []common.Hash{mint.TxHash, burn.TxHash},
		Signer:      mint.Signer,
		Pool:        pool,
		Actions: []model.Action{
			{Kind: model.ActionMint, Data: *mint.Mint},
			{Kind: model.ActionBurn, Data: *burn.Burn},
		},
	}
	for _, victim := range victims {
		bundle.VictimTxHashes = append(bundle.VictimTxHashes, victim.TxHash)
	}

	// Fee capture: what the burn returned beyond what the mint deposited,
	// valued per token. Requires both legs' amounts and both token prices.
	if mint.Mint.Amount0 != nil && mint.Mint.Amount1 != nil &&
		burn.Burn.Amount0 != nil && burn.Burn.Amount1 != nil {
		delta0 := new(big.Int).Sub(burn.Burn.Amount0, mint.Mint.Amount0)
		delta1 := new(big.Int).Sub(burn.Burn.Amount1, mint.Mint.Amount1)
		value0, ok0 := prices.Value(mint.Mint.Token0, delta0)
		value1, ok1 := prices.Value(mint.Mint.Token1, delta1)
		if ok0 && ok1 {
			bundle.Profit = new(big.Rat).Add(value0, value1)
		}
	}
	return bundle
}
