package inspect

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"mevscope/internal/model"
)

// CexDexInspector compares each swap's effective on-chain price against
// off-chain quotes sampled around block inclusion, flagging transactions
// whose realized spread, net of estimated execution cost, clears the
// materiality threshold. Both a mid and a maker/taker PnL variant are
// computed per venue.
type CexDexInspector struct {
	nativeAsset common.Address
	threshold   *big.Rat
}

// NewCexDexInspector builds the detector. nativeAsset is the gas token used
// to value execution cost; a nil threshold means zero.
func NewCexDexInspector(nativeAsset common.Address, threshold *big.Rat) *CexDexInspector {
	if threshold == nil {
		threshold = new(big.Rat)
	}
	return &CexDexInspector{nativeAsset: nativeAsset, threshold: threshold}
}

func (c *CexDexInspector) Name() string { return "cex_dex" }

// Inspect evaluates each transaction's top-of-tree swap legs.
func (c *CexDexInspector) Inspect(_ context.Context, forest *model.ClassifiedForest, prices *model.PriceMap, quotes QuoteSource) []model.Bundle {
	if quotes == nil {
		return nil
	}
	var bundles []model.Bundle

	for ti := range forest.Trees {
		tree := &forest.Trees[ti]
		swaps := txSwaps(tree)
		if len(swaps) != 1 {
			// Multi-leg transactions belong to the atomic detector.
			continue
		}
		if bundle := c.evaluate(tree, swaps[0], forest, prices, quotes); bundle != nil {
			bundles = append(bundles, *bundle)
		}
	}

	return bundles
}

func (c *CexDexInspector) evaluate(tree *model.ClassifiedTree, swap model.SwapAction, forest *model.ClassifiedForest, prices *model.PriceMap, quotes QuoteSource) *model.Bundle {
	if swap.AmountIn == nil || swap.AmountOut == nil || swap.AmountOut.Sign() <= 0 {
		return nil
	}

	// Effective acquisition price of the received token in quote terms:
	// value paid divided by units received. Absent price means the leg
	// cannot be evaluated.
	paid, ok := prices.Value(swap.TokenIn, swap.AmountIn)
	if !ok {
		return nil
	}
	received := new(big.Rat).SetInt(swap.AmountOut)
	effective := new(big.Rat).Quo(paid, received)

	window := quotes.Window(swap.TokenOut, forest.Timestamp)
	if len(window) == 0 {
		return nil
	}

	cost := c.executionCost(tree, prices)
	var venues []model.VenuePnL
	var best *big.Rat

	for _, quote := range window {
		mid := quote.Mid()
		if mid == nil || quote.Bid == nil {
			continue
		}
		midPnL := pnl(mid, effective, received, cost)
		takerPnL := pnl(quote.Bid, effective, received, cost)
		venues = append(venues, model.VenuePnL{Venue: quote.Venue, Mid: midPnL, MakerTaker: takerPnL})
		if best == nil || midPnL.Cmp(best) > 0 {
			best = midPnL
		}
	}

	if best == nil || best.Cmp(c.threshold) <= 0 {
		return nil
	}

	return &model.Bundle{
		Kind:        model.BundleCexDex,
		BlockNumber: forest.BlockNumber,
		TxHashes:    []common.Hash{tree.TxHash},
		Signer:      tree.Signer,
		Pool:        swap.Pool,
		Actions:     []model.Action{{Kind: model.ActionSwap, Data: swap}},
		Profit:      best,
		Venues:      venues,
	}
}

// executionCost estimates the gas fee in quote terms; zero when the native
// asset is unpriced.
func (c *CexDexInspector) executionCost(tree *model.ClassifiedTree, prices *model.PriceMap) *big.Rat {
	if tree.EffectiveGasPrice == nil {
		return new(big.Rat)
	}
	fee := new(big.Int).Mul(new(big.Int).SetUint64(tree.GasUsed), tree.EffectiveGasPrice)
	if value, ok := prices.Value(c.nativeAsset, fee); ok {
		return value
	}
	return new(big.Rat)
}

// pnl computes (venue price − effective price) × size − cost.
func pnl(venuePrice, effective, size, cost *big.Rat) *big.Rat {
	spread := new(big.Rat).Sub(venuePrice, effective)
	spread.Mul(spread, size)
	return spread.Sub(spread, cost)
}
