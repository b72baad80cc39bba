package inspect

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"mevscope/internal/model"
)

// LiquidationInspector attributes searcher profit on lending liquidations as
// the spread between seized collateral value and debt repaid.
type LiquidationInspector struct{}

// NewLiquidationInspector builds the detector.
func NewLiquidationInspector() *LiquidationInspector { return &LiquidationInspector{} }

func (l *LiquidationInspector) Name() string { return "liquidation" }

// Inspect walks each tree for liquidation actions. A liquidation whose
// collateral or debt asset is unpriced this block is omitted: absence of a
// price is never treated as zero.
func (l *LiquidationInspector) Inspect(_ context.Context, forest *model.ClassifiedForest, prices *model.PriceMap, _ QuoteSource) []model.Bundle {
	var bundles []model.Bundle

	for ti := range forest.Trees {
		tree := &forest.Trees[ti]
		for pos := range tree.Nodes {
			node := &tree.Nodes[pos]
			if node.Reverted {
				continue
			}
			liq, ok := node.Action.Data.(model.LiquidationAction)
			if !ok {
				continue
			}
			if bundle := l.evaluate(tree, pos, liq, forest.BlockNumber, prices); bundle != nil {
				bundles = append(bundles, *bundle)
			}
		}
	}

	return bundles
}

func (l *LiquidationInspector) evaluate(tree *model.ClassifiedTree, pos int, liq model.LiquidationAction, block uint64, prices *model.PriceMap) *model.Bundle {
	seized := liq.CollateralSeized
	if seized == nil {
		// The calldata does not carry the seized amount; recover it from
		// collateral transfers to the liquidator within the call subtree.
		seized = transfersTo(tree, pos, liq.CollateralToken, liq.Liquidator)
		if seized.Sign() == 0 {
			return nil
		}
	}
	if liq.DebtRepaid == nil {
		return nil
	}

	collateralValue, ok := prices.Value(liq.CollateralToken, seized)
	if !ok {
		return nil
	}
	debtValue, ok := prices.Value(liq.DebtToken, liq.DebtRepaid)
	if !ok {
		return nil
	}

	return &model.Bundle{
		Kind:        model.BundleLiquidation,
		BlockNumber: block,
		TxHashes:    []common.Hash{tree.TxHash},
		Signer:      tree.Signer,
		Pool:        liq.Pool,
		Actions:     []model.Action{{Kind: model.ActionLiquidation, Data: liq}},
		Profit:      new(big.Rat).Sub(collateralValue, debtValue),
	}
}
