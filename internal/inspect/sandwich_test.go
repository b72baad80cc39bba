package inspect

import (
	"context"
	"math/big"
	"testing"

	"mevscope/internal/model"
)

func TestSandwichDetected(t *testing.T) {
	forest := forestOf(100,
		treeWith(0, 0x01, attacker, swapOn(poolOne, quoteAsset, tokenX, 100, 150)),
		treeWith(1, 0x02, victim, swapOn(poolOne, quoteAsset, tokenX, 50, 70)),
		treeWith(2, 0x03, attacker, swapOn(poolOne, tokenX, quoteAsset, 150, 120)),
	)

	bundles := NewSandwichInspector().Inspect(context.Background(), forest, unitPrices(100, tokenX), nil)

	if len(bundles) != 1 {
		t.Fatalf("bundle count mismatch: %d", len(bundles))
	}
	bundle := bundles[0]
	if bundle.Kind != model.BundleSandwich {
		t.Fatalf("kind mismatch: %s", bundle.Kind)
	}
	if bundle.Signer != attacker {
		t.Fatalf("signer mismatch: %s", bundle.Signer.Hex())
	}
	if len(bundle.TxHashes) != 2 || bundle.TxHashes[0] != txHash(0x01) || bundle.TxHashes[1] != txHash(0x03) {
		t.Fatalf("tx hashes mismatch: %v", bundle.TxHashes)
	}
	if len(bundle.VictimTxHashes) != 1 || bundle.VictimTxHashes[0] != txHash(0x02) {
		t.Fatalf("victims mismatch: %v", bundle.VictimTxHashes)
	}
	// Back-run returned 120 against 100 spent, quote-priced at par.
	if bundle.Profit == nil || bundle.Profit.Cmp(big.NewRat(20, 1)) != 0 {
		t.Fatalf("profit mismatch: %s", bundle.Profit)
	}
}

func TestSandwichNoVictims(t *testing.T) {
	forest := forestOf(100,
		treeWith(0, 0x01, attacker, swapOn(poolOne, quoteAsset, tokenX, 100, 150)),
		treeWith(1, 0x02, attacker, swapOn(poolOne, tokenX, quoteAsset, 150, 120)),
	)

	bundles := NewSandwichInspector().Inspect(context.Background(), forest, unitPrices(100, tokenX), nil)
	if len(bundles) != 0 {
		t.Fatalf("round trip without victims must not match: %d", len(bundles))
	}
}

func TestSandwichBrokenByOppositeTrade(t *testing.T) {
	// A third party trading against the front-run's side between the bracket
	// legs breaks the pattern.
	forest := forestOf(100,
		treeWith(0, 0x01, attacker, swapOn(poolOne, quoteAsset, tokenX, 100, 150)),
		treeWith(1, 0x02, victim, swapOn(poolOne, tokenX, quoteAsset, 60, 40)),
		treeWith(2, 0x03, attacker, swapOn(poolOne, tokenX, quoteAsset, 150, 120)),
	)

	bundles := NewSandwichInspector().Inspect(context.Background(), forest, unitPrices(100, tokenX), nil)
	if len(bundles) != 0 {
		t.Fatalf("broken pattern must not match: %d", len(bundles))
	}
}

func TestSandwichBrokenBySameSideRepeat(t *testing.T) {
	forest := forestOf(100,
		treeWith(0, 0x01, attacker, swapOn(poolOne, quoteAsset, tokenX, 100, 150)),
		treeWith(1, 0x02, victim, swapOn(poolOne, quoteAsset, tokenX, 50, 70)),
		treeWith(2, 0x03, attacker, swapOn(poolOne, quoteAsset, tokenX, 100, 130)),
	)

	bundles := NewSandwichInspector().Inspect(context.Background(), forest, unitPrices(100, tokenX), nil)
	if len(bundles) != 0 {
		t.Fatalf("same-side repeat must not match: %d", len(bundles))
	}
}

func TestSandwichDifferentPoolIgnored(t *testing.T) {
	forest := forestOf(100,
		treeWith(0, 0x01, attacker, swapOn(poolOne, quoteAsset, tokenX, 100, 150)),
		treeWith(1, 0x02, victim, swapOn(poolTwo, quoteAsset, tokenX, 50, 70)),
		treeWith(2, 0x03, attacker, swapOn(poolOne, tokenX, quoteAsset, 150, 120)),
	)

	bundles := NewSandwichInspector().Inspect(context.Background(), forest, unitPrices(100, tokenX), nil)
	if len(bundles) != 0 {
		t.Fatalf("victim on another pool must not count: %d", len(bundles))
	}
}

func TestSandwichUnpricedProfitUnset(t *testing.T) {
	prices := model.NewPriceMap(100, tokenY)

	forest := forestOf(100,
		treeWith(0, 0x01, attacker, swapOn(poolOne, quoteAsset, tokenX, 100, 150)),
		treeWith(1, 0x02, victim, swapOn(poolOne, quoteAsset, tokenX, 50, 70)),
		treeWith(2, 0x03, attacker, swapOn(poolOne, tokenX, quoteAsset, 150, 120)),
	)

	bundles := NewSandwichInspector().Inspect(context.Background(), forest, prices, nil)
	if len(bundles) != 1 {
		t.Fatalf("bundle count mismatch: %d", len(bundles))
	}
	// The occurrence is still reported; only the valuation is withheld.
	if bundles[0].Profit != nil {
		t.Fatalf("unpriced token must leave profit unset: %s", bundles[0].Profit)
	}
}
