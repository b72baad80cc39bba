package inspect

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"mevscope/internal/model"
)

// kindPriority orders bundle kinds from most to least specific. When
// candidates from different inspectors implicate the same transaction, the
// more specific classification wins.
var kindPriority = map[model.BundleKind]int{
	model.BundleJITSandwich: 0,
	model.BundleSandwich:    1,
	model.BundleJIT:         2,
	model.BundleLiquidation: 3,
	model.BundleAtomicArb:   4,
	model.BundleCexDex:      5,
}

// Compose deduplicates candidates across inspectors. Candidates are ranked
// by specificity, then block order; a candidate touching any transaction
// already attributed to a kept bundle is dropped, so no transaction ends up
// in two mutually exclusive bundle kinds.
func Compose(candidates []model.Bundle) []model.Bundle {
	ranked := make([]model.Bundle, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(a, b int) bool {
		pa, pb := kindPriority[ranked[a].Kind], kindPriority[ranked[b].Kind]
		if pa != pb {
			return pa < pb
		}
		return ranked[a].TxSetKey() < ranked[b].TxSetKey()
	})

	attributed := make(map[common.Hash]bool)
	final := make([]model.Bundle, 0, len(ranked))
	for _, bundle := range ranked {
		overlap := false
		for _, hash := range bundle.TxHashes {
			if attributed[hash] {
				overlap = true
				break
			}
		}
		if overlap {
			continue
		}
		for _, hash := range bundle.TxHashes {
			attributed[hash] = true
		}
		final = append(final, bundle)
	}

	// Report in canonical transaction-set order for stable output.
	sort.SliceStable(final, func(a, b int) bool {
		return final[a].TxSetKey() < final[b].TxSetKey()
	})
	return final
}
