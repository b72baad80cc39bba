package inspect

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"mevscope/internal/model"
)

// poolEvent is one pool-touching action in block order: transaction inclusion
// order first, execution order within the transaction second.
type poolEvent struct {
	TxIndex  uint64
	TxHash   common.Hash
	Signer   common.Address
	Kind     model.ActionKind
	Swap     *model.SwapAction
	Mint     *model.MintAction
	Burn     *model.BurnAction
	Reverted bool
}

// poolEvents gathers swap/mint/burn events per pool for one block, skipping
// reverted subtrees.
func poolEvents(forest *model.ClassifiedForest) map[common.Address][]poolEvent {
	events := make(map[common.Address][]poolEvent)
	for ti := range forest.Trees {
		tree := &forest.Trees[ti]
		tree.Walk(func(node *model.ClassifiedNode) {
			if node.Reverted {
				return
			}
			base := poolEvent{
				TxIndex: tree.TxIndex,
				TxHash:  tree.TxHash,
				Signer:  tree.Signer,
				Kind:    node.Action.Kind,
			}
			switch data := node.Action.Data.(type) {
			case model.SwapAction:
				event := base
				event.Swap = &data
				events[data.Pool] = append(events[data.Pool], event)
			case model.MintAction:
				event := base
				event.Mint = &data
				events[data.Pool] = append(events[data.Pool], event)
			case model.BurnAction:
				event := base
				event.Burn = &data
				events[data.Pool] = append(events[data.Pool], event)
			}
		})
	}
	return events
}

// txSwaps returns one transaction's swaps in execution order, skipping
// reverted subtrees.
func txSwaps(tree *model.ClassifiedTree) []model.SwapAction {
	var swaps []model.SwapAction
	tree.Walk(func(node *model.ClassifiedNode) {
		if node.Reverted {
			return
		}
		if swap, ok := node.Action.Data.(model.SwapAction); ok {
			swaps = append(swaps, swap)
		}
	})
	return swaps
}

// transfersTo sums transfers of one token to one recipient within a subtree.
func transfersTo(tree *model.ClassifiedTree, nodePos int, token, recipient common.Address) *big.Int {
	total := big.NewInt(0)
	var rec func(pos int)
	rec = func(pos int) {
		node := &tree.Nodes[pos]
		if !node.Reverted {
			if transfer, ok := node.Action.Data.(model.TransferAction); ok {
				if transfer.Token == token && transfer.To == recipient && transfer.Amount != nil {
					total.Add(total, transfer.Amount)
				}
			}
		}
		for _, child := range node.Children {
			rec(child)
		}
	}
	rec(nodePos)
	return total
}

// sameDirection reports whether two swaps against the same pool trade the
// same side.
func sameDirection(a, b *model.SwapAction) bool {
	return a.TokenIn == b.TokenIn && a.TokenOut == b.TokenOut
}

// opposite reports whether b reverses a.
func opposite(a, b *model.SwapAction) bool {
	return a.TokenIn == b.TokenOut && a.TokenOut == b.TokenIn
}
