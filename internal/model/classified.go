package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ClassifiedNode pairs a raw call frame position with its classified action.
// Children are indices into the owning tree's node arena, in execution order.
type ClassifiedNode struct {
	TraceIndex   int            `json:"trace_index"`
	TraceAddress []int          `json:"trace_address"`
	Kind         CallKind       `json:"kind"`
	From         common.Address `json:"from"`
	To           common.Address `json:"to"`
	Action       Action         `json:"action"`
	Children     []int          `json:"children,omitempty"`
	Reverted     bool           `json:"reverted,omitempty"`
	Malformed    bool           `json:"malformed,omitempty"`
	Diagnostic   string         `json:"diagnostic,omitempty"`
}

// ClassifiedTree is one transaction's classified call tree. Nodes form an
// arena with the root at index 0; the root always exists even when its action
// is Unknown.
type ClassifiedTree struct {
	TxHash            common.Hash      `json:"tx_hash"`
	Signer            common.Address   `json:"signer"`
	TxIndex           uint64           `json:"tx_index"`
	GasUsed           uint64           `json:"gas_used"`
	EffectiveGasPrice *big.Int         `json:"effective_gas_price,omitempty"`
	FromMempool       bool             `json:"from_mempool"`
	Nodes             []ClassifiedNode `json:"nodes"`
}

// Root returns the root node of the tree.
func (t *ClassifiedTree) Root() *ClassifiedNode {
	if len(t.Nodes) == 0 {
		return nil
	}
	return &t.Nodes[0]
}

// Walk visits every node depth-first in execution order.
func (t *ClassifiedTree) Walk(visit func(node *ClassifiedNode)) {
	if len(t.Nodes) == 0 {
		return
	}
	var rec func(idx int)
	rec = func(idx int) {
		node := &t.Nodes[idx]
		visit(node)
		for _, child := range node.Children {
			rec(child)
		}
	}
	rec(0)
}

// ClassifiedForest is the block-level result of classification: one tree per
// transaction in inclusion order plus block metadata. Read-only once built.
type ClassifiedForest struct {
	BlockNumber uint64           `json:"block_number"`
	BlockHash   common.Hash      `json:"block_hash"`
	Timestamp   uint64           `json:"timestamp"`
	BaseFee     *big.Int         `json:"base_fee,omitempty"`
	GasUsed     uint64           `json:"gas_used"`
	Builder     common.Address   `json:"builder"`
	Trees       []ClassifiedTree `json:"trees"`
}
