package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// CallKind identifies how a call frame was entered.
type CallKind string

const (
	CallKindCall         CallKind = "call"
	CallKindDelegateCall CallKind = "delegatecall"
	CallKindStaticCall   CallKind = "staticcall"
	CallKindCreate       CallKind = "create"
)

// RawCallTrace is one frame of a transaction's call tree as reported by
// execution tracing. TraceAddress is the path from the root frame: the root
// has an empty path, its n-th child has path [n], and so on.
type RawCallTrace struct {
	TraceAddress []int          `json:"trace_address"`
	Kind         CallKind       `json:"kind"`
	From         common.Address `json:"from"`
	To           common.Address `json:"to"`
	Input        []byte         `json:"input"`
	Output       []byte         `json:"output"`
	Value        *big.Int       `json:"value,omitempty"`
	GasUsed      uint64         `json:"gas_used"`
	Reverted     bool           `json:"reverted"`
	Error        string         `json:"error,omitempty"`
}

// TxTrace holds one transaction's trace frames in execution order plus
// transaction-level metadata.
type TxTrace struct {
	Hash              common.Hash    `json:"hash"`
	From              common.Address `json:"from"`
	Index             uint64         `json:"index"`
	GasUsed           uint64         `json:"gas_used"`
	EffectiveGasPrice *big.Int       `json:"effective_gas_price,omitempty"`
	FromMempool       bool           `json:"from_mempool"`
	Frames            []RawCallTrace `json:"frames"`
}

// BlockTrace is the raw per-block input to classification: all transaction
// traces in inclusion order plus block-level metadata.
type BlockTrace struct {
	Number    uint64         `json:"number"`
	Hash      common.Hash    `json:"hash"`
	Timestamp uint64         `json:"timestamp"`
	BaseFee   *big.Int       `json:"base_fee,omitempty"`
	GasUsed   uint64         `json:"gas_used"`
	Builder   common.Address `json:"builder"`
	Txs       []TxTrace      `json:"txs"`
}
