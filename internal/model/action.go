package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ActionKind tags the semantic meaning of a classified call.
type ActionKind string

const (
	ActionSwap        ActionKind = "swap"
	ActionTransfer    ActionKind = "transfer"
	ActionMint        ActionKind = "mint"
	ActionBurn        ActionKind = "burn"
	ActionCollect     ActionKind = "collect"
	ActionFlashLoan   ActionKind = "flash_loan"
	ActionLiquidation ActionKind = "liquidation"
	ActionUnknown     ActionKind = "unknown"
)

// Action is the normalized, protocol-agnostic result of classifying one call.
// Data holds the kind-specific payload and is never mutated after creation.
type Action struct {
	Kind     ActionKind  `json:"kind"`
	Protocol string      `json:"protocol,omitempty"`
	Data     interface{} `json:"data,omitempty"`
}

// SwapAction is a trade against one pool.
type SwapAction struct {
	Pool      common.Address `json:"pool"`
	TokenIn   common.Address `json:"token_in"`
	TokenOut  common.Address `json:"token_out"`
	AmountIn  *big.Int       `json:"amount_in"`
	AmountOut *big.Int       `json:"amount_out"`
	Recipient common.Address `json:"recipient"`
}

// TransferAction is a token transfer.
type TransferAction struct {
	Token  common.Address `json:"token"`
	From   common.Address `json:"from"`
	To     common.Address `json:"to"`
	Amount *big.Int       `json:"amount"`
}

// MintAction adds liquidity to a pool.
type MintAction struct {
	Pool    common.Address `json:"pool"`
	Owner   common.Address `json:"owner"`
	Token0  common.Address `json:"token0"`
	Token1  common.Address `json:"token1"`
	Amount0 *big.Int       `json:"amount0"`
	Amount1 *big.Int       `json:"amount1"`
}

// BurnAction removes liquidity from a pool.
type BurnAction struct {
	Pool    common.Address `json:"pool"`
	Owner   common.Address `json:"owner"`
	Token0  common.Address `json:"token0"`
	Token1  common.Address `json:"token1"`
	Amount0 *big.Int       `json:"amount0"`
	Amount1 *big.Int       `json:"amount1"`
}

// CollectAction withdraws accrued fees from a pool position.
type CollectAction struct {
	Pool      common.Address `json:"pool"`
	Owner     common.Address `json:"owner"`
	Recipient common.Address `json:"recipient"`
	Amount0   *big.Int       `json:"amount0"`
	Amount1   *big.Int       `json:"amount1"`
}

// FlashLoanAction is an uncollateralized loan repaid within the same call.
type FlashLoanAction struct {
	Pool     common.Address   `json:"pool"`
	Receiver common.Address   `json:"receiver"`
	Assets   []common.Address `json:"assets"`
	Amounts  []*big.Int       `json:"amounts"`
}

// LiquidationAction seizes collateral from an under-collateralized position.
type LiquidationAction struct {
	Pool             common.Address `json:"pool"`
	Liquidator       common.Address `json:"liquidator"`
	Borrower         common.Address `json:"borrower"`
	CollateralToken  common.Address `json:"collateral_token"`
	DebtToken        common.Address `json:"debt_token"`
	CollateralSeized *big.Int       `json:"collateral_seized"`
	DebtRepaid       *big.Int       `json:"debt_repaid"`
}

// UnknownAction keeps the raw bytes of an unclassified call so downstream
// consumers can still reason about its presence.
type UnknownAction struct {
	Selector []byte `json:"selector,omitempty"`
	Input    []byte `json:"input,omitempty"`
}

// UnknownFor builds the Unknown action for a raw frame.
func UnknownFor(frame RawCallTrace) Action {
	data := UnknownAction{Input: frame.Input}
	if len(frame.Input) >= 4 {
		data.Selector = frame.Input[:4]
	}
	return Action{Kind: ActionUnknown, Data: data}
}
