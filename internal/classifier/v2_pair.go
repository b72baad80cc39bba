package classifier

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"mevscope/internal/metadata"
	"mevscope/internal/model"
)

// V2PairClassifier decodes constant-product pair calls (Uniswap V2 and
// compatible forks): swap, mint, burn. The pair's calldata does not carry the
// input amount of a swap; inspectors recover it from sibling transfers.
type V2PairClassifier struct {
	pairABI   abi.ABI
	selectors []Selector
}

// NewV2PairClassifier builds the classifier.
func NewV2PairClassifier() (*V2PairClassifier, error) {
	pairABI, err := V2PairABI()
	if err != nil {
		return nil, err
	}
	selectors, err := selectorsFor(pairABI, "swap", "mint", "burn")
	if err != nil {
		return nil, err
	}
	return &V2PairClassifier{pairABI: pairABI, selectors: selectors}, nil
}

func (c *V2PairClassifier) Protocol() string { return metadata.ProtocolUniswapV2 }

func (c *V2PairClassifier) Selectors() []Selector { return c.selectors }

// Classify decodes one pair call frame.
func (c *V2PairClassifier) Classify(ctx Context, frame model.RawCallTrace) (model.Action, error) {
	method, ok := methodBySelector(c.pairABI, frame.Input)
	if !ok {
		return unknownAction(frame), nil
	}

	token0, token1, _, known := poolTokens(ctx, frame.To)
	if !known {
		return unknownAction(frame), nil
	}

	switch method.Name {
	case "swap":
		return c.classifySwap(frame, method, token0, token1)
	case "mint":
		return c.classifyMint(frame, method, token0, token1)
	case "burn":
		return c.classifyBurn(frame, method, token0, token1)
	default:
		return unknownAction(frame), nil
	}
}

func (c *V2PairClassifier) classifySwap(frame model.RawCallTrace, method *abi.Method, token0, token1 common.Address) (model.Action, error) {
	inputs, err := unpackInputs(method, frame.Input)
	if err != nil {
		return model.Action{}, err
	}
	if len(inputs) != 4 {
		return model.Action{}, fmt.Errorf("unexpected swap inputs: %d", len(inputs))
	}
	amount0Out, err := asBigInt(inputs[0])
	if err != nil {
		return model.Action{}, fmt.Errorf("amount0Out: %w", err)
	}
	amount1Out, err := asBigInt(inputs[1])
	if err != nil {
		return model.Action{}, fmt.Errorf("amount1Out: %w", err)
	}
	recipient, err := asAddress(inputs[2])
	if err != nil {
		return model.Action{}, fmt.Errorf("to: %w", err)
	}

	// The side paying out more determines direction; the input amount is not
	// in the calldata and stays nil.
	swap := model.SwapAction{Pool: frame.To, Recipient: recipient}
	if amount1Out.Cmp(amount0Out) >= 0 {
		swap.TokenIn, swap.TokenOut = token0, token1
		swap.AmountOut = amount1Out
	} else {
		swap.TokenIn, swap.TokenOut = token1, token0
		swap.AmountOut = amount0Out
	}

	return model.Action{Kind: model.ActionSwap, Protocol: c.Protocol(), Data: swap}, nil
}

func (c *V2PairClassifier) classifyMint(frame model.RawCallTrace, method *abi.Method, token0, token1 common.Address) (model.Action, error) {
	inputs, err := unpackInputs(method, frame.Input)
	if err != nil {
		return model.Action{}, err
	}
	if len(inputs) != 1 {
		return model.Action{}, fmt.Errorf("unexpected mint inputs: %d", len(inputs))
	}
	owner, err := asAddress(inputs[0])
	if err != nil {
		return model.Action{}, fmt.Errorf("to: %w", err)
	}

	mint := model.MintAction{
		Pool:   frame.To,
		Owner:  owner,
		Token0: token0,
		Token1: token1,
	}
	return model.Action{Kind: model.ActionMint, Protocol: c.Protocol(), Data: mint}, nil
}

func (c *V2PairClassifier) classifyBurn(frame model.RawCallTrace, method *abi.Method, token0, token1 common.Address) (model.Action, error) {
	inputs, err := unpackInputs(method, frame.Input)
	if err != nil {
		return model.Action{}, err
	}
	if len(inputs) != 1 {
		return model.Action{}, fmt.Errorf("unexpected burn inputs: %d", len(inputs))
	}
	owner, err := asAddress(inputs[0])
	if err != nil {
		return model.Action{}, fmt.Errorf("to: %w", err)
	}

	burn := model.BurnAction{
		Pool:   frame.To,
		Owner:  owner,
		Token0: token0,
		Token1: token1,
	}

	outputs, err := unpackOutputs(method, frame.Output)
	if err != nil {
		return model.Action{}, err
	}
	if len(outputs) == 2 {
		if burn.Amount0, err = asBigInt(outputs[0]); err != nil {
			return model.Action{}, fmt.Errorf("amount0: %w", err)
		}
		if burn.Amount1, err = asBigInt(outputs[1]); err != nil {
			return model.Action{}, fmt.Errorf("amount1: %w", err)
		}
	}

	return model.Action{Kind: model.ActionBurn, Protocol: c.Protocol(), Data: burn}, nil
}
