package classifier

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"mevscope/internal/metadata"
	"mevscope/internal/model"
)

// V3PoolClassifier decodes concentrated-liquidity pool calls (Uniswap V3 and
// compatible forks): swap, mint, burn, collect, flash.
type V3PoolClassifier struct {
	poolABI   abi.ABI
	selectors []Selector
}

// NewV3PoolClassifier builds the classifier.
func NewV3PoolClassifier() (*V3PoolClassifier, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, err
	}
	selectors, err := selectorsFor(poolABI, "swap", "mint", "burn", "collect", "flash")
	if err != nil {
		return nil, err
	}
	return &V3PoolClassifier{poolABI: poolABI, selectors: selectors}, nil
}

func (c *V3PoolClassifier) Protocol() string { return metadata.ProtocolUniswapV3 }

func (c *V3PoolClassifier) Selectors() []Selector { return c.selectors }

// Classify decodes one pool call frame.
func (c *V3PoolClassifier) Classify(ctx Context, frame model.RawCallTrace) (model.Action, error) {
	method, ok := methodBySelector(c.poolABI, frame.Input)
	if !ok {
		return unknownAction(frame), nil
	}

	token0, token1, _, known := poolTokens(ctx, frame.To)
	if !known {
		// Recognized shape against an unattributed pool stays Unknown so
		// inspectors never misprice it.
		return unknownAction(frame), nil
	}

	switch method.Name {
	case "swap":
		return c.classifySwap(frame, method, token0, token1)
	case "mint":
		return c.classifyMint(frame, method, token0, token1)
	case "burn":
		return c.classifyBurn(frame, method, token0, token1)
	case "collect":
		return c.classifyCollect(frame, method)
	case "flash":
		return c.classifyFlash(frame, method, token0, token1)
	default:
		return unknownAction(frame), nil
	}
}

func (c *V3PoolClassifier) classifySwap(frame model.RawCallTrace, method *abi.Method, token0, token1 common.Address) (model.Action, error) {
	inputs, err := unpackInputs(method, frame.Input)
	if err != nil {
		return model.Action{}, err
	}
	if len(inputs) != 5 {
		return model.Action{}, fmt.Errorf("unexpected swap inputs: %d", len(inputs))
	}
	recipient, err := asAddress(inputs[0])
	if err != nil {
		return model.Action{}, fmt.Errorf("recipient: %w", err)
	}
	zeroForOne, ok := inputs[1].(bool)
	if !ok {
		return model.Action{}, fmt.Errorf("unsupported zeroForOne type %T", inputs[1])
	}

	tokenIn, tokenOut := sideTokens(token0, token1, zeroForOne)
	swap := model.SwapAction{
		Pool:      frame.To,
		TokenIn:   tokenIn,
		TokenOut:  tokenOut,
		Recipient: recipient,
	}

	// The pool returns the signed token deltas from its own perspective:
	// positive means the pool received that token.
	outputs, err := unpackOutputs(method, frame.Output)
	if err != nil {
		return model.Action{}, err
	}
	if len(outputs) == 2 {
		amount0, err0 := asBigInt(outputs[0])
		amount1, err1 := asBigInt(outputs[1])
		if err0 != nil || err1 != nil {
			return model.Action{}, fmt.Errorf("swap outputs: %v %v", err0, err1)
		}
		in, out := amount0, amount1
		if !zeroForOne {
			in, out = amount1, amount0
		}
		swap.AmountIn = new(big.Int).Abs(in)
		swap.AmountOut = new(big.Int).Abs(out)
	}

	return model.Action{Kind: model.ActionSwap, Protocol: c.Protocol(), Data: swap}, nil
}

func (c *V3PoolClassifier) classifyMint(frame model.RawCallTrace, method *abi.Method, token0, token1 common.Address) (model.Action, error) {
	inputs, err := unpackInputs(method, frame.Input)
	if err != nil {
		return model.Action{}, err
	}
	if len(inputs) != 5 {
		return model.Action{}, fmt.Errorf("unexpected mint inputs: %d", len(inputs))
	}
	owner, err := asAddress(inputs[0])
	if err != nil {
		return model.Action{}, fmt.Errorf("recipient: %w", err)
	}

	mint := model.MintAction{
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
		if mint.Amount0, err = asBigInt(outputs[0]); err != nil {
			return model.Action{}, fmt.Errorf("amount0: %w", err)
		}
		if mint.Amount1, err = asBigInt(outputs[1]); err != nil {
			return model.Action{}, fmt.Errorf("amount1: %w", err)
		}
	}

	return model.Action{Kind: model.ActionMint, Protocol: c.Protocol(), Data: mint}, nil
}

func (c *V3PoolClassifier) classifyBurn(frame model.RawCallTrace, method *abi.Method, token0, token1 common.Address) (model.Action, error) {
	burn := model.BurnAction{
		Pool:   frame.To,
		Owner:  frame.From,
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

func (c *V3PoolClassifier) classifyCollect(frame model.RawCallTrace, method *abi.Method) (model.Action, error) {
	inputs, err := unpackInputs(method, frame.Input)
	if err != nil {
		return model.Action{}, err
	}
	if len(inputs) != 5 {
		return model.Action{}, fmt.Errorf("unexpected collect inputs: %d", len(inputs))
	}
	recipient, err := asAddress(inputs[0])
	if err != nil {
		return model.Action{}, fmt.Errorf("recipient: %w", err)
	}

	collect := model.CollectAction{
		Pool:      frame.To,
		Owner:     frame.From,
		Recipient: recipient,
	}

	outputs, err := unpackOutputs(method, frame.Output)
	if err != nil {
		return model.Action{}, err
	}
	if len(outputs) == 2 {
		if collect.Amount0, err = asBigInt(outputs[0]); err != nil {
			return model.Action{}, fmt.Errorf("amount0: %w", err)
		}
		if collect.Amount1, err = asBigInt(outputs[1]); err != nil {
			return model.Action{}, fmt.Errorf("amount1: %w", err)
		}
	}

	return model.Action{Kind: model.ActionCollect, Protocol: c.Protocol(), Data: collect}, nil
}

func (c *V3PoolClassifier) classifyFlash(frame model.RawCallTrace, method *abi.Method, token0, token1 common.Address) (model.Action, error) {
	inputs, err := unpackInputs(method, frame.Input)
	if err != nil {
		return model.Action{}, err
	}
	if len(inputs) != 4 {
		return model.Action{}, fmt.Errorf("unexpected flash inputs: %d", len(inputs))
	}
	receiver, err := asAddress(inputs[0])
	if err != nil {
		return model.Action{}, fmt.Errorf("recipient: %w", err)
	}
	amount0, err := asBigInt(inputs[1])
	if err != nil {
		return model.Action{}, fmt.Errorf("amount0: %w", err)
	}
	amount1, err := asBigInt(inputs[2])
	if err != nil {
		return model.Action{}, fmt.Errorf("amount1: %w", err)
	}

	flash := model.FlashLoanAction{
		Pool:     frame.To,
		Receiver: receiver,
		Assets:   []common.Address{token0, token1},
		Amounts:  []*big.Int{amount0, amount1},
	}
	return model.Action{Kind: model.ActionFlashLoan, Protocol: c.Protocol(), Data: flash}, nil
}
