package classifier

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"mevscope/internal/metadata"
	"mevscope/internal/model"
)

// LendingClassifier decodes lending pool liquidation and flash loan calls
// (Aave V2 and compatible forks).
type LendingClassifier struct {
	poolABI   abi.ABI
	selectors []Selector
}

// NewLendingClassifier builds the classifier.
func NewLendingClassifier() (*LendingClassifier, error) {
	poolABI, err := LendingPoolABI()
	if err != nil {
		return nil, err
	}
	selectors, err := selectorsFor(poolABI, "liquidationCall", "flashLoan")
	if err != nil {
		return nil, err
	}
	return &LendingClassifier{poolABI: poolABI, selectors: selectors}, nil
}

func (c *LendingClassifier) Protocol() string { return metadata.ProtocolAaveV2 }

func (c *LendingClassifier) Selectors() []Selector { return c.selectors }

// Classify decodes one lending pool frame.
func (c *LendingClassifier) Classify(_ Context, frame model.RawCallTrace) (model.Action, error) {
	method, ok := methodBySelector(c.poolABI, frame.Input)
	if !ok {
		return unknownAction(frame), nil
	}

	inputs, err := unpackInputs(method, frame.Input)
	if err != nil {
		return model.Action{}, err
	}

	switch method.Name {
	case "liquidationCall":
		if len(inputs) != 5 {
			return model.Action{}, fmt.Errorf("unexpected liquidationCall inputs: %d", len(inputs))
		}
		liq := model.LiquidationAction{Pool: frame.To, Liquidator: frame.From}
		if liq.CollateralToken, err = asAddress(inputs[0]); err != nil {
			return model.Action{}, fmt.Errorf("collateralAsset: %w", err)
		}
		if liq.DebtToken, err = asAddress(inputs[1]); err != nil {
			return model.Action{}, fmt.Errorf("debtAsset: %w", err)
		}
		if liq.Borrower, err = asAddress(inputs[2]); err != nil {
			return model.Action{}, fmt.Errorf("user: %w", err)
		}
		if liq.DebtRepaid, err = asBigInt(inputs[3]); err != nil {
			return model.Action{}, fmt.Errorf("debtToCover: %w", err)
		}
		// Seized collateral is not in the calldata; the liquidation
		// inspector recovers it from child transfers to the liquidator.
		return model.Action{Kind: model.ActionLiquidation, Protocol: c.Protocol(), Data: liq}, nil

	case "flashLoan":
		if len(inputs) != 7 {
			return model.Action{}, fmt.Errorf("unexpected flashLoan inputs: %d", len(inputs))
		}
		loan := model.FlashLoanAction{Pool: frame.To}
		if loan.Receiver, err = asAddress(inputs[0]); err != nil {
			return model.Action{}, fmt.Errorf("receiver: %w", err)
		}
		if loan.Assets, err = asAddressSlice(inputs[1]); err != nil {
			return model.Action{}, fmt.Errorf("assets: %w", err)
		}
		if loan.Amounts, err = asBigIntSlice(inputs[2]); err != nil {
			return model.Action{}, fmt.Errorf("amounts: %w", err)
		}
		return model.Action{Kind: model.ActionFlashLoan, Protocol: c.Protocol(), Data: loan}, nil

	default:
		return unknownAction(frame), nil
	}
}
