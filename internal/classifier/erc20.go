package classifier

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"mevscope/internal/metadata"
	"mevscope/internal/model"
)

// ERC20Classifier decodes token transfer calls. The token is the call target;
// no metadata lookup is needed for the transfer shape itself.
type ERC20Classifier struct {
	tokenABI  abi.ABI
	selectors []Selector
}

// NewERC20Classifier builds the classifier.
func NewERC20Classifier() (*ERC20Classifier, error) {
	tokenABI, err := ERC20ABI()
	if err != nil {
		return nil, err
	}
	selectors, err := selectorsFor(tokenABI, "transfer", "transferFrom")
	if err != nil {
		return nil, err
	}
	return &ERC20Classifier{tokenABI: tokenABI, selectors: selectors}, nil
}

func (c *ERC20Classifier) Protocol() string { return metadata.ProtocolERC20 }

func (c *ERC20Classifier) Selectors() []Selector { return c.selectors }

// Classify decodes one transfer or transferFrom frame.
func (c *ERC20Classifier) Classify(_ Context, frame model.RawCallTrace) (model.Action, error) {
	method, ok := methodBySelector(c.tokenABI, frame.Input)
	if !ok {
		return unknownAction(frame), nil
	}

	inputs, err := unpackInputs(method, frame.Input)
	if err != nil {
		return model.Action{}, err
	}

	transfer := model.TransferAction{Token: frame.To}
	switch method.Name {
	case "transfer":
		if len(inputs) != 2 {
			return model.Action{}, fmt.Errorf("unexpected transfer inputs: %d", len(inputs))
		}
		transfer.From = frame.From
		if transfer.To, err = asAddress(inputs[0]); err != nil {
			return model.Action{}, fmt.Errorf("to: %w", err)
		}
		if transfer.Amount, err = asBigInt(inputs[1]); err != nil {
			return model.Action{}, fmt.Errorf("amount: %w", err)
		}
	case "transferFrom":
		if len(inputs) != 3 {
			return model.Action{}, fmt.Errorf("unexpected transferFrom inputs: %d", len(inputs))
		}
		if transfer.From, err = asAddress(inputs[0]); err != nil {
			return model.Action{}, fmt.Errorf("from: %w", err)
		}
		if transfer.To, err = asAddress(inputs[1]); err != nil {
			return model.Action{}, fmt.Errorf("to: %w", err)
		}
		if transfer.Amount, err = asBigInt(inputs[2]); err != nil {
			return model.Action{}, fmt.Errorf("amount: %w", err)
		}
	default:
		return unknownAction(frame), nil
	}

	return model.Action{Kind: model.ActionTransfer, Protocol: c.Protocol(), Data: transfer}, nil
}
