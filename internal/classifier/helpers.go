package classifier

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"mevscope/internal/model"
)

func selectorsFor(contractABI abi.ABI, names ...string) ([]Selector, error) {
	selectors := make([]Selector, 0, len(names))
	for _, name := range names {
		method, ok := contractABI.Methods[name]
		if !ok {
			return nil, fmt.Errorf("method not in abi: %s", name)
		}
		var sel Selector
		copy(sel[:], method.ID)
		selectors = append(selectors, sel)
	}
	return selectors, nil
}

func methodBySelector(contractABI abi.ABI, input []byte) (*abi.Method, bool) {
	if len(input) < 4 {
		return nil, false
	}
	method, err := contractABI.MethodById(input[:4])
	if err != nil {
		return nil, false
	}
	return method, true
}

func unpackInputs(method *abi.Method, input []byte) ([]interface{}, error) {
	if len(input) < 4 {
		return nil, fmt.Errorf("input shorter than selector")
	}
	values, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, fmt.Errorf("unpack %s inputs: %w", method.Name, err)
	}
	return values, nil
}

func unpackOutputs(method *abi.Method, output []byte) ([]interface{}, error) {
	if len(output) == 0 {
		return nil, nil
	}
	values, err := method.Outputs.Unpack(output)
	if err != nil {
		return nil, fmt.Errorf("unpack %s outputs: %w", method.Name, err)
	}
	return values, nil
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asAddressSlice(value interface{}) ([]common.Address, error) {
	addresses, ok := value.([]common.Address)
	if !ok {
		return nil, fmt.Errorf("unsupported address slice type %T", value)
	}
	return addresses, nil
}

func asBigIntSlice(value interface{}) ([]*big.Int, error) {
	values, ok := value.([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("unsupported int slice type %T", value)
	}
	out := make([]*big.Int, len(values))
	for i, v := range values {
		out[i] = new(big.Int).Set(v)
	}
	return out, nil
}

// poolTokens looks up the constituent tokens of a pool address, reporting
// false when the pool is not in the metadata cache.
func poolTokens(ctx Context, pool common.Address) (common.Address, common.Address, uint32, bool) {
	if ctx.Metadata == nil {
		return common.Address{}, common.Address{}, 0, false
	}
	info, err := ctx.Metadata.PoolFor(ctx.ctx(), pool)
	if err != nil || info == nil {
		return common.Address{}, common.Address{}, 0, false
	}
	return info.Token0, info.Token1, info.FeePPM, true
}

func sideTokens(token0, token1 common.Address, zeroForOne bool) (common.Address, common.Address) {
	if zeroForOne {
		return token0, token1
	}
	return token1, token0
}

func unknownAction(frame model.RawCallTrace) model.Action {
	return model.UnknownFor(frame)
}
