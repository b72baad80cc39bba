package inspect

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"mevscope/internal/model"
)

var (
	quoteAsset = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	tokenX     = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	tokenY     = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	poolOne    = common.HexToAddress("0x0000000000000000000000000000000000000011")
	poolTwo    = common.HexToAddress("0x0000000000000000000000000000000000000022")
	attacker   = common.HexToAddress("0x0000000000000000000000000000000000000001")
	victim     = common.HexToAddress("0x0000000000000000000000000000000000000002")
)

func txHash(b byte) common.Hash {
	return common.Hash{31: b}
}

// treeWith builds a one-level tree: an unknown root whose children carry the
// given actions in order.
func treeWith(txIndex uint64, hash byte, signer common.Address, actions ...model.Action) model.ClassifiedTree {
	nodes := make([]model.ClassifiedNode, 1, len(actions)+1)
	nodes[0] = model.ClassifiedNode{Action: model.Action{Kind: model.ActionUnknown}}
	for i, action := range actions {
		nodes = append(nodes, model.ClassifiedNode{TraceIndex: i + 1, TraceAddress: []int{i}, Action: action})
		nodes[0].Children = append(nodes[0].Children, i+1)
	}
	return model.ClassifiedTree{
		TxHash:  txHash(hash),
		Signer:  signer,
		TxIndex: txIndex,
		Nodes:   nodes,
	}
}

func forestOf(block uint64, trees ...model.ClassifiedTree) *model.ClassifiedForest {
	return &model.ClassifiedForest{
		BlockNumber: block,
		Timestamp:   1_700_000_000,
		Trees:       trees,
	}
}

func swapOn(pool, in, out common.Address, amountIn, amountOut int64) model.Action {
	swap := model.SwapAction{Pool: pool, TokenIn: in, TokenOut: out}
	if amountIn >= 0 {
		swap.AmountIn = big.NewInt(amountIn)
	}
	if amountOut >= 0 {
		swap.AmountOut = big.NewInt(amountOut)
	}
	return model.Action{Kind: model.ActionSwap, Data: swap}
}

func mintOn(pool common.Address, owner common.Address, amount0, amount1 int64) model.Action {
	return model.Action{Kind: model.ActionMint, Data: model.MintAction{
		Pool:    pool,
		Owner:   owner,
		Token0:  quoteAsset,
		Token1:  tokenX,
		Amount0: big.NewInt(amount0),
		Amount1: big.NewInt(amount1),
	}}
}

func burnOn(pool common.Address, owner common.Address, amount0, amount1 int64) model.Action {
	return model.Action{Kind: model.ActionBurn, Data: model.BurnAction{
		Pool:    pool,
		Owner:   owner,
		Token0:  quoteAsset,
		Token1:  tokenX,
		Amount0: big.NewInt(amount0),
		Amount1: big.NewInt(amount1),
	}}
}

// unitPrices prices the quote asset plus any extra assets at 1.
func unitPrices(block uint64, extra ...common.Address) *model.PriceMap {
	prices := model.NewPriceMap(block, quoteAsset)
	for _, asset := range extra {
		prices.Set(asset, big.NewRat(1, 1))
	}
	return prices
}
