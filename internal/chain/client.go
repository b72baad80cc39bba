package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"mevscope/internal/model"
)

// Client wraps go-ethereum RPC and provides block trace acquisition.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	mu      sync.RWMutex
	tsCache map[uint64]uint64
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		tsCache:   make(map[uint64]uint64),
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// GetChainID returns the chain ID.
func (c *Client) GetChainID(ctx context.Context) (*big.Int, error) {
	return c.ethClient.ChainID(ctx)
}

// LatestBlockNumber returns the latest block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.ethClient.BlockNumber(ctx)
}

// HeaderByNumber returns the block header by number.
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return c.ethClient.HeaderByNumber(ctx, number)
}

// BlockTimestamp returns the block timestamp, using an in-memory cache.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	c.mu.RLock()
	ts, ok := c.tsCache[number]
	c.mu.RUnlock()
	if ok {
		return ts, nil
	}

	header, err := c.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, err
	}

	ts = header.Time
	c.mu.Lock()
	c.tsCache[number] = ts
	c.mu.Unlock()

	return ts, nil
}

// callFrame is the call tracer's nested frame format.
type callFrame struct {
	Type    string         `json:"type"`
	From    common.Address `json:"from"`
	To      common.Address `json:"to"`
	Value   *hexutil.Big   `json:"value,omitempty"`
	GasUsed hexutil.Uint64 `json:"gasUsed"`
	Input   hexutil.Bytes  `json:"input"`
	Output  hexutil.Bytes  `json:"output,omitempty"`
	Error   string         `json:"error,omitempty"`
	Calls   []callFrame    `json:"calls,omitempty"`
}

// txTraceResult is one entry of debug_traceBlockByNumber's response.
type txTraceResult struct {
	TxHash common.Hash `json:"txHash"`
	Result *callFrame  `json:"result"`
	Error  string      `json:"error,omitempty"`
}

// TraceBlock fetches a block's call traces plus transaction metadata and
// flattens them into the raw trace form consumed by classification.
func (c *Client) TraceBlock(ctx context.Context, number uint64) (model.BlockTrace, error) {
	header, err := c.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return model.BlockTrace{}, fmt.Errorf("header %d: %w", number, err)
	}

	var results []txTraceResult
	err = c.rpcClient.CallContext(ctx, &results, "debug_traceBlockByNumber",
		hexutil.EncodeUint64(number),
		map[string]interface{}{"tracer": "callTracer"},
	)
	if err != nil {
		return model.BlockTrace{}, fmt.Errorf("trace block %d: %w", number, err)
	}

	receipts, err := c.ethClient.BlockReceipts(ctx, rpc.BlockNumberOrHashWithNumber(rpc.BlockNumber(number)))
	if err != nil {
		return model.BlockTrace{}, fmt.Errorf("receipts %d: %w", number, err)
	}

	block := model.BlockTrace{
		Number:    number,
		Hash:      header.Hash(),
		Timestamp: header.Time,
		BaseFee:   header.BaseFee,
		GasUsed:   header.GasUsed,
		Builder:   header.Coinbase,
		Txs:       make([]model.TxTrace, 0, len(results)),
	}

	for i, result := range results {
		tx := model.TxTrace{
			Hash:  result.TxHash,
			Index: uint64(i),
		}
		if result.Result != nil {
			tx.From = result.Result.From
			tx.GasUsed = uint64(result.Result.GasUsed)
			tx.Frames = flattenFrames(result.Result, nil, nil)
		}
		block.Txs = append(block.Txs, tx)
	}
	applyReceipts(block.Txs, receipts)

	return block, nil
}

// applyReceipts fills per-transaction fee data from the block's receipts,
// matched by hash. Transactions without a receipt keep a nil price.
func applyReceipts(txs []model.TxTrace, receipts []*types.Receipt) {
	prices := make(map[common.Hash]*big.Int, len(receipts))
	for _, receipt := range receipts {
		if receipt != nil && receipt.EffectiveGasPrice != nil {
			prices[receipt.TxHash] = receipt.EffectiveGasPrice
		}
	}
	for i := range txs {
		if price, ok := prices[txs[i].Hash]; ok {
			txs[i].EffectiveGasPrice = new(big.Int).Set(price)
		}
	}
}

// flattenFrames converts the tracer's nested frames into a flat list with
// trace address paths, in execution order.
func flattenFrames(frame *callFrame, path []int, out []model.RawCallTrace) []model.RawCallTrace {
	raw := model.RawCallTrace{
		TraceAddress: append([]int(nil), path...),
		Kind:         callKind(frame.Type),
		From:         frame.From,
		To:           frame.To,
		Input:        frame.Input,
		Output:       frame.Output,
		GasUsed:      uint64(frame.GasUsed),
		Reverted:     frame.Error != "",
		Error:        frame.Error,
	}
	if frame.Value != nil {
		raw.Value = frame.Value.ToInt()
	}
	out = append(out, raw)

	for i := range frame.Calls {
		out = flattenFrames(&frame.Calls[i], append(path, i), out)
	}
	return out
}

func callKind(traceType string) model.CallKind {
	switch strings.ToLower(traceType) {
	case "delegatecall":
		return model.CallKindDelegateCall
	case "staticcall":
		return model.CallKindStaticCall
	case "create", "create2":
		return model.CallKindCreate
	default:
		return model.CallKindCall
	}
}
