package pricing

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"mevscope/internal/metadata"
	"mevscope/internal/model"
)

// StateBook tracks per-pool liquidity state across blocks. Each block's
// classified actions are layered onto the prior block's state producing a
// fresh state set; prior states are never edited in place.
type StateBook struct {
	metadata *metadata.Cache
	logger   *zap.Logger

	mu     sync.RWMutex
	states map[common.Address]*model.PoolState
}

// NewStateBook builds an empty book.
func NewStateBook(meta *metadata.Cache, logger *zap.Logger) *StateBook {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StateBook{
		metadata: meta,
		logger:   logger,
		states:   make(map[common.Address]*model.PoolState),
	}
}

// Seed installs known pool states, typically from a snapshot.
func (b *StateBook) Seed(states []*model.PoolState) {
	b.mu.Lock()
	for _, state := range states {
		if state != nil {
			b.states[state.Address] = state
		}
	}
	b.mu.Unlock()
}

// Snapshot returns the current state of every tracked pool.
func (b *StateBook) Snapshot() map[common.Address]*model.PoolState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[common.Address]*model.PoolState, len(b.states))
	for address, state := range b.states {
		out[address] = state
	}
	return out
}

// Layer applies one block's classified actions on top of the prior state and
// returns the resulting per-pool states for that block. The book advances to
// the returned states.
func (b *StateBook) Layer(ctx context.Context, forest *model.ClassifiedForest) map[common.Address]*model.PoolState {
	next := b.Snapshot()
	touched := make(map[common.Address]bool)

	for ti := range forest.Trees {
		tree := &forest.Trees[ti]
		tree.Walk(func(node *model.ClassifiedNode) {
			if node.Reverted {
				return
			}
			switch data := node.Action.Data.(type) {
			case model.SwapAction:
				b.applySwap(ctx, next, touched, forest.BlockNumber, data)
			case model.MintAction:
				b.applyMint(ctx, next, touched, forest.BlockNumber, data)
			case model.BurnAction:
				b.applyBurn(next, touched, forest.BlockNumber, data)
			}
		})
	}

	b.mu.Lock()
	b.states = next
	b.mu.Unlock()
	return next
}

func (b *StateBook) applySwap(ctx context.Context, states map[common.Address]*model.PoolState, touched map[common.Address]bool, block uint64, swap model.SwapAction) {
	state := b.stateFor(ctx, states, touched, block, swap.Pool)
	if state == nil || state.Reserve0 == nil || state.Reserve1 == nil {
		return
	}
	if swap.AmountIn == nil || swap.AmountOut == nil {
		return
	}
	if swap.TokenIn == state.Token0 {
		state.Reserve0.Add(state.Reserve0, swap.AmountIn)
		state.Reserve1.Sub(state.Reserve1, swap.AmountOut)
	} else {
		state.Reserve1.Add(state.Reserve1, swap.AmountIn)
		state.Reserve0.Sub(state.Reserve0, swap.AmountOut)
	}
	clampReserves(state)
}

func (b *StateBook) applyMint(ctx context.Context, states map[common.Address]*model.PoolState, touched map[common.Address]bool, block uint64, mint model.MintAction) {
	state := b.stateFor(ctx, states, touched, block, mint.Pool)
	if state == nil {
		return
	}
	if state.Reserve0 == nil {
		state.Reserve0 = big.NewInt(0)
	}
	if state.Reserve1 == nil {
		state.Reserve1 = big.NewInt(0)
	}
	if mint.Amount0 != nil {
		state.Reserve0.Add(state.Reserve0, mint.Amount0)
	}
	if mint.Amount1 != nil {
		state.Reserve1.Add(state.Reserve1, mint.Amount1)
	}
}

func (b *StateBook) applyBurn(states map[common.Address]*model.PoolState, touched map[common.Address]bool, block uint64, burn model.BurnAction) {
	state, ok := states[burn.Pool]
	if !ok || state.Reserve0 == nil || state.Reserve1 == nil {
		return
	}
	if !touched[burn.Pool] {
		state = state.Clone(block)
		states[burn.Pool] = state
		touched[burn.Pool] = true
	}
	if burn.Amount0 != nil {
		state.Reserve0.Sub(state.Reserve0, burn.Amount0)
	}
	if burn.Amount1 != nil {
		state.Reserve1.Sub(state.Reserve1, burn.Amount1)
	}
	clampReserves(state)
}

// stateFor returns the mutable state of a pool for this block, cloning the
// prior block's state on first touch or creating a fresh one from metadata
// for a pool first seen now.
func (b *StateBook) stateFor(ctx context.Context, states map[common.Address]*model.PoolState, touched map[common.Address]bool, block uint64, pool common.Address) *model.PoolState {
	if state, ok := states[pool]; ok {
		if !touched[pool] {
			state = state.Clone(block)
			states[pool] = state
			touched[pool] = true
		}
		return states[pool]
	}

	if b.metadata == nil {
		return nil
	}
	info, err := b.metadata.PoolFor(ctx, pool)
	if err != nil {
		b.logger.Warn("pool metadata lookup failed", zap.String("pool", pool.Hex()), zap.Error(err))
		return nil
	}
	if info == nil {
		return nil
	}

	state := &model.PoolState{
		Address:     pool,
		Protocol:    info.Protocol,
		Token0:      info.Token0,
		Token1:      info.Token1,
		FeePPM:      info.FeePPM,
		BlockNumber: block,
	}
	states[pool] = state
	touched[pool] = true
	return state
}

func clampReserves(state *model.PoolState) {
	if state.Reserve0 != nil && state.Reserve0.Sign() < 0 {
		state.Reserve0.SetInt64(0)
	}
	if state.Reserve1 != nil && state.Reserve1.Sign() < 0 {
		state.Reserve1.SetInt64(0)
	}
}
