package pricing

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"mevscope/internal/model"
)

var q192 = new(big.Int).Lsh(big.NewInt(1), 192)

// Oracle resolves per-block reference prices from pool state.
type Oracle struct {
	quote common.Address
	// minLiquidity excludes pools whose depth is below this threshold from
	// the graph: shallow pools are trivially manipulable and must not set
	// reference prices.
	minLiquidity *big.Int
	logger       *zap.Logger
}

// NewOracle builds an oracle pricing against the given quote asset.
func NewOracle(quote common.Address, minLiquidity *big.Int, logger *zap.Logger) *Oracle {
	if logger == nil {
		logger = zap.NewNop()
	}
	if minLiquidity == nil {
		minLiquidity = big.NewInt(0)
	}
	return &Oracle{quote: quote, minLiquidity: minLiquidity, logger: logger}
}

type edge struct {
	pool  common.Address
	from  common.Address
	to    common.Address
	rate  *big.Rat // units of `to` received per unit of `from`, net of fee
	depth *big.Int
}

type pathInfo struct {
	hops  int
	depth *big.Int // effective liquidity: min edge depth along the path
	price *big.Rat
}

// Resolve builds the pair graph for one block's pool states and prices every
// asset reachable from the quote asset. Unreachable assets get no entry.
func (o *Oracle) Resolve(block uint64, states map[common.Address]*model.PoolState) *model.PriceMap {
	adjacency := make(map[common.Address][]edge)
	for _, state := range states {
		depth := poolDepth(state)
		if depth == nil || depth.Cmp(o.minLiquidity) < 0 {
			continue
		}
		forward, backward := poolRates(state)
		if forward == nil || backward == nil {
			continue
		}
		adjacency[state.Token0] = append(adjacency[state.Token0], edge{
			pool: state.Address, from: state.Token0, to: state.Token1, rate: forward, depth: depth,
		})
		adjacency[state.Token1] = append(adjacency[state.Token1], edge{
			pool: state.Address, from: state.Token1, to: state.Token0, rate: backward, depth: depth,
		})
	}

	best := map[common.Address]pathInfo{
		o.quote: {hops: 0, depth: nil, price: big.NewRat(1, 1)},
	}

	// Level-by-level relaxation from the quote asset. Among equal-hop paths
	// the one with the greatest effective depth wins, so a short but shallow
	// route never outranks a deep one.
	frontier := []common.Address{o.quote}
	hops := 0
	for len(frontier) > 0 {
		hops++
		next := make(map[common.Address]pathInfo)
		for _, asset := range frontier {
			current := best[asset]
			for _, e := range adjacency[asset] {
				if known, ok := best[e.to]; ok && known.hops < hops {
					continue
				}
				pathDepth := minDepth(current.depth, e.depth)
				// The price of `to` in quote terms: one unit of `to` is
				// worth 1/rate units of `from`.
				price := new(big.Rat).Quo(current.price, e.rate)
				candidate := pathInfo{hops: hops, depth: pathDepth, price: price}
				if existing, ok := next[e.to]; ok && cmpDepth(existing.depth, pathDepth) >= 0 {
					continue
				}
				next[e.to] = candidate
			}
		}

		frontier = frontier[:0]
		for asset, info := range next {
			if existing, ok := best[asset]; ok && existing.hops <= info.hops && cmpDepth(existing.depth, info.depth) >= 0 {
				continue
			}
			best[asset] = info
			frontier = append(frontier, asset)
		}
	}

	prices := model.NewPriceMap(block, o.quote)
	for asset, info := range best {
		if asset == o.quote {
			continue
		}
		prices.Set(asset, info.price)
	}
	return prices
}

// poolDepth is the manipulation-resistance proxy for a pool: the lesser of
// its reserves, or its in-range liquidity for concentrated pools without
// tracked reserves.
func poolDepth(state *model.PoolState) *big.Int {
	if state.Reserve0 != nil && state.Reserve1 != nil {
		if state.Reserve0.Sign() <= 0 || state.Reserve1.Sign() <= 0 {
			return nil
		}
		if state.Reserve0.Cmp(state.Reserve1) < 0 {
			return state.Reserve0
		}
		return state.Reserve1
	}
	if state.Liquidity != nil && state.Liquidity.Sign() > 0 {
		return state.Liquidity
	}
	return nil
}

// poolRates returns the marginal exchange rates (token1 per token0, token0
// per token1), net of fee. Concentrated pools use the current sqrt price;
// constant-product pools use the reserve ratio.
func poolRates(state *model.PoolState) (*big.Rat, *big.Rat) {
	fee := feeFactor(state.FeePPM)

	if state.Protocol == model.PoolConcentrated && state.SqrtPriceX96 != nil && state.SqrtPriceX96.Sign() > 0 {
		priceSquared := new(big.Int).Mul(state.SqrtPriceX96, state.SqrtPriceX96)
		forward := new(big.Rat).SetFrac(priceSquared, q192)
		backward := new(big.Rat).Inv(forward)
		return mulRat(forward, fee), mulRat(backward, fee)
	}

	if state.Reserve0 == nil || state.Reserve1 == nil || state.Reserve0.Sign() <= 0 || state.Reserve1.Sign() <= 0 {
		return nil, nil
	}
	forward := new(big.Rat).SetFrac(state.Reserve1, state.Reserve0)
	backward := new(big.Rat).SetFrac(state.Reserve0, state.Reserve1)
	return mulRat(forward, fee), mulRat(backward, fee)
}

func feeFactor(feePPM uint32) *big.Rat {
	if feePPM == 0 || feePPM >= 1_000_000 {
		return big.NewRat(1, 1)
	}
	return big.NewRat(int64(1_000_000-feePPM), 1_000_000)
}

func mulRat(a, b *big.Rat) *big.Rat {
	return new(big.Rat).Mul(a, b)
}

// minDepth treats nil as unbounded (the quote origin has no edge yet).
func minDepth(a, b *big.Int) *big.Int {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.Cmp(b) < 0 {
		return a
	}
	return b
}

func cmpDepth(a, b *big.Int) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return 1
	}
	if b == nil {
		return -1
	}
	return a.Cmp(b)
}
