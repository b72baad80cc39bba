package metadata

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/singleflight"

	"mevscope/internal/model"
)

// Known protocol identifiers for address classification.
const (
	ProtocolUniswapV2 = "uniswap_v2"
	ProtocolUniswapV3 = "uniswap_v3"
	ProtocolAaveV2    = "aave_v2"
	ProtocolERC20     = "erc20"
	ProtocolRouter    = "router"
)

// PoolInfo describes a liquidity pool's constituents.
type PoolInfo struct {
	Protocol model.PoolProtocol `json:"protocol"`
	Token0   common.Address     `json:"token0"`
	Token1   common.Address     `json:"token1"`
	FeePPM   uint32             `json:"fee_ppm"`
}

// TokenInfo describes an ERC20 token.
type TokenInfo struct {
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
}

// Entry is everything known about one address.
type Entry struct {
	Protocol string     `json:"protocol"`
	Pool     *PoolInfo  `json:"pool,omitempty"`
	Token    *TokenInfo `json:"token,omitempty"`
}

// Source resolves entries on cache miss. The second return reports whether
// the address is known at all; unknown addresses are not an error.
type Source interface {
	Fetch(ctx context.Context, address common.Address) (Entry, bool, error)
}

// Cache is the process-scoped address metadata cache shared by reference
// across workers. Entries are populated lazily; concurrent first access for
// the same address performs at most one Source fetch, with other callers
// awaiting the in-flight result. The cache only ever gains entries, so
// cancellation of a caller never requires rollback.
type Cache struct {
	source Source

	mu     sync.RWMutex
	data   map[common.Address]Entry
	misses map[common.Address]struct{}

	flight singleflight.Group
}

// NewCache builds a cache over the given source. A nil source yields a cache
// that only serves preloaded entries.
func NewCache(source Source) *Cache {
	return &Cache{
		source: source,
		data:   make(map[common.Address]Entry),
		misses: make(map[common.Address]struct{}),
	}
}

// Preload installs entries without consulting the source.
func (c *Cache) Preload(entries map[common.Address]Entry) {
	c.mu.Lock()
	for address, entry := range entries {
		c.data[address] = entry
	}
	c.mu.Unlock()
}

// Replace swaps the cached entry set wholesale. Used for out-of-band
// refresh; readers holding the old view are unaffected.
func (c *Cache) Replace(entries map[common.Address]Entry) {
	data := make(map[common.Address]Entry, len(entries))
	for address, entry := range entries {
		data[address] = entry
	}
	c.mu.Lock()
	c.data = data
	c.misses = make(map[common.Address]struct{})
	c.mu.Unlock()
}

// Get returns the entry for an address, fetching it through the source on
// first miss. The boolean reports whether the address is known.
func (c *Cache) Get(ctx context.Context, address common.Address) (Entry, bool, error) {
	c.mu.RLock()
	entry, ok := c.data[address]
	if ok {
		c.mu.RUnlock()
		return entry, true, nil
	}
	_, missed := c.misses[address]
	c.mu.RUnlock()
	if missed || c.source == nil {
		return Entry{}, false, nil
	}

	result, err, _ := c.flight.Do(address.Hex(), func() (interface{}, error) {
		entry, known, err := c.source.Fetch(ctx, address)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if known {
			c.data[address] = entry
		} else {
			c.misses[address] = struct{}{}
		}
		c.mu.Unlock()
		if !known {
			return nil, nil
		}
		return entry, nil
	})
	if err != nil {
		return Entry{}, false, fmt.Errorf("fetch metadata %s: %w", address.Hex(), err)
	}
	if result == nil {
		return Entry{}, false, nil
	}
	return result.(Entry), true, nil
}

// PoolFor returns pool info when the address is a known pool.
func (c *Cache) PoolFor(ctx context.Context, address common.Address) (*PoolInfo, error) {
	entry, ok, err := c.Get(ctx, address)
	if err != nil || !ok || entry.Pool == nil {
		return nil, err
	}
	return entry.Pool, nil
}
