package metadata

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type countingSource struct {
	entries map[common.Address]Entry
	fetches int64
	delay   time.Duration
}

func (s *countingSource) Fetch(_ context.Context, address common.Address) (Entry, bool, error) {
	atomic.AddInt64(&s.fetches, 1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	entry, ok := s.entries[address]
	return entry, ok, nil
}

func TestCacheGetCachesHit(t *testing.T) {
	address := common.HexToAddress("0x1111111111111111111111111111111111111111")
	source := &countingSource{entries: map[common.Address]Entry{
		address: {Protocol: ProtocolERC20},
	}}
	cache := NewCache(source)

	for i := 0; i < 3; i++ {
		entry, ok, err := cache.Get(context.Background(), address)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if !ok || entry.Protocol != ProtocolERC20 {
			t.Fatalf("entry mismatch: %+v ok=%v", entry, ok)
		}
	}

	if n := atomic.LoadInt64(&source.fetches); n != 1 {
		t.Fatalf("fetch count mismatch: %d", n)
	}
}

func TestCacheCachesMiss(t *testing.T) {
	address := common.HexToAddress("0x2222222222222222222222222222222222222222")
	source := &countingSource{}
	cache := NewCache(source)

	for i := 0; i < 3; i++ {
		if _, ok, err := cache.Get(context.Background(), address); err != nil || ok {
			t.Fatalf("unexpected result: ok=%v err=%v", ok, err)
		}
	}

	// Unknown addresses are remembered too; the source is asked once.
	if n := atomic.LoadInt64(&source.fetches); n != 1 {
		t.Fatalf("fetch count mismatch: %d", n)
	}
}

func TestCacheConcurrentSingleFetch(t *testing.T) {
	address := common.HexToAddress("0x3333333333333333333333333333333333333333")
	source := &countingSource{
		entries: map[common.Address]Entry{address: {Protocol: ProtocolUniswapV3}},
		delay:   10 * time.Millisecond,
	}
	cache := NewCache(source)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, err := cache.Get(context.Background(), address); err != nil || !ok {
				t.Errorf("get: ok=%v err=%v", ok, err)
			}
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt64(&source.fetches); n != 1 {
		t.Fatalf("concurrent first access must fetch once, got %d", n)
	}
}

func TestCacheReplace(t *testing.T) {
	address := common.HexToAddress("0x4444444444444444444444444444444444444444")
	cache := NewCache(nil)
	cache.Preload(map[common.Address]Entry{address: {Protocol: ProtocolERC20}})

	other := common.HexToAddress("0x5555555555555555555555555555555555555555")
	cache.Replace(map[common.Address]Entry{other: {Protocol: ProtocolRouter}})

	if _, ok, _ := cache.Get(context.Background(), address); ok {
		t.Fatalf("replaced entry must be gone")
	}
	entry, ok, _ := cache.Get(context.Background(), other)
	if !ok || entry.Protocol != ProtocolRouter {
		t.Fatalf("replacement entry missing: %+v ok=%v", entry, ok)
	}
}

func TestCachePoolFor(t *testing.T) {
	pool := common.HexToAddress("0x6666666666666666666666666666666666666666")
	token := common.HexToAddress("0x7777777777777777777777777777777777777777")
	cache := NewCache(nil)
	cache.Preload(map[common.Address]Entry{
		pool:  {Protocol: ProtocolUniswapV2, Pool: &PoolInfo{FeePPM: 3000}},
		token: {Protocol: ProtocolERC20, Token: &TokenInfo{Decimals: 18}},
	})

	info, err := cache.PoolFor(context.Background(), pool)
	if err != nil || info == nil || info.FeePPM != 3000 {
		t.Fatalf("pool info mismatch: %+v err=%v", info, err)
	}

	// A known non-pool address yields no pool info and no error.
	info, err = cache.PoolFor(context.Background(), token)
	if err != nil || info != nil {
		t.Fatalf("non-pool must yield nil: %+v err=%v", info, err)
	}
}
