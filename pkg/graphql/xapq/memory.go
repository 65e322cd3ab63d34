package xapq

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
)

// DefaultMaxCost MemoryStore 默认总成本（查询文本字节数）。
const DefaultMaxCost = 64 << 20

// MemoryStore 基于 ristretto 的进程内 Store，成本为查询文本长度。
//
// ristretto 的写入是异步的，Put 返回前调用 Wait，保证随后的 Get 可见。
// 准入策略可能拒绝写入，此时后续 APQ 请求按未命中处理，客户端会重发全文。
type MemoryStore struct {
	cache *ristretto.Cache[string, string]
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore 创建 MemoryStore，maxCost <= 0 使用 DefaultMaxCost。
func NewMemoryStore(maxCost int64) (*MemoryStore, error) {
	if maxCost <= 0 {
		maxCost = DefaultMaxCost
	}
	// NumCounters 约为预期条目数的 10 倍，按平均 1KB 查询估算
	counters := max(maxCost/1024*10, 1000)
	cache, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: counters,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &MemoryStore{cache: cache}, nil
}

// Get 实现 Store。
func (s *MemoryStore) Get(_ context.Context, hash string) (string, bool, error) {
	q, ok := s.cache.Get(hash)
	return q, ok, nil
}

// Put 实现 Store。
func (s *MemoryStore) Put(_ context.Context, hash, query string) error {
	s.cache.Set(hash, query, int64(len(query)))
	s.cache.Wait()
	return nil
}

// Close 释放 ristretto 后台 goroutine。
func (s *MemoryStore) Close() {
	s.cache.Close()
}
