package xcardinality

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// Ledger 进程级的基数账本，按 (指标名, 维度) 隔离。
// 必须通过 [New] 创建，所有方法并发安全。
type Ledger struct {
	opts options
	sets sync.Map // setKey -> *valueSet
}

type setKey struct {
	metric    string
	dimension string
}

// New 创建 Ledger。
func New(opts ...Option) (*Ledger, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	return &Ledger{opts: o}, nil
}

// Limit 返回每个维度的容量。
func (l *Ledger) Limit() int { return l.opts.limit }

// Sentinel 返回超限替代取值。
func (l *Ledger) Sentinel() string { return l.opts.sentinel }

// Resolve 返回 value 本身或哨兵值。
// 与哨兵相同的取值直接归入哨兵桶，不占用容量。
func (l *Ledger) Resolve(metric, dimension, value string) string {
	if value == l.opts.sentinel {
		return value
	}
	set := l.set(metric, dimension)
	if set.admit(value) {
		return value
	}
	if set.saturated.CompareAndSwap(false, true) && l.opts.onSaturated != nil {
		l.opts.onSaturated(metric, dimension)
	}
	return l.opts.sentinel
}

// Len 返回维度当前已接受的取值数。
func (l *Ledger) Len(metric, dimension string) int {
	v, ok := l.sets.Load(setKey{metric, dimension})
	if !ok {
		return 0
	}
	return int(v.(*valueSet).count.Load())
}

// Snapshot 返回维度已接受取值的有序快照，仅用于调试和测试。
func (l *Ledger) Snapshot(metric, dimension string) []string {
	v, ok := l.sets.Load(setKey{metric, dimension})
	if !ok {
		return nil
	}
	return v.(*valueSet).values()
}

// Reset 清空所有维度。
func (l *Ledger) Reset() {
	l.sets.Clear()
}

func (l *Ledger) set(metric, dimension string) *valueSet {
	key := setKey{metric, dimension}
	if v, ok := l.sets.Load(key); ok {
		return v.(*valueSet)
	}
	v, _ := l.sets.LoadOrStore(key, newValueSet(l.opts.shardCount, l.opts.limit))
	return v.(*valueSet)
}

// valueSet 一个维度的有界取值集合。
type valueSet struct {
	shards    []shard
	mask      uint64
	limit     int64
	count     atomic.Int64
	saturated atomic.Bool
}

type shard struct {
	mu     sync.RWMutex
	values map[string]struct{}
}

func newValueSet(shardCount uint, limit int) *valueSet {
	shards := make([]shard, shardCount)
	for i := range shards {
		shards[i].values = make(map[string]struct{})
	}
	return &valueSet{
		shards: shards,
		mask:   uint64(shardCount - 1),
		limit:  int64(limit),
	}
}

// admit 报告 value 是否被接受。
//
// 新取值在持有分片写锁期间通过 CAS 预留全局槽位：同一取值的竞争由分片锁串行化，
// 不同取值对最后一个槽位的竞争由 CAS 裁决。
func (s *valueSet) admit(value string) bool {
	sh := &s.shards[xxhash.Sum64String(value)&s.mask]

	sh.mu.RLock()
	_, ok := sh.values[value]
	sh.mu.RUnlock()
	if ok {
		return true
	}
	if s.count.Load() >= s.limit {
		return false
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.values[value]; ok {
		return true
	}
	for {
		n := s.count.Load()
		if n >= s.limit {
			return false
		}
		if s.count.CompareAndSwap(n, n+1) {
			break
		}
	}
	sh.values[value] = struct{}{}
	return true
}

func (s *valueSet) values() []string {
	out := make([]string, 0, s.count.Load())
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for v := range sh.values {
			out = append(out, v)
		}
		sh.mu.RUnlock()
	}
	slices.Sort(out)
	return out
}
