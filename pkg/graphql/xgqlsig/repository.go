package xgqlsig

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"

	"github.com/omeyang/xgql/pkg/observability/xlog"
)

// Stats Repository 运行计数快照。
type Stats struct {
	// Computations 实际执行规范化的次数（含失败）。
	Computations uint64
	CacheHits    uint64
	RemoteHits   uint64
	StoreErrors  uint64
	// Shared 搭乘他人 singleflight 结果的调用次数。
	Shared uint64
}

// Repository 进程级签名仓库，进程启动时创建一次并注入到埋点层。
//
// 零值不可用，使用 [New] 创建。所有方法并发安全。
type Repository struct {
	normalizer   Normalizer
	cache        *sigCache
	group        singleflight.Group
	store        Store
	breaker      *gobreaker.CircuitBreaker[QuerySignature]
	storeTimeout time.Duration
	logger       xlog.Logger

	computations atomic.Uint64
	cacheHits    atomic.Uint64
	remoteHits   atomic.Uint64
	storeErrors  atomic.Uint64
	shared       atomic.Uint64

	closeOnce sync.Once
}

// New 创建 Repository。
func New(opts ...Option) (*Repository, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.cacheSize < 0 {
		return nil, ErrInvalidCacheSize
	}
	if o.cacheTTL < 0 {
		return nil, ErrInvalidTTL
	}
	if o.logger == nil {
		o.logger = xlog.Default()
	}

	r := &Repository{
		normalizer:   o.normalizer,
		storeTimeout: o.storeTimeout,
		logger:       o.logger.With(xlog.Component("xgqlsig")),
	}
	if o.cacheSize > 0 {
		r.cache = newCache(o.cacheSize, o.cacheTTL)
		r.store = o.store
	}
	if r.store != nil {
		failures := o.breakerFailures
		r.breaker = gobreaker.NewCircuitBreaker[QuerySignature](gobreaker.Settings{
			Name:        "xgqlsig.store",
			MaxRequests: 1,
			Timeout:     o.breakerOpen,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= failures
			},
			// 未命中是正常结果，不计入失败
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrStoreMiss)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				r.logger.Warn(context.Background(), "signature store breaker state changed",
					slog.String("breaker", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()))
			},
		})
	}
	return r, nil
}

func cacheKey(query, operationName string) string {
	return operationName + "\x00" + query
}

// Resolve 返回 (query, operationName) 的签名。
//
// 缓存启用时每个键最多计算一次：并发调用共享同一次计算，
// 结果在等待者返回之前写入缓存。计算失败不缓存。
// ctx 取消只影响当前调用方的等待，进行中的计算会继续完成并写入缓存。
func (r *Repository) Resolve(ctx context.Context, query, operationName string) (QuerySignature, error) {
	if r == nil {
		return Compute(nil, query, operationName)
	}
	if r.cache == nil {
		return r.compute(query, operationName)
	}

	key := cacheKey(query, operationName)
	if sig, ok := r.cache.Get(key); ok {
		r.cacheHits.Add(1)
		return sig, nil
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (any, error) {
		// 上一轮 flight 可能刚写入缓存
		if sig, ok := r.cache.Peek(key); ok {
			return sig, nil
		}
		return r.load(flightCtx, key, query, operationName)
	})

	select {
	case res := <-ch:
		if res.Shared {
			r.shared.Add(1)
		}
		if res.Err != nil {
			return QuerySignature{}, res.Err
		}
		sig, _ := res.Val.(QuerySignature)
		return sig, nil
	case <-ctx.Done():
		return QuerySignature{}, ctx.Err()
	}
}

func (r *Repository) load(ctx context.Context, key, query, operationName string) (QuerySignature, error) {
	if sig, ok := r.fetchRemote(ctx, key); ok {
		r.cache.Add(key, sig)
		return sig, nil
	}
	sig, err := r.compute(query, operationName)
	if err != nil {
		return QuerySignature{}, err
	}
	r.cache.Add(key, sig)
	r.putRemote(ctx, key, sig)
	return sig, nil
}

func (r *Repository) compute(query, operationName string) (QuerySignature, error) {
	r.computations.Add(1)
	return Compute(r.normalizer, query, operationName)
}

func (r *Repository) fetchRemote(ctx context.Context, key string) (QuerySignature, bool) {
	if r.store == nil {
		return QuerySignature{}, false
	}
	sig, err := r.breaker.Execute(func() (QuerySignature, error) {
		cctx, cancel := context.WithTimeout(ctx, r.storeTimeout)
		defer cancel()
		return r.store.Get(cctx, key)
	})
	switch {
	case err == nil:
		r.remoteHits.Add(1)
		return sig, true
	case errors.Is(err, ErrStoreMiss):
		return QuerySignature{}, false
	default:
		r.storeErrors.Add(1)
		r.logger.Debug(ctx, "signature store get failed, computing directly", xlog.Err(err))
		return QuerySignature{}, false
	}
}

func (r *Repository) putRemote(ctx context.Context, key string, sig QuerySignature) {
	if r.store == nil {
		return
	}
	_, err := r.breaker.Execute(func() (QuerySignature, error) {
		cctx, cancel := context.WithTimeout(ctx, r.storeTimeout)
		defer cancel()
		return sig, r.store.Put(cctx, key, sig)
	})
	if err != nil {
		r.storeErrors.Add(1)
		r.logger.Debug(ctx, "signature store put failed", xlog.Err(err))
	}
}

// Len 返回本地缓存条目数，缓存关闭时为 0。
func (r *Repository) Len() int {
	if r == nil || r.cache == nil {
		return 0
	}
	return r.cache.Len()
}

// Stats 返回计数快照。
func (r *Repository) Stats() Stats {
	if r == nil {
		return Stats{}
	}
	return Stats{
		Computations: r.computations.Load(),
		CacheHits:    r.cacheHits.Load(),
		RemoteHits:   r.remoteHits.Load(),
		StoreErrors:  r.storeErrors.Load(),
		Shared:       r.shared.Load(),
	}
}

// Close 清空本地缓存，幂等。不关闭 Store。
func (r *Repository) Close() {
	if r == nil || r.cache == nil {
		return
	}
	r.closeOnce.Do(func() {
		r.cache.Purge()
	})
}
