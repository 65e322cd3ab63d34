package xapq

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/omeyang/xgql/pkg/graphql/xgqlsig"
	"github.com/omeyang/xgql/pkg/observability/xlog"
)

// Store 持久化查询存储，键为 SHA-256 十六进制哈希。
type Store interface {
	// Get 返回哈希对应的查询文本；ok 为 false 表示未命中。
	Get(ctx context.Context, hash string) (query string, ok bool, err error)
	Put(ctx context.Context, hash, query string) error
}

// Classifier 按状态表对请求分类。并发安全。
type Classifier struct {
	store  Store
	verify bool
	logger xlog.Logger

	readErrors  atomic.Uint64
	writeErrors atomic.Uint64
}

// Option 配置 Classifier。
type Option func(*Classifier)

// WithVerifyHash 是否校验 FULL_APQ 请求的哈希与文本一致，默认开启。
func WithVerifyHash(verify bool) Option {
	return func(c *Classifier) {
		c.verify = verify
	}
}

// WithLogger 设置日志，nil 被忽略。
func WithLogger(l xlog.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClassifier 创建 Classifier。
func NewClassifier(store Store, opts ...Option) (*Classifier, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	c := &Classifier{store: store, verify: true}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.logger == nil {
		c.logger = xlog.Default()
	}
	c.logger = c.logger.With(xlog.Component("xapq"))
	return c, nil
}

// Classify 对请求分类。
//
// StateNotFound 同时返回 ErrPersistedQueryNotFound，调用方应短路执行并上报未命中。
// 其他错误（版本、哈希不一致、空请求）返回零值 Result。
func (c *Classifier) Classify(ctx context.Context, req Request) (Result, error) {
	pq := req.PersistedQuery
	if pq == nil {
		if req.Query == "" {
			return Result{}, ErrEmptyRequest
		}
		return Result{State: StateNone, Query: req.Query}, nil
	}
	if pq.Version != SupportedVersion {
		return Result{}, ErrUnsupportedVersion
	}

	if req.Query != "" {
		if c.verify && xgqlsig.HashOf(req.Query) != pq.SHA256Hash {
			return Result{}, ErrHashMismatch
		}
		if err := c.store.Put(ctx, pq.SHA256Hash, req.Query); err != nil {
			c.writeErrors.Add(1)
			c.logger.Warn(ctx, "persisted query store write failed",
				slog.String("hash", pq.SHA256Hash), xlog.Err(err))
		}
		return Result{State: StateFullAPQ, Query: req.Query, Hash: pq.SHA256Hash}, nil
	}

	query, ok, err := c.store.Get(ctx, pq.SHA256Hash)
	if err != nil {
		c.readErrors.Add(1)
		c.logger.Warn(ctx, "persisted query store read failed, treating as not found",
			slog.String("hash", pq.SHA256Hash), xlog.Err(err))
		ok = false
	}
	if !ok {
		return Result{State: StateNotFound, Hash: pq.SHA256Hash}, ErrPersistedQueryNotFound
	}
	return Result{State: StateAPQ, Query: query, Hash: pq.SHA256Hash}, nil
}

// StoreErrors 返回读、写故障次数。
func (c *Classifier) StoreErrors() (read, write uint64) {
	return c.readErrors.Load(), c.writeErrors.Load()
}
