package xgqlsig

import (
	"time"

	"github.com/omeyang/xgql/pkg/observability/xlog"
)

// 默认值。
const (
	DefaultCacheSize    = 1024
	DefaultStoreTimeout = 100 * time.Millisecond

	defaultBreakerFailures = 5
	defaultBreakerOpen     = 10 * time.Second
)

type options struct {
	normalizer      Normalizer
	cacheSize       int
	cacheTTL        time.Duration
	store           Store
	storeTimeout    time.Duration
	breakerFailures uint32
	breakerOpen     time.Duration
	logger          xlog.Logger
}

func defaultOptions() *options {
	return &options{
		normalizer:      ASTNormalizer{},
		cacheSize:       DefaultCacheSize,
		storeTimeout:    DefaultStoreTimeout,
		breakerFailures: defaultBreakerFailures,
		breakerOpen:     defaultBreakerOpen,
	}
}

// Option 配置 Repository。
type Option func(*options)

// WithNormalizer 替换规范化规则，nil 被忽略。
func WithNormalizer(n Normalizer) Option {
	return func(o *options) {
		if n != nil {
			o.normalizer = n
		}
	}
}

// WithCache 设置本地缓存容量与 TTL。size 为 0 关闭缓存，ttl 为 0 表示不过期。
func WithCache(size int, ttl time.Duration) Option {
	return func(o *options) {
		o.cacheSize = size
		o.cacheTTL = ttl
	}
}

// WithoutCache 关闭本地缓存，每次调用直接计算。
func WithoutCache() Option {
	return func(o *options) {
		o.cacheSize = 0
	}
}

// WithStore 设置远端签名存储。缓存关闭时不会访问 Store。
func WithStore(s Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithStoreTimeout 单次 Store 调用超时，<=0 被忽略。
func WithStoreTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.storeTimeout = d
		}
	}
}

// WithBreaker 设置 Store 熔断参数：连续失败 failures 次后熔断，open 后进入半开。
func WithBreaker(failures uint32, open time.Duration) Option {
	return func(o *options) {
		if failures > 0 {
			o.breakerFailures = failures
		}
		if open > 0 {
			o.breakerOpen = open
		}
	}
}

// WithLogger 设置日志，nil 被忽略。
func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
