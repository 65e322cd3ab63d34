package xapq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/redis/go-redis/v9"
)

// RedisStore 默认值。
const (
	DefaultRedisPrefix   = "xgql:apq:"
	DefaultRedisTTL      = 24 * time.Hour
	defaultWriteAttempts = 3
	defaultWriteDelay    = 20 * time.Millisecond
)

// RedisStore 基于 Redis String 的 Store，多实例共享持久化查询。
type RedisStore struct {
	client   redis.UniversalClient
	prefix   string
	ttl      time.Duration
	attempts uint
	delay    time.Duration
}

var _ Store = (*RedisStore)(nil)

// RedisOption 配置 RedisStore。
type RedisOption func(*RedisStore)

// WithRedisPrefix 设置键前缀。
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithRedisTTL 设置条目 TTL，0 表示不过期。
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithWriteRetry 设置写入重试次数与初始退避。
func WithWriteRetry(attempts uint, delay time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.attempts = attempts
		s.delay = delay
	}
}

// NewRedisStore 创建 RedisStore，不负责关闭 client。
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) (*RedisStore, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	s := &RedisStore{
		client:   client,
		prefix:   DefaultRedisPrefix,
		ttl:      DefaultRedisTTL,
		attempts: defaultWriteAttempts,
		delay:    defaultWriteDelay,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.ttl < 0 || s.attempts == 0 || s.delay < 0 {
		return nil, fmt.Errorf("%w: ttl=%s attempts=%d delay=%s", ErrInvalidConfig, s.ttl, s.attempts, s.delay)
	}
	return s, nil
}

// Get 实现 Store。
func (s *RedisStore) Get(ctx context.Context, hash string) (string, bool, error) {
	q, err := s.client.Get(ctx, s.prefix+hash).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return q, true, nil
}

// Put 实现 Store，失败时按指数退避重试。
func (s *RedisStore) Put(ctx context.Context, hash, query string) error {
	return retry.New(
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.Delay(s.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	).Do(func() error {
		return s.client.Set(ctx, s.prefix+hash, query, s.ttl).Err()
	})
}
