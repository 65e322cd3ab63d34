package xgqlsig

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store 远端签名存储，多个进程共享计算结果。
//
// Get 未命中时返回 ErrStoreMiss；其他错误视为存储故障，Repository 会降级为直接计算。
type Store interface {
	Get(ctx context.Context, key string) (QuerySignature, error)
	Put(ctx context.Context, key string, sig QuerySignature) error
}

const (
	fieldSignature = "signature"
	fieldHash      = "hash"

	// DefaultRedisPrefix RedisStore 默认键前缀。
	DefaultRedisPrefix = "xgql:sig:"
)

// RedisStore 基于 Redis Hash 的 Store。
//
// 键为 prefix + SHA-256(key)，避免把原始查询文本放进 Redis 键名。
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
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

// WithRedisTTL 设置条目过期时间，0 表示不过期。
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// NewRedisStore 创建 RedisStore，不负责关闭 client。
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) (*RedisStore, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	s := &RedisStore{client: client, prefix: DefaultRedisPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.ttl < 0 {
		return nil, ErrInvalidTTL
	}
	return s, nil
}

func (s *RedisStore) redisKey(key string) string {
	return s.prefix + HashOf(key)
}

// Get 实现 Store。
func (s *RedisStore) Get(ctx context.Context, key string) (QuerySignature, error) {
	m, err := s.client.HGetAll(ctx, s.redisKey(key)).Result()
	if err != nil {
		return QuerySignature{}, err
	}
	if len(m) == 0 {
		return QuerySignature{}, ErrStoreMiss
	}
	sig := QuerySignature{Signature: m[fieldSignature], Hash: m[fieldHash]}
	if sig.Signature == "" || HashOf(sig.Signature) != sig.Hash {
		return QuerySignature{}, fmt.Errorf("%w: %s", ErrCorruptEntry, s.redisKey(key))
	}
	return sig, nil
}

// Put 实现 Store，HSET 与 EXPIRE 在同一事务中执行。
func (s *RedisStore) Put(ctx context.Context, key string, sig QuerySignature) error {
	rk := s.redisKey(key)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, rk, fieldSignature, sig.Signature, fieldHash, sig.Hash)
		if s.ttl > 0 {
			pipe.Expire(ctx, rk, s.ttl)
		}
		return nil
	})
	return err
}
