package xgqlsig

import "errors"

var (
	// ErrOperationNotFound 文档中找不到被选中的 operation（名称不匹配或多 operation 未指定名称）。
	ErrOperationNotFound = errors.New("xgqlsig: operation not found")

	// ErrNormalize 查询无法规范化（通常是语法错误）。
	ErrNormalize = errors.New("xgqlsig: normalize query")

	// ErrStoreMiss Store 中不存在该键。
	ErrStoreMiss = errors.New("xgqlsig: store miss")

	// ErrCorruptEntry Store 中的条目签名与哈希不一致。
	ErrCorruptEntry = errors.New("xgqlsig: corrupt store entry")

	// ErrNilClient Redis 客户端为空。
	ErrNilClient = errors.New("xgqlsig: nil redis client")

	// ErrInvalidCacheSize 缓存容量为负数。
	ErrInvalidCacheSize = errors.New("xgqlsig: cache size must not be negative")

	// ErrInvalidTTL TTL 为负数。
	ErrInvalidTTL = errors.New("xgqlsig: ttl must not be negative")
)
