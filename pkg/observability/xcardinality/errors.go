package xcardinality

import "errors"

var (
	// ErrInvalidLimit 表示容量配置无效。
	ErrInvalidLimit = errors.New("xcardinality: limit must be greater than 0")

	// ErrInvalidShardCount 表示分片数不是 2 的幂。
	ErrInvalidShardCount = errors.New("xcardinality: shard count must be a power of 2")

	// ErrEmptySentinel 表示哨兵值为空。
	ErrEmptySentinel = errors.New("xcardinality: sentinel must not be empty")
)
