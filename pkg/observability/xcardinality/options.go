package xcardinality

const (
	// DefaultLimit 每个维度默认接受的不同取值数。
	DefaultLimit = 100

	// DefaultSentinel 超出容量后使用的替代取值。
	DefaultSentinel = "limited"

	defaultShardCount = 16
	maxShardCount     = 1 << 10
)

type options struct {
	limit       int
	sentinel    string
	shardCount  uint
	onSaturated func(metric, dimension string)
}

func defaultOptions() options {
	return options{
		limit:      DefaultLimit,
		sentinel:   DefaultSentinel,
		shardCount: defaultShardCount,
	}
}

func (o *options) validate() error {
	if o.limit <= 0 {
		return ErrInvalidLimit
	}
	if o.sentinel == "" {
		return ErrEmptySentinel
	}
	if o.shardCount == 0 || o.shardCount > maxShardCount || o.shardCount&(o.shardCount-1) != 0 {
		return ErrInvalidShardCount
	}
	return nil
}

// Option 配置 Ledger。
type Option func(*options)

// WithLimit 设置每个维度接受的不同取值数上限。
func WithLimit(n int) Option {
	return func(o *options) {
		o.limit = n
	}
}

// WithSentinel 设置超限后的替代取值。
func WithSentinel(s string) Option {
	return func(o *options) {
		o.sentinel = s
	}
}

// WithShardCount 设置每个取值集合的分片数，必须是 2 的幂。
func WithShardCount(n uint) Option {
	return func(o *options) {
		o.shardCount = n
	}
}

// WithOnSaturated 设置维度首次拒绝新取值时的回调。
//
// 每个 (metric, dimension) 最多回调一次，适合记录告警日志。
// 回调在 Resolve 的调用方 goroutine 中同步执行，应保持轻量。
func WithOnSaturated(fn func(metric, dimension string)) Option {
	return func(o *options) {
		o.onSaturated = fn
	}
}
