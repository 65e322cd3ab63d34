package xconf

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/omeyang/xgql/pkg/observability/xlog"
)

// 指标导出方式。
const (
	ExporterPrometheus = "prometheus"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// APQ 存储类型。
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Settings xgql 的完整运行配置。
type Settings struct {
	Metrics     MetricsSettings     `koanf:"metrics"`
	Cardinality CardinalitySettings `koanf:"cardinality"`
	Signature   SignatureSettings   `koanf:"signature"`
	APQ         APQSettings         `koanf:"apq"`
	Redis       RedisSettings       `koanf:"redis"`
	Log         LogSettings         `koanf:"log"`
}

// MetricsSettings 指标发射。
type MetricsSettings struct {
	Prefix        string `koanf:"prefix"`
	TrivialFields bool   `koanf:"trivial_fields"`
	// Complexity 是否按字段数估算 query.complexity。
	Complexity bool   `koanf:"complexity"`
	Exporter   string `koanf:"exporter"`
}

// CardinalitySettings 标签基数限制。
type CardinalitySettings struct {
	Limit    int    `koanf:"limit"`
	Sentinel string `koanf:"sentinel"`
	// Dimensions 为空时使用 xgqlmetrics 的默认受限维度。
	Dimensions []string `koanf:"dimensions"`
}

// SignatureSettings 查询签名仓库。
type SignatureSettings struct {
	Enabled   bool          `koanf:"enabled"`
	CacheSize int           `koanf:"cache_size"`
	CacheTTL  time.Duration `koanf:"cache_ttl"`
	// Shared 为 true 时通过 Redis 在实例间共享签名。
	Shared bool `koanf:"shared"`
}

// APQSettings 自动持久化查询。
type APQSettings struct {
	Enabled    bool          `koanf:"enabled"`
	Store      string        `koanf:"store"`
	TTL        time.Duration `koanf:"ttl"`
	VerifyHash bool          `koanf:"verify_hash"`
	// MaxCost 内存存储的容量上限（字节）。
	MaxCost int64 `koanf:"max_cost"`
}

// RedisSettings Redis 连接。
type RedisSettings struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// LogSettings 日志输出。
type LogSettings struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	// File 非空时写入文件并按大小轮转。
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

// Default 返回默认配置。
func Default() Settings {
	return Settings{
		Metrics: MetricsSettings{
			Prefix:   "gql",
			Exporter: ExporterPrometheus,
		},
		Cardinality: CardinalitySettings{
			Limit:    100,
			Sentinel: "limited",
		},
		Signature: SignatureSettings{
			Enabled:   true,
			CacheSize: 1024,
		},
		APQ: APQSettings{
			Enabled:    true,
			Store:      StoreMemory,
			TTL:        24 * time.Hour,
			VerifyHash: true,
			MaxCost:    64 << 20,
		},
		Redis: RedisSettings{Addr: "127.0.0.1:6379"},
		Log: LogSettings{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}

// Validate 校验配置，返回所有问题的合并错误。
func (s Settings) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if strings.TrimSpace(s.Metrics.Prefix) == "" {
		invalid("metrics.prefix must not be empty")
	}
	switch s.Metrics.Exporter {
	case ExporterPrometheus, ExporterStdout, ExporterNone:
	default:
		invalid("metrics.exporter %q", s.Metrics.Exporter)
	}
	if s.Cardinality.Limit <= 0 {
		invalid("cardinality.limit must be greater than 0")
	}
	if s.Cardinality.Sentinel == "" {
		invalid("cardinality.sentinel must not be empty")
	}
	if s.Signature.CacheSize < 0 {
		invalid("signature.cache_size must not be negative")
	}
	if s.Signature.CacheTTL < 0 {
		invalid("signature.cache_ttl must not be negative")
	}
	switch s.APQ.Store {
	case StoreMemory, StoreRedis:
	default:
		invalid("apq.store %q", s.APQ.Store)
	}
	if s.APQ.TTL < 0 {
		invalid("apq.ttl must not be negative")
	}
	if s.APQ.MaxCost < 0 {
		invalid("apq.max_cost must not be negative")
	}
	if s.UsesRedis() && s.Redis.Addr == "" {
		invalid("redis.addr is required")
	}
	if _, err := xlog.ParseLevel(s.Log.Level); err != nil {
		invalid("log.level %q", s.Log.Level)
	}
	switch s.Log.Format {
	case "text", "json":
	default:
		invalid("log.format %q", s.Log.Format)
	}
	return errors.Join(errs...)
}

// UsesRedis 报告是否有组件需要 Redis。
func (s Settings) UsesRedis() bool {
	return (s.APQ.Enabled && s.APQ.Store == StoreRedis) ||
		(s.Signature.Enabled && s.Signature.Shared)
}
