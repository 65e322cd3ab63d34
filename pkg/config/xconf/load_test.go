package xconf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
metrics:
  prefix: api
  trivial_fields: true
  exporter: stdout
cardinality:
  limit: 50
  dimensions: [operation.name, path]
signature:
  cache_size: 0
  cache_ttl: 10m
apq:
  store: redis
  ttl: 1h
  verify_hash: false
redis:
  addr: redis:6379
  db: 2
log:
  level: debug
  format: json
`

const testJSON = `{
  "metrics": {"prefix": "api"},
  "apq": {"enabled": false},
  "log": {"level": "warn"}
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// =============================================================================
// 加载
// =============================================================================

func TestLoad_YAML(t *testing.T) {
	s, err := Load(writeFile(t, "xgql.yaml", testYAML))
	require.NoError(t, err)

	assert.Equal(t, "api", s.Metrics.Prefix)
	assert.True(t, s.Metrics.TrivialFields)
	assert.Equal(t, ExporterStdout, s.Metrics.Exporter)
	assert.Equal(t, 50, s.Cardinality.Limit)
	assert.Equal(t, "limited", s.Cardinality.Sentinel, "未出现的键保留默认值")
	assert.Equal(t, []string{"operation.name", "path"}, s.Cardinality.Dimensions)
	assert.True(t, s.Signature.Enabled)
	assert.Equal(t, 0, s.Signature.CacheSize)
	assert.Equal(t, 10*time.Minute, s.Signature.CacheTTL)
	assert.Equal(t, StoreRedis, s.APQ.Store)
	assert.Equal(t, time.Hour, s.APQ.TTL)
	assert.False(t, s.APQ.VerifyHash)
	assert.Equal(t, "redis:6379", s.Redis.Addr)
	assert.Equal(t, 2, s.Redis.DB)
	assert.Equal(t, "debug", s.Log.Level)
	assert.Equal(t, "json", s.Log.Format)
	assert.True(t, s.UsesRedis())
}

func TestLoad_JSON(t *testing.T) {
	s, err := Load(writeFile(t, "xgql.json", testJSON))
	require.NoError(t, err)
	assert.Equal(t, "api", s.Metrics.Prefix)
	assert.False(t, s.APQ.Enabled)
	assert.Equal(t, "warn", s.Log.Level)
	assert.Equal(t, Default().Cardinality, s.Cardinality)
	assert.False(t, s.UsesRedis())
}

func TestLoadBytes_EmptyIsDefault(t *testing.T) {
	s, err := LoadBytes(nil, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load("")
	assert.ErrorIs(t, err, ErrEmptyPath)

	_, err = Load("config.toml")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrLoadFailed)

	_, err = Load(writeFile(t, "bad.yaml", "metrics: [unclosed"))
	assert.ErrorIs(t, err, ErrParseFailed)

	_, err = LoadBytes([]byte(`{"cardinality": {"limit": "many"}}`), FormatJSON)
	assert.ErrorIs(t, err, ErrUnmarshalFailed)

	_, err = LoadBytes([]byte("{}"), Format("toml"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

// =============================================================================
// 校验
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		want   string
	}{
		{"empty prefix", func(s *Settings) { s.Metrics.Prefix = " " }, "metrics.prefix"},
		{"exporter", func(s *Settings) { s.Metrics.Exporter = "statsd" }, "metrics.exporter"},
		{"limit", func(s *Settings) { s.Cardinality.Limit = 0 }, "cardinality.limit"},
		{"sentinel", func(s *Settings) { s.Cardinality.Sentinel = "" }, "cardinality.sentinel"},
		{"cache size", func(s *Settings) { s.Signature.CacheSize = -1 }, "signature.cache_size"},
		{"cache ttl", func(s *Settings) { s.Signature.CacheTTL = -time.Second }, "signature.cache_ttl"},
		{"store", func(s *Settings) { s.APQ.Store = "etcd" }, "apq.store"},
		{"apq ttl", func(s *Settings) { s.APQ.TTL = -time.Second }, "apq.ttl"},
		{"max cost", func(s *Settings) { s.APQ.MaxCost = -1 }, "apq.max_cost"},
		{"redis addr", func(s *Settings) {
			s.Signature.Shared = true
			s.Redis.Addr = ""
		}, "redis.addr"},
		{"log level", func(s *Settings) { s.Log.Level = "verbose" }, "log.level"},
		{"log format", func(s *Settings) { s.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.mutate(&s)
			err := s.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	require.NoError(t, Default().Validate())
}

func TestValidate_JoinsAllProblems(t *testing.T) {
	s := Default()
	s.Metrics.Prefix = ""
	s.Log.Format = "xml"
	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics.prefix")
	assert.Contains(t, err.Error(), "log.format")
}
