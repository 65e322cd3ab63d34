package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/omeyang/xgql/internal/gqlexec"
	"github.com/omeyang/xgql/pkg/config/xconf"
	"github.com/omeyang/xgql/pkg/graphql/xapq"
	"github.com/omeyang/xgql/pkg/graphql/xdataloader"
	"github.com/omeyang/xgql/pkg/graphql/xgqlsig"
	"github.com/omeyang/xgql/pkg/observability/xcardinality"
	"github.com/omeyang/xgql/pkg/observability/xgqlmetrics"
	"github.com/omeyang/xgql/pkg/observability/xlog"
)

// stack 按配置装配的完整埋点链路。
type stack struct {
	logger   xlog.LoggerWithLevel
	registry *prometheus.Registry
	inst     *xgqlmetrics.Instrumentation
	executor *gqlexec.Executor

	// closers 按创建顺序登记，Close 时逆序执行。
	closers []func(context.Context) error
}

// stackIO 装配时使用的输出。
type stackIO struct {
	metrics io.Writer // stdout 导出器输出
	logs    io.Writer // 未配置日志文件时的日志输出
}

func newStack(s xconf.Settings, out stackIO) (st *stack, err error) {
	st = &stack{}
	defer func() {
		if err != nil {
			_ = st.Close(context.Background())
			st = nil
		}
	}()

	if err = st.buildLogger(s.Log, out.logs); err != nil {
		return st, err
	}
	mp, err := st.buildMeterProvider(s.Metrics.Exporter, out.metrics)
	if err != nil {
		return st, err
	}

	ledger, err := xcardinality.New(
		xcardinality.WithLimit(s.Cardinality.Limit),
		xcardinality.WithSentinel(s.Cardinality.Sentinel),
		xcardinality.WithOnSaturated(func(metric, dimension string) {
			st.logger.Warn(context.Background(), "cardinality limit reached",
				xlog.Metric(metric), slog.String("dimension", dimension))
		}),
	)
	if err != nil {
		return st, err
	}

	var rdb redis.UniversalClient
	if s.UsesRedis() {
		client := redis.NewClient(&redis.Options{
			Addr:     s.Redis.Addr,
			Password: s.Redis.Password,
			DB:       s.Redis.DB,
		})
		st.onClose(func(context.Context) error { return client.Close() })
		rdb = client
	}

	opts := []xgqlmetrics.Option{
		xgqlmetrics.WithPrefix(s.Metrics.Prefix),
		xgqlmetrics.WithMeterProvider(mp),
		xgqlmetrics.WithLedger(ledger),
		xgqlmetrics.WithTrivialFields(s.Metrics.TrivialFields),
		xgqlmetrics.WithLogger(st.logger),
	}
	if len(s.Cardinality.Dimensions) > 0 {
		opts = append(opts, xgqlmetrics.WithLimitedDimensions(s.Cardinality.Dimensions...))
	}
	if s.Metrics.Complexity {
		opts = append(opts, xgqlmetrics.WithComplexityEstimator(xgqlmetrics.FieldCountComplexity{}))
	}
	if s.Signature.Enabled {
		repo, rerr := st.buildSignatures(s.Signature, rdb)
		if rerr != nil {
			return st, rerr
		}
		opts = append(opts, xgqlmetrics.WithSignatureRepository(repo))
	}
	if st.inst, err = xgqlmetrics.New(opts...); err != nil {
		return st, err
	}

	loaders, err := xdataloader.NewProvider(
		xdataloader.WithPrefix(s.Metrics.Prefix),
		xdataloader.WithMeterProvider(mp),
		xdataloader.WithLedger(ledger),
		xdataloader.WithLogger(st.logger),
	)
	if err != nil {
		return st, err
	}
	schema, err := gqlexec.NewDemoSchema(loaders)
	if err != nil {
		return st, err
	}

	execOpts := []gqlexec.Option{gqlexec.WithLogger(st.logger)}
	if s.APQ.Enabled {
		classifier, cerr := st.buildPersistedQueries(s.APQ, rdb)
		if cerr != nil {
			return st, cerr
		}
		execOpts = append(execOpts, gqlexec.WithPersistedQueries(classifier))
	}
	st.executor = gqlexec.New(schema, st.inst, execOpts...)
	return st, nil
}

func (st *stack) onClose(fn func(context.Context) error) {
	st.closers = append(st.closers, fn)
}

// Close 逆序释放资源，刷新指标导出器。可重复调用。
func (st *stack) Close(ctx context.Context) error {
	var errs []error
	for i := len(st.closers) - 1; i >= 0; i-- {
		if err := st.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	st.closers = nil
	return errors.Join(errs...)
}

func (st *stack) buildLogger(s xconf.LogSettings, w io.Writer) error {
	b := xlog.New().
		SetOutput(w).
		SetLevelString(s.Level).
		SetFormat(s.Format).
		SetAttrs(slog.String("app", appName))
	if s.File != "" {
		b = b.SetRotation(s.File, xlog.Rotation{
			MaxSizeMB:  s.MaxSizeMB,
			MaxBackups: s.MaxBackups,
			MaxAgeDays: s.MaxAgeDays,
			Compress:   s.Compress,
		})
	}
	logger, cleanup, err := b.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	st.logger = logger
	st.onClose(func(context.Context) error { return cleanup() })
	return nil
}

func (st *stack) buildMeterProvider(exporter string, w io.Writer) (metric.MeterProvider, error) {
	switch exporter {
	case xconf.ExporterNone:
		return noop.NewMeterProvider(), nil
	case xconf.ExporterStdout:
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(w), stdoutmetric.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
		st.onClose(mp.Shutdown)
		return mp, nil
	default:
		st.registry = prometheus.NewRegistry()
		exp, err := otelprom.New(otelprom.WithRegisterer(st.registry))
		if err != nil {
			return nil, fmt.Errorf("create prometheus exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp))
		st.onClose(mp.Shutdown)
		return mp, nil
	}
}

func (st *stack) buildSignatures(s xconf.SignatureSettings, rdb redis.UniversalClient) (*xgqlsig.Repository, error) {
	opts := []xgqlsig.Option{
		xgqlsig.WithCache(s.CacheSize, s.CacheTTL),
		xgqlsig.WithLogger(st.logger),
	}
	if s.Shared && rdb != nil {
		store, err := xgqlsig.NewRedisStore(rdb, xgqlsig.WithRedisPrefix(appName+":sig:"))
		if err != nil {
			return nil, err
		}
		opts = append(opts, xgqlsig.WithStore(store))
	}
	repo, err := xgqlsig.New(opts...)
	if err != nil {
		return nil, err
	}
	st.onClose(func(context.Context) error {
		repo.Close()
		return nil
	})
	return repo, nil
}

func (st *stack) buildPersistedQueries(s xconf.APQSettings, rdb redis.UniversalClient) (*xapq.Classifier, error) {
	var store xapq.Store
	if s.Store == xconf.StoreRedis {
		rs, err := xapq.NewRedisStore(rdb,
			xapq.WithRedisPrefix(appName+":apq:"),
			xapq.WithRedisTTL(s.TTL))
		if err != nil {
			return nil, err
		}
		store = rs
	} else {
		ms, err := xapq.NewMemoryStore(s.MaxCost)
		if err != nil {
			return nil, err
		}
		st.onClose(func(context.Context) error {
			ms.Close()
			return nil
		})
		store = ms
	}
	return xapq.NewClassifier(store,
		xapq.WithVerifyHash(s.VerifyHash),
		xapq.WithLogger(st.logger))
}

// metricsHandler 返回 Prometheus 抓取端点；其他导出器返回 nil。
func (st *stack) metricsHandler() http.Handler {
	if st.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(st.registry, promhttp.HandlerOpts{})
}
