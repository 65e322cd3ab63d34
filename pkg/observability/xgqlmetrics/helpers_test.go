package xgqlmetrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/omeyang/xgql/pkg/observability/xlog"
)

// point 单个数据点：属性与计数（histogram 为 Count，counter 为 Value）。
type point struct {
	attrs map[string]string
	count int64
}

type harness struct {
	t      *testing.T
	reader *sdkmetric.ManualReader
	inst   *Instrumentation
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	all := append([]Option{WithMeterProvider(mp), WithLogger(xlog.Nop())}, opts...)
	inst, err := New(all...)
	require.NoError(t, err)
	return &harness{t: t, reader: reader, inst: inst}
}

func (h *harness) points(name string) []point {
	h.t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(h.t, h.reader.Collect(context.Background(), &rm))
	var out []point
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			switch data := m.Data.(type) {
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					out = append(out, point{attrs: attrMap(dp.Attributes), count: int64(dp.Count)})
				}
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					out = append(out, point{attrs: attrMap(dp.Attributes), count: dp.Value})
				}
			}
		}
	}
	return out
}

// total 满足 match 的数据点计数之和。
func (h *harness) total(name string, match map[string]string) int64 {
	h.t.Helper()
	var n int64
	for _, p := range h.points(name) {
		if matches(p.attrs, match) {
			n += p.count
		}
	}
	return n
}

func matches(attrs, want map[string]string) bool {
	for k, v := range want {
		if attrs[k] != v {
			return false
		}
	}
	return true
}

func attrMap(set attribute.Set) map[string]string {
	out := make(map[string]string, set.Len())
	for _, kv := range set.ToSlice() {
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}
