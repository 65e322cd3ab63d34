package xgqlmetrics_test

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
)

func toMap(kvs []attribute.KeyValue) map[string]string {
	out := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}

// dedupe 去掉重复的属性集合，保持首次出现的顺序。
func dedupe(series []map[string]string) []map[string]string {
	seen := map[string]bool{}
	var out []map[string]string
	for _, attrs := range series {
		key := fmt.Sprint(attrs)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, attrs)
	}
	return out
}
