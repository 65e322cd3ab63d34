package xdataloader

import (
	"context"
	"fmt"
	"strings"
)

// BatchFunc 按 key 顺序返回结果，len(values) 必须等于 len(keys)。
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) ([]V, error)

// MappedBatchFunc 返回 key 到结果的映射，缺失的 key 由调用方处理。
type MappedBatchFunc[K comparable, V any] func(ctx context.Context, keys []K) (map[K]V, error)

// Wrap 为批量函数埋点。返回结果数量与 key 数量不一致时报 ErrResultLength 并记为 failure。
//
// p 为 nil 时原样返回 fn。name 为空时使用 DefaultLoaderName。
func Wrap[K comparable, V any](p *Provider, name string, fn BatchFunc[K, V]) BatchFunc[K, V] {
	name = loaderName(name)
	if p == nil || fn == nil {
		return fn
	}
	return func(ctx context.Context, keys []K) (values []V, err error) {
		obs := p.begin(ctx, name, len(keys))
		failed := true
		defer func() { obs.done(failed) }()

		values, err = fn(ctx, keys)
		if err == nil && len(values) != len(keys) {
			err = fmt.Errorf("%w: loader %s got %d results for %d keys", ErrResultLength, name, len(values), len(keys))
		}
		failed = err != nil
		return values, err
	}
}

// WrapMapped 为返回映射的批量函数埋点。
func WrapMapped[K comparable, V any](p *Provider, name string, fn MappedBatchFunc[K, V]) MappedBatchFunc[K, V] {
	name = loaderName(name)
	if p == nil || fn == nil {
		return fn
	}
	return func(ctx context.Context, keys []K) (values map[K]V, err error) {
		obs := p.begin(ctx, name, len(keys))
		failed := true
		defer func() { obs.done(failed) }()

		values, err = fn(ctx, keys)
		failed = err != nil
		return values, err
	}
}

// DefaultLoaderName 未命名加载器的标签值。
const DefaultLoaderName = "unnamed"

func loaderName(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return DefaultLoaderName
	}
	return name
}
