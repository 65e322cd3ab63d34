package xcardinality

import "slices"

// Resolver 只对配置的高基数维度查询 Ledger，其余标签原样通过。
type Resolver struct {
	ledger     *Ledger
	dimensions map[string]struct{}
}

// NewResolver 创建 Resolver。ledger 为 nil 时不做任何限制。
func NewResolver(ledger *Ledger, dimensions ...string) *Resolver {
	dims := make(map[string]struct{}, len(dimensions))
	for _, d := range dimensions {
		if d != "" {
			dims[d] = struct{}{}
		}
	}
	return &Resolver{ledger: ledger, dimensions: dims}
}

// Limited 报告 key 是否为受限维度。
func (r *Resolver) Limited(key string) bool {
	if r == nil || r.ledger == nil {
		return false
	}
	_, ok := r.dimensions[key]
	return ok
}

// Resolve 返回指标 metric 上标签 key 的最终取值。
func (r *Resolver) Resolve(metric, key, value string) string {
	if !r.Limited(key) {
		return value
	}
	return r.ledger.Resolve(metric, key, value)
}

// Dimensions 返回受限维度的有序列表。
func (r *Resolver) Dimensions() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.dimensions))
	for d := range r.dimensions {
		out = append(out, d)
	}
	slices.Sort(out)
	return out
}

// Ledger 返回底层账本。
func (r *Resolver) Ledger() *Ledger {
	if r == nil {
		return nil
	}
	return r.ledger
}
