package xmetrics

import (
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// Tag 单个标签。
type Tag struct {
	Key   string
	Value string
}

// Tags 有序、键唯一的标签集合。
//
// 零值可用。With/Merge 返回新值，不修改接收者，因此 Tags 可以按值捕获。
type Tags struct {
	list []Tag
}

// NewTags 从键值对创建 Tags，奇数个参数时忽略最后一个。
func NewTags(kv ...string) Tags {
	var t Tags
	for i := 0; i+1 < len(kv); i += 2 {
		t = t.With(kv[i], kv[i+1])
	}
	return t
}

// With 返回设置了 key 的新 Tags。已存在的键原位覆盖，保持顺序。空键被忽略。
func (t Tags) With(key, value string) Tags {
	if key == "" {
		return t
	}
	out := make([]Tag, len(t.list), len(t.list)+1)
	copy(out, t.list)
	for i := range out {
		if out[i].Key == key {
			out[i].Value = value
			return Tags{list: out}
		}
	}
	return Tags{list: append(out, Tag{Key: key, Value: value})}
}

// Merge 依次应用 other 中的标签。
func (t Tags) Merge(other Tags) Tags {
	for _, tag := range other.list {
		t = t.With(tag.Key, tag.Value)
	}
	return t
}

// Get 返回 key 的值。
func (t Tags) Get(key string) (string, bool) {
	for _, tag := range t.list {
		if tag.Key == key {
			return tag.Value, true
		}
	}
	return "", false
}

// Len 标签数量。
func (t Tags) Len() int { return len(t.list) }

// All 返回标签副本。
func (t Tags) All() []Tag {
	out := make([]Tag, len(t.list))
	copy(out, t.list)
	return out
}

// Attributes 转换为 OTel 属性。
func (t Tags) Attributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, len(t.list))
	for i, tag := range t.list {
		attrs[i] = attribute.String(tag.Key, tag.Value)
	}
	return attrs
}

// String 形如 {a=1, b=2}，用于日志与测试输出。
func (t Tags) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, tag := range t.list {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(tag.Key)
		sb.WriteByte('=')
		sb.WriteString(tag.Value)
	}
	sb.WriteByte('}')
	return sb.String()
}
