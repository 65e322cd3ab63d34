package xapq

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SupportedVersion 支持的协议版本。
const SupportedVersion = 1

// ExtensionKey extensions 中的协议键。
const ExtensionKey = "persistedQuery"

// PersistedQuery 请求声明的持久化查询。
type PersistedQuery struct {
	Version    int    `json:"version"`
	SHA256Hash string `json:"sha256Hash"`
}

// Request 分类输入。
type Request struct {
	Query          string
	PersistedQuery *PersistedQuery
}

// ParseExtensions 从请求 extensions 中解析 persistedQuery，不存在时返回 nil。
//
// extensions 通常来自 JSON 解码后的 map[string]any。
func ParseExtensions(extensions map[string]any) (*PersistedQuery, error) {
	raw, ok := extensions[ExtensionKey]
	if !ok || raw == nil {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedExtension, err)
	}
	var pq PersistedQuery
	if err := json.Unmarshal(data, &pq); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedExtension, err)
	}
	pq.SHA256Hash = strings.ToLower(strings.TrimSpace(pq.SHA256Hash))
	if pq.SHA256Hash == "" {
		return nil, fmt.Errorf("%w: missing sha256Hash", ErrMalformedExtension)
	}
	return &pq, nil
}

// RequestFromExtensions 组合查询文本与 extensions。
func RequestFromExtensions(query string, extensions map[string]any) (Request, error) {
	pq, err := ParseExtensions(extensions)
	if err != nil {
		return Request{}, err
	}
	return Request{Query: query, PersistedQuery: pq}, nil
}

// Result 分类结果。
type Result struct {
	State State
	// Query 需要执行的查询文本；APQ 时来自 Store。
	Query string
	// Hash 请求声明的哈希，StateNone 时为空。
	Hash string
}
