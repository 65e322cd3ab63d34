package xgqlsig

import (
	"crypto/sha256"
	"encoding/hex"
)

// QuerySignature 不可变的签名值。
type QuerySignature struct {
	Signature string
	Hash      string
}

// IsZero 报告签名是否为空值。
func (s QuerySignature) IsZero() bool {
	return s.Signature == "" && s.Hash == ""
}

// HashOf 返回 s 的 SHA-256 十六进制摘要。
func HashOf(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Normalizer 把查询文本转换为规范签名，必须是纯函数。
type Normalizer interface {
	Normalize(query, operationName string) (string, error)
}

// NormalizerFunc 函数适配器。
type NormalizerFunc func(query, operationName string) (string, error)

// Normalize 实现 Normalizer。
func (f NormalizerFunc) Normalize(query, operationName string) (string, error) {
	return f(query, operationName)
}

// Compute 不经过缓存直接计算签名，n 为 nil 时使用 ASTNormalizer。
func Compute(n Normalizer, query, operationName string) (QuerySignature, error) {
	if n == nil {
		n = ASTNormalizer{}
	}
	sig, err := n.Normalize(query, operationName)
	if err != nil {
		return QuerySignature{}, err
	}
	return QuerySignature{Signature: sig, Hash: HashOf(sig)}, nil
}
