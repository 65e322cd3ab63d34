package xapq

import (
	"errors"

	"github.com/omeyang/xgql/pkg/graphql/xgqlerr"
)

// CodePersistedQueryNotFound 协议约定的错误码与消息，客户端据此带全文重发。
const CodePersistedQueryNotFound = "PERSISTED_QUERY_NOT_FOUND"

var (
	// ErrPersistedQueryNotFound 只带哈希的请求在 Store 中未命中。
	ErrPersistedQueryNotFound = newNotFound()

	// ErrHashMismatch 声明的哈希与查询文本不一致。
	ErrHashMismatch = xgqlerr.NewTyped(xgqlerr.TypeBadRequest, xgqlerr.DetailInvalidArgument, "provided sha256Hash does not match query")

	// ErrUnsupportedVersion persistedQuery.version 不受支持。
	ErrUnsupportedVersion = xgqlerr.NewTyped(xgqlerr.TypeBadRequest, xgqlerr.DetailInvalidArgument, "unsupported persisted query version")

	// ErrMalformedExtension extensions.persistedQuery 结构非法。
	ErrMalformedExtension = xgqlerr.NewTyped(xgqlerr.TypeBadRequest, xgqlerr.DetailInvalidArgument, "malformed persistedQuery extension")

	// ErrEmptyRequest 既没有哈希也没有查询文本。
	ErrEmptyRequest = xgqlerr.NewTyped(xgqlerr.TypeBadRequest, xgqlerr.DetailInvalidArgument, "request has neither query nor persisted query hash")

	// ErrNilStore Classifier 需要 Store。
	ErrNilStore = errors.New("xapq: nil store")

	// ErrNilClient Redis 客户端为空。
	ErrNilClient = errors.New("xapq: nil redis client")

	// ErrInvalidConfig Store 配置非法。
	ErrInvalidConfig = errors.New("xapq: invalid config")
)

func newNotFound() *xgqlerr.Error {
	e := xgqlerr.NewTyped(xgqlerr.TypeNotFound, xgqlerr.DetailMissingResource, "PersistedQueryNotFound")
	return e.WithExtension("code", CodePersistedQueryNotFound)
}
