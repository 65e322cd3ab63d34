package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/omeyang/xgql/internal/gqlexec"
	"github.com/omeyang/xgql/pkg/observability/xlog"
)

// maxRequestBytes 单个 GraphQL 请求体上限。
const maxRequestBytes = 1 << 20

// newHandler 构建 HTTP 路由：POST /graphql、GET /metrics（仅 Prometheus 导出器）、GET /healthz。
func newHandler(st *stack) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /graphql", func(w http.ResponseWriter, r *http.Request) {
		var req gqlexec.Request
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
		if err := dec.Decode(&req); err != nil {
			status := http.StatusBadRequest
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			writeResponse(w, r, st.logger, status, &gqlexec.Response{
				Errors: gqlerror.List{gqlerror.Errorf("invalid request body: %v", err)},
			})
			return
		}
		writeResponse(w, r, st.logger, http.StatusOK, st.executor.Execute(r.Context(), req))
	})
	if h := st.metricsHandler(); h != nil {
		mux.Handle("GET /metrics", h)
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func writeResponse(w http.ResponseWriter, r *http.Request, logger xlog.Logger, status int, resp *gqlexec.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Warn(r.Context(), "write response failed", xlog.Err(err))
	}
}

// writeJSON 以缩进格式输出 v。
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
