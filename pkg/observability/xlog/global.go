package xlog

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

// 全局 Logger 定位于 CLI、demo 等简单场景；库代码通过 Option 注入。
var (
	globalLogger atomic.Pointer[LoggerWithLevel]
	globalMu     sync.Mutex
)

// Default 返回全局 Logger，首次调用时惰性创建（stderr、Info、text）。
func Default() LoggerWithLevel {
	if l := globalLogger.Load(); l != nil {
		return *l
	}
	globalMu.Lock()
	defer globalMu.Unlock()
	if l := globalLogger.Load(); l != nil {
		return *l
	}
	logger, _, err := New().Build()
	if err != nil {
		// 默认参数不应失败，失败时退化为最小 text logger
		fmt.Fprintf(os.Stderr, "xlog: build default logger: %v\n", err)
		logger = &xlogger{
			handler:   slog.NewTextHandler(os.Stderr, nil),
			levelVar:  new(slog.LevelVar),
			errCount:  new(atomic.Uint64),
			inOnError: new(atomic.Bool),
		}
	}
	globalLogger.Store(&logger)
	return logger
}

// SetDefault 替换全局 Logger，nil 被忽略。
func SetDefault(l LoggerWithLevel) {
	if l == nil {
		return
	}
	globalLogger.Store(&l)
}

// ResetDefault 清除全局 Logger，下次 Default 重新创建，主要用于测试。
func ResetDefault() {
	globalLogger.Store(nil)
}
