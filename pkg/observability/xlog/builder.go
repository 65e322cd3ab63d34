package xlog

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ErrEmptyFilename 轮转文件名为空。
var ErrEmptyFilename = errors.New("xlog: rotation filename is empty")

// Rotation 日志文件轮转参数，零值字段使用 lumberjack 默认值。
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Builder 日志配置构建器。
//
// Set* 方法记录第一个配置错误，Build 时统一返回。
type Builder struct {
	output    io.Writer
	levelVar  *slog.LevelVar
	format    string
	addSource bool
	enrich    bool
	static    []slog.Attr
	closer    io.Closer
	onError   func(error)
	err       error
}

// New 创建构建器：stderr、Info、text、启用 context 字段注入。
func New() *Builder {
	lv := new(slog.LevelVar)
	lv.Set(slog.LevelInfo)
	return &Builder{
		output:   os.Stderr,
		levelVar: lv,
		format:   "text",
		enrich:   true,
	}
}

func (b *Builder) setErr(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// SetOutput 设置输出目标，nil 视为配置错误。
func (b *Builder) SetOutput(w io.Writer) *Builder {
	if w == nil {
		return b.setErr(errors.New("xlog: nil output"))
	}
	b.output = w
	return b
}

// SetLevel 设置日志级别。
func (b *Builder) SetLevel(level Level) *Builder {
	b.levelVar.Set(slog.Level(level))
	return b
}

// SetLevelString 通过字符串设置日志级别。
func (b *Builder) SetLevelString(s string) *Builder {
	level, err := ParseLevel(s)
	if err != nil {
		return b.setErr(err)
	}
	return b.SetLevel(level)
}

// SetFormat 设置输出格式：text 或 json，空字符串保持默认。
func (b *Builder) SetFormat(format string) *Builder {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "":
		return b
	case "text", "json":
		b.format = f
		return b
	}
	return b.setErr(fmt.Errorf("xlog: unknown format %q", format))
}

// SetAddSource 是否记录源码位置。
func (b *Builder) SetAddSource(enable bool) *Builder {
	b.addSource = enable
	return b
}

// SetEnrich 是否注入 [ContextWithAttrs] 挂载的字段，默认启用。
func (b *Builder) SetEnrich(enable bool) *Builder {
	b.enrich = enable
	return b
}

// SetAttrs 设置每条日志都带的固定字段（如 service、component）。
func (b *Builder) SetAttrs(attrs ...slog.Attr) *Builder {
	b.static = append(b.static, attrs...)
	return b
}

// SetRotation 输出到 lumberjack 轮转文件，cleanup 负责关闭文件。
func (b *Builder) SetRotation(filename string, r Rotation) *Builder {
	if strings.TrimSpace(filename) == "" {
		return b.setErr(ErrEmptyFilename)
	}
	if r.MaxSizeMB < 0 || r.MaxBackups < 0 || r.MaxAgeDays < 0 {
		return b.setErr(fmt.Errorf("xlog: negative rotation parameter %+v", r))
	}
	lj := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    r.MaxSizeMB,
		MaxBackups: r.MaxBackups,
		MaxAge:     r.MaxAgeDays,
		Compress:   r.Compress,
		LocalTime:  true,
	}
	b.output = lj
	b.closer = lj
	return b
}

// SetOnError 设置 Handler 写入失败时的回调。
//
// 回调在日志调用方 goroutine 同步执行，应保持轻量；回调 panic 会被吞掉并计数。
func (b *Builder) SetOnError(fn func(error)) *Builder {
	b.onError = fn
	return b
}

// Build 构建 Logger。
//
// 返回的 cleanup 幂等，用于关闭轮转文件。
func (b *Builder) Build() (LoggerWithLevel, func() error, error) {
	if b.err != nil {
		return nil, nil, b.err
	}

	opts := &slog.HandlerOptions{Level: b.levelVar, AddSource: b.addSource}
	var handler slog.Handler
	if b.format == "json" {
		handler = slog.NewJSONHandler(b.output, opts)
	} else {
		handler = slog.NewTextHandler(b.output, opts)
	}
	if b.enrich {
		handler = NewEnrichHandler(handler)
	}
	if len(b.static) > 0 {
		handler = handler.WithAttrs(b.static)
	}

	l := &xlogger{
		handler:   handler,
		levelVar:  b.levelVar,
		onError:   b.onError,
		errCount:  new(atomic.Uint64),
		inOnError: new(atomic.Bool),
		addSource: b.addSource,
	}

	var once sync.Once
	closer := b.closer
	cleanup := func() error {
		var err error
		once.Do(func() {
			if closer != nil {
				err = closer.Close()
			}
		})
		return err
	}
	return l, cleanup, nil
}
