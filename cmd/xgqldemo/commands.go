package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xgql/internal/gqlexec"
	"github.com/omeyang/xgql/pkg/config/xconf"
	"github.com/omeyang/xgql/pkg/graphql/xgqlsig"
	"github.com/omeyang/xgql/pkg/observability/xlog"
)

const (
	defaultAddr            = ":8080"
	defaultShutdownTimeout = 5 * time.Second
)

// createRunCommand 执行一次查询并刷新指标。
func createRunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "执行一次查询，打印响应 JSON",
		Flags: append(requestFlags(),
			&cli.StringFlag{
				Name:  "variables",
				Usage: "变量 JSON 对象",
			},
			&cli.StringFlag{
				Name:  "extensions",
				Usage: "extensions JSON 对象（如 persistedQuery）",
			},
			&cli.StringFlag{
				Name:  "exporter",
				Usage: "指标导出器 (stdout/none)",
				Value: xconf.ExporterStdout,
			},
		),
		Action: cmdRun,
	}
}

// createServeCommand 启动 HTTP 服务。
func createServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "启动 HTTP 服务：POST /graphql 与 GET /metrics",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "监听地址",
				Value: defaultAddr,
			},
			&cli.DurationFlag{
				Name:  "shutdown-timeout",
				Usage: "优雅关闭的等待时间",
				Value: defaultShutdownTimeout,
			},
		},
		Action: cmdServe,
	}
}

// createSignatureCommand 打印规范化签名。
func createSignatureCommand() *cli.Command {
	return &cli.Command{
		Name:   "signature",
		Usage:  "打印查询的规范化签名与 SHA-256 哈希",
		Flags:  requestFlags(),
		Action: cmdSignature,
	}
}

func requestFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "query",
			Aliases: []string{"q"},
			Usage:   "GraphQL 查询文本",
		},
		&cli.StringFlag{
			Name:    "operation-name",
			Aliases: []string{"o"},
			Usage:   "要执行的操作名",
		},
	}
}

func cmdRun(ctx context.Context, cmd *cli.Command) error {
	req, err := requestFromFlags(cmd)
	if err != nil {
		return err
	}
	exporter := cmd.String("exporter")
	if exporter != xconf.ExporterStdout && exporter != xconf.ExporterNone {
		return usageErrorf("--exporter must be %q or %q, got %q", xconf.ExporterStdout, xconf.ExporterNone, exporter)
	}
	s, err := loadSettings(cmd, func(s *xconf.Settings) { s.Metrics.Exporter = exporter })
	if err != nil {
		return err
	}

	root := cmd.Root()
	st, err := newStack(s, stackIO{metrics: root.Writer, logs: root.ErrWriter})
	if err != nil {
		return err
	}
	resp := st.executor.Execute(ctx, req)
	writeErr := writeJSON(root.Writer, resp)
	// Close 触发 PeriodicReader 的最后一次导出
	return errors.Join(writeErr, st.Close(context.WithoutCancel(ctx)))
}

func cmdSignature(_ context.Context, cmd *cli.Command) error {
	query := cmd.String("query")
	if query == "" {
		return usageErrorf("--query is required")
	}
	sig, err := xgqlsig.Compute(nil, query, cmd.String("operation-name"))
	if err != nil {
		return fmt.Errorf("compute signature: %w", err)
	}
	w := cmd.Root().Writer
	fmt.Fprintf(w, "hash: %s\n", sig.Hash)
	fmt.Fprintln(w, sig.Signature)
	return nil
}

func cmdServe(ctx context.Context, cmd *cli.Command) error {
	s, err := loadSettings(cmd, nil)
	if err != nil {
		return err
	}
	root := cmd.Root()
	st, err := newStack(s, stackIO{metrics: root.Writer, logs: root.ErrWriter})
	if err != nil {
		return err
	}
	defer func() { _ = st.Close(context.Background()) }()

	if path := root.String("config"); path != "" {
		w, werr := xconf.Watch(path, reloadLogLevel(st.logger, root.String("log-level")))
		if werr != nil {
			return werr
		}
		w.Start()
		defer func() { _ = w.Stop() }()
	}

	ln, err := net.Listen("tcp", cmd.String("addr"))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	srv := &http.Server{
		Handler:           newHandler(st),
		ReadHeaderTimeout: 5 * time.Second,
	}

	st.logger.Info(ctx, "serving", xlog.Component(appName),
		slog.String("addr", ln.Addr().String()))
	return serveUntilDone(ctx, srv, ln, cmd.Duration("shutdown-timeout"))
}

// serveUntilDone 运行 srv 直到 ctx 取消，随后在 timeout 内优雅关闭。
func serveUntilDone(ctx context.Context, srv *http.Server, ln net.Listener, timeout time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), timeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// reloadLogLevel 返回配置变更回调：只热更新日志级别，其余配置需重启生效。
// 命令行显式指定的级别优先于文件。
func reloadLogLevel(logger xlog.LoggerWithLevel, pinned string) xconf.WatchCallback {
	return func(s xconf.Settings, err error) {
		ctx := context.Background()
		if err != nil {
			logger.Warn(ctx, "config reload failed, keeping previous settings", xlog.Err(err))
			return
		}
		if pinned != "" {
			return
		}
		lvl, err := xlog.ParseLevel(s.Log.Level)
		if err != nil {
			logger.Warn(ctx, "invalid log level in reloaded config", xlog.Err(err))
			return
		}
		if logger.GetLevel() != lvl {
			logger.SetLevel(lvl)
			logger.Info(ctx, "log level changed", slog.String("level", s.Log.Level))
		}
	}
}

func requestFromFlags(cmd *cli.Command) (gqlexec.Request, error) {
	req := gqlexec.Request{
		Query:         cmd.String("query"),
		OperationName: cmd.String("operation-name"),
	}
	if req.Query == "" && cmd.String("extensions") == "" {
		return req, usageErrorf("--query is required")
	}
	if err := decodeObject(cmd.String("variables"), &req.Variables); err != nil {
		return req, usageErrorf("--variables: %v", err)
	}
	if err := decodeObject(cmd.String("extensions"), &req.Extensions); err != nil {
		return req, usageErrorf("--extensions: %v", err)
	}
	return req, nil
}

func decodeObject(raw string, dst *map[string]any) error {
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), dst)
}
