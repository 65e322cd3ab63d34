// xgqldemo 在内置的演示 schema 上执行 GraphQL 请求，演示 xgql 埋点与指标导出。
//
// 用法:
//
//	xgqldemo [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config     配置文件路径（.yaml/.yml/.json），缺省使用内置默认值
//	--log-level      覆盖配置中的日志级别 (debug/info/warn/error)
//
// 命令:
//
//	run              执行一次查询，打印响应，退出前刷新指标
//	serve            启动 HTTP 服务：POST /graphql 与 GET /metrics
//	signature        打印查询的规范化签名与哈希
//
// 退出码:
//
//	0: 成功
//	1: 执行失败（配置加载、端口占用、查询语法错误等）
//	2: 参数错误（缺少 --query、非法 flag、未知命令等）
//
// 示例:
//
//	xgqldemo run -q '{ ping }'
//	xgqldemo run -q 'query Q($id: ID!) { user(id: $id) { name } }' --variables '{"id":"1"}'
//	xgqldemo -c xgql.yaml serve --addr :8080
//	xgqldemo signature -q 'query A { user(id: 1) { name id } }'
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xgql/pkg/config/xconf"
	"github.com/omeyang/xgql/pkg/observability/xlog"
)

const appName = "xgqldemo"

// 版本信息（可通过 -ldflags 注入，例如:
//
//	go build -ldflags "-X main.Version=1.0.0 -X main.GitCommit=$(git rev-parse --short HEAD)"
//
// ）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// createApp 创建 CLI 应用。
func createApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      appName,
		Usage:     "xgql GraphQL 埋点演示",
		Version:   fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "覆盖配置中的日志级别",
			},
		},
		Commands: []*cli.Command{
			createRunCommand(),
			createServeCommand(),
			createSignatureCommand(),
		},
		// 设计决策: 不让 urfave/cli 直接 os.Exit，退出码统一由 run() 映射。
		ExitErrHandler: func(_ context.Context, cmd *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(cmd.Root().ErrWriter, err)
			}
		},
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := createApp(stdout, stderr)
	if err := app.Run(ctx, args); err != nil {
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(stderr, "参数错误: %v\n", usageErr)
			return 2
		}
		if isCLIUsageError(err) {
			// 错误详情已由 flag 解析器或 ExitErrHandler 输出
			return 2
		}
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}

// usageError 命令参数错误，退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usageErrorf(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// isCLIUsageError 识别 urfave/cli 自身产生的参数错误。
// cli/v3 未导出这类错误的类型，只能按消息前缀判断。
func isCLIUsageError(err error) bool {
	msg := err.Error()
	for _, prefix := range []string{
		"flag provided but not defined",
		"invalid value",
		"No help topic for",
		"Required flag",
		"flag needs an argument",
	} {
		if strings.Contains(msg, prefix) {
			return true
		}
	}
	return false
}

// loadSettings 加载配置文件（若指定），再叠加命令行覆盖并校验。
func loadSettings(cmd *cli.Command, override func(*xconf.Settings)) (xconf.Settings, error) {
	s := xconf.Default()
	if path := cmd.String("config"); path != "" {
		loaded, err := xconf.Load(path)
		if err != nil {
			return xconf.Settings{}, err
		}
		s = loaded
	}
	if lvl := cmd.String("log-level"); lvl != "" {
		if _, err := xlog.ParseLevel(lvl); err != nil {
			return xconf.Settings{}, usageErrorf("--log-level: %v", err)
		}
		s.Log.Level = lvl
	}
	if override != nil {
		override(&s)
	}
	if err := s.Validate(); err != nil {
		return xconf.Settings{}, err
	}
	return s, nil
}
