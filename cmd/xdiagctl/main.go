// xdiagctl 是 xdiag 组件的命令行工具。
//
// 用法:
//
//	xdiagctl <命令> [命令参数]
//
// 命令:
//
//	mask [文件]        脱敏 JSON 或文本（默认读取 stdin）
//	errcode <类型名>   计算错误类型对应的错误码
//	check <配置文件>   加载并校验配置
//	serve              启动演示用的候选人申请服务
//
// 退出码:
//
//	0: 成功
//	1: 命令执行失败
//	2: 参数错误
//
// 示例:
//
//	echo '{"user":"bob","password":"x"}' | xdiagctl mask
//	xdiagctl errcode 'errors.errorString:not found'
//	xdiagctl serve --config xdiag.yaml --addr :8080
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
)

// 版本信息（可通过 -ldflags 注入）
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdin, os.Stdout, os.Stderr))
}

// createApp 创建 CLI 应用
func createApp(stdin io.Reader, stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "xdiagctl",
		Usage:     "xdiag 脱敏、错误码与演示服务工具",
		Version:   fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		Commands: []*cli.Command{
			createMaskCommand(),
			createErrcodeCommand(),
			createCheckCommand(),
			createServeCommand(),
		},
		// 由 run 统一映射退出码，不让 urfave/cli 直接 os.Exit
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(stderr, err)
			}
		},
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	app := createApp(stdin, stdout, stderr)
	if err := app.Run(ctx, args); err != nil {
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(stderr, "参数错误: %v\n", usageErr)
			return 2
		}
		if isCLIUsageError(err) {
			return 2
		}
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}

// usageError 参数错误，退出码 2
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// isCLIUsageError 识别 urfave/cli 产生的参数错误（未知 flag、缺少 flag 值等）
func isCLIUsageError(err error) bool {
	if _, ok := err.(cli.ExitCoder); ok {
		return true
	}
	msg := err.Error()
	for _, prefix := range []string{"flag provided but not defined", "flag needs an argument", "invalid value", "No help topic for"} {
		if strings.Contains(msg, prefix) {
			return true
		}
	}
	return false
}
