package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xdiag/pkg/config/xconf"
	"github.com/omeyang/xdiag/pkg/observability/xexec"
	"github.com/omeyang/xdiag/pkg/observability/xmask"
)

// =============================================================================
// mask
// =============================================================================

// createMaskCommand 创建 mask 子命令
func createMaskCommand() *cli.Command {
	return &cli.Command{
		Name:      "mask",
		Usage:     "脱敏 JSON 或文本",
		ArgsUsage: "[file]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "输入格式: auto、json、text",
				Value:   "auto",
			},
			&cli.StringSliceFlag{
				Name:  "term",
				Usage: "追加的敏感字段词项（可重复）",
			},
			&cli.IntFlag{
				Name:  "max",
				Usage: "输出截断长度，0 表示不截断",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			in, closeFn, err := openInput(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			m := xmask.New(xmask.WithCatalog(xmask.NewCatalog(xmask.WithExtraTerms(cmd.StringSlice("term")...))))
			return cmdMask(in, cmd.Root().Writer, m, cmd.String("format"), int(cmd.Int("max")))
		},
	}
}

func openInput(cmd *cli.Command) (io.Reader, func(), error) {
	switch cmd.Args().Len() {
	case 0:
		return cmd.Root().Reader, func() {}, nil
	case 1:
		path := cmd.Args().First()
		if path == "-" {
			return cmd.Root().Reader, func() {}, nil
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return f, func() { _ = f.Close() }, nil
	default:
		return nil, nil, usagef("mask 最多接受一个文件参数")
	}
}

// cmdMask 按格式脱敏 in 并写入 out。
//
// auto 模式下整体是合法 JSON 时按 JSON 处理，否则逐行按文本处理。
func cmdMask(in io.Reader, out io.Writer, m *xmask.Masker, format string, maxLen int) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "auto":
		if json.Valid(data) {
			format = "json"
		} else {
			format = "text"
		}
	case "json", "text":
	default:
		return usagef("未知格式 %q", format)
	}

	if format == "json" {
		masked, err := m.MaskJSON(data)
		if err != nil {
			return fmt.Errorf("mask json: %w", err)
		}
		_, err = fmt.Fprintln(out, xmask.Truncate(string(masked), maxLen))
		return err
	}

	sc := bufio.NewScanner(strings.NewReader(string(data)))
	sc.Buffer(make([]byte, 64*1024), len(data)+1)
	for sc.Scan() {
		if _, err := fmt.Fprintln(out, xmask.Truncate(m.MaskText(sc.Text()), maxLen)); err != nil {
			return err
		}
	}
	return sc.Err()
}

// =============================================================================
// errcode
// =============================================================================

// createErrcodeCommand 创建 errcode 子命令
func createErrcodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "errcode",
		Usage:     "计算错误键对应的错误码（自定义类型为类型名，哨兵错误为 类型名:根消息）",
		ArgsUsage: "<key> [key...]",
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() == 0 {
				return usagef("errcode 需要至少一个错误键")
			}
			for _, name := range cmd.Args().Slice() {
				if _, err := fmt.Fprintf(cmd.Root().Writer, "%s\t%s\n", xexec.ErrorCode(name), name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// =============================================================================
// check
// =============================================================================

// createCheckCommand 创建 check 子命令
func createCheckCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "加载并校验配置文件，输出生效值",
		ArgsUsage: "<file>",
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return usagef("check 需要一个配置文件参数")
			}
			s, _, err := xconf.LoadSettings(cmd.Args().First())
			if err != nil {
				return err
			}
			return printSettings(cmd.Root().Writer, s)
		},
	}
}

func printSettings(w io.Writer, s xconf.Settings) error {
	lines := []string{
		fmt.Sprintf("log.level=%s", s.Log.Level),
		fmt.Sprintf("log.format=%s", s.Log.Format),
		fmt.Sprintf("log.file=%s", s.Log.File),
		fmt.Sprintf("log.mask=%t", s.Log.Mask),
		fmt.Sprintf("interceptor.level=%s", s.Interceptor.Level),
		fmt.Sprintf("interceptor.failure_level=%s", s.Interceptor.FailureLevel),
		fmt.Sprintf("interceptor.slow_threshold=%s", s.Interceptor.SlowThreshold),
		fmt.Sprintf("interceptor.max_content_length=%d", s.Interceptor.MaxContentLength),
		fmt.Sprintf("interceptor.sensitive_params=%s", strings.Join(s.Interceptor.SensitiveParams, ",")),
		fmt.Sprintf("request.correlation_header=%s", s.Request.CorrelationHeader),
		fmt.Sprintf("request.exempt_prefixes=%s", strings.Join(s.Request.ExemptPrefixes, ",")),
		fmt.Sprintf("request.access_log=%t", s.Request.AccessLog),
		fmt.Sprintf("async.workers=%d", s.Async.Workers),
		fmt.Sprintf("async.queue_size=%d", s.Async.QueueSize),
		fmt.Sprintf("async.saturation=%s", s.Async.Saturation),
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}
