package xexec

import (
	"regexp"
	"strconv"
	"time"
)

// SlowMarker 超过慢调用阈值时追加到消息末尾
const SlowMarker = " (SLOW)"

var placeholderRe = regexp.MustCompile(`\$\{([^}]*)\}`)

// renderTemplate 用已捕获参数替换 ${name}，未知占位符保持原样
func renderTemplate(tmpl string, args map[string]string) string {
	if tmpl == "" {
		return ""
	}
	return placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := m[2 : len(m)-1]
		if v, ok := args[name]; ok {
			return v
		}
		return m
	})
}

// successMessage 模板或 "<method> completed in Nms"，超阈值追加 SlowMarker
func successMessage(l Loggable, method string, args map[string]string, elapsed time.Duration, slow bool) string {
	msg := renderTemplate(l.Message, args)
	if msg == "" {
		msg = method + " completed"
		if l.LogExecutionTime {
			msg += " in " + formatMs(elapsed)
		}
	}
	if slow {
		msg += SlowMarker
	}
	return msg
}

// failureMessage 模板或 "<method> failed in Nms"，附加错误消息
func failureMessage(l Loggable, method string, args map[string]string, elapsed time.Duration, errMsg string) string {
	msg := renderTemplate(l.Message, args)
	if msg == "" {
		msg = method + " failed"
		if l.LogExecutionTime {
			msg += " in " + formatMs(elapsed)
		}
	}
	if l.LogErrors && errMsg != "" {
		msg += ": " + errMsg
	}
	return msg
}

func formatMs(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
}
