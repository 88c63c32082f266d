package xlog

import (
	"log/slog"

	"github.com/omeyang/xdiag/pkg/context/xctx"
	"github.com/omeyang/xdiag/pkg/observability/xmask"
)

// MaskAttrFunc 返回基于 xmask.Masker 的属性脱敏函数，可直接用于 SetReplaceAttr。
//
// 规则：
//   - 顶层 time/level/source 原样保留；msg 做文本遮蔽
//   - xctx 词表内的 key（correlation_id、session_id、args 等）原样保留
//   - key 命中启发式词表的非分组属性替换为 xmask.Token
//   - 字符串值做文本遮蔽；error 值遮蔽其消息；其他复杂值渲染为遮蔽后的 JSON
//   - stack 不处理
func MaskAttrFunc(m *xmask.Masker) ReplaceAttrFunc {
	if m == nil {
		m = xmask.Default()
	}
	return func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) == 0 {
			switch a.Key {
			case slog.TimeKey, slog.LevelKey, slog.SourceKey:
				return a
			case slog.MessageKey:
				return slog.String(a.Key, m.MaskText(a.Value.String()))
			}
		}
		if a.Key == KeyStack || xctx.IsVocabularyKey(a.Key) {
			return a
		}
		if m.IsSensitive(a.Key) {
			return slog.String(a.Key, xmask.Token)
		}
		switch a.Value.Kind() {
		case slog.KindString:
			return slog.String(a.Key, m.MaskText(a.Value.String()))
		case slog.KindAny:
			if err, ok := a.Value.Any().(error); ok {
				return slog.String(a.Key, m.MaskText(err.Error()))
			}
			return slog.String(a.Key, m.MaskValue(a.Value.Any()))
		default:
			return a
		}
	}
}

// chainReplaceAttr 依次应用多个替换函数，任一步返回空 key 即终止。
func chainReplaceAttr(fns ...ReplaceAttrFunc) ReplaceAttrFunc {
	active := make([]ReplaceAttrFunc, 0, len(fns))
	for _, fn := range fns {
		if fn != nil {
			active = append(active, fn)
		}
	}
	switch len(active) {
	case 0:
		return nil
	case 1:
		return active[0]
	}
	return func(groups []string, a slog.Attr) slog.Attr {
		for _, fn := range active {
			a = fn(groups, a)
			if a.Key == "" {
				return a
			}
		}
		return a
	}
}
