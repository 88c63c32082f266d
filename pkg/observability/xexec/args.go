package xexec

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/omeyang/xdiag/pkg/observability/xmask"
)

// capturedArgs 参数名 → 渲染值，以及按参数顺序拼接的摘要
type capturedArgs struct {
	values  map[string]string
	summary string
}

// captureArgs 逐个渲染参数：
//   - 名称命中敏感片段 → xmask.Token
//   - 基本类型（字符串、布尔、数值）→ 原值
//   - 其他 → Masker.MaskValue
//
// 每个值按 maxLen 截断。
func captureArgs(params []Param, sensitive []string, m *xmask.Masker, maxLen int) capturedArgs {
	if len(params) == 0 {
		return capturedArgs{}
	}
	values := make(map[string]string, len(params))
	var b strings.Builder
	for i, p := range params {
		v := xmask.Truncate(renderArg(p, sensitive, m), maxLen)
		values[p.Name] = v
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
		b.WriteByte('=')
		b.WriteString(v)
	}
	return capturedArgs{values: values, summary: b.String()}
}

func renderArg(p Param, sensitive []string, m *xmask.Masker) string {
	if xmask.ContainsAny(p.Name, sensitive) {
		return xmask.Token
	}
	if p.Value == nil {
		return "null"
	}
	if s, ok := primitiveString(p.Value); ok {
		return s
	}
	return m.MaskValue(p.Value)
}

// primitiveString 基本类型（含以其为底层类型的命名类型）直接格式化
func primitiveString(v any) (string, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return fmt.Sprint(v), true
	default:
		return "", false
	}
}
