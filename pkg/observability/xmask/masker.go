package xmask

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Masker 遮蔽器：对结构化数据、对象与自由文本做脱敏。
//
// Masker 无可变状态，可在多个 goroutine 间共享。
type Masker struct {
	catalog *Catalog
	// pairs 由目录词表生成的 key:value / key=value 规则，仅用于兜底渲染
	pairs *regexp.Regexp
}

// Option Masker 配置选项。
type Option func(*Masker)

// WithCatalog 指定敏感字段目录，nil 忽略。
func WithCatalog(c *Catalog) Option {
	return func(m *Masker) {
		if c != nil {
			m.catalog = c
		}
	}
}

// New 创建 Masker。未指定目录时使用 DefaultTerms 构建的新目录。
func New(opts ...Option) *Masker {
	m := &Masker{}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	if m.catalog == nil {
		m.catalog = NewCatalog()
	}
	m.pairs = pairPattern(m.catalog.Terms())
	return m
}

// pairPattern 匹配键名包含任一词表项的 key:value / key=value 片段。
// 词表为空时返回 nil。
func pairPattern(terms []string) *regexp.Regexp {
	if len(terms) == 0 {
		return nil
	}
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = regexp.QuoteMeta(t)
	}
	return regexp.MustCompile(`(?i)\b([\w.-]*(?:` + strings.Join(quoted, "|") +
		`)[\w.-]*\s*[:=]\s*["']?)([^\s,;&"'})\]]+)`)
}

var std = New()

// Default 返回包级默认 Masker。
func Default() *Masker { return std }

// Catalog 返回 Masker 使用的目录。
func (m *Masker) Catalog() *Catalog { return m.catalog }

// IsSensitive 启发式判定名称是否敏感。
func (m *Masker) IsSensitive(name string) bool {
	return m.catalog.IsSensitive(name)
}

// =============================================================================
// 自由文本
// =============================================================================

// textRules 自由文本替换规则，按顺序应用，只替换值部分。
var textRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	// "password":"..."
	{
		re:   regexp.MustCompile(`(?i)("[^"]*(?:password|token|secret)[^"]*"\s*:\s*")((?:[^"\\]|\\.)*)(")`),
		repl: "${1}" + Token + "${3}",
	},
	// password=...  token: ...
	{
		re:   regexp.MustCompile(`(?i)\b([\w.-]*(?:password|token|secret)[\w.-]*\s*[:=]\s*["']?)([^\s,;&"'})\]]+)`),
		repl: "${1}" + Token,
	},
	// Bearer xxx
	{
		re:   regexp.MustCompile(`(?i)\b(bearer\s+)([A-Za-z0-9\-._~+/]+=*)`),
		repl: "${1}" + Token,
	},
}

// MaskText 替换自由文本中 password/token/secret 键值片段的值部分。
func (m *Masker) MaskText(s string) string {
	if s == "" {
		return s
	}
	for _, r := range textRules {
		s = r.re.ReplaceAllString(s, r.repl)
	}
	return s
}

// =============================================================================
// 结构化数据
// =============================================================================

// MaskJSON 解析 JSON 并返回遮蔽后的 JSON。
//
// 对象键按字典序输出；数字保持原始写法。输入不是合法 JSON 时返回错误。
func (m *Masker) MaskJSON(data []byte) ([]byte, error) {
	tree, err := decodeJSON(data)
	if err != nil {
		return nil, err
	}
	return render(m.maskTree(tree, 0))
}

// MaskJSONString 与 MaskJSON 相同，解析失败时退化为 MaskText。
func (m *Masker) MaskJSONString(s string) string {
	out, err := m.MaskJSON([]byte(s))
	if err != nil {
		return m.MaskText(s)
	}
	return string(out)
}

// MaskTree 遮蔽已解码的 JSON 树（map[string]any / []any），返回副本，不修改输入。
func (m *Masker) MaskTree(v any) any {
	return m.maskTree(v, 0)
}

// MaskValue 将任意值渲染为遮蔽后的字符串。
//
// 渲染顺序：
//   - nil -> "null"
//   - string：形如 JSON 时按 JSON 遮蔽，否则按自由文本遮蔽
//   - error：错误消息按自由文本遮蔽
//   - 其他：反射渲染为 JSON，渲染过程中应用权威规则与启发式规则
//
// 函数、通道等 JSON 无法表达的字段输出类型名占位，不影响其他字段。
// 渲染失败（循环引用、Marshaler 出错）时退化为 fmt 文本形式，按目录的完整词表
// 遮蔽 key:value 片段；仍失败（如 String 方法 panic）时输出 "类型名@标识"。
// 任何情况下都不返回未经遮蔽的原始数据，也不会 panic。
func (m *Masker) MaskValue(v any) (out string) {
	if v == nil {
		return "null"
	}
	defer func() {
		if r := recover(); r != nil {
			out = m.fallback(v)
		}
	}()

	switch x := v.(type) {
	case string:
		return m.maskString(x)
	case json.RawMessage:
		return m.MaskJSONString(string(x))
	case error:
		return m.MaskText(x.Error())
	}

	tree, err := m.toTree(reflect.ValueOf(v), 0)
	if err == nil {
		if b, err := render(tree); err == nil {
			return string(b)
		}
	}
	return m.fallback(v)
}

func (m *Masker) maskString(s string) string {
	t := strings.TrimSpace(s)
	if len(t) > 1 && (t[0] == '{' || t[0] == '[') && json.Valid([]byte(t)) {
		return m.MaskJSONString(t)
	}
	return m.MaskText(s)
}

func (m *Masker) fallback(v any) (out string) {
	defer func() {
		if recover() != nil {
			out = identity(v)
		}
	}()
	out = m.MaskText(fmt.Sprintf("%+v", v))
	if m.pairs != nil {
		out = m.pairs.ReplaceAllString(out, "${1}"+Token)
	}
	return out
}

// identity 返回 "类型名@地址"，非引用类型地址为 0。
func identity(v any) string {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return "nil"
	}
	var addr uintptr
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		addr = rv.Pointer()
	}
	return fmt.Sprintf("%s@%x", rv.Type().String(), addr)
}

// =============================================================================
// HTTP 头与截断
// =============================================================================

// MaskHeaders 将 HTTP 头渲染为单值映射：敏感头整体替换为 Token，
// 其余多值以 ", " 拼接后做文本遮蔽。
func (m *Masker) MaskHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if m.IsSensitive(name) {
			out[name] = Token
			continue
		}
		out[name] = m.MaskText(strings.Join(values, ", "))
	}
	return out
}

// TruncatedSuffix 截断后追加的标记。
const TruncatedSuffix = "...(truncated)"

// Truncate 按字符数截断 s，超出 maxLen 时保留前 maxLen 个字符并追加 TruncatedSuffix。
// maxLen <= 0 表示不截断。
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + TruncatedSuffix
}
