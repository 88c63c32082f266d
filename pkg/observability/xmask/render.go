package xmask

import (
	"bytes"
	"encoding"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
)

// maxDepth 渲染时的最大嵌套深度，超过视为循环引用。
const maxDepth = 32

var (
	jsonMarshalerType = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
)

// =============================================================================
// 反射渲染：任意值 -> JSON 形状的树，渲染过程中应用规则
// =============================================================================

// toTree 将 v 转为由 map[string]any、[]any、string、bool、数字、nil 组成的树。
// 结构体字段先走权威规则，没有显式规则的字段与 map 键再走启发式判定。
func (m *Masker) toTree(v reflect.Value, depth int) (any, error) {
	if depth > maxDepth {
		return nil, ErrTooDeep
	}
	if !v.IsValid() {
		return nil, nil
	}
	if k := v.Kind(); (k == reflect.Pointer || k == reflect.Interface) && v.IsNil() {
		return nil, nil
	}
	if v.CanInterface() {
		if v.Type().Implements(jsonMarshalerType) {
			return m.fromJSONMarshaler(v, depth)
		}
		if v.Type().Implements(textMarshalerType) {
			b, err := v.Interface().(encoding.TextMarshaler).MarshalText()
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrUnsupportedValue, v.Type(), err)
			}
			return string(b), nil
		}
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		return m.toTree(v.Elem(), depth+1)
	case reflect.Struct:
		out := make(map[string]any, v.NumField())
		if err := m.structInto(out, v, depth, true); err != nil {
			return nil, err
		}
		return out, nil
	case reflect.Map:
		return m.mapTree(v, depth)
	case reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return base64.StdEncoding.EncodeToString(v.Bytes()), nil
		}
		return m.listTree(v, depth)
	case reflect.Array:
		return m.listTree(v, depth)
	case reflect.String:
		return v.String(), nil
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint(), nil
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return strconv.FormatFloat(f, 'g', -1, 64), nil
		}
		return f, nil
	case reflect.Complex64, reflect.Complex128:
		return strconv.FormatComplex(v.Complex(), 'g', -1, 128), nil
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return placeholder(v), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedValue, v.Type())
	}
}

// placeholder JSON 无法表达的值（函数、通道、unsafe 指针）只输出类型名，nil 输出 null。
func placeholder(v reflect.Value) any {
	if v.IsNil() {
		return nil
	}
	return "<" + v.Type().String() + ">"
}

func (m *Masker) fromJSONMarshaler(v reflect.Value, depth int) (any, error) {
	b, err := v.Interface().(json.Marshaler).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnsupportedValue, v.Type(), err)
	}
	tree, err := decodeJSON(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnsupportedValue, v.Type(), err)
	}
	return m.maskTree(tree, depth), nil
}

// structInto 将结构体字段写入 out。overwrite=false 用于展开嵌入结构体：
// 外层同名字段优先。
func (m *Masker) structInto(out map[string]any, v reflect.Value, depth int, overwrite bool) error {
	tr := m.catalog.rulesFor(v.Type())
	for _, f := range tr.fields {
		fv := v.Field(f.index)
		if f.embedded {
			for fv.Kind() == reflect.Pointer {
				if fv.IsNil() {
					fv = reflect.Value{}
					break
				}
				fv = fv.Elem()
			}
			if !fv.IsValid() {
				continue
			}
			if err := m.structInto(out, fv, depth+1, false); err != nil {
				return err
			}
			continue
		}
		if !overwrite {
			if _, exists := out[f.name]; exists {
				continue
			}
		}
		if f.omitEmpty && isEmptyValue(fv) {
			continue
		}
		node, err := m.fieldNode(fv, f, depth)
		if err != nil {
			return err
		}
		out[f.name] = node
	}
	return nil
}

func (m *Masker) fieldNode(fv reflect.Value, f fieldInfo, depth int) (any, error) {
	node, err := m.toTree(fv, depth+1)
	if err != nil {
		return nil, err
	}
	if f.hasRule {
		if f.rule.IsSkip() {
			return node, nil
		}
		return applyRule(node, f.rule), nil
	}
	if isTerminal(node) && (m.catalog.IsSensitive(f.name) || m.catalog.IsSensitive(f.goName)) {
		return Token, nil
	}
	return node, nil
}

func (m *Masker) mapTree(v reflect.Value, depth int) (any, error) {
	if v.IsNil() {
		return nil, nil
	}
	out := make(map[string]any, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		key, err := mapKey(iter.Key())
		if err != nil {
			return nil, err
		}
		node, err := m.toTree(iter.Value(), depth+1)
		if err != nil {
			return nil, err
		}
		if isTerminal(node) && m.catalog.IsSensitive(key) {
			node = Token
		}
		out[key] = node
	}
	return out, nil
}

func (m *Masker) listTree(v reflect.Value, depth int) (any, error) {
	out := make([]any, v.Len())
	for i := range v.Len() {
		node, err := m.toTree(v.Index(i), depth+1)
		if err != nil {
			return nil, err
		}
		out[i] = node
	}
	return out, nil
}

func mapKey(k reflect.Value) (string, error) {
	if k.Kind() == reflect.String {
		return k.String(), nil
	}
	if k.CanInterface() && k.Type().Implements(textMarshalerType) {
		if k.Kind() == reflect.Pointer && k.IsNil() {
			return "", nil
		}
		b, err := k.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return "", fmt.Errorf("%w: map key %s: %w", ErrUnsupportedValue, k.Type(), err)
		}
		return string(b), nil
	}
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), nil
	default:
		return "", fmt.Errorf("%w: map key %s", ErrUnsupportedValue, k.Type())
	}
}

// isEmptyValue 与 encoding/json 的 omitempty 语义一致。
func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Interface, reflect.Pointer:
		return v.IsZero()
	default:
		return false
	}
}

// =============================================================================
// JSON 树遍历
// =============================================================================

// maskTree 深度优先遍历 JSON 树并返回遮蔽后的副本。
// 对象节点：键命中启发式且值为终端值时替换为 Token，否则递归；
// 数组逐元素递归，不做键匹配。超过 maxDepth 的子树整体替换为 Token。
func (m *Masker) maskTree(node any, depth int) any {
	if depth > maxDepth {
		return Token
	}
	switch n := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, v := range n {
			if isTerminal(v) && m.catalog.IsSensitive(k) {
				out[k] = Token
				continue
			}
			out[k] = m.maskTree(v, depth+1)
		}
		return out
	case []any:
		out := make([]any, len(n))
		for i, e := range n {
			out[i] = m.maskTree(e, depth+1)
		}
		return out
	default:
		return node
	}
}

func isTerminal(node any) bool {
	switch node.(type) {
	case string, bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

func terminalString(node any) (string, bool) {
	switch n := node.(type) {
	case string:
		return n, true
	case bool:
		return strconv.FormatBool(n), true
	case json.Number:
		return n.String(), true
	case int64:
		return strconv.FormatInt(n, 10), true
	case uint64:
		return strconv.FormatUint(n, 10), true
	case float64:
		return strconv.FormatFloat(n, 'g', -1, 64), true
	default:
		if isTerminal(node) {
			return fmt.Sprint(node), true
		}
		return "", false
	}
}

// applyRule 对节点应用显式规则。非终端节点（对象、数组）整体替换为 Token，null 保持不变。
func applyRule(node any, r Rule) any {
	if node == nil {
		return nil
	}
	if s, ok := terminalString(node); ok {
		return r.Apply(s)
	}
	return Token
}

// =============================================================================
// 编解码
// =============================================================================

var errTrailingData = errors.New("xmask: trailing data after JSON value")

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	return v, nil
}

func render(tree any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tree); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
