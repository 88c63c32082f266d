package xmask

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// TagName 结构体标签名。
const TagName = "mask"

// DefaultTerms 启发式敏感字段词表（小写）。
//
// 判定为子串包含而非整词匹配：oldPassword、apiKey、x-auth-token 均命中。
// 代价是误报（如 author 命中 auth），遮蔽方向的误报是可接受的。
var DefaultTerms = []string{
	"password", "passwd", "pwd", "token", "secret", "credential",
	"key", "auth", "credit", "card", "cvv", "ssn", "passport",
	"license", "pin", "bearer", "session", "cookie", "private",
}

// Catalog 敏感字段目录。
//
// 两条判定通道：
//   - 启发式：字段名/键名/参数名小写后包含任一词表项
//   - 权威式：结构体 mask 标签或 Register 登记的表，优先于启发式
//
// 每个 reflect.Type 的规则在首次使用时扫描一次并永久缓存，之后只读。
type Catalog struct {
	terms []string

	types sync.Map // reflect.Type -> *typeRules
	sf    singleflight.Group

	mu         sync.RWMutex
	registered map[reflect.Type]map[string]Rule
}

// CatalogOption Catalog 配置选项。
type CatalogOption func(*Catalog)

// WithTerms 替换启发式词表。空白项会被忽略，全部转为小写。
func WithTerms(terms ...string) CatalogOption {
	return func(c *Catalog) {
		c.terms = normalizeTerms(terms)
	}
}

// WithExtraTerms 在默认词表基础上追加词项。
func WithExtraTerms(terms ...string) CatalogOption {
	return func(c *Catalog) {
		c.terms = normalizeTerms(append(slices.Clone(c.terms), terms...))
	}
}

// NewCatalog 创建敏感字段目录。
func NewCatalog(opts ...CatalogOption) *Catalog {
	c := &Catalog{
		terms:      normalizeTerms(DefaultTerms),
		registered: make(map[reflect.Type]map[string]Rule),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Terms 返回启发式词表副本。
func (c *Catalog) Terms() []string {
	return slices.Clone(c.terms)
}

// IsSensitive 启发式判定：name 小写后是否包含任一词项。
func (c *Catalog) IsSensitive(name string) bool {
	return containsTerm(name, c.terms)
}

// Register 为类型登记显式规则表，键为 Go 字段名。
//
// 登记表是权威通道之一，与同字段的 mask 标签冲突时以登记表为准。
// t 可以是结构体或指向结构体的指针类型。应在启动阶段调用，
// 登记会使该类型已缓存的扫描结果失效。
func (c *Catalog) Register(t reflect.Type, rules map[string]Rule) error {
	if t == nil {
		return ErrNilType
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("%w: %s", ErrNotStruct, t)
	}
	var errs []error
	table := make(map[string]Rule, len(rules))
	for name, r := range rules {
		if _, ok := t.FieldByName(name); !ok {
			errs = append(errs, fmt.Errorf("%w: %s.%s", ErrUnknownField, t, name))
			continue
		}
		if r.Strategy == StrategyPattern && r.re == nil {
			compiled, err := Pattern(r.Pattern)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s.%s: %w", t, name, err))
				continue
			}
			r = compiled
		}
		table[name] = r
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	c.mu.Lock()
	c.registered[t] = table
	c.mu.Unlock()
	c.types.Delete(t)
	return nil
}

// Validate 检查 v 的类型（及其嵌入结构体）上全部 mask 标签是否合法。
//
// 运行时扫描遇到非法标签会退化为整体遮蔽而不报错；
// Validate 用于在启动或测试阶段尽早暴露这类问题。
func (c *Catalog) Validate(v any) error {
	t := reflect.TypeOf(v)
	if t == nil {
		return ErrNilType
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("%w: %s", ErrNotStruct, t)
	}
	return errors.Join(c.rulesFor(t).errs...)
}

// FieldRule 返回结构体字段的显式规则（登记表或标签）。
func (c *Catalog) FieldRule(t reflect.Type, field string) (Rule, bool) {
	if t == nil {
		return Rule{}, false
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return Rule{}, false
	}
	for _, f := range c.rulesFor(t).fields {
		if f.goName == field && f.hasRule {
			return f.rule, true
		}
	}
	return Rule{}, false
}

// =============================================================================
// 类型扫描
// =============================================================================

// fieldInfo 单个导出字段的渲染信息。
type fieldInfo struct {
	index     int
	goName    string
	name      string // 输出键名（json 标签优先）
	omitEmpty bool
	embedded  bool // 匿名结构体字段且无 json 名，渲染时展开
	hasRule   bool
	rule      Rule
}

type typeRules struct {
	fields []fieldInfo
	errs   []error
}

func (c *Catalog) rulesFor(t reflect.Type) *typeRules {
	if v, ok := c.types.Load(t); ok {
		return v.(*typeRules)
	}
	_, _, _ = c.sf.Do(t.PkgPath()+"."+t.String(), func() (any, error) {
		if _, ok := c.types.Load(t); !ok {
			c.types.Store(t, c.scan(t))
		}
		return nil, nil
	})
	if v, ok := c.types.Load(t); ok {
		return v.(*typeRules)
	}
	// 同名不同类型（如函数内局部类型）共享了 singleflight 键
	tr := c.scan(t)
	c.types.Store(t, tr)
	return tr
}

func (c *Catalog) scan(t reflect.Type) *typeRules {
	c.mu.RLock()
	table := c.registered[t]
	c.mu.RUnlock()

	tr := &typeRules{fields: make([]fieldInfo, 0, t.NumField())}
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() && !sf.Anonymous {
			continue
		}
		jsonName, opts, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if jsonName == "-" && opts == "" {
			continue
		}

		fi := fieldInfo{
			index:     i,
			goName:    sf.Name,
			name:      sf.Name,
			omitEmpty: strings.Contains(opts, "omitempty"),
		}
		if jsonName != "" {
			fi.name = jsonName
		}

		if sf.Anonymous && jsonName == "" {
			ft := sf.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				fi.embedded = true
			} else if !sf.IsExported() {
				continue
			}
		}

		if r, ok := table[sf.Name]; ok {
			fi.rule, fi.hasRule = r, true
		} else if tag, ok := sf.Tag.Lookup(TagName); ok {
			r, found, err := ParseTag(tag)
			switch {
			case err != nil:
				tr.errs = append(tr.errs, fmt.Errorf("%s.%s: %w", t, sf.Name, err))
				fi.rule, fi.hasRule = Full(), true
			case found:
				fi.rule, fi.hasRule = r, true
			}
		}
		tr.fields = append(tr.fields, fi)
	}
	return tr
}

// =============================================================================
// 词表工具
// =============================================================================

func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

// containsTerm 判断 name 小写后是否包含 terms 中任一项（terms 需已小写）。
func containsTerm(name string, terms []string) bool {
	if name == "" {
		return false
	}
	lower := strings.ToLower(name)
	for _, t := range terms {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

// ContainsAny 判断 name 小写后是否包含 fragments 中任一项（大小写不敏感）。
// 供参数名过滤等场景复用同一匹配语义。
func ContainsAny(name string, fragments []string) bool {
	if name == "" || len(fragments) == 0 {
		return false
	}
	lower := strings.ToLower(name)
	for _, f := range fragments {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" && strings.Contains(lower, f) {
			return true
		}
	}
	return false
}
