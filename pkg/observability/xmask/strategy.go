package xmask

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Token 完全遮蔽时的替换文本。
const Token = "********"

// Strategy 遮蔽策略。
type Strategy uint8

const (
	// StrategyNone 显式声明为非敏感（mask:"-"），覆盖启发式判断。
	StrategyNone Strategy = iota
	// StrategyFull 整体替换为 Token。
	StrategyFull
	// StrategyPartial 保留前 Prefix 个与后 Suffix 个字符，中间逐字符替换为 '*'。
	StrategyPartial
	// StrategyPattern 只替换正则命中的片段，每个字符替换为 '*'。
	StrategyPattern
	// StrategyEmail 保留域名：alice@example.com -> ***@example.com。
	StrategyEmail
)

// String 返回策略名称，与标签语法一致。
func (s Strategy) String() string {
	switch s {
	case StrategyNone:
		return "-"
	case StrategyFull:
		return "full"
	case StrategyPartial:
		return "partial"
	case StrategyPattern:
		return "pattern"
	case StrategyEmail:
		return "email"
	default:
		return "unknown(" + strconv.Itoa(int(s)) + ")"
	}
}

// Rule 一条字段遮蔽规则。
//
// 通过 Full/Partial/Pattern/Email/Skip 构造，或由 ParseTag 从结构体标签解析。
// 零值等价于 Skip()。
type Rule struct {
	Strategy Strategy
	Prefix   int
	Suffix   int
	Pattern  string

	re *regexp.Regexp
}

// Full 整体遮蔽规则。
func Full() Rule { return Rule{Strategy: StrategyFull} }

// Email 邮箱遮蔽规则。
func Email() Rule { return Rule{Strategy: StrategyEmail} }

// Skip 非敏感声明。
func Skip() Rule { return Rule{Strategy: StrategyNone} }

// Partial 部分遮蔽规则，prefix/suffix 为负数时按 0 处理。
func Partial(prefix, suffix int) Rule {
	return Rule{Strategy: StrategyPartial, Prefix: max(prefix, 0), Suffix: max(suffix, 0)}
}

// Pattern 正则遮蔽规则。编译结果在进程内按表达式缓存。
func Pattern(expr string) (Rule, error) {
	re, err := compilePattern(expr)
	if err != nil {
		return Rule{}, err
	}
	return Rule{Strategy: StrategyPattern, Pattern: expr, re: re}, nil
}

// IsSkip 判断规则是否为非敏感声明。
func (r Rule) IsSkip() bool { return r.Strategy == StrategyNone }

// Apply 对单个值应用规则。
//
// Skip 规则原样返回。任何无法按策略处理的输入（过短、格式不符、正则缺失）
// 都退化为 Token，不会泄漏原值。
func (r Rule) Apply(value string) string {
	switch r.Strategy {
	case StrategyNone:
		return value
	case StrategyPartial:
		return maskPartial(value, r.Prefix, r.Suffix)
	case StrategyPattern:
		re := r.re
		if re == nil {
			var err error
			if re, err = compilePattern(r.Pattern); err != nil {
				return Token
			}
		}
		return maskPattern(value, re)
	case StrategyEmail:
		return maskEmail(value)
	default:
		return Token
	}
}

// ParseTag 解析 mask 结构体标签。
//
// 语法：
//
//	mask:"full"
//	mask:"partial,<prefix>,<suffix>"
//	mask:"pattern,<regexp>"     正则中可以包含逗号
//	mask:"email"
//	mask:"-"
//
// 空标签返回 ok=false。
func ParseTag(tag string) (rule Rule, ok bool, err error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return Rule{}, false, nil
	}
	name, arg, _ := strings.Cut(tag, ",")
	switch strings.TrimSpace(name) {
	case "-":
		return Skip(), true, nil
	case "full":
		return Full(), true, nil
	case "email":
		return Email(), true, nil
	case "partial":
		p, s, found := strings.Cut(arg, ",")
		if !found {
			return Rule{}, false, fmt.Errorf("%w: %q: partial needs prefix and suffix", ErrInvalidTag, tag)
		}
		prefix, err1 := strconv.Atoi(strings.TrimSpace(p))
		suffix, err2 := strconv.Atoi(strings.TrimSpace(s))
		if err1 != nil || err2 != nil || prefix < 0 || suffix < 0 {
			return Rule{}, false, fmt.Errorf("%w: %q: prefix and suffix must be non-negative integers", ErrInvalidTag, tag)
		}
		return Partial(prefix, suffix), true, nil
	case "pattern":
		if arg == "" {
			return Rule{}, false, fmt.Errorf("%w: %q: empty pattern", ErrInvalidTag, tag)
		}
		r, err := Pattern(arg)
		if err != nil {
			return Rule{}, false, fmt.Errorf("%w: %q: %w", ErrInvalidTag, tag, err)
		}
		return r, true, nil
	default:
		return Rule{}, false, fmt.Errorf("%w: %q: unknown strategy", ErrInvalidTag, tag)
	}
}

// =============================================================================
// 策略实现
// =============================================================================

func maskPartial(value string, prefix, suffix int) string {
	n := utf8.RuneCountInString(value)
	if n <= prefix+suffix {
		return Token
	}
	runes := []rune(value)
	var b strings.Builder
	b.Grow(len(value))
	b.WriteString(string(runes[:prefix]))
	b.WriteString(strings.Repeat("*", n-prefix-suffix))
	b.WriteString(string(runes[n-suffix:]))
	return b.String()
}

func maskPattern(value string, re *regexp.Regexp) string {
	return re.ReplaceAllStringFunc(value, func(m string) string {
		return strings.Repeat("*", utf8.RuneCountInString(m))
	})
}

func maskEmail(value string) string {
	at := strings.LastIndex(value, "@")
	if at < 1 || at == len(value)-1 {
		return Token
	}
	return "***" + value[at:]
}

// =============================================================================
// 正则缓存
// =============================================================================

const patternCacheSize = 256

var patternCache = mustPatternCache()

func mustPatternCache() *lru.Cache[string, *regexp.Regexp] {
	c, err := lru.New[string, *regexp.Regexp](patternCacheSize)
	if err != nil {
		// 仅在 size <= 0 时发生
		panic(err)
	}
	return c
}

func compilePattern(expr string) (*regexp.Regexp, error) {
	if re, ok := patternCache.Get(expr); ok {
		return re, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}
	patternCache.Add(expr, re)
	return re, nil
}
