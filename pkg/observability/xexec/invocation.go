package xexec

import (
	"reflect"
	"strings"
)

// Param 一个具名调用参数
type Param struct {
	Name  string
	Value any
}

// P 构造 Param
func P(name string, value any) Param {
	return Param{Name: name, Value: value}
}

// Invocation 一次被拦截调用的描述。
//
// Type 为声明类型的完整名称（见 TypeName），用于匹配 Registry 中的标记。
type Invocation struct {
	Type   string
	Method string
	Params []Param
}

// ClassName 返回不含包路径的类型名，如 "CandidateService"
func (inv Invocation) ClassName() string {
	name := inv.Type
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// TypeName 返回 v 的完整类型名 "<包路径>.<类型名>"，指针取其元素类型。
//
// 未命名类型（切片、map 等）返回 reflect 的字符串形式，nil 返回 "nil"。
func TypeName(v any) string {
	if v == nil {
		return "nil"
	}
	return typeString(reflect.TypeOf(v))
}

func typeString(t reflect.Type) string {
	for t.Kind() == reflect.Pointer && t.Name() == "" {
		t = t.Elem()
	}
	if t.Name() == "" || t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
