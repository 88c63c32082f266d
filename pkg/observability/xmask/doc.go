// Package xmask 提供日志脱敏：敏感字段目录（Catalog）与遮蔽器（Masker）。
//
// # 判定通道
//
// 启发式：字段名、JSON 键、HTTP 头名、参数名小写后包含 DefaultTerms 任一项即视为敏感，
// 按子串匹配（oldPassword、apiKey 均命中）。
//
// 权威式：结构体标签或 Catalog.Register 登记表，优先于启发式：
//
//	type Account struct {
//	    Email    string `json:"email" mask:"email"`
//	    Phone    string `json:"phone" mask:"partial,3,4"`
//	    Note     string `json:"note"  mask:"pattern,\d{6,}"`
//	    Password string `json:"password" mask:"full"`
//	    AuthorID string `json:"authorId" mask:"-"` // 显式非敏感，覆盖 "auth" 启发式
//	}
//
// 嵌入结构体递归扫描。每个类型只扫描一次（sync.Map + singleflight），之后只读。
//
// # 遮蔽入口
//
//   - [Masker.MaskJSON]：JSON 树深度优先遍历，对象键命中且值为终端值时替换，数组不做键匹配
//   - [Masker.MaskValue]：任意值反射渲染为 JSON，函数、通道字段输出类型名占位；
//     渲染失败时按目录词表做文本遮蔽，永不返回原始数据
//   - [Masker.MaskText]：自由文本中 password/token/secret 键值片段及 Bearer 凭证
//   - [Masker.MaskHeaders]：HTTP 头
//   - [Truncate]：按字符数截断
//
// 完全遮蔽的替换文本为 [Token]（"********"）。
package xmask
