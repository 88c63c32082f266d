// Package util 提供通用工具相关的子包。
//
// 子包列表：
//   - xpool: 固定 worker、有界队列的任务池，每个 worker 持有独立的 xctx.Store
package util
