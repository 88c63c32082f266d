// Package xrotate 提供日志文件轮转，作为 xlog 的文件输出目标。
//
// Rotator 接口定义轮转器的核心行为（Write/Close/Rotate），实现并发安全。
// [NewLumberjack] 基于 lumberjack v2 按大小轮转，并按数量/天数清理备份。
//
//	r, err := xrotate.NewLumberjack("/var/log/xdiag/app.log",
//		xrotate.WithMaxSize(50),
//		xrotate.WithMaxBackups(3),
//	)
package xrotate
