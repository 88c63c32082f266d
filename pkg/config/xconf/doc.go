// Package xconf 提供基于 koanf 的配置加载、热重载与 xdiag 的 Settings 配置面。
//
// # 加载
//
//   - New 从文件加载，按扩展名识别 YAML（.yaml/.yml）或 JSON（.json）
//   - NewFromBytes 从字节数据加载，需显式指定格式
//   - Client() 暴露底层 koanf 实例；Unmarshal 基于 mapstructure，允许弱类型转换
//     （"8080" → 8080，"800ms" → time.Duration）
//
// # Settings
//
//	s, cfg, err := xconf.LoadSettings("/etc/xdiag/config.yaml")
//
// 未出现的字段取 [DefaultSettings] 的值，列表字段整体替换；加载后执行 [Settings.Validate]。
//
// # 并发与重载
//
// 当前 koanf 实例通过 atomic.Pointer 发布，Reload 串行执行并在解析成功后替换；
// 解析失败时保留旧配置。Client() 返回的旧指针在 Reload 后仍可用，但数据已过期，
// 不要长期缓存。
//
// # 监视
//
// Watch / WatchSettings 基于 fsnotify 监视配置文件所在目录，内置防抖，
// 支持 vim/emacs 与 ConfigMap 的原子替换。从字节数据创建的 Config 不支持监视。
package xconf
