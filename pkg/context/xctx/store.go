package xctx

import "sync"

// Store 诊断上下文键值表。
//
// 零值不可用，请通过 NewStore 创建。nil *Store 上的所有方法都是安全的空操作，
// 使调用方无需在每个日志路径上判空。
//
// 设计决策: 内部持有 RWMutex。跨 goroutine 传递仍然只通过 Snapshot 拷贝完成，
// 锁仅保证同一请求内衍生 goroutine 误用时不发生数据竞争。
type Store struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewStore 创建空 Store。
func NewStore() *Store {
	return &Store{entries: make(map[string]string)}
}

// Put 写入或覆盖条目。key 或 value 为空时为空操作。
func (s *Store) Put(key, value string) {
	if s == nil || key == "" || value == "" {
		return
	}
	s.mu.Lock()
	s.entries[key] = value
	s.mu.Unlock()
}

// Get 读取条目。
func (s *Store) Get(key string) (string, bool) {
	if s == nil || key == "" {
		return "", false
	}
	s.mu.RLock()
	v, ok := s.entries[key]
	s.mu.RUnlock()
	return v, ok
}

// Value 读取条目，缺失时返回空字符串。
func (s *Store) Value(key string) string {
	v, _ := s.Get(key)
	return v
}

// Remove 删除条目。
func (s *Store) Remove(key string) {
	if s == nil || key == "" {
		return
	}
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// RemoveAll 批量删除条目。
func (s *Store) RemoveAll(keys ...string) {
	if s == nil || len(keys) == 0 {
		return
	}
	s.mu.Lock()
	for _, k := range keys {
		delete(s.entries, k)
	}
	s.mu.Unlock()
}

// Clear 删除全部条目。
func (s *Store) Clear() {
	if s == nil {
		return
	}
	s.mu.Lock()
	clear(s.entries)
	s.mu.Unlock()
}

// Len 返回条目数量。
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Snapshot 返回当前全部条目的不可变副本。
// 空 Store（包括 nil）返回空 Snapshot，绝不返回内部 map 的引用。
func (s *Store) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return Snapshot{}
	}
	cp := make(map[string]string, len(s.entries))
	for k, v := range s.entries {
		cp[k] = v
	}
	return Snapshot{entries: cp}
}

// Restore 清空当前条目后重新写入 snapshot 的全部条目。
// snapshot 为空时，Store 最终为空。
func (s *Store) Restore(snap Snapshot) {
	if s == nil {
		return
	}
	s.mu.Lock()
	clear(s.entries)
	for k, v := range snap.entries {
		s.entries[k] = v
	}
	s.mu.Unlock()
}

// Range 按任意顺序遍历条目，fn 返回 false 时停止。
// 遍历期间持有读锁，fn 内不得写同一个 Store。
func (s *Store) Range(fn func(key, value string) bool) {
	if s == nil || fn == nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, v := range s.entries {
		if !fn(k, v) {
			return
		}
	}
}
