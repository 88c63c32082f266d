package xctx

import (
	"maps"
	"slices"
)

// Snapshot Store 在某一时刻的不可变副本。
//
// 零值为空快照。Snapshot 只提供读取方法，内部 map 从不对外暴露。
type Snapshot struct {
	entries map[string]string
}

// NewSnapshot 由 map 构造快照，会复制输入并丢弃空 key/空 value。
func NewSnapshot(entries map[string]string) Snapshot {
	if len(entries) == 0 {
		return Snapshot{}
	}
	cp := make(map[string]string, len(entries))
	for k, v := range entries {
		if k == "" || v == "" {
			continue
		}
		cp[k] = v
	}
	return Snapshot{entries: cp}
}

// Get 读取条目。
func (s Snapshot) Get(key string) (string, bool) {
	v, ok := s.entries[key]
	return v, ok
}

// Len 返回条目数量。
func (s Snapshot) Len() int {
	return len(s.entries)
}

// IsEmpty 判断快照是否为空。
func (s Snapshot) IsEmpty() bool {
	return len(s.entries) == 0
}

// Keys 返回排序后的 key 列表。
func (s Snapshot) Keys() []string {
	return slices.Sorted(maps.Keys(s.entries))
}

// Map 返回条目的新副本，调用方可随意修改。
func (s Snapshot) Map() map[string]string {
	cp := make(map[string]string, len(s.entries))
	maps.Copy(cp, s.entries)
	return cp
}

// Equal 判断两个快照条目是否完全一致。
func (s Snapshot) Equal(other Snapshot) bool {
	return maps.Equal(s.entries, other.entries)
}
