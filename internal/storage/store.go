package storage

import (
	"context"
	"sync"

	apperrors "github.com/wfunc/idle-game/internal/errors"
)

// Store 持久化存储接口（键 -> 字节）
// 读不到（不存在）返回ErrKeyNotFound错误码；调用方对"不存在"
// 与"读取失败"一视同仁，回退到默认域状态。
type Store interface {
	// Read 读取指定域的存档字节
	Read(ctx context.Context, key string) ([]byte, error)
	// Write 写入指定域的存档字节
	Write(ctx context.Context, key string, data []byte) error
	// Exists 检查指定域是否已有存档
	Exists(ctx context.Context, key string) (bool, error)
}

// MemoryStore 内存存储（测试与缓存层用）
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: make(map[string][]byte),
	}
}

// Read 读取存档
func (s *MemoryStore) Read(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[key]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrKeyNotFound, "域 %s", key)
	}

	// 返回拷贝，避免调用方改写内部切片
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Write 写入存档
func (s *MemoryStore) Write(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	s.blobs[key] = stored
	return nil
}

// Exists 检查存档是否存在
func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.blobs[key]
	return ok, nil
}

// Delete 删除存档（测试用）
func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
}

// Len 当前存档条数（测试用）
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
