// Package session 记录每个聊天用户当前选择的平台。
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/John-Robertt/poiskfilmoff/internal/domain"
	"github.com/John-Robertt/poiskfilmoff/internal/infra/fsx"
)

// Store 是“用户 -> 平台”的映射。实现必须可并发使用。
type Store interface {
	Get(userID int64) (domain.Platform, bool)
	Set(userID int64, p domain.Platform) error
}

// MemoryStore 只在进程内保存，重启即丢失。
type MemoryStore struct {
	mu    sync.RWMutex
	users map[int64]domain.Platform
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[int64]domain.Platform)}
}

func (s *MemoryStore) Get(userID int64) (domain.Platform, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.users[userID]
	return p, ok
}

func (s *MemoryStore) Set(userID int64, p domain.Platform) error {
	if p == "" {
		return errors.New("platform 不能为空")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = p
	return nil
}

// FileStore 在 MemoryStore 之上，每次 Set 都把完整映射原子写回 JSON 文件。
//
// 文件格式：{"<user id>": "<platform key>"}。
type FileStore struct {
	mu    sync.RWMutex
	path  string
	users map[int64]domain.Platform
}

// OpenFileStore 读取已有文件（不存在视为空）。无法识别的平台 key 会被丢弃，
// 这样下线某个平台后旧文件仍能加载。
func OpenFileStore(path string) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("session 文件路径为空")
	}
	s := &FileStore{path: path, users: make(map[int64]domain.Platform)}

	b, ok, err := fsx.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取 session 文件失败：%w", err)
	}
	if !ok || len(strings.TrimSpace(string(b))) == 0 {
		return s, nil
	}

	var raw map[string]string
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("解析 session 文件失败：%s: %w", path, err)
	}
	for k, v := range raw {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		p, ok := domain.ParsePlatform(v)
		if !ok {
			continue
		}
		s.users[id] = p
	}
	return s, nil
}

func (s *FileStore) Get(userID int64) (domain.Platform, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.users[userID]
	return p, ok
}

// Set 写盘失败时内存状态回滚，保证内存与文件一致。
func (s *FileStore) Set(userID int64, p domain.Platform) error {
	if p == "" {
		return errors.New("platform 不能为空")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.users[userID]
	s.users[userID] = p
	if err := s.saveLocked(); err != nil {
		if had {
			s.users[userID] = prev
		} else {
			delete(s.users, userID)
		}
		return err
	}
	return nil
}

func (s *FileStore) saveLocked() error {
	raw := make(map[string]string, len(s.users))
	for id, p := range s.users {
		raw[strconv.FormatInt(id, 10)] = string(p)
	}
	b, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if err := fsx.WriteFileAtomic(filepath.Dir(s.path), filepath.Base(s.path), b, 0o600); err != nil {
		return fmt.Errorf("写入 session 文件失败：%w", err)
	}
	return nil
}
