package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"airease-backend/pkg/models"

	"github.com/google/uuid"
)

var safeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// LocalStore 本地文件存储实现，每个提醒一个 JSON 文件
type LocalStore struct {
	dataDir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocalStore 创建本地文件存储
func NewLocalStore(dataDir string) (*LocalStore, error) {
	fallback := filepath.Join(os.TempDir(), "airease-data")
	if dataDir == "" {
		dataDir = "./data"
	}
	// Vercel/Lambda 的部署目录只读，相对路径改用临时目录
	if IsVercelEnvironment() && !filepath.IsAbs(dataDir) {
		dataDir = fallback
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		slog.Warn("failed to create data directory, using temp dir", "dir", dataDir, "fallback", fallback, "error", err)
		if err := os.MkdirAll(fallback, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dataDir = fallback
	}

	return &LocalStore{
		dataDir: dataDir,
		locks:   make(map[string]*sync.Mutex),
	}, nil
}

// lockFor 返回单个提醒的锁
func (s *LocalStore) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *LocalStore) watchPath(id string) (string, error) {
	if !safeIDPattern.MatchString(id) {
		return "", fmt.Errorf("watch %q: %w", id, ErrNotFound)
	}
	return filepath.Join(s.dataDir, "watch_"+id+".json"), nil
}

func (s *LocalStore) load(id string) (*models.Watch, error) {
	path, err := s.watchPath(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("watch %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("reading watch %s: %w", id, err)
	}
	var w models.Watch
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decoding watch %s: %w", id, err)
	}
	return &w, nil
}

// save 先写临时文件再重命名，避免读到半写入的文件
func (s *LocalStore) save(w *models.Watch) error {
	path, err := s.watchPath(w.ID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding watch %s: %w", w.ID, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing watch %s: %w", w.ID, err)
	}
	return os.Rename(tmp, path)
}

// update 在单个提醒的锁内读取、修改、写回
func (s *LocalStore) update(id string, fn func(w *models.Watch)) error {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	w, err := s.load(id)
	if err != nil {
		return err
	}
	fn(w)
	return s.save(w)
}

func (s *LocalStore) loadAll(ctx context.Context) ([]models.Watch, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil, fmt.Errorf("reading data directory: %w", err)
	}

	watches := make([]models.Watch, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "watch_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(name, "watch_"), ".json")
		w, err := s.load(id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue // 并发删除
			}
			return nil, err
		}
		watches = append(watches, *w)
	}

	sort.SliceStable(watches, func(i, j int) bool {
		if !watches[i].CreatedAt.Equal(watches[j].CreatedAt) {
			return watches[i].CreatedAt.Before(watches[j].CreatedAt)
		}
		return watches[i].ID < watches[j].ID
	})
	return watches, nil
}

// ListActive 返回所有启用的提醒
func (s *LocalStore) ListActive(ctx context.Context) ([]models.Watch, error) {
	all, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, w := range all {
		if w.Active {
			active = append(active, w)
		}
	}
	return active, nil
}

// List 返回所有提醒
func (s *LocalStore) List(ctx context.Context) ([]models.Watch, error) {
	return s.loadAll(ctx)
}

// Get 根据ID获取提醒
func (s *LocalStore) Get(_ context.Context, id string) (*models.Watch, error) {
	return s.load(id)
}

// Insert 创建提醒
func (s *LocalStore) Insert(_ context.Context, w *models.Watch) error {
	newWatchDefaults(w, uuid.NewString)

	l := s.lockFor(w.ID)
	l.Lock()
	defer l.Unlock()
	return s.save(w)
}

// RecordCheck 记录检查时间
func (s *LocalStore) RecordCheck(_ context.Context, id string, at time.Time) error {
	at = at.UTC()
	return s.update(id, func(w *models.Watch) {
		w.LastCheck = &at
	})
}

// RecordNoMatch 记录检查时间并清除上次提醒价格
func (s *LocalStore) RecordNoMatch(_ context.Context, id string, at time.Time) error {
	at = at.UTC()
	return s.update(id, func(w *models.Watch) {
		w.LastCheck = &at
		w.MatchedPrice = nil
	})
}

func (s *LocalStore) RecordMatch(_ context.Context, id string, matchedPrice int, at time.Time) error {
	at = at.UTC()
	return s.update(id, func(w *models.Watch) {
		w.LastMatch = &at
		w.LastNotification = &at
		w.LastCheck = &at
		w.MatchedPrice = &matchedPrice
		w.NotificationCount++
		w.DispatchFailures = 0
	})
}

// RecordDispatchFailure 记录发送失败，达到上限后停用
func (s *LocalStore) RecordDispatchFailure(_ context.Context, id string, maxAttempts int) (bool, error) {
	var deactivated bool
	err := s.update(id, func(w *models.Watch) {
		w.DispatchFailures++
		if maxAttempts > 0 && w.DispatchFailures >= maxAttempts {
			w.Active = false
			deactivated = true
		}
	})
	return deactivated, err
}

// SetActive 启用或停用提醒
func (s *LocalStore) SetActive(_ context.Context, id string, active bool) error {
	return s.update(id, func(w *models.Watch) {
		w.Active = active
	})
}

// Delete 删除提醒
func (s *LocalStore) Delete(_ context.Context, id string) error {
	path, err := s.watchPath(id)
	if err != nil {
		return err
	}

	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("watch %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("deleting watch %s: %w", id, err)
	}

	s.mu.Lock()
	delete(s.locks, id)
	s.mu.Unlock()
	return nil
}

// Ping 健康检查
func (s *LocalStore) Ping(_ context.Context) error {
	_, err := os.Stat(s.dataDir)
	return err
}

// Close 关闭存储
func (s *LocalStore) Close() error {
	return nil
}
