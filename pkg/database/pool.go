package database

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"airease-backend/pkg/models"
)

// Opener opens a store for the given configuration.
type Opener func(ctx context.Context, cfg StoreConfig) (WatchStore, error)

// Manager 存储连接管理器
//
// 首次使用时打开存储，之后复用；健康检查失败或空闲过久时重新打开。
// Manager 自身实现 WatchStore，每次调用都会经过 Store(ctx)。
type Manager struct {
	cfg    StoreConfig
	open   Opener
	logger *slog.Logger

	idleTimeout    time.Duration
	healthInterval time.Duration

	mu         sync.Mutex
	store      WatchStore
	openedAt   time.Time
	lastUsed   time.Time
	lastHealth time.Time
	opens      int
	lastErr    error
	closed     bool

	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithOpener replaces the driver opener (used by tests).
func WithOpener(open Opener) ManagerOption {
	return func(m *Manager) { m.open = open }
}

// WithIdleTimeout sets how long an unused store stays open.
func WithIdleTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) { m.idleTimeout = d }
}

// WithHealthInterval sets how often a reused store is pinged.
func WithHealthInterval(d time.Duration) ManagerOption {
	return func(m *Manager) { m.healthInterval = d }
}

// WithLogger sets the manager's logger.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewManager 创建存储管理器，不会立即打开连接
func NewManager(cfg StoreConfig, opts ...ManagerOption) *Manager {
	m := &Manager{
		cfg:            cfg,
		open:           Open,
		logger:         slog.Default(),
		idleTimeout:    10 * time.Minute,
		healthInterval: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Driver returns the configured driver name.
func (m *Manager) Driver() string {
	if m.cfg.Driver == "" {
		return "sqlite"
	}
	return m.cfg.Driver
}

// Store 获取存储（懒加载 + 健康检查复用）
func (m *Manager) Store(ctx context.Context) (WatchStore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("%w: manager closed", ErrUnavailable)
	}

	now := time.Now()
	if m.store != nil {
		if reason := m.staleReason(ctx, now); reason != "" {
			m.logger.Info("recreating watch store", "driver", m.Driver(), "reason", reason)
			m.closeStoreLocked()
		}
	}

	if m.store == nil {
		store, err := m.open(ctx, m.cfg)
		if err != nil {
			m.lastErr = err
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		m.store = store
		m.openedAt = now
		m.lastHealth = now
		m.opens++
		m.lastErr = nil
		m.logger.Info("watch store opened", "driver", m.Driver())
	}

	m.lastUsed = now
	return m.store, nil
}

// staleReason 判断是否需要重新创建连接，返回原因
func (m *Manager) staleReason(ctx context.Context, now time.Time) string {
	if m.idleTimeout > 0 && now.Sub(m.lastUsed) > m.idleTimeout {
		return "idle"
	}
	if now.Sub(m.lastHealth) < m.healthInterval {
		return ""
	}
	if err := m.store.Ping(ctx); err != nil {
		m.lastErr = err
		return "health check failed: " + err.Error()
	}
	m.lastHealth = now
	return ""
}

func (m *Manager) closeStoreLocked() {
	if m.store == nil {
		return
	}
	if err := m.store.Close(); err != nil {
		m.logger.Warn("closing watch store", "error", err)
	}
	m.store = nil
}

// CleanupIdle 清理空闲连接，返回是否关闭了连接
func (m *Manager) CleanupIdle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store == nil || m.idleTimeout <= 0 || time.Since(m.lastUsed) <= m.idleTimeout {
		return false
	}
	m.logger.Info("closing idle watch store", "driver", m.Driver(), "idle", time.Since(m.lastUsed).Round(time.Second))
	m.closeStoreLocked()
	return true
}

// StartCleanup 启动后台清理，Close 时停止
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopCleanup != nil || m.closed || interval <= 0 {
		return
	}
	m.stopCleanup = make(chan struct{})
	m.cleanupDone = make(chan struct{})

	go func(stop <-chan struct{}, done chan<- struct{}) {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.CleanupIdle()
			case <-stop:
				return
			}
		}
	}(m.stopCleanup, m.cleanupDone)
}

// ManagerStats 连接统计信息
type ManagerStats struct {
	Driver    string     `json:"driver"`
	Status    string     `json:"status"` // connected | idle | closed
	Opens     int        `json:"opens"`
	OpenedAt  *time.Time `json:"openedAt,omitempty"`
	LastUsed  *time.Time `json:"lastUsed,omitempty"`
	LastError string     `json:"lastError,omitempty"`
}

// Stats 获取连接统计信息
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := ManagerStats{Driver: m.Driver(), Status: "idle", Opens: m.opens}
	switch {
	case m.closed:
		stats.Status = "closed"
	case m.store != nil:
		stats.Status = "connected"
		openedAt, lastUsed := m.openedAt, m.lastUsed
		stats.OpenedAt = &openedAt
		stats.LastUsed = &lastUsed
	}
	if m.lastErr != nil {
		stats.LastError = m.lastErr.Error()
	}
	return stats
}

// Close 关闭连接并停止后台清理
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	stop, done := m.stopCleanup, m.cleanupDone
	var err error
	if m.store != nil {
		err = m.store.Close()
		m.store = nil
	}
	m.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	return err
}

// WatchStore implementation delegating to the managed store.

// ListActive implements WatchStore.
func (m *Manager) ListActive(ctx context.Context) ([]models.Watch, error) {
	s, err := m.Store(ctx)
	if err != nil {
		return nil, err
	}
	return s.ListActive(ctx)
}

// List implements WatchStore.
func (m *Manager) List(ctx context.Context) ([]models.Watch, error) {
	s, err := m.Store(ctx)
	if err != nil {
		return nil, err
	}
	return s.List(ctx)
}

// Get implements WatchStore.
func (m *Manager) Get(ctx context.Context, id string) (*models.Watch, error) {
	s, err := m.Store(ctx)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Insert implements WatchStore.
func (m *Manager) Insert(ctx context.Context, w *models.Watch) error {
	s, err := m.Store(ctx)
	if err != nil {
		return err
	}
	return s.Insert(ctx, w)
}

// RecordCheck implements WatchStore.
func (m *Manager) RecordCheck(ctx context.Context, id string, at time.Time) error {
	s, err := m.Store(ctx)
	if err != nil {
		return err
	}
	return s.RecordCheck(ctx, id, at)
}

// RecordNoMatch implements WatchStore.
func (m *Manager) RecordNoMatch(ctx context.Context, id string, at time.Time) error {
	s, err := m.Store(ctx)
	if err != nil {
		return err
	}
	return s.RecordNoMatch(ctx, id, at)
}

// RecordMatch implements WatchStore.
func (m *Manager) RecordMatch(ctx context.Context, id string, matchedPrice int, at time.Time) error {
	s, err := m.Store(ctx)
	if err != nil {
		return err
	}
	return s.RecordMatch(ctx, id, matchedPrice, at)
}

// RecordDispatchFailure implements WatchStore.
func (m *Manager) RecordDispatchFailure(ctx context.Context, id string, maxAttempts int) (bool, error) {
	s, err := m.Store(ctx)
	if err != nil {
		return false, err
	}
	return s.RecordDispatchFailure(ctx, id, maxAttempts)
}

// SetActive implements WatchStore.
func (m *Manager) SetActive(ctx context.Context, id string, active bool) error {
	s, err := m.Store(ctx)
	if err != nil {
		return err
	}
	return s.SetActive(ctx, id, active)
}

// Delete implements WatchStore.
func (m *Manager) Delete(ctx context.Context, id string) error {
	s, err := m.Store(ctx)
	if err != nil {
		return err
	}
	return s.Delete(ctx, id)
}

// Ping implements WatchStore.
func (m *Manager) Ping(ctx context.Context) error {
	s, err := m.Store(ctx)
	if err != nil {
		return err
	}
	return s.Ping(ctx)
}

var _ WatchStore = (*Manager)(nil)
