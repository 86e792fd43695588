package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"airease-backend/pkg/models"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule 默认每30分钟检查一次
const DefaultSchedule = "@every 30m"

// Scheduler 按 cron 表达式定期执行检查
type Scheduler struct {
	cron     *cron.Cron
	monitor  *Monitor
	spec     string
	location *time.Location
	logger   *slog.Logger

	// 任务上下文，Stop 超时时取消
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	entryID cron.EntryID
	started bool
}

// NewScheduler 创建调度器，spec 为空时使用 DefaultSchedule，timezone 为空时使用 UTC
func NewScheduler(m *Monitor, spec, timezone string, logger *slog.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	if timezone == "" {
		timezone = "UTC"
	}
	if logger == nil {
		logger = slog.Default()
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}

	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		monitor:  m,
		spec:     spec,
		location: loc,
		logger:   logger,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	entryID, err := s.cron.AddFunc(spec, s.runScheduled)
	if err != nil {
		return nil, fmt.Errorf("add cron job %q: %w", spec, err)
	}
	s.entryID = entryID

	return s, nil
}

// Spec 返回 cron 表达式
func (s *Scheduler) Spec() string {
	return s.spec
}

// Location 返回调度时区
func (s *Scheduler) Location() *time.Location {
	return s.location
}

// Next 返回下一次计划执行的时间，未启动时为零值
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entryID).Next
}

// Start 启动调度器
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		s.cron.Start()
		s.started = true
		s.logger.Info("price monitor scheduled", "schedule", s.spec, "timezone", s.location.String())
	}
}

// Stop 停止调度器并等待正在运行的检查结束；ctx 到期时取消该检查
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

// RunNow 立即执行一轮检查，与定时任务共用同一个单飞通道
func (s *Scheduler) RunNow(ctx context.Context) (models.MonitorSummary, error) {
	return s.monitor.RunPass(ctx)
}

func (s *Scheduler) runScheduled() {
	if _, err := s.monitor.RunPass(s.ctx); err != nil {
		s.logger.Error("scheduled monitor pass failed", "error", err)
	}
}

// cronLogger 将 cron 日志转到 slog
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
