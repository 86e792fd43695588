// Package monitor 定期检查价格提醒并在命中目标价时发送邮件
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"airease-backend/pkg/database"
	"airease-backend/pkg/flights"
	"airease-backend/pkg/models"
	"airease-backend/pkg/notify"
)

// ErrPassAborted 无法读取提醒列表，本轮检查未执行
var ErrPassAborted = errors.New("monitor pass aborted")

// Recommender 为命中的航班生成出行建议
type Recommender interface {
	Recommend(ctx context.Context, info models.FlightInfo, prefs models.Preferences) (models.Recommendation, error)
}

// Composer 生成提醒邮件
type Composer interface {
	Compose(w models.Watch, q models.Quote, rec models.Recommendation) (models.Notification, error)
}

// Config 监控参数
type Config struct {
	PriceTimeout        time.Duration
	AITimeout           time.Duration
	MailTimeout         time.Duration
	MaxDispatchAttempts int
	// RenotifyOnFlatPrice 为 false 时，价格没有低于上次命中价格就不再提醒
	RenotifyOnFlatPrice bool
}

// DefaultConfig 默认监控参数
func DefaultConfig() Config {
	return Config{
		PriceTimeout:        10 * time.Second,
		AITimeout:           15 * time.Second,
		MailTimeout:         20 * time.Second,
		MaxDispatchAttempts: 5,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PriceTimeout <= 0 {
		c.PriceTimeout = d.PriceTimeout
	}
	if c.AITimeout <= 0 {
		c.AITimeout = d.AITimeout
	}
	if c.MailTimeout <= 0 {
		c.MailTimeout = d.MailTimeout
	}
	if c.MaxDispatchAttempts <= 0 {
		c.MaxDispatchAttempts = d.MaxDispatchAttempts
	}
	return c
}

// Monitor 执行价格检查
type Monitor struct {
	store       database.WatchStore
	prices      flights.PriceSource
	recommender Recommender
	composer    Composer
	mailer      notify.Mailer
	cfg         Config
	logger      *slog.Logger
	now         func() time.Time

	mu      sync.Mutex
	current *pass
}

// pass 正在运行的一轮检查，并发调用者等待同一个结果
type pass struct {
	done    chan struct{}
	summary models.MonitorSummary
	err     error
}

// Option 配置 Monitor
type Option func(*Monitor)

// WithLogger 设置日志
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock 设置时钟
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// New 创建 Monitor
func New(store database.WatchStore, prices flights.PriceSource, recommender Recommender, composer Composer, mailer notify.Mailer, cfg Config, opts ...Option) *Monitor {
	m := &Monitor{
		store:       store,
		prices:      prices,
		recommender: recommender,
		composer:    composer,
		mailer:      mailer,
		cfg:         cfg.withDefaults(),
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Running 是否有检查正在进行
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// RunPass 执行一轮检查。已有检查在运行时加入该轮并返回它的结果，
// 因此同一进程内同一次命中只会发送一次邮件。
func (m *Monitor) RunPass(ctx context.Context) (models.MonitorSummary, error) {
	m.mu.Lock()
	if p := m.current; p != nil {
		m.mu.Unlock()
		m.logger.Debug("joining running monitor pass")
		select {
		case <-p.done:
			return p.summary, p.err
		case <-ctx.Done():
			return models.MonitorSummary{}, ctx.Err()
		}
	}
	p := &pass{done: make(chan struct{})}
	m.current = p
	m.mu.Unlock()

	p.summary, p.err = m.run(ctx)

	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
	close(p.done)

	return p.summary, p.err
}

func (m *Monitor) run(ctx context.Context) (models.MonitorSummary, error) {
	start := m.now()
	summary := models.MonitorSummary{Checks: []models.WatchCheck{}, Timestamp: start.UTC()}

	watches, err := m.store.ListActive(ctx)
	if err != nil {
		m.logger.Error("monitor pass aborted", "error", err)
		return summary, fmt.Errorf("%w: %w", ErrPassAborted, err)
	}

	m.logger.Info("monitor pass started", "watches", len(watches))

	for _, w := range watches {
		if err := ctx.Err(); err != nil {
			m.logger.Warn("monitor pass interrupted", "checked", summary.WatchesChecked, "error", err)
			return summary, err
		}

		check := m.checkWatch(ctx, w)
		summary.Checks = append(summary.Checks, check)
		summary.WatchesChecked++

		switch check.State {
		case models.CheckNotified:
			summary.MatchesFound++
			summary.NotificationsSent++
		case models.CheckNotifyFailed:
			summary.MatchesFound++
			summary.Failures++
		case models.CheckSuppressed:
			summary.MatchesFound++
		case models.CheckSkipped:
			summary.Skipped++
		}
	}

	m.logger.Info("monitor pass completed",
		"watches_checked", summary.WatchesChecked,
		"matches_found", summary.MatchesFound,
		"notifications_sent", summary.NotificationsSent,
		"failures", summary.Failures,
		"skipped", summary.Skipped,
		"duration", m.now().Sub(start),
	)
	return summary, nil
}

// checkWatch 检查单个提醒，错误不会影响其他提醒
func (m *Monitor) checkWatch(ctx context.Context, w models.Watch) models.WatchCheck {
	route := w.Route()
	check := models.WatchCheck{WatchID: w.ID, Route: route.String(), State: models.CheckPending}
	log := m.logger.With("watch_id", w.ID, "route", check.Route)

	priceCtx, cancel := context.WithTimeout(ctx, m.cfg.PriceTimeout)
	quote, err := m.prices.CurrentPrice(priceCtx, route)
	cancel()
	if err != nil {
		check.State = models.CheckSkipped
		check.Error = err.Error()
		log.Warn("price lookup failed, skipping watch", "error", err)
		return check
	}
	check.Price = quote.Price
	check.State = models.CheckPriced

	if float64(quote.Price) > w.TargetPrice {
		check.State = models.CheckNoMatch
		if err := m.store.RecordNoMatch(ctx, w.ID, m.now().UTC()); err != nil {
			check.Error = err.Error()
			log.Error("failed to record check", "error", err)
		}
		return check
	}
	check.State = models.CheckMatched

	if !m.cfg.RenotifyOnFlatPrice && w.MatchedPrice != nil && quote.Price >= *w.MatchedPrice {
		check.State = models.CheckSuppressed
		log.Info("price not below last alert, not notifying again", "price", quote.Price, "matched_price", *w.MatchedPrice)
		m.recordCheck(ctx, log, &check)
		return check
	}

	if err := m.dispatch(ctx, w, quote); err != nil {
		check.State = models.CheckNotifyFailed
		check.Error = err.Error()
		deactivated, ferr := m.store.RecordDispatchFailure(ctx, w.ID, m.cfg.MaxDispatchAttempts)
		if ferr != nil {
			log.Error("failed to record dispatch failure", "error", ferr)
		}
		log.Error("price alert dispatch failed", "error", err, "deactivated", deactivated)
		return check
	}

	check.State = models.CheckNotified
	if err := m.store.RecordMatch(ctx, w.ID, quote.Price, m.now().UTC()); err != nil {
		check.Error = err.Error()
		log.Error("failed to record match", "error", err)
	}
	log.Info("price alert sent", "price", quote.Price, "target_price", w.TargetPrice)
	return check
}

func (m *Monitor) recordCheck(ctx context.Context, log *slog.Logger, check *models.WatchCheck) {
	if err := m.store.RecordCheck(ctx, check.WatchID, m.now().UTC()); err != nil {
		check.Error = err.Error()
		log.Error("failed to record check", "error", err)
	}
}

// dispatch 生成建议、组装邮件并发送
func (m *Monitor) dispatch(ctx context.Context, w models.Watch, q models.Quote) error {
	aiCtx, cancel := context.WithTimeout(ctx, m.cfg.AITimeout)
	rec, err := m.recommender.Recommend(aiCtx, models.FlightInfoFromQuote(q, w.DepartDate), models.Preferences{})
	cancel()
	if err != nil {
		return fmt.Errorf("recommend: %w", err)
	}

	n, err := m.composer.Compose(w, q, rec)
	if err != nil {
		return fmt.Errorf("compose alert: %w", err)
	}

	mailCtx, cancel := context.WithTimeout(ctx, m.cfg.MailTimeout)
	defer cancel()
	if err := m.mailer.Send(mailCtx, n); err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	return nil
}
