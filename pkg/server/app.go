// Package server 组装应用依赖并提供 HTTP 路由
package server

import (
	"log/slog"

	"airease-backend/pkg/config"
	"airease-backend/pkg/database"
	"airease-backend/pkg/flights"
	"airease-backend/pkg/monitor"
	"airease-backend/pkg/notify"
	"airease-backend/pkg/recommend"
	"airease-backend/pkg/utils"
)

// App 应用依赖
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Store    *database.Manager
	Catalog  *flights.Catalog
	Searcher *flights.Searcher
	Prices   flights.PriceSource
	Engine   *recommend.Engine
	Composer *notify.Composer
	Mailer   notify.Mailer
	Tokens   *utils.WatchTokenService
	Monitor  *monitor.Monitor
}

// NewApp 根据配置创建应用依赖。存储在首次使用时才连接。
func NewApp(cfg *config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}

	catalog := flights.DefaultCatalog()
	store := database.NewManager(storeConfig(cfg), database.WithLogger(logger))
	tokens := utils.NewWatchTokenService(cfg.TokenSecret)

	engineOpts := []recommend.Option{recommend.WithCatalog(catalog), recommend.WithLogger(logger)}
	if cfg.GeminiAPIKey != "" {
		gemini := recommend.NewGeminiClient(cfg.GeminiAPIKey,
			recommend.WithModel(cfg.GeminiModel),
			recommend.WithBaseURL(cfg.GeminiBaseURL),
		)
		engineOpts = append(engineOpts, recommend.WithAugmenter(gemini, cfg.AITimeout))
	}
	engine := recommend.NewEngine(engineOpts...)

	composer := notify.NewComposer(cfg.PublicBaseURL, tokens)
	mailer := newMailer(cfg, logger)
	prices := newPriceSource(cfg, catalog)

	mon := monitor.New(store, prices, engine, composer, mailer, monitor.Config{
		PriceTimeout:        cfg.PriceTimeout,
		AITimeout:           cfg.AITimeout,
		MailTimeout:         cfg.MailTimeout,
		MaxDispatchAttempts: cfg.MaxDispatchAttempts,
		RenotifyOnFlatPrice: cfg.RenotifyOnFlatPrice,
	}, monitor.WithLogger(logger))

	return &App{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Catalog:  catalog,
		Searcher: flights.NewSearcher(flights.NewGenerator(catalog, nil, nil)),
		Prices:   prices,
		Engine:   engine,
		Composer: composer,
		Mailer:   mailer,
		Tokens:   tokens,
		Monitor:  mon,
	}
}

func storeConfig(cfg *config.Config) database.StoreConfig {
	return database.StoreConfig{
		Driver:       cfg.StoreDriver,
		SQLitePath:   cfg.SQLitePath,
		PostgresDSN:  cfg.PostgresDSN,
		MongoURL:     cfg.MongoURL,
		DBName:       cfg.DBName,
		LocalDataDir: cfg.LocalDataDir,
	}
}

// newMailer 未配置 SMTP 时使用日志邮件
func newMailer(cfg *config.Config, logger *slog.Logger) notify.Mailer {
	if !cfg.SMTPConfigured() {
		logger.Info("SMTP not configured, price alerts will be logged only")
		return notify.NewLogMailer(logger)
	}
	return notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPSender)
}

// newPriceSource 未配置价格接口时使用模拟价格
func newPriceSource(cfg *config.Config, catalog *flights.Catalog) flights.PriceSource {
	if cfg.PriceAPIURL == "" {
		return flights.NewMockSource(catalog, nil, nil)
	}
	return &flights.HTTPSource{
		BaseURL: cfg.PriceAPIURL,
		APIKey:  cfg.PriceAPIKey,
		Timeout: cfg.PriceTimeout,
	}
}

// NewScheduler 创建价格监控调度器
func (a *App) NewScheduler() (*monitor.Scheduler, error) {
	return monitor.NewScheduler(a.Monitor, a.Config.MonitorSchedule, a.Config.MonitorTimezone, a.Logger)
}

// Close 释放存储连接
func (a *App) Close() error {
	return a.Store.Close()
}
