package server

import (
	"fmt"
	"net/http"
	"time"

	"airease-backend/pkg/handlers"
	customMiddleware "airease-backend/pkg/middleware"
	"airease-backend/pkg/models"
	"airease-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxJSONBody JSON 请求体上限
const maxJSONBody = 1 << 20

// Router 创建包含所有API端点的路由器
func (a *App) Router() http.Handler {
	router := chi.NewRouter()

	a.setupMiddleware(router)
	a.setupRoutes(router)

	return router
}

// setupMiddleware 设置全局中间件
func (a *App) setupMiddleware(router *chi.Mux) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	// Normalize path and restore scheme/host before logging and routing
	router.Use(customMiddleware.Normalize())
	router.Use(customMiddleware.Logger(a.Logger))
	router.Use(customMiddleware.Recovery(a.Logger))

	// CORS中间件，所有 OPTIONS 请求在此返回
	router.Use(customMiddleware.CORS(a.Config))
	router.Use(customMiddleware.Preflight())

	// 超时中间件（Vercel函数有时间限制）
	router.Use(middleware.Timeout(25 * time.Second))

	router.Use(middleware.Compress(5))

	// 开发环境额外中间件
	if a.Config.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

// setupRoutes 设置所有API路由
func (a *App) setupRoutes(router *chi.Mux) {
	healthHandler := handlers.NewHealthHandler(a.Config, a.Store, a.Engine.AIEnabled())
	flightsHandler := handlers.NewFlightsHandler(a.Searcher, a.Engine, a.Monitor, a.Logger)
	watchlistHandler := handlers.NewWatchlistHandler(a.Store, a.Tokens, a.Logger)
	notificationsHandler := handlers.NewNotificationsHandler(a.Engine, a.Composer, a.Mailer, a.Config.MailTimeout, a.Logger)
	recoveryHandler := handlers.NewRecoveryHandler(a.Searcher, a.Logger)
	ocrHandler := handlers.NewOCRHandler(a.Logger)
	paymentsHandler := handlers.NewPaymentsHandler(a.Logger)

	// 存储连接状态端点（调试用）
	if a.Config.IsDevelopment() {
		router.Get("/debug/store", func(w http.ResponseWriter, r *http.Request) {
			utils.WriteSuccessResponse(w, a.Store.Stats())
		})
	}

	router.Route("/api", func(r chi.Router) {
		r.Get("/", healthHandler.Health)

		r.Route("/flights", func(r chi.Router) {
			r.With(customMiddleware.MaxBodySize(maxJSONBody), customMiddleware.ContentTypeJSON).Post("/search", flightsHandler.Search)
			r.With(customMiddleware.MaxBodySize(maxJSONBody), customMiddleware.ContentTypeJSON).Post("/ai-recommendations", flightsHandler.AIRecommendations)
			// 定时任务触发，可选 CRON_SECRET 保护
			r.With(customMiddleware.ValidateAPIKey(a.Config.CronSecret)).Get("/check-prices", flightsHandler.CheckPrices)
		})

		r.Route("/watchlist", func(r chi.Router) {
			r.Get("/", watchlistHandler.List)
			r.With(customMiddleware.MaxBodySize(maxJSONBody), customMiddleware.ContentTypeJSON).Post("/", watchlistHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				// 需要管理令牌的路由
				r.Group(func(r chi.Router) {
					r.Use(customMiddleware.RequireWatchToken(a.Tokens, models.ScopeManage))
					r.With(customMiddleware.MaxBodySize(maxJSONBody), customMiddleware.ContentTypeJSON).Put("/", watchlistHandler.Update)
					r.Delete("/", watchlistHandler.Delete)
				})
				// 邮件退订链接
				r.With(customMiddleware.RequireWatchToken(a.Tokens, models.ScopeUnsubscribe)).Get("/unsubscribe", watchlistHandler.Unsubscribe)
			})
		})

		r.Get("/notifications/test", notificationsHandler.Test)
		r.With(customMiddleware.MaxBodySize(maxJSONBody), customMiddleware.ContentTypeJSON).Post("/missed-flight/recovery", recoveryHandler.Recover)
		r.Post("/ocr/boarding-pass", ocrHandler.BoardingPass)

		r.Route("/stripe", func(r chi.Router) {
			r.Use(customMiddleware.MaxBodySize(maxJSONBody), customMiddleware.ContentTypeJSON)
			r.Post("/setup-auto-purchase", paymentsHandler.SetupAutoPurchase)
			r.Post("/test-purchase", paymentsHandler.TestPurchase)
		})
	})

	// 404处理
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})

	// 405处理
	router.MethodNotAllowed(utils.WriteMethodNotAllowedResponse)
}
