package handler

import (
	"net/http"
	"sync"

	"airease-backend/pkg/config"
	"airease-backend/pkg/logger"
	"airease-backend/pkg/server"
	"airease-backend/pkg/utils"
)

// 冷启动时创建一次，热调用复用
var (
	app     *server.App
	router  http.Handler
	appErr  error
	appOnce sync.Once
)

func initApp() {
	cfg, err := config.GetCached()
	if err != nil {
		appErr = err
		return
	}
	if err := cfg.Validate(); err != nil {
		appErr = err
		return
	}
	app = server.NewApp(cfg, logger.New(cfg))
	router = app.Router()
}

// Handler 是Vercel函数的入口点
// 这个函数实现了"单体路由模式"，将所有API端点集中在一个Chi路由器中管理。
// 价格检查由 Vercel Cron 调用 /api/flights/check-prices 触发。
func Handler(w http.ResponseWriter, r *http.Request) {
	appOnce.Do(initApp)
	if appErr != nil {
		utils.WriteInternalServerErrorResponse(w, "Configuration error", appErr.Error())
		return
	}

	// 释放空闲连接
	app.Store.CleanupIdle()

	router.ServeHTTP(w, r)
}
