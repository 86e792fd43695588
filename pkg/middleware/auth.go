package middleware

import (
	"context"
	"net/http"
	"strings"

	"airease-backend/pkg/models"
	"airease-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// ContextKey 用于在context中存储令牌信息的键
type ContextKey string

const (
	WatchClaimsContextKey ContextKey = "watchClaims"
)

// WatchTokenValidator 验证提醒管理令牌
type WatchTokenValidator interface {
	Validate(tokenString string) (*models.WatchTokenClaims, error)
}

// RequireWatchToken 要求请求携带属于路由中 {id} 且包含 scope 权限的令牌。
// 令牌从 Authorization: Bearer 头读取，邮件退订链接使用 ?token= 查询参数。
func RequireWatchToken(v WatchTokenValidator, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := tokenFromRequest(r)
			if !ok {
				utils.WriteUnauthorizedResponse(w, "Missing manage token")
				return
			}

			claims, err := v.Validate(tokenString)
			if err != nil {
				utils.WriteUnauthorizedResponse(w, "Invalid manage token")
				return
			}

			if id := chi.URLParam(r, "id"); id != "" && claims.WatchID != id {
				utils.WriteUnauthorizedResponse(w, "Token does not match this watch")
				return
			}

			if !claims.Allows(scope) {
				utils.WriteErrorResponse(w, http.StatusForbidden, "Token does not permit this action", "")
				return
			}

			ctx := context.WithValue(r.Context(), WatchClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// tokenFromRequest 读取 Bearer 令牌，没有时读取 token 查询参数
func tokenFromRequest(r *http.Request) (string, bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || tokenString == "" {
			return "", false
		}
		return tokenString, true
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, true
	}
	return "", false
}

// GetWatchClaims 从context中获取令牌声明
func GetWatchClaims(ctx context.Context) (*models.WatchTokenClaims, bool) {
	claims, ok := ctx.Value(WatchClaimsContextKey).(*models.WatchTokenClaims)
	return claims, ok
}
