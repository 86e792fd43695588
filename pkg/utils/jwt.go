package utils

import (
	"fmt"

	"airease-backend/pkg/models"

	"github.com/golang-jwt/jwt/v5"
)

const watchTokenIssuer = "airease"

// WatchTokenService 签发和校验价格提醒令牌
//
// 管理令牌（manage）在创建时返回给用户；邮件链接只带退订令牌（unsubscribe）。
//
// 令牌不含时间字段：同一提醒在同一密钥下总是得到相同的令牌，
// 邮件中的退订链接因此保持确定性。
type WatchTokenService struct {
	secretKey []byte
}

// NewWatchTokenService 创建令牌服务
func NewWatchTokenService(secretKey string) *WatchTokenService {
	return &WatchTokenService{
		secretKey: []byte(secretKey),
	}
}

// Generate 为提醒生成管理令牌
func (s *WatchTokenService) Generate(watchID, email string) (string, error) {
	return s.sign(watchID, email, models.ScopeManage)
}

// GenerateUnsubscribe 生成只能退订的令牌，用于邮件链接
func (s *WatchTokenService) GenerateUnsubscribe(watchID, email string) (string, error) {
	return s.sign(watchID, email, models.ScopeUnsubscribe)
}

func (s *WatchTokenService) sign(watchID, email, scope string) (string, error) {
	claims := &models.WatchTokenClaims{
		WatchID: watchID,
		Email:   email,
		Scope:   scope,
		Issuer:  watchTokenIssuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign watch token: %w", err)
	}
	return signed, nil
}

// Validate 验证令牌并返回声明
func (s *WatchTokenService) Validate(tokenString string) (*models.WatchTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.WatchTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 验证签名方法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(watchTokenIssuer))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse token: %v", ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(*models.WatchTokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", ErrUnauthorized)
	}
	if claims.Scope != models.ScopeManage && claims.Scope != models.ScopeUnsubscribe {
		return nil, fmt.Errorf("%w: unknown token scope %q", ErrUnauthorized, claims.Scope)
	}
	return claims, nil
}

// ValidateForWatch 验证令牌属于指定提醒
func (s *WatchTokenService) ValidateForWatch(tokenString, watchID string) error {
	claims, err := s.Validate(tokenString)
	if err != nil {
		return err
	}
	if claims.WatchID != watchID {
		return fmt.Errorf("%w: token does not match watch", ErrUnauthorized)
	}
	return nil
}
