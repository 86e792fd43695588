package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"airease-backend/pkg/models"
	"airease-backend/pkg/utils"
)

var (
	// ErrNotFound 提醒不存在
	ErrNotFound = fmt.Errorf("watch %w", utils.ErrNotFound)
	// ErrUnavailable 存储无法连接或无法打开
	ErrUnavailable = errors.New("watch store unavailable")
)

// WatchStore 定义价格提醒的存储接口
//
// 每个写操作只修改一条记录，不存在跨提醒的锁。
// ListActive 和 List 按插入顺序（createdAt，然后 id）返回。
type WatchStore interface {
	// 查询
	ListActive(ctx context.Context) ([]models.Watch, error)
	List(ctx context.Context) ([]models.Watch, error)
	Get(ctx context.Context, id string) (*models.Watch, error)

	// 写入
	Insert(ctx context.Context, w *models.Watch) error
	RecordCheck(ctx context.Context, id string, at time.Time) error
	// RecordNoMatch sets lastCheck and clears matchedPrice so the next drop
	// under the target alerts again.
	RecordNoMatch(ctx context.Context, id string, at time.Time) error
	RecordMatch(ctx context.Context, id string, matchedPrice int, at time.Time) error
	// RecordDispatchFailure counts a failed dispatch and deactivates the watch
	// once maxAttempts consecutive failures have accrued.
	RecordDispatchFailure(ctx context.Context, id string, maxAttempts int) (deactivated bool, err error)
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error

	// 健康检查
	Ping(ctx context.Context) error

	// 关闭连接
	Close() error
}

// StoreConfig 存储配置
type StoreConfig struct {
	Driver       string // sqlite | postgres | mongo | local
	SQLitePath   string
	PostgresDSN  string
	MongoURL     string
	DBName       string
	LocalDataDir string
}

// Open 根据驱动打开对应的存储实现
func Open(ctx context.Context, cfg StoreConfig) (WatchStore, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return asStore(OpenSQLite(ctx, cfg.SQLitePath))
	case "postgres":
		return asStore(OpenPostgres(ctx, cfg.PostgresDSN))
	case "mongo":
		return asStore(OpenMongo(ctx, cfg.MongoURL, cfg.DBName))
	case "local":
		return asStore(NewLocalStore(cfg.LocalDataDir))
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// asStore 避免把 nil 指针包装成非 nil 接口
func asStore[S WatchStore](s S, err error) (WatchStore, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

// newWatchDefaults 填充新提醒的默认字段
func newWatchDefaults(w *models.Watch, newID func() string) {
	if w.ID == "" {
		w.ID = newID()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	} else {
		w.CreatedAt = w.CreatedAt.UTC()
	}
}

// IsVercelEnvironment 检查是否在Vercel环境中
func IsVercelEnvironment() bool {
	vercelEnv := os.Getenv("VERCEL_ENV")
	vercelURL := os.Getenv("VERCEL_URL")
	awsLambda := os.Getenv("AWS_LAMBDA_FUNCTION_NAME")
	return vercelEnv != "" || vercelURL != "" || awsLambda != ""
}
