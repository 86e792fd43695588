package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// DefaultTokenSecret 开发环境默认签名密钥，生产环境禁止使用
const DefaultTokenSecret = "airease-local-development-secret"

// Config 应用配置结构
type Config struct {
	// 环境配置
	Environment string
	Port        string
	Debug       bool

	// CORS配置
	AllowedOrigins []string

	// 存储配置
	StoreDriver  string // sqlite | postgres | mongo | local
	SQLitePath   string
	PostgresDSN  string
	MongoURL     string
	DBName       string
	LocalDataDir string

	// SMTP配置，SMTPHost 为空时使用日志邮件
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPSender   string

	// Gemini配置，APIKey 为空时只使用规则推荐
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	// 价格源配置，PriceAPIURL 为空时使用模拟价格
	PriceAPIURL string
	PriceAPIKey string

	// 价格监控配置
	MonitorEnabled      bool
	MonitorSchedule     string
	MonitorTimezone     string
	PriceTimeout        time.Duration
	AITimeout           time.Duration
	MailTimeout         time.Duration
	MaxDispatchAttempts int
	RenotifyOnFlatPrice bool

	// 链接与令牌
	PublicBaseURL string
	TokenSecret   string
	CronSecret    string
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("PORT", "3000")
	v.SetDefault("DEBUG", false)
	v.SetDefault("ALLOWED_ORIGINS", "*")

	v.SetDefault("STORE_DRIVER", "sqlite")
	v.SetDefault("SQLITE_PATH", "airease.db")
	v.SetDefault("DB_NAME", "airease")
	v.SetDefault("LOCAL_DATA_DIR", "./data")

	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_SENDER", "alerts@airease.com")

	v.SetDefault("GEMINI_MODEL", "gemini-2.0-flash")
	v.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")

	v.SetDefault("MONITOR_ENABLED", true)
	v.SetDefault("MONITOR_SCHEDULE", "@every 30m")
	v.SetDefault("MONITOR_TIMEZONE", "UTC")
	v.SetDefault("PRICE_TIMEOUT", 10*time.Second)
	v.SetDefault("AI_TIMEOUT", 15*time.Second)
	v.SetDefault("MAIL_TIMEOUT", 20*time.Second)
	v.SetDefault("MAX_DISPATCH_ATTEMPTS", 5)
	v.SetDefault("RENOTIFY_ON_FLAT_PRICE", false)

	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:3000")
	v.SetDefault("TOKEN_SECRET", DefaultTokenSecret)
}

// Load 加载配置（默认值 → .env 文件 → 环境变量）
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	// 根据环境加载对应的 .env 文件
	envFile := ".env.local"
	if v.GetString("ENVIRONMENT") == "production" {
		envFile = ".env.production"
	}
	if err := loadEnvFile(v, envFile); err != nil {
		return nil, err
	}

	return fromViper(v), nil
}

// loadEnvFile 读取 dotenv 文件，文件不存在时静默返回
func loadEnvFile(v *viper.Viper, filename string) error {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil
	}

	v.SetConfigFile(filename)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", filename, err)
	}
	return nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{
		Environment: strings.TrimSpace(v.GetString("ENVIRONMENT")),
		Port:        strings.TrimSpace(v.GetString("PORT")),
		Debug:       v.GetBool("DEBUG"),

		StoreDriver:  strings.ToLower(strings.TrimSpace(v.GetString("STORE_DRIVER"))),
		SQLitePath:   strings.TrimSpace(v.GetString("SQLITE_PATH")),
		PostgresDSN:  strings.TrimSpace(v.GetString("POSTGRES_DSN")),
		MongoURL:     strings.TrimSpace(v.GetString("MONGO_URL")),
		DBName:       strings.TrimSpace(v.GetString("DB_NAME")),
		LocalDataDir: strings.TrimSpace(v.GetString("LOCAL_DATA_DIR")),

		SMTPHost:     strings.TrimSpace(v.GetString("SMTP_HOST")),
		SMTPPort:     v.GetInt("SMTP_PORT"),
		SMTPUsername: strings.TrimSpace(v.GetString("SMTP_USERNAME")),
		SMTPPassword: v.GetString("SMTP_PASSWORD"),
		SMTPSender:   strings.TrimSpace(v.GetString("SMTP_SENDER")),

		GeminiAPIKey:  strings.TrimSpace(v.GetString("GEMINI_API_KEY")),
		GeminiModel:   strings.TrimSpace(v.GetString("GEMINI_MODEL")),
		GeminiBaseURL: strings.TrimSpace(v.GetString("GEMINI_BASE_URL")),

		PriceAPIURL: strings.TrimSpace(v.GetString("PRICE_API_URL")),
		PriceAPIKey: strings.TrimSpace(v.GetString("PRICE_API_KEY")),

		MonitorEnabled:      v.GetBool("MONITOR_ENABLED"),
		MonitorSchedule:     strings.TrimSpace(v.GetString("MONITOR_SCHEDULE")),
		MonitorTimezone:     strings.TrimSpace(v.GetString("MONITOR_TIMEZONE")),
		PriceTimeout:        v.GetDuration("PRICE_TIMEOUT"),
		AITimeout:           v.GetDuration("AI_TIMEOUT"),
		MailTimeout:         v.GetDuration("MAIL_TIMEOUT"),
		MaxDispatchAttempts: v.GetInt("MAX_DISPATCH_ATTEMPTS"),
		RenotifyOnFlatPrice: v.GetBool("RENOTIFY_ON_FLAT_PRICE"),

		PublicBaseURL: strings.TrimRight(strings.TrimSpace(v.GetString("PUBLIC_BASE_URL")), "/"),
		TokenSecret:   v.GetString("TOKEN_SECRET"),
		CronSecret:    strings.TrimSpace(v.GetString("CRON_SECRET")),
	}

	// CORS配置
	allowedOrigins := strings.TrimSpace(v.GetString("ALLOWED_ORIGINS"))
	if allowedOrigins == "" || allowedOrigins == "*" {
		cfg.AllowedOrigins = []string{"*"}
	} else {
		for _, origin := range strings.Split(allowedOrigins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}

	// 生产环境关闭调试
	if cfg.IsProduction() {
		cfg.Debug = false
	}

	return cfg
}

// Cached config (initialized once per cold start)
var (
	cachedConfig *Config
	cachedErr    error
	configOnce   sync.Once
)

// GetCached returns the process-wide cached Config.
// On serverless (Vercel), it initializes once per cold start and
// reuses it across warm invocations, avoiding per-request parsing.
func GetCached() (*Config, error) {
	configOnce.Do(func() {
		cachedConfig, cachedErr = Load()
	})
	return cachedConfig, cachedErr
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.StoreDriver {
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite store")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the postgres store")
		}
	case "mongo":
		if c.MongoURL == "" {
			return fmt.Errorf("MONGO_URL is required for the mongo store")
		}
	case "local":
		if c.LocalDataDir == "" {
			return fmt.Errorf("LOCAL_DATA_DIR is required for the local store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.PriceTimeout <= 0 || c.AITimeout <= 0 || c.MailTimeout <= 0 {
		return fmt.Errorf("PRICE_TIMEOUT, AI_TIMEOUT and MAIL_TIMEOUT must be positive")
	}
	if c.MaxDispatchAttempts <= 0 {
		return fmt.Errorf("MAX_DISPATCH_ATTEMPTS must be positive")
	}

	// 验证签名密钥
	if c.TokenSecret == "" || c.TokenSecret == DefaultTokenSecret {
		if c.IsProduction() {
			return fmt.Errorf("TOKEN_SECRET must be set in production")
		}
	}

	return nil
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// SMTPConfigured 是否配置了真实邮件发送
func (c *Config) SMTPConfigured() bool {
	return c.SMTPHost != ""
}

// StoreTarget 返回存储连接描述（不含密码）
func (c *Config) StoreTarget() string {
	switch c.StoreDriver {
	case "sqlite":
		return c.SQLitePath
	case "local":
		return c.LocalDataDir
	case "mongo":
		return c.DBName
	default:
		return "configured"
	}
}
