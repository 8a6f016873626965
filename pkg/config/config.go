package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ==================== 配置结构 ====================

// Config 应用配置
type Config struct {
	ServerPort string
	LogLevel   string
	Debug      bool

	Database DatabaseConfig
	AI       AIConfig
	Storage  StorageConfig
	Image    ImageConfig
	Task     TaskConfig
	Auth     AuthConfig
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string // postgres | sqlite
	DSN    string
}

// AIConfig Gemini 配置
type AIConfig struct {
	APIKey        string
	TextModel     string
	ImageModel    string
	SearchTimeout time.Duration
	RateInterval  time.Duration // 同一客户端两次 AI 请求的最小间隔
}

// StorageConfig 图片存储配置
type StorageConfig struct {
	Provider  string // s3 | cos | local
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string
	CDNDomain string
	BasePath  string
}

// ImageConfig 图片地址解析配置
type ImageConfig struct {
	BaseURL string // 相对路径图片的前缀
}

// TaskConfig 定时任务配置
type TaskConfig struct {
	BackfillEnabled     bool
	BackfillCron        string
	BatchConcurrency    int
	BatchStatusRetained time.Duration
	BackfillMaxPerRun   int // 单次补图上限，0 表示不限

	LogCleanupCron   string
	LogRetentionDays int // AI 调用记录保留天数，0 表示不清理

	SessionCleanupCron string
	CartIdleTTL        time.Duration // 报价单空闲多久后失效
	BatchJobRetained   time.Duration // 已结束的批量任务保留多久
}

// AuthConfig 后台登录配置
type AuthConfig struct {
	JWTSecret       string
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// 用户表为空时用它创建初始管理员
	AdminUsername string
	AdminPassword string
}

// ==================== 加载 ====================

// Load 读取 .env 与环境变量，缺省值在这里统一设置
func Load() *Config {
	// .env 不存在时忽略，生产环境直接走环境变量
	_ = godotenv.Load(".env")

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return &Config{
		ServerPort: v.GetString("SERVER_PORT"),
		LogLevel:   v.GetString("LOG_LEVEL"),
		Debug:      v.GetBool("DEBUG"),
		Database: DatabaseConfig{
			Driver: v.GetString("DB_DRIVER"),
			DSN:    v.GetString("DB_DSN"),
		},
		AI: AIConfig{
			APIKey:        v.GetString("GEMINI_API_KEY"),
			TextModel:     v.GetString("GEMINI_TEXT_MODEL"),
			ImageModel:    v.GetString("GEMINI_IMAGE_MODEL"),
			SearchTimeout: v.GetDuration("AI_SEARCH_TIMEOUT"),
			RateInterval:  v.GetDuration("AI_RATE_LIMIT_INTERVAL"),
		},
		Storage: StorageConfig{
			Provider:  v.GetString("STORAGE_PROVIDER"),
			Bucket:    v.GetString("AWS_BUCKET"),
			Region:    v.GetString("AWS_REGION"),
			AccessKey: v.GetString("AWS_ACCESS_KEY_ID"),
			SecretKey: v.GetString("AWS_SECRET_ACCESS_KEY"),
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			CDNDomain: v.GetString("AWS_CDN_DOMAIN"),
			BasePath:  v.GetString("STORAGE_BASE_PATH"),
		},
		Image: ImageConfig{
			BaseURL: v.GetString("IMAGE_BASE_URL"),
		},
		Task: TaskConfig{
			BackfillEnabled:     v.GetBool("BACKFILL_ENABLED"),
			BackfillCron:        v.GetString("BACKFILL_CRON"),
			BatchConcurrency:    v.GetInt("BATCH_CONCURRENCY"),
			BatchStatusRetained: v.GetDuration("BATCH_STATUS_RETAINED"),
			BackfillMaxPerRun:   v.GetInt("BACKFILL_MAX_PER_RUN"),
			LogCleanupCron:      v.GetString("AI_LOG_CLEANUP_CRON"),
			LogRetentionDays:    v.GetInt("AI_LOG_RETENTION_DAYS"),
			SessionCleanupCron:  v.GetString("SESSION_CLEANUP_CRON"),
			CartIdleTTL:         v.GetDuration("CART_IDLE_TTL"),
			BatchJobRetained:    v.GetDuration("BATCH_JOB_RETAINED"),
		},
		Auth: AuthConfig{
			JWTSecret:       v.GetString("JWT_SECRET"),
			Issuer:          v.GetString("JWT_ISSUER"),
			AccessTokenTTL:  v.GetDuration("JWT_ACCESS_TTL"),
			RefreshTokenTTL: v.GetDuration("JWT_REFRESH_TTL"),
			AdminUsername:   v.GetString("ADMIN_USERNAME"),
			AdminPassword:   v.GetString("ADMIN_PASSWORD"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DEBUG", false)

	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_DSN", "obra_catalog.db")

	v.SetDefault("GEMINI_TEXT_MODEL", "gemini-2.5-flash")
	v.SetDefault("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image")
	v.SetDefault("AI_SEARCH_TIMEOUT", 20*time.Second)
	v.SetDefault("AI_RATE_LIMIT_INTERVAL", 2*time.Second)

	v.SetDefault("STORAGE_PROVIDER", "local")
	v.SetDefault("STORAGE_BASE_PATH", "./uploads")
	v.SetDefault("STORAGE_ENDPOINT", "http://localhost:8080/uploads")

	v.SetDefault("BACKFILL_ENABLED", false)
	v.SetDefault("BACKFILL_CRON", "0 0 3 * * *")
	v.SetDefault("BATCH_CONCURRENCY", 3)
	v.SetDefault("BATCH_STATUS_RETAINED", 2*time.Second)
	v.SetDefault("BACKFILL_MAX_PER_RUN", 20)
	v.SetDefault("AI_LOG_CLEANUP_CRON", "0 30 4 * * *")
	v.SetDefault("AI_LOG_RETENTION_DAYS", 30)
	v.SetDefault("SESSION_CLEANUP_CRON", "0 */10 * * * *")
	v.SetDefault("CART_IDLE_TTL", 24*time.Hour)
	v.SetDefault("BATCH_JOB_RETAINED", time.Hour)

	v.SetDefault("JWT_SECRET", "obra-catalog-secret-change-in-production")
	v.SetDefault("JWT_ISSUER", "obra-catalog")
	v.SetDefault("JWT_ACCESS_TTL", 2*time.Hour)
	v.SetDefault("JWT_REFRESH_TTL", 7*24*time.Hour)
	v.SetDefault("ADMIN_USERNAME", "admin")
}
