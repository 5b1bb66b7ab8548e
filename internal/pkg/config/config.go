package config

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	App        AppConfig        `mapstructure:"app"`
	QR         QRConfig         `mapstructure:"qr"`
	Redemption RedemptionConfig `mapstructure:"redemption"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	OSS        OSSConfig        `mapstructure:"oss"`
	Push       PushConfig       `mapstructure:"push"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Port     string `mapstructure:"port"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Expire int64  `mapstructure:"expire"` // 小时
}

type AppConfig struct {
	Env   string `mapstructure:"env"`
	Debug bool   `mapstructure:"debug"`
}

// QRConfig 扫码凭证配置
type QRConfig struct {
	Secret  string        `mapstructure:"secret"`
	LinkTTL time.Duration `mapstructure:"link_ttl"` // 深链凭证有效期
}

// RedemptionConfig 核销流程配置
type RedemptionConfig struct {
	StoreTimeout     time.Duration `mapstructure:"store_timeout"`      // 单次存储调用超时
	DoubleScanWindow time.Duration `mapstructure:"double_scan_window"` // 租户未配置时的默认重复扫码窗口
	DuplicatePolicy  string        `mapstructure:"duplicate_policy"`   // window | same_day
	DefaultTimezone  string        `mapstructure:"default_timezone"`
	SettingsCacheTTL time.Duration `mapstructure:"settings_cache_ttl"`
	NonceCapacity    int           `mapstructure:"nonce_capacity"` // 内存 nonce 集合上限 (无 Redis 时)
	Workers          int           `mapstructure:"workers"`
	QueueSize        int           `mapstructure:"queue_size"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
	ScannerRateLimit float64       `mapstructure:"scanner_rate_limit"` // 每个扫码设备每秒请求数
	ScannerRateBurst int           `mapstructure:"scanner_rate_burst"`
	MaxBatchSize     int           `mapstructure:"max_batch_size"`
}

// NotifyConfig 核销成功后的通知渠道
type NotifyConfig struct {
	RedisChannel   string `mapstructure:"redis_channel"`   // 空则不发布
	FCMCredentials string `mapstructure:"fcm_credentials"` // service account json 文件路径
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
	Prefix          string `mapstructure:"prefix"` // 离线批次归档前缀
}

type PushConfig struct {
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	AppKey          int64  `mapstructure:"app_key"`
	RegionID        string `mapstructure:"region_id"` // e.g., "cn-hangzhou"
}

var GlobalConfig Config

// Validate 验证配置
func (c *Config) Validate() error {
	// JWT 配置验证
	if c.JWT.Secret == "" || c.JWT.Secret == "your_super_secret_key" {
		return errors.New("please set a secure JWT secret in production")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("JWT secret should be at least 32 characters")
	}

	// 二维码签名密钥
	if len(c.QR.Secret) < 32 {
		return errors.New("QR secret should be at least 32 characters")
	}
	if c.QR.Secret == c.JWT.Secret {
		return errors.New("QR secret must differ from JWT secret")
	}

	// 数据库配置验证
	if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
		return errors.New("database configuration is incomplete")
	}

	// Redis 配置验证，开发环境允许单实例内存缓存
	if c.Redis.Addr == "" && c.App.Env != "dev" {
		return errors.New("redis address is required")
	}

	switch c.Redemption.DuplicatePolicy {
	case "window", "same_day":
	default:
		return errors.New("redemption.duplicate_policy must be window or same_day")
	}
	if _, err := time.LoadLocation(c.Redemption.DefaultTimezone); err != nil {
		return errors.New("redemption.default_timezone is not a valid IANA zone")
	}

	return nil
}

// setDefaults 默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("jwt.expire", 24)
	v.SetDefault("redis.db", 0)
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.debug", true)

	v.SetDefault("qr.link_ttl", 5*time.Minute)

	v.SetDefault("redemption.store_timeout", 3*time.Second)
	v.SetDefault("redemption.double_scan_window", 30*time.Second)
	v.SetDefault("redemption.duplicate_policy", "window")
	v.SetDefault("redemption.default_timezone", "Asia/Kolkata")
	v.SetDefault("redemption.settings_cache_ttl", time.Minute)
	v.SetDefault("redemption.nonce_capacity", 10000)
	v.SetDefault("redemption.workers", 5)
	v.SetDefault("redemption.queue_size", 1000)
	v.SetDefault("redemption.sweep_interval", 10*time.Minute)
	v.SetDefault("redemption.scanner_rate_limit", 10)
	v.SetDefault("redemption.scanner_rate_burst", 20)
	v.SetDefault("redemption.max_batch_size", 500)

	v.SetDefault("oss.prefix", "offline-sync/")
}

// LoadConfig 加载配置
func LoadConfig() {
	// 本地开发时允许使用 .env
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	// 获取环境变量，默认为dev
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	// 根据环境选择配置文件
	configName := "config"
	if env != "dev" {
		configName = "config." + env
	}

	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Printf("Warning: Config file not found, using defaults or env vars: %v", err)
	}

	// 绑定环境变量
	v.AutomaticEnv()

	if err := v.Unmarshal(&GlobalConfig); err != nil {
		log.Fatalf("Unable to decode into struct: %v", err)
	}

	// 手动覆盖，以防 viper 无法正确解析复杂结构或环境变量
	if host := os.Getenv("DB_HOST"); host != "" {
		GlobalConfig.Database.Host = host
	}
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		GlobalConfig.Redis.Addr = redisAddr
	}
	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		GlobalConfig.JWT.Secret = jwtSecret
	}
	if qrSecret := os.Getenv("QR_SECRET"); qrSecret != "" {
		GlobalConfig.QR.Secret = qrSecret
	}

	// 验证配置
	if err := GlobalConfig.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	log.Printf("Configuration loaded and validated successfully. Environment: %s", GlobalConfig.App.Env)
}
