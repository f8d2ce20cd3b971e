package config

import (
	"CareHive/pkg/logger"
	"CareHive/pkg/notification"
	"CareHive/pkg/util"
	"log"
	"os"
	"time"
)

// config/config.go
type Config struct {
	DBDriver  string `env:"DB_DRIVER"`
	DSN       string `env:"DSN"`
	Log       logger.LogConfig
	Mail      notification.MailConfig
	Twilio    notification.TwilioSMSConfig
	Addr      string `env:"ADDR"`
	Mode      string `env:"MODE"`
	APIPrefix string `env:"API_PREFIX"`
	JWTSecret string `env:"JWT_SECRET"`

	// geofence defaults
	DefaultSafeRadiusMeters float64       `env:"DEFAULT_SAFE_RADIUS_METERS"`
	SMSCooldown             time.Duration `env:"SMS_COOLDOWN"`
	RingTimeout             time.Duration `env:"RING_TIMEOUT"`

	CacheType string `env:"CACHE_TYPE"`
	RedisAddr string `env:"REDIS_ADDR"`

	LLMApiKey  string `env:"LLM_API_KEY"`
	LLMBaseURL string `env:"LLM_BASE_URL"`
	LLMModel   string `env:"LLM_MODEL"`

	RateLimitLocation string `env:"RATE_LIMIT_LOCATION"`
	DigestSchedule    string `env:"DIGEST_SCHEDULE"`
	DigestEnabled     bool   `env:"DIGEST_ENABLED"`
}

var GlobalConfig *Config

func Load() error {
	// 1. 根据环境加载 .env 文件
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	if err := util.LoadEnv(env); err != nil {
		log.Printf("Failed to load .env file: %v", err)
	}

	// 2. 加载全局配置
	GlobalConfig = &Config{
		DBDriver:  util.GetEnvDefault("DB_DRIVER", "sqlite"),
		DSN:       util.GetEnvDefault("DSN", "carehive.db"),
		Addr:      util.GetEnvDefault("ADDR", ":8080"),
		Mode:      util.GetEnvDefault("MODE", "debug"),
		APIPrefix: util.GetEnvDefault("API_PREFIX", "/api"),
		JWTSecret: util.GetEnv("JWT_SECRET"),
		Log: logger.LogConfig{
			Level:      util.GetEnv("LOG_LEVEL"),
			Filename:   util.GetEnv("LOG_FILENAME"),
			MaxSize:    int(util.GetIntEnv("LOG_MAX_SIZE")),
			MaxAge:     int(util.GetIntEnv("LOG_MAX_AGE")),
			MaxBackups: int(util.GetIntEnv("LOG_MAX_BACKUPS")),
		},
		Mail: notification.MailConfig{
			Host:     util.GetEnv("MAIL_HOST"),
			Username: util.GetEnv("MAIL_USERNAME"),
			Password: util.GetEnv("MAIL_PASSWORD"),
			Port:     util.GetIntEnvDefault("MAIL_PORT", 587),
			From:     util.GetEnv("MAIL_FROM"),
		},
		Twilio: notification.TwilioSMSConfig{
			AccountSID: util.GetEnv("TWILIO_ACCOUNT_SID"),
			AuthToken:  util.GetEnv("TWILIO_AUTH_TOKEN"),
			From:       util.GetEnv("TWILIO_FROM"),
			Endpoint:   util.GetEnv("TWILIO_ENDPOINT"),
		},
		DefaultSafeRadiusMeters: util.GetFloatEnvDefault("DEFAULT_SAFE_RADIUS_METERS", 100),
		SMSCooldown:             util.GetDurationEnvDefault("SMS_COOLDOWN", 5*time.Minute),
		RingTimeout:             util.GetDurationEnvDefault("RING_TIMEOUT", 45*time.Second),
		CacheType:               util.GetEnvDefault("CACHE_TYPE", "gocache"),
		RedisAddr:               util.GetEnv("REDIS_ADDR"),
		LLMApiKey:               util.GetEnv("LLM_API_KEY"),
		LLMBaseURL:              util.GetEnv("LLM_BASE_URL"),
		LLMModel:                util.GetEnvDefault("LLM_MODEL", "gpt-4o-mini"),
		RateLimitLocation:       util.GetEnvDefault("RATE_LIMIT_LOCATION", "120-M"),
		DigestSchedule:          util.GetEnvDefault("DIGEST_SCHEDULE", "0 7 * * *"),
		DigestEnabled:           util.GetBoolEnv("DIGEST_ENABLED"),
	}
	return nil
}
