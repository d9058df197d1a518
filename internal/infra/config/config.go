package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddress   string
	HTTPSCertFile string
	HTTPSKeyFile  string
	LogLevel      string

	DatabaseURL string

	RedisAddress  string
	RedisPassword string
	RedisDB       int

	AccessTokenSecret  string
	AccessTokenTTL     time.Duration
	RefreshTokenSecret string
	RefreshTokenTTL    time.Duration
	Issuer             string
	Audience           string
	PasswordPepper     string

	CookieDomain string
	CookieSecure bool

	AllowedOrigins   []string
	AllowCredentials bool

	S3Endpoint      string
	S3Region        string
	S3Bucket        string
	S3AccessKey     string
	S3SecretKey     string
	S3PublicBaseURL string
	S3KeyPrefix     string
	UploadTempDir   string
	MaxUploadBytes  int64

	ExternalCallTimeout            time.Duration
	LoginMaxAttempts               int
	LoginLockoutWindow             time.Duration
	RevokeSessionsOnPasswordChange bool
	RateLimitPerSecond             int
	RateLimitBurst                 int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDRESS", ":8000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("REFRESH_TOKEN_TTL", "240h")
	v.SetDefault("JWT_ISSUER", "video-service")
	v.SetDefault("JWT_AUDIENCE", "video-service")
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("ALLOW_CREDENTIALS", true)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_KEY_PREFIX", "media")
	v.SetDefault("UPLOAD_TEMP_DIR", "./public/temp")
	v.SetDefault("MAX_UPLOAD_BYTES", 10<<20)
	v.SetDefault("EXTERNAL_CALL_TIMEOUT", "5s")
	v.SetDefault("LOGIN_MAX_ATTEMPTS", 5)
	v.SetDefault("LOGIN_LOCKOUT_WINDOW", "15m")
	v.SetDefault("REVOKE_SESSIONS_ON_PASSWORD_CHANGE", false)
	v.SetDefault("RATE_LIMIT_PER_SECOND", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
}

var envKeys = []string{
	"HTTP_ADDRESS", "HTTPS_CERT_FILE", "HTTPS_KEY_FILE", "LOG_LEVEL",
	"DATABASE_URL",
	"REDIS_ADDRESS", "REDIS_PASSWORD", "REDIS_DB",
	"ACCESS_TOKEN_SECRET", "ACCESS_TOKEN_TTL", "REFRESH_TOKEN_SECRET", "REFRESH_TOKEN_TTL",
	"JWT_ISSUER", "JWT_AUDIENCE", "PASSWORD_PEPPER",
	"COOKIE_DOMAIN", "COOKIE_SECURE", "ALLOWED_ORIGINS", "ALLOW_CREDENTIALS",
	"S3_ENDPOINT", "S3_REGION", "S3_BUCKET", "S3_ACCESS_KEY", "S3_SECRET_KEY",
	"S3_PUBLIC_BASE_URL", "S3_KEY_PREFIX", "UPLOAD_TEMP_DIR", "MAX_UPLOAD_BYTES",
	"EXTERNAL_CALL_TIMEOUT", "LOGIN_MAX_ATTEMPTS", "LOGIN_LOCKOUT_WINDOW",
	"REVOKE_SESSIONS_ON_PASSWORD_CHANGE", "RATE_LIMIT_PER_SECOND", "RATE_LIMIT_BURST",
}

// Load reads .env (if any), then config.json (if any), then the environment.
func Load() (*Config, error) {
	// .env нужен только локально, отсутствие файла не ошибка
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	setDefaults(v)

	v.AutomaticEnv()
	for _, k := range envKeys {
		if err := v.BindEnv(k); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		HTTPAddress:   v.GetString("HTTP_ADDRESS"),
		HTTPSCertFile: v.GetString("HTTPS_CERT_FILE"),
		HTTPSKeyFile:  v.GetString("HTTPS_KEY_FILE"),
		LogLevel:      v.GetString("LOG_LEVEL"),

		DatabaseURL: v.GetString("DATABASE_URL"),

		RedisAddress:  v.GetString("REDIS_ADDRESS"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),

		AccessTokenSecret:  v.GetString("ACCESS_TOKEN_SECRET"),
		AccessTokenTTL:     v.GetDuration("ACCESS_TOKEN_TTL"),
		RefreshTokenSecret: v.GetString("REFRESH_TOKEN_SECRET"),
		RefreshTokenTTL:    v.GetDuration("REFRESH_TOKEN_TTL"),
		Issuer:             v.GetString("JWT_ISSUER"),
		Audience:           v.GetString("JWT_AUDIENCE"),
		PasswordPepper:     v.GetString("PASSWORD_PEPPER"),

		CookieDomain: v.GetString("COOKIE_DOMAIN"),
		CookieSecure: v.GetBool("COOKIE_SECURE"),

		AllowedOrigins:   splitList(v.GetStringSlice("ALLOWED_ORIGINS")),
		AllowCredentials: v.GetBool("ALLOW_CREDENTIALS"),

		S3Endpoint:      v.GetString("S3_ENDPOINT"),
		S3Region:        v.GetString("S3_REGION"),
		S3Bucket:        v.GetString("S3_BUCKET"),
		S3AccessKey:     v.GetString("S3_ACCESS_KEY"),
		S3SecretKey:     v.GetString("S3_SECRET_KEY"),
		S3PublicBaseURL: v.GetString("S3_PUBLIC_BASE_URL"),
		S3KeyPrefix:     v.GetString("S3_KEY_PREFIX"),
		UploadTempDir:   v.GetString("UPLOAD_TEMP_DIR"),
		MaxUploadBytes:  v.GetInt64("MAX_UPLOAD_BYTES"),

		ExternalCallTimeout:            v.GetDuration("EXTERNAL_CALL_TIMEOUT"),
		LoginMaxAttempts:               v.GetInt("LOGIN_MAX_ATTEMPTS"),
		LoginLockoutWindow:             v.GetDuration("LOGIN_LOCKOUT_WINDOW"),
		RevokeSessionsOnPasswordChange: v.GetBool("REVOKE_SESSIONS_ON_PASSWORD_CHANGE"),
		RateLimitPerSecond:             v.GetInt("RATE_LIMIT_PER_SECOND"),
		RateLimitBurst:                 v.GetInt("RATE_LIMIT_BURST"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	required := map[string]string{
		"DATABASE_URL":         c.DatabaseURL,
		"ACCESS_TOKEN_SECRET":  c.AccessTokenSecret,
		"REFRESH_TOKEN_SECRET": c.RefreshTokenSecret,
	}
	for k, val := range required {
		if val == "" {
			return fmt.Errorf("%s is not set", k)
		}
	}
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.AccessTokenTTL >= c.RefreshTokenTTL {
		return errors.New("ACCESS_TOKEN_TTL must be shorter than REFRESH_TOKEN_TTL")
	}
	return nil
}

// splitList accepts both ["a","b"] from config.json and "a,b" from env.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			part = strings.Trim(strings.TrimSpace(part), `[]"`)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
