package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// MinJWTSecretLength はJWT_SECRETとして受け付ける最小バイト数。
const MinJWTSecretLength = 32

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Token
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	TokenLifetime  time.Duration
	TokenClockSkew time.Duration

	// Credential store
	LockoutMaxFailedAttempts int
	LockoutDuration          time.Duration
	BcryptCost               int

	// Worker
	LockoutCleanupInterval time.Duration

	// Seed admin（3つとも設定された場合のみ有効）
	SeedAdminName     string
	SeedAdminEmail    string
	SeedAdminPassword string

	// Rate Limit
	RateLimitGeneral int
	RateLimitAuth    int

	// Logging
	LogLevel string

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合、またはJWT_SECRETが短すぎる場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if len(cfg.JWTSecret) < MinJWTSecretLength {
		return nil, fmt.Errorf("JWT_SECRET must be at least %d bytes", MinJWTSecretLength)
	}

	// Optional fields with defaults
	cfg.JWTIssuer = getEnvString("JWT_ISSUER", "taskboard")
	cfg.JWTAudience = getEnvString("JWT_AUDIENCE", "taskboard-api")
	cfg.TokenLifetime = getEnvDuration("TOKEN_LIFETIME", 5*time.Minute)
	cfg.TokenClockSkew = getEnvDuration("TOKEN_CLOCK_SKEW", 60*time.Second)
	cfg.LockoutMaxFailedAttempts = getEnvInt("LOCKOUT_MAX_FAILED_ATTEMPTS", 3)
	cfg.LockoutDuration = getEnvDuration("LOCKOUT_DURATION", 5*time.Minute)
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", bcrypt.DefaultCost)
	cfg.LockoutCleanupInterval = getEnvDuration("LOCKOUT_CLEANUP_INTERVAL", time.Hour)
	cfg.SeedAdminName = getEnvString("SEED_ADMIN_NAME", "")
	cfg.SeedAdminEmail = getEnvString("SEED_ADMIN_EMAIL", "")
	cfg.SeedAdminPassword = getEnvString("SEED_ADMIN_PASSWORD", "")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 10)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "*")

	return cfg, nil
}

// HasSeedAdmin は起動時に管理者アカウントを用意すべきかを返す。
func (c *Config) HasSeedAdmin() bool {
	return c.SeedAdminName != "" && c.SeedAdminEmail != "" && c.SeedAdminPassword != ""
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
