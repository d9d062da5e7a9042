// Package config loads process configuration from the environment. A .env
// file in the working directory, when present, is loaded first and never
// overrides variables that are already set.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrInvalidConfig = errors.New("invalid configuration")

const (
	RemoteStorePostgres = "postgres"
	RemoteStoreMongo    = "mongo"
	RemoteStoreNone     = "none"

	HandoffStoreRedis  = "redis"
	HandoffStoreMemory = "memory"
)

type Config struct {
	HTTPPort string
	LogLevel string

	RemoteStore    string
	DBHost         string
	DBPort         int
	DBUser         string
	DBPassword     string
	DBName         string
	MigrationsPath string
	MongoURI       string
	MongoDBName    string

	HandoffStore  string
	RedisAddr     string
	RedisPassword string
	HandoffTTL    time.Duration

	JWTSecret string

	SyncTimeout    time.Duration
	SyncQueueSize  int
	OrderDelay     time.Duration
	SessionIdleTTL time.Duration

	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	SecureCookie       bool
}

// Load reads .env (if any) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		RemoteStore:    strings.ToLower(getEnv("REMOTE_STORE", RemoteStorePostgres)),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getInt("DB_PORT", 5432),
		DBUser:         getEnv("DB_USER", "storefront"),
		DBPassword:     getEnv("DB_PASSWORD", "storefront"),
		DBName:         getEnv("DB_NAME", "storefront"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "internal/repository/migrations"),
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:    getEnv("MONGO_DB_NAME", "storefront"),

		HandoffStore:  strings.ToLower(getEnv("HANDOFF_STORE", HandoffStoreRedis)),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		HandoffTTL:    getDuration("HANDOFF_TTL", 30*time.Minute),

		JWTSecret: getEnv("JWT_SECRET", ""),

		SyncTimeout:    getDuration("SYNC_TIMEOUT", 5*time.Second),
		SyncQueueSize:  getInt("SYNC_QUEUE_SIZE", 64),
		OrderDelay:     getDuration("ORDER_DELAY", 1500*time.Millisecond),
		SessionIdleTTL: getDuration("SESSION_IDLE_TTL", 2*time.Hour),

		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: 1 << 20, // 1MB
		SecureCookie:       getEnv("SECURE_COOKIE", "false") == "true",
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.RemoteStore {
	case RemoteStorePostgres, RemoteStoreMongo, RemoteStoreNone:
	default:
		return fmt.Errorf("%w: REMOTE_STORE=%q", ErrInvalidConfig, c.RemoteStore)
	}
	switch c.HandoffStore {
	case HandoffStoreRedis, HandoffStoreMemory:
	default:
		return fmt.Errorf("%w: HANDOFF_STORE=%q", ErrInvalidConfig, c.HandoffStore)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("%w: JWT_SECRET is required", ErrInvalidConfig)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := getEnv(key, ""); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

// getDuration accepts Go duration strings ("90s", "1h30m").
func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := getEnv(key, ""); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}
