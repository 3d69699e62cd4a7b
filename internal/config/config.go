package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	NodeID      int64

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Redis      RedisConfig
	Allocation AllocationConfig
	RateLimit  RateLimitConfig
	Events     EventsConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

type AllocationConfig struct {
	Timezone        string
	LockBackend     string
	LockTTLSeconds  int
	LockWaitSeconds int
	ConfigDir       string
}

const (
	LockBackendLocal = "local"
	LockBackendRedis = "redis"
)

// Location resolves the zone used for day and week limit windows.
func (c AllocationConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load allocation timezone %q: %w", name, err)
	}
	return loc, nil
}

type RateLimitConfig struct {
	Enabled     bool
	SubmitRate  float64
	SubmitBurst int
}

type EventsConfig struct {
	AMQPURL              string
	Exchange             string
	RelayEnabled         bool
	RelayIntervalSeconds int
	RelayBatchSize       int
	RelayMaxAttempts     int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "fairshare"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		NodeID:            getenvInt64("NODE_ID", 1),
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "fairshare"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 50),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       getenvInt("REDIS_DB", 0),
		},
		Allocation: AllocationConfig{
			Timezone:        strings.TrimSpace(getenv("ALLOCATION_TIMEZONE", "UTC")),
			LockBackend:     strings.ToLower(strings.TrimSpace(getenv("ALLOCATION_LOCK_BACKEND", LockBackendLocal))),
			LockTTLSeconds:  getenvInt("ALLOCATION_LOCK_TTL_SECONDS", 10),
			LockWaitSeconds: getenvInt("ALLOCATION_LOCK_WAIT_SECONDS", 5),
			ConfigDir:       strings.TrimSpace(getenv("ALLOCATION_CONFIG_DIR", "")),
		},
		RateLimit: RateLimitConfig{
			Enabled:     getenvBool("RATE_LIMIT_ENABLED", false),
			SubmitRate:  getenvFloat("RATE_LIMIT_SUBMIT_RATE", 1),
			SubmitBurst: getenvInt("RATE_LIMIT_SUBMIT_BURST", 10),
		},
		Events: EventsConfig{
			AMQPURL:              strings.TrimSpace(getenv("AMQP_URL", "")),
			Exchange:             getenv("AMQP_EXCHANGE", "fairshare.events"),
			RelayEnabled:         getenvBool("EVENT_RELAY_ENABLED", true),
			RelayIntervalSeconds: getenvInt("EVENT_RELAY_INTERVAL_SECONDS", 2),
			RelayBatchSize:       getenvInt("EVENT_RELAY_BATCH_SIZE", 100),
			RelayMaxAttempts:     getenvInt("EVENT_RELAY_MAX_ATTEMPTS", 10),
		},
	}

	return cfg
}

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewAllocationDefaultsHolder),
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt(key string, def int) int {
	return int(getenvInt64(key, int64(def)))
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
