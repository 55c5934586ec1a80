package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "pawnshop/pkg/platform/strings"
)

// StoreBackend selects the persistence implementation.
type StoreBackend string

const (
	BackendMemory   StoreBackend = "memory"
	BackendPostgres StoreBackend = "postgres"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	LogLevel       string
	MetricsEnabled bool
	Store          StoreBackend
	HTTP           HTTPConfig
	Database       DatabaseConfig
	Auth           AuthConfig
	Redis          RedisConfig
	Kafka          KafkaConfig
}

// HTTPConfig bounds how long the listener waits on slow peers and on
// in-flight requests during shutdown.
type HTTPConfig struct {
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	URL          string
	Driver       string // "pgx" or "postgres"
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
}

// AuthConfig holds the bearer token settings shared with the identity provider.
type AuthConfig struct {
	JWTSigningKey string
	Issuer        string
	Audience      string
	TokenTTL      time.Duration
}

// RedisConfig holds Redis settings for the token revocation list.
// An empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds settings for the audit event stream.
// No brokers means audit events go to the log only.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	signingKey := os.Getenv("JWT_SIGNING_KEY")
	if signingKey == "" {
		// Use a default for development - should be overridden in production
		signingKey = "dev-secret-key-change-in-production"
	}

	store := StoreBackend(strings.ToLower(getEnv("STORE_BACKEND", string(BackendMemory))))
	if store != BackendPostgres {
		store = BackendMemory
	}

	return Server{
		Addr:           getEnv("PAWNSHOP_ADDR", ":8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		MetricsEnabled: getBool("METRICS_ENABLED", true),
		Store:          store,
		HTTP: HTTPConfig{
			ReadHeaderTimeout: getDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:      getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:       getDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout:   getDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			Driver:       getEnv("DATABASE_DRIVER", "pgx"),
			MaxOpenConns: getInt("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns: getInt("DATABASE_MAX_IDLE_CONNS", 5),
			MaxIdleTime:  getDuration("DATABASE_MAX_IDLE_TIME", 5*time.Minute),
		},
		Auth: AuthConfig{
			JWTSigningKey: signingKey,
			Issuer:        getEnv("JWT_ISSUER", "pawnshop"),
			Audience:      getEnv("JWT_AUDIENCE", "pawnshop-api"),
			TokenTTL:      getDuration("JWT_TOKEN_TTL", time.Hour),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    pstrings.SplitList(os.Getenv("KAFKA_BROKERS")),
			AuditTopic: getEnv("KAFKA_AUDIT_TOPIC", "pawnshop.audit"),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}
