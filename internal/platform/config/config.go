package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr        string
	Environment string
	LogLevel    string
	Auth        AuthConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Triage      TriageConfig
	Audit       AuditConfig
	Tracing     TracingConfig
	RateLimit   RateLimitConfig
}

// AuthConfig describes how bearer tokens from the identity provider are checked.
type AuthConfig struct {
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
}

// DatabaseConfig selects the Postgres gateway. Empty URL keeps records in memory.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig selects the Redis draft store. Empty URL keeps drafts in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// TriageConfig tunes the questionnaire.
type TriageConfig struct {
	// CatalogPath overrides the embedded catalog when set.
	CatalogPath string
	DraftTTL    time.Duration
}

// AuditConfig selects the Kafka audit publisher. No brokers means log-only.
type AuditConfig struct {
	Brokers []string
	Topic   string
}

// RateLimitConfig bounds per-user requests on the triage API.
type RateLimitConfig struct {
	Disabled bool
	Requests int
	Window   time.Duration
}

// TracingConfig selects the OpenTelemetry span exporter: "none", "stdout"
// or "otlp".
type TracingConfig struct {
	Exporter    string
	Endpoint    string
	SampleRatio float64
}

// IsProduction reports whether the process runs with production defaults.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:        getEnv("PONTES_ADDR", ":8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Auth: AuthConfig{
			JWTSigningKey: jwtSigningKey,
			JWTIssuer:     getEnv("JWT_ISSUER", "pontes-identity"),
			JWTAudience:   getEnv("JWT_AUDIENCE", "pontes"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getEnvInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Triage: TriageConfig{
			CatalogPath: os.Getenv("TRIAGE_CATALOG_PATH"),
			DraftTTL:    getEnvDuration("TRIAGE_DRAFT_TTL", 30*24*time.Hour),
		},
		Audit: AuditConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("AUDIT_TOPIC", "pontes.audit"),
		},
		RateLimit: RateLimitConfig{
			Disabled: os.Getenv("RATELIMIT_DISABLED") == "true",
			Requests: getEnvInt("RATELIMIT_USER_REQUESTS", 120),
			Window:   getEnvDuration("RATELIMIT_USER_WINDOW", time.Minute),
		},
		Tracing: TracingConfig{
			Exporter:    strings.ToLower(getEnv("OTEL_TRACES_EXPORTER", "none")),
			Endpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			SampleRatio: getEnvFloat("OTEL_TRACES_SAMPLE_RATIO", 1),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || f > 1 {
		return fallback
	}
	return f
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
