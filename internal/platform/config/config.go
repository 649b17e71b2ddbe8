package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr        string
	Environment string
	LogLevel    string
	CatalogPath string
	// AdminToken guards operator endpoints such as catalog reload. Empty leaves them open.
	AdminToken string

	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Providers ProvidersConfig
	Audit     AuditConfig
}

// DatabaseConfig selects the case store. Driver is one of memory, postgres, sqlite.
type DatabaseConfig struct {
	Driver          string
	URL             string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the provider result cache. An empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the downstream submission topic. No brokers means
// submissions are kept in memory.
type KafkaConfig struct {
	Brokers         []string
	SubmissionTopic string
	ClientID        string
}

// ProviderEndpoint is the outbound HTTP configuration of one verification provider.
type ProviderEndpoint struct {
	BaseURL string
	APIKey  string
}

// ProvidersConfig holds verification dispatch policy and endpoints.
type ProvidersConfig struct {
	AttemptTimeout  time.Duration
	MaxAttempts     int
	Backoff         time.Duration
	RatePerSecond   float64
	Burst           int
	CacheTTL        time.Duration
	BreakerFailures int
	BreakerCooldown time.Duration
	CompaniesHouse  ProviderEndpoint
	FCA             ProviderEndpoint
	DNB             ProviderEndpoint
	LexisNexis      ProviderEndpoint
}

// AuditConfig controls the audit publisher buffer.
type AuditConfig struct {
	AsyncBuffer int
}

// ProviderCacheTTL bounds how long a successful provider result may be reused.
var ProviderCacheTTL = 15 * time.Minute

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:        getEnv("KYC_ADDR", ":8080"),
		Environment: getEnv("KYC_ENV", "dev"),
		LogLevel:    getEnv("KYC_LOG_LEVEL", "info"),
		CatalogPath: getEnv("KYC_CATALOG_PATH", "config/business_rules.json"),
		AdminToken:  os.Getenv("KYC_ADMIN_TOKEN"),
		Database: DatabaseConfig{
			Driver:          getEnv("KYC_STORE_DRIVER", "memory"),
			URL:             os.Getenv("DATABASE_URL"),
			SQLitePath:      getEnv("KYC_SQLITE_PATH", "./data/kyc.db"),
			MaxOpenConns:    getInt("KYC_DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getInt("KYC_DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("KYC_DB_CONN_MAX_LIFETIME", 30*time.Minute),
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
			Brokers:         splitList(os.Getenv("KAFKA_BROKERS")),
			SubmissionTopic: getEnv("KYC_SUBMISSION_TOPIC", "kyc.submissions"),
			ClientID:        getEnv("KAFKA_CLIENT_ID", "kycengine"),
		},
		Providers: ProvidersConfig{
			AttemptTimeout:  getDuration("KYC_PROVIDER_TIMEOUT", 10*time.Second),
			MaxAttempts:     getInt("KYC_PROVIDER_MAX_ATTEMPTS", 3),
			Backoff:         getDuration("KYC_PROVIDER_BACKOFF", 500*time.Millisecond),
			RatePerSecond:   getFloat("KYC_PROVIDER_RPS", 5),
			Burst:           getInt("KYC_PROVIDER_BURST", 5),
			CacheTTL:        getDuration("KYC_PROVIDER_CACHE_TTL", ProviderCacheTTL),
			BreakerFailures: getInt("KYC_PROVIDER_BREAKER_FAILURES", 5),
			BreakerCooldown: getDuration("KYC_PROVIDER_BREAKER_COOLDOWN", 30*time.Second),
			CompaniesHouse:  endpoint("COMPANIES_HOUSE"),
			FCA:             endpoint("FCA"),
			DNB:             endpoint("DNB"),
			LexisNexis:      endpoint("LEXISNEXIS"),
		},
		Audit: AuditConfig{
			AsyncBuffer: getInt("KYC_AUDIT_BUFFER", 256),
		},
	}
}

// IsProduction reports whether the server runs with production defaults.
func (s Server) IsProduction() bool {
	return strings.EqualFold(s.Environment, "prod") || strings.EqualFold(s.Environment, "production")
}

func endpoint(prefix string) ProviderEndpoint {
	return ProviderEndpoint{
		BaseURL: os.Getenv(prefix + "_BASE_URL"),
		APIKey:  os.Getenv(prefix + "_API_KEY"),
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
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
