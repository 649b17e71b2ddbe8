package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 3, cfg.Providers.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.Providers.AttemptTimeout)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.False(t, cfg.IsProduction())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("KYC_ADDR", ":9090")
	t.Setenv("KYC_ENV", "production")
	t.Setenv("KYC_STORE_DRIVER", "postgres")
	t.Setenv("KYC_PROVIDER_MAX_ATTEMPTS", "5")
	t.Setenv("KYC_PROVIDER_TIMEOUT", "750ms")
	t.Setenv("KAFKA_BROKERS", "b1:9092, b2:9092,")
	t.Setenv("FCA_BASE_URL", "https://register.example")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5, cfg.Providers.MaxAttempts)
	assert.Equal(t, 750*time.Millisecond, cfg.Providers.AttemptTimeout)
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "https://register.example", cfg.Providers.FCA.BaseURL)
}

func TestFromEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("KYC_PROVIDER_MAX_ATTEMPTS", "many")
	t.Setenv("KYC_PROVIDER_BACKOFF", "soon")

	cfg := FromEnv()

	assert.Equal(t, 3, cfg.Providers.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Providers.Backoff)
}
