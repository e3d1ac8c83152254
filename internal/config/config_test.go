package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("AUTH_TOKEN_TTL", "30m")
	t.Setenv("EVENTS_BACKEND", "NATS")
	t.Setenv("RATE_LIMIT_ENABLED", "yes")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("APP_BASE_URL", "https://desk.example/")
	t.Setenv("LOG_LEVEL", " DEBUG ")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "HTTP")
	t.Setenv("EVENTS_RELAY", "off")
	t.Setenv("EVENTS_RELAY_INTERVAL", "30s")

	cfg := Load()

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Minute, cfg.AuthTokenTTL)
	assert.Equal(t, EventsBackendNATS, cfg.Events.Backend)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "https://desk.example", cfg.BaseURL)
	assert.False(t, cfg.Bootstrap.SeedDevData)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
	assert.Equal(t, "http", cfg.Observability.OtelProtocol)
	assert.Equal(t, EventsRelayNone, cfg.Events.Relay)
	assert.Equal(t, 30*time.Second, cfg.Events.RelayInterval)
}

func TestLoadFallsBackOnInvalidValues(t *testing.T) {
	t.Setenv("AUTH_TOKEN_TTL", "soon")
	t.Setenv("SMTP_PORT", "abc")
	t.Setenv("EVENTS_BACKEND", "kafka")

	cfg := Load()

	assert.Equal(t, 12*time.Hour, cfg.AuthTokenTTL)
	assert.Equal(t, 587, cfg.Email.SMTPPort)
	assert.Equal(t, EventsBackendOutbox, cfg.Events.Backend)
	assert.Equal(t, EventsRelayLog, cfg.Events.Relay)
	assert.Equal(t, 100, cfg.Events.RelayBatchSize)
}

func TestRequestPolicyDefaultsWithoutFile(t *testing.T) {
	v := viper.New()
	v.SetConfigName("requests-missing")
	v.SetConfigType("yml")
	v.AddConfigPath(t.TempDir())

	holder, err := loadRequestPolicyHolder(v, zap.NewNop(), false)
	require.NoError(t, err)
	assert.Equal(t, DefaultRequestPolicy(), holder.Get())
}

func TestRequestPolicyReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "requests.yml")
	require.NoError(t, os.WriteFile(path, []byte("requests:\n  unitsEnabled: false\n  childrenDedupeKey: id_and_name\n"), 0o600))

	v := viper.New()
	v.SetConfigFile(path)

	holder, err := loadRequestPolicyHolder(v, zap.NewNop(), false)
	require.NoError(t, err)

	policy := holder.Get()
	assert.False(t, policy.UnitsEnabled)
	assert.Equal(t, ChildrenDedupeByIDAndName, policy.ChildrenDedupeKey)
}

func TestRequestPolicyRejectsUnknownDedupeKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "requests.yml")
	require.NoError(t, os.WriteFile(path, []byte("requests:\n  childrenDedupeKey: deep\n"), 0o600))

	v := viper.New()
	v.SetConfigFile(path)

	_, err := loadRequestPolicyHolder(v, zap.NewNop(), false)
	assert.Error(t, err)
}

func TestNilRequestPolicyHolderReturnsDefaults(t *testing.T) {
	var holder *RequestPolicyHolder
	assert.Equal(t, DefaultRequestPolicy(), holder.Get())
}
