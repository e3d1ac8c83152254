package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	BaseURL     string

	AuthJWTSecret   string
	AuthJWTIssuer   string
	AuthJWTAudience string
	AuthTokenTTL    time.Duration

	OTLPEndpoint  string
	Observability ObservabilityConfig

	CORSAllowedOrigins []string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Email       EmailConfig
	Events      EventsConfig
	RateLimit   RateLimitConfig
	MetricsPush MetricsPushConfig
	Bootstrap   BootstrapConfig
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

// Enabled reports whether an SMTP relay is configured.
func (e EmailConfig) Enabled() bool {
	return strings.TrimSpace(e.SMTPHost) != ""
}

const (
	EventsBackendOutbox = "outbox"
	EventsBackendNATS   = "nats"
)

// Outbox relay targets.
const (
	EventsRelayNone = "none"
	EventsRelayLog  = "log"
	EventsRelayNATS = "nats"
)

type EventsConfig struct {
	Backend       string
	NATSURL       string
	SubjectPrefix string

	// Relay forwards outbox rows when Backend is the outbox.
	Relay          string
	RelayInterval  time.Duration
	RelayBatchSize int
}

type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	EmailRate     float64
	EmailBurst    int
}

const (
	MetricsPushRemoteWrite = "prometheus_remote_write"
	MetricsPushGateway     = "prometheus_pushgateway"
)

// MetricsPushConfig configures pushing the /metrics registry to a collector
// for deployments that cannot be scraped. An empty Exporter disables it.
type MetricsPushConfig struct {
	Exporter  string
	Endpoint  string
	AuthToken string
	Interval  time.Duration
}

// ObservabilityConfig carries the logging and OpenTelemetry switches.
type ObservabilityConfig struct {
	LogLevel      string
	LogFormat     string
	OtelEnabled   bool
	OtelProtocol  string
	SamplingRatio float64
}

type BootstrapConfig struct {
	SeedDevData bool
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")

	cfg := Config{
		AppName:            getenv("APP_SERVICE", "partnerdesk"),
		AppVersion:         getenv("APP_VERSION", "0.1.0"),
		Environment:        environment,
		HTTPAddr:           getenv("HTTP_ADDR", ":8080"),
		BaseURL:            strings.TrimRight(getenv("APP_BASE_URL", "http://localhost:8080"), "/"),
		AuthJWTSecret:      strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		AuthJWTIssuer:      getenv("AUTH_JWT_ISSUER", "partnerdesk"),
		AuthJWTAudience:    getenv("AUTH_JWT_AUDIENCE", "partnerdesk-web"),
		AuthTokenTTL:       getenvDuration("AUTH_TOKEN_TTL", 12*time.Hour),
		OTLPEndpoint:       getenv("OTEL_EXPORTER_OTLP_ENDPOINT", getenv("OTLP_ENDPOINT", "localhost:4317")),
		CORSAllowedOrigins: splitList(getenv("CORS_ALLOWED_ORIGINS", "")),
		DBType:             getenv("DATABASE_TYPE", "postgres"),
		DBHost:             getenv("DATABASE_HOST", "localhost"),
		DBPort:             getenv("DATABASE_PORT", "5432"),
		DBName:             getenv("DATABASE_NAME", "partnerdesk"),
		DBUser:             getenv("DATABASE_USER", "postgres"),
		DBPassword:         getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:          getenv("DATABASE_SSLMODE", "disable"),
		DBPath:             getenv("DATABASE_PATH", "partnerdesk.db"),
		DBMaxIdleConn:      getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:      getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime:  getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime:  getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),
		Email: EmailConfig{
			SMTPHost:     strings.TrimSpace(getenv("SMTP_HOST", "")),
			SMTPPort:     getenvInt("SMTP_PORT", 587),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPFrom:     getenv("SMTP_FROM", "no-reply@partnerdesk.local"),
		},
		Events: EventsConfig{
			Backend:       normalizeEventsBackend(getenv("EVENTS_BACKEND", EventsBackendOutbox)),
			NATSURL:       getenv("NATS_URL", "nats://localhost:4222"),
			SubjectPrefix: getenv("NATS_SUBJECT_PREFIX", "partnerdesk"),

			Relay:          normalizeEventsRelay(getenv("EVENTS_RELAY", EventsRelayLog)),
			RelayInterval:  getenvDuration("EVENTS_RELAY_INTERVAL", 5*time.Second),
			RelayBatchSize: getenvInt("EVENTS_RELAY_BATCH_SIZE", 100),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getenv("REDIS_PASSWORD", ""),
			RedisDB:       getenvInt("REDIS_DB", 0),
			EmailRate:     getenvFloat("RATE_LIMIT_EMAIL_RATE", 1.0/60.0),
			EmailBurst:    getenvInt("RATE_LIMIT_EMAIL_BURST", 3),
		},
		Observability: ObservabilityConfig{
			LogLevel:      strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
			LogFormat:     strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
			OtelEnabled:   getenvBool("OTEL_ENABLED", false),
			OtelProtocol:  otlpProtocol(),
			SamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		},
		MetricsPush: MetricsPushConfig{
			Exporter:  strings.ToLower(strings.TrimSpace(getenv("METRICS_PUSH_EXPORTER", ""))),
			Endpoint:  strings.TrimSpace(getenv("METRICS_PUSH_ENDPOINT", "")),
			AuthToken: getenv("METRICS_PUSH_AUTH_TOKEN", ""),
			Interval:  getenvDuration("METRICS_PUSH_INTERVAL", time.Minute),
		},
		Bootstrap: BootstrapConfig{
			SeedDevData: getenvBool("BOOTSTRAP_SEED_DEV_DATA", environment != "production"),
		},
	}

	return cfg
}

// otlpProtocol prefers the traces-specific protocol variable.
func otlpProtocol() string {
	protocol := getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))
	return strings.ToLower(strings.TrimSpace(protocol))
}

func normalizeEventsBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case EventsBackendNATS:
		return EventsBackendNATS
	default:
		return EventsBackendOutbox
	}
}

func normalizeEventsRelay(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case EventsRelayNone, "off", "disabled":
		return EventsRelayNone
	case EventsRelayNATS:
		return EventsRelayNATS
	default:
		return EventsRelayLog
	}
}

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

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
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

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
