package config

import (
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
	HTTPAddr    string
	Timezone    string

	OTLPEndpoint string

	Provider ProviderConfig
	Sandbox  SandboxConfig
	Redis    RedisConfig
}

// ProviderConfig selects and configures the billing provider client.
type ProviderConfig struct {
	Name    string
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// SandboxConfig configures the repository-backed provider used in development.
type SandboxConfig struct {
	DBType     string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
	DBPath     string
	Seed       bool
}

type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	IdempotencyTTL time.Duration
}

const (
	ProviderAsaas   = "asaas"
	ProviderSandbox = "sandbox"

	defaultAsaasBaseURL = "https://www.asaas.com/api/v3"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewReportConfigHolder),
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "billingpulse"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		Timezone:     getenv("REPORT_TIMEZONE", "America/Sao_Paulo"),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),
		Provider: ProviderConfig{
			Name:    normalizeProvider(getenv("BILLING_PROVIDER", ProviderAsaas)),
			BaseURL: strings.TrimRight(strings.TrimSpace(getenv("ASAAS_API_URL", defaultAsaasBaseURL)), "/"),
			APIKey:  strings.TrimSpace(getenv("ASAAS_API_KEY", "")),
			Timeout: getenvDuration("ASAAS_TIMEOUT", 15*time.Second),
		},
		Sandbox: SandboxConfig{
			DBType:     strings.ToLower(getenv("SANDBOX_DATABASE_TYPE", "sqlite")),
			DBHost:     getenv("SANDBOX_DATABASE_HOST", "localhost"),
			DBPort:     getenv("SANDBOX_DATABASE_PORT", "5432"),
			DBName:     getenv("SANDBOX_DATABASE_NAME", "billingpulse"),
			DBUser:     getenv("SANDBOX_DATABASE_USER", "postgres"),
			DBPassword: getenv("SANDBOX_DATABASE_PASSWORD", ""),
			DBSSLMode:  getenv("SANDBOX_DATABASE_SSLMODE", "disable"),
			DBPath:     getenv("SANDBOX_DATABASE_PATH", "file::memory:"),
			Seed:       getenvBool("SANDBOX_SEED", true),
		},
		Redis: RedisConfig{
			Addr:           strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password:       getenv("REDIS_PASSWORD", ""),
			DB:             getenvInt("REDIS_DB", 0),
			IdempotencyTTL: getenvDuration("IDEMPOTENCY_TTL", 10*time.Minute),
		},
	}

	return cfg
}

// Location resolves the report timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func normalizeProvider(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case ProviderSandbox:
		return ProviderSandbox
	default:
		return ProviderAsaas
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

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
