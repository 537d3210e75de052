package observability

import (
	"os"
	"strconv"
	"strings"

	"github.com/smallbiznis/billingpulse/internal/config"
	"github.com/smallbiznis/billingpulse/internal/observability/logger"
	"github.com/smallbiznis/billingpulse/internal/observability/metrics"
	"github.com/smallbiznis/billingpulse/internal/observability/tracing"
)

const defaultServiceName = "billingpulse"

// Config holds the logging and telemetry settings of the service. Identity
// (name, environment, version) comes from config.Config; only the knobs
// specific to logs and OTLP export are read here.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	Log  LogConfig
	Otel OtelConfig
}

type LogConfig struct {
	Level  string
	Format string
}

// OtelConfig drives both the trace and the metric exporter. DBTracing adds
// otelgorm spans to sandbox queries and is only honoured when Enabled.
type OtelConfig struct {
	Enabled       bool
	Endpoint      string
	Protocol      string
	SamplingRatio float64
	DBTracing     bool
}

func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	enabled := getenvBool("OTEL_ENABLED", false)
	return Config{
		ServiceName: serviceName,
		Environment: strings.TrimSpace(cfg.Environment),
		Version:     strings.TrimSpace(cfg.AppVersion),
		Log: LogConfig{
			Level:  strings.ToLower(getenv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getenv("LOG_FORMAT", "json")),
		},
		Otel: OtelConfig{
			Enabled:       enabled,
			Endpoint:      strings.TrimSpace(cfg.OTLPEndpoint),
			Protocol:      strings.ToLower(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")),
			SamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
			DBTracing:     enabled && getenvBool("OTEL_DB_TRACING", true),
		},
	}
}

// Debug enables gin debug mode and error stack traces.
func (c Config) Debug() bool {
	if c.Log.Level == "debug" {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func (c Config) LoggerConfig() logger.Config {
	return logger.Config{
		ServiceName:         c.ServiceName,
		Environment:         c.Environment,
		Version:             c.Version,
		Level:               c.Log.Level,
		Format:              c.Log.Format,
		IncludeCaller:       true,
		IncludeStackOnError: c.Debug(),
	}
}

func (c Config) TracingConfig() tracing.Config {
	return tracing.Config{
		Enabled:          c.Otel.Enabled,
		ServiceName:      c.ServiceName,
		ServiceVersion:   c.Version,
		Environment:      c.Environment,
		ExporterEndpoint: c.Otel.Endpoint,
		ExporterProtocol: c.Otel.Protocol,
		SamplingRatio:    c.Otel.SamplingRatio,
	}
}

// MetricsConfig also labels the Prometheus report collectors, so it is
// populated even when OTLP export is off.
func (c Config) MetricsConfig() metrics.Config {
	return metrics.Config{
		Enabled:          c.Otel.Enabled,
		ExporterEndpoint: c.Otel.Endpoint,
		ExporterProtocol: c.Otel.Protocol,
		ServiceName:      c.ServiceName,
		Environment:      c.Environment,
	}
}

func getenv(key, def string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return def
}

func getenvBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func getenvFloat(key string, def float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64)
	if err != nil {
		return def
	}
	return parsed
}
