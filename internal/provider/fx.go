package provider

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billingpulse/internal/clock"
	"github.com/smallbiznis/billingpulse/internal/config"
	"github.com/smallbiznis/billingpulse/internal/observability"
	"github.com/smallbiznis/billingpulse/internal/observability/logger"
	"github.com/smallbiznis/billingpulse/internal/observability/metrics"
	"github.com/smallbiznis/billingpulse/internal/provider/asaas"
	"github.com/smallbiznis/billingpulse/internal/provider/domain"
	"github.com/smallbiznis/billingpulse/internal/provider/sandbox"
	"github.com/smallbiznis/billingpulse/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

var Module = fx.Module("provider",
	fx.Provide(newSnowflake),
	fx.Provide(newRegistry),
	fx.Provide(newClient),
)

type registryParams struct {
	fx.In

	Cfg   config.Config
	Obs   observability.Config
	Node  *snowflake.Node
	Clock clock.Clock
	Log   *zap.Logger
}

func newRegistry(p registryParams) *Registry {
	dbCfg := db.Config{
		Type:            p.Cfg.Sandbox.DBType,
		Host:            p.Cfg.Sandbox.DBHost,
		Port:            p.Cfg.Sandbox.DBPort,
		Name:            p.Cfg.Sandbox.DBName,
		User:            p.Cfg.Sandbox.DBUser,
		Password:        p.Cfg.Sandbox.DBPassword,
		SSLMode:         p.Cfg.Sandbox.DBSSLMode,
		Path:            p.Cfg.Sandbox.DBPath,
		MaxOpenConn:     10,
		MaxIdleConn:     5,
		ConnMaxLifetime: 30 * time.Minute,
		Tracing:         p.Obs.Otel.DBTracing,
		Logger:          logger.NewGormLogger(gormlogger.Warn, 200*time.Millisecond),
	}
	return NewRegistry(
		asaas.NewFactory(p.Clock, p.Log),
		sandbox.NewFactory(dbCfg, p.Cfg.Sandbox.Seed, p.Node, p.Clock, p.Cfg.Location(), p.Log),
	)
}

// newClient builds the configured provider client once per process.
func newClient(cfg config.Config, registry *Registry, m *metrics.ReportMetrics, log *zap.Logger) (domain.Client, error) {
	client, err := registry.NewClient(cfg.Provider.Name, domain.ClientConfig{
		BaseURL:  cfg.Provider.BaseURL,
		APIKey:   cfg.Provider.APIKey,
		Timeout:  cfg.Provider.Timeout,
		Location: cfg.Location(),
	})
	if err != nil {
		return nil, err
	}
	log.Info("billing provider ready", zap.String("provider", cfg.Provider.Name))
	return NewInstrumented(client, cfg.Provider.Name, m), nil
}

func newSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
