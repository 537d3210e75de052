package db

import (
	"fmt"
	"strings"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the configured database and registers the tracing plugin.
func Open(cfg Config, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}

	gormLog := cfg.Logger
	if gormLog == nil {
		gormLog = logger.Default.LogMode(logger.Silent)
	}
	conn, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Type, err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if isMemorySQLite(cfg) {
		// every pooled connection to :memory: is a separate database
		sqlDB.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConn > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConn)
		}
		if cfg.MaxIdleConn > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConn)
		}
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if cfg.Tracing {
		opts := []otelgorm.Option{
			otelgorm.WithDBName(cfg.Name),
			otelgorm.WithoutQueryVariables(),
		}
		if err := conn.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return nil, fmt.Errorf("register otelgorm: %w", err)
		}
	}

	if log != nil {
		log.Info("database connected",
			zap.String("type", cfg.Type),
			zap.Bool("tracing", cfg.Tracing),
		)
	}
	return conn, nil
}

func isMemorySQLite(cfg Config) bool {
	t := strings.ToLower(strings.TrimSpace(cfg.Type))
	if t != TypeSQLite && t != "" {
		return false
	}
	return cfg.Path == "" || strings.Contains(cfg.Path, ":memory:")
}
