package db

import (
	"time"

	gormlogger "gorm.io/gorm/logger"
)

// Config describes the sandbox database connection.
type Config struct {
	Type            string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	Path            string
	MaxIdleConn     int
	MaxOpenConn     int
	ConnMaxLifetime time.Duration
	Tracing         bool
	Logger          gormlogger.Interface
}
