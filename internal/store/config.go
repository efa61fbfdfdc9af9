package store

import (
	"github.com/loykin/zephyrrun/internal/retry"
	"github.com/loykin/zephyrrun/internal/store/postgresql"
	"github.com/loykin/zephyrrun/internal/store/sqlite"
)

const (
	DriverSqlite     = "sqlite"
	DriverPostgresql = "postgresql"
)

type (
	SqliteConfig   = sqlite.Config
	PostgresConfig = postgresql.Config
)

type Config struct {
	Driver       string `mapstructure:"driver"`
	Table        string `mapstructure:"table"`
	DriverConfig DriverConfig
	// Retry governs database writes and reads; nil uses retry.DefaultRetryConfig.
	Retry *retry.Config
}

type DriverConfig interface {
	ToMap() map[string]interface{}
}
