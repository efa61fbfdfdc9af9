package postgresql

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/loykin/zephyrrun/internal/constants"
)

// Dialect implements SQL dialect for PostgreSQL
type Dialect struct{}

func NewDialect() *Dialect {
	return &Dialect{}
}

// GetPlaceholder returns PostgreSQL-style placeholders ($1, $2, etc.)
func (p *Dialect) GetPlaceholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

// Placeholders returns "$1,$2,...,$n".
func (p *Dialect) Placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = p.GetPlaceholder(i + 1)
	}
	return strings.Join(parts, ",")
}

// ConvertBoolToStorage converts bool to PostgreSQL storage format (native bool)
func (p *Dialect) ConvertBoolToStorage(b bool) interface{} {
	return b
}

// ConvertTimeToStorage converts time to PostgreSQL storage format (native time.Time)
func (p *Dialect) ConvertTimeToStorage(t time.Time) interface{} {
	return t.UTC()
}

func (p *Dialect) ConvertTimeFromStorage(val interface{}) time.Time {
	switch t := val.(type) {
	case time.Time:
		return t.UTC()
	case *time.Time:
		if t != nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// Connect opens a pgx-backed pool.
func (p *Dialect) Connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}
	db.SetMaxOpenConns(constants.DefaultPostgresMaxOC)
	db.SetMaxIdleConns(constants.DefaultPostgresMaxIdl)
	db.SetConnMaxLifetime(constants.DefaultConnLifetime)
	db.SetConnMaxIdleTime(constants.DefaultConnIdleTime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL database: %w", err)
	}
	return db, nil
}

func (p *Dialect) GetEnsureStatements(table string) []string {
	return []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id UUID PRIMARY KEY, mode TEXT NOT NULL, execution_ids JSONB NOT NULL, status INTEGER NOT NULL, status_name TEXT NOT NULL, comment TEXT NULL, identity TEXT NOT NULL DEFAULT '', remote_status INTEGER NOT NULL DEFAULT 0, acknowledged BOOLEAN NOT NULL DEFAULT FALSE, failed BOOLEAN NOT NULL DEFAULT FALSE, error TEXT NOT NULL DEFAULT '', recorded_at TIMESTAMPTZ NOT NULL)", table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_recorded_at_idx ON %s(recorded_at)", table, table),
	}
}

func (p *Dialect) GetDriverName() string {
	return "postgresql"
}
