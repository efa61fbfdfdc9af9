package sqlite

import (
	"database/sql"
	"fmt"
	"time"
)

// Dialect implements SQL dialect for SQLite
type Dialect struct{}

func NewDialect() *Dialect {
	return &Dialect{}
}

// GetPlaceholder returns SQLite-style placeholders (?)
func (s *Dialect) GetPlaceholder() string {
	return "?"
}

// ConvertBoolToStorage converts bool to SQLite storage format (integer 0/1)
func (s *Dialect) ConvertBoolToStorage(b bool) interface{} {
	if b {
		return 1
	}
	return 0
}

// timeLayout is fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ConvertTimeToStorage converts time to SQLite storage format (UTC text)
func (s *Dialect) ConvertTimeToStorage(t time.Time) interface{} {
	return t.UTC().Format(timeLayout)
}

func (s *Dialect) ConvertBoolFromStorage(val interface{}) bool {
	switch v := val.(type) {
	case int64:
		return v != 0
	case int:
		return v != 0
	}
	return false
}

// ConvertTimeFromStorage parses the stored text. Unparseable values yield the zero time.
func (s *Dialect) ConvertTimeFromStorage(val interface{}) time.Time {
	str, ok := val.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, str)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Connect opens the database. SQLite allows a single writer, so the pool holds one connection.
func (s *Dialect) Connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(10 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

func (s *Dialect) GetEnsureStatements(table string) []string {
	return []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, mode TEXT NOT NULL, execution_ids TEXT NOT NULL, status INTEGER NOT NULL, status_name TEXT NOT NULL, comment TEXT NULL, identity TEXT NOT NULL DEFAULT '', remote_status INTEGER NOT NULL DEFAULT 0, acknowledged INTEGER NOT NULL DEFAULT 0, failed INTEGER NOT NULL DEFAULT 0, error TEXT NOT NULL DEFAULT '', recorded_at TEXT NOT NULL)", table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_recorded_at_idx ON %s(recorded_at)", table, table),
	}
}

func (s *Dialect) GetDriverName() string {
	return "sqlite"
}
