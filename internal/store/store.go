// Package store keeps an append-only history of the status transitions the client issued.
package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/loykin/zephyrrun/internal/common"
	"github.com/loykin/zephyrrun/internal/constants"
	"github.com/loykin/zephyrrun/internal/retry"
	"github.com/loykin/zephyrrun/internal/store/connector"
	"github.com/loykin/zephyrrun/internal/store/postgresql"
	"github.com/loykin/zephyrrun/internal/store/sqlite"
)

type (
	Transition = connector.Transition
	Filter     = connector.Filter
)

const (
	ModeSingle = "single"
	ModeBulk   = "bulk"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

type Store struct {
	conn   connector.Connector
	table  string
	retry  *retry.Config
	driver string
	now    func() time.Time
}

// Open connects to the configured backend and creates the history table when missing.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	var conn connector.Connector
	switch driver {
	case "", DriverSqlite, "sqlite3":
		driver = DriverSqlite
		conn = sqlite.NewStore()
	case DriverPostgresql, "postgres", "pg":
		driver = DriverPostgresql
		conn = postgresql.NewStore()
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", cfg.Driver)
	}

	table := strings.TrimSpace(cfg.Table)
	if table == "" {
		table = constants.DefaultHistoryTable
	}
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("store: invalid table name %q", table)
	}

	if cfg.DriverConfig != nil {
		if err := conn.Load(cfg.DriverConfig.ToMap()); err != nil {
			return nil, fmt.Errorf("store: load %s config: %w", driver, err)
		}
	}
	if _, err := conn.Connect(); err != nil {
		return nil, err
	}
	s := &Store{conn: conn, table: table, retry: cfg.Retry, driver: driver, now: time.Now}
	if err := retry.WithRetry(ctx, s.retry, func() error { return conn.Ensure(ctx, table) }); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Driver() string { return s.driver }

func (s *Store) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Record appends t. ID and RecordedAt are filled in when empty; the stored copy is returned.
func (s *Store) Record(ctx context.Context, t Transition) (Transition, error) {
	if s == nil {
		return t, nil
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.RecordedAt.IsZero() {
		t.RecordedAt = s.now().UTC()
	}
	if t.Mode == "" {
		t.Mode = ModeSingle
		if len(t.ExecutionIDs) > 1 {
			t.Mode = ModeBulk
		}
	}
	err := retry.WithRetry(ctx, s.retry, func() error { return s.conn.Insert(ctx, s.table, t) })
	if err != nil {
		common.GetLogger().WithStore(s.driver).Error("failed to record transition", "error", err, "id", t.ID)
		return t, err
	}
	return t, nil
}

// List returns transitions newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Transition, error) {
	if s == nil {
		return nil, nil
	}
	return retry.WithResult(ctx, s.retry, func() ([]Transition, error) {
		return s.conn.List(ctx, s.table, f)
	})
}
