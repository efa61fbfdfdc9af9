package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/loykin/zephyrrun/internal/common"
	"github.com/loykin/zephyrrun/internal/store/connector"
	_ "modernc.org/sqlite"
)

type Store struct {
	db      *sql.DB
	dialect *Dialect
	DSN     string
	// keep holds the shared in-memory database open while the pool recycles connections.
	keep *sql.DB
}

func NewStore() *Store {
	return &Store{dialect: NewDialect()}
}

// Load accepts either a ready DSN or a file path.
func (s *Store) Load(config map[string]interface{}) error {
	if dsn, ok := config["dsn"].(string); ok && dsn != "" {
		s.DSN = dsn
		return nil
	}
	if path, ok := config["path"].(string); ok && strings.TrimSpace(path) != "" {
		s.DSN = fmt.Sprintf("file:%s?_busy_timeout=%d&%s", strings.TrimSpace(path), busyTimeoutMS, foreignKeysParam)
	}
	return nil
}

// Connect opens the database; without a DSN an in-memory database is used. An in-memory
// database lives only as long as a connection to it, so one extra connection is pinned.
func (s *Store) Connect() (*sql.DB, error) {
	if s.DSN == "" || s.DSN == ":memory:" {
		s.DSN = fmt.Sprintf("file:zephyrrun-%s?mode=memory&cache=shared", uuid.NewString())
	}
	if isMemoryDSN(s.DSN) && s.keep == nil {
		keep, err := sql.Open(s.dialect.GetDriverName(), s.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
		}
		if err := keep.Ping(); err != nil {
			_ = keep.Close()
			return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
		}
		keep.SetConnMaxLifetime(0)
		keep.SetConnMaxIdleTime(0)
		s.keep = keep
	}
	db, err := s.dialect.Connect(s.DSN)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.db = db
	common.GetLogger().WithStore("sqlite").Debug("SQLite database connection established")
	return db, nil
}

func (s *Store) Close() error {
	var err error
	if s.db != nil {
		err = s.db.Close()
	}
	if s.keep != nil {
		_ = s.keep.Close()
		s.keep = nil
	}
	return err
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory") || strings.HasPrefix(dsn, "file::memory:")
}

func (s *Store) Ensure(ctx context.Context, table string) error {
	logger := common.GetLogger().WithStore("sqlite")
	for i, q := range s.dialect.GetEnsureStatements(table) {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			logger.Error("failed to create schema", "error", err, "statement", i+1)
			return fmt.Errorf("failed to ensure %s (statement %d): %w", table, i+1, err)
		}
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, table string, t connector.Transition) error {
	ids, err := json.Marshal(t.ExecutionIDs)
	if err != nil {
		return fmt.Errorf("failed to encode execution ids: %w", err)
	}
	ph := s.dialect.GetPlaceholder()
	q := fmt.Sprintf("INSERT INTO %s(id, mode, execution_ids, status, status_name, comment, identity, remote_status, acknowledged, failed, error, recorded_at) VALUES(%s)",
		table, strings.TrimSuffix(strings.Repeat(ph+",", 12), ","))
	_, err = s.db.ExecContext(ctx, q,
		t.ID, t.Mode, string(ids), t.Status, t.StatusName, t.Comment, t.Identity, t.RemoteStatus,
		s.dialect.ConvertBoolToStorage(t.Acknowledged), s.dialect.ConvertBoolToStorage(t.Failed),
		t.Error, s.dialect.ConvertTimeToStorage(t.RecordedAt))
	if err != nil {
		return fmt.Errorf("failed to record transition %s: %w", t.ID, err)
	}
	common.GetLogger().WithStore("sqlite").Debug("transition recorded", "id", t.ID, "mode", t.Mode)
	return nil
}

func (s *Store) List(ctx context.Context, table string, f connector.Filter) ([]connector.Transition, error) {
	q := fmt.Sprintf("SELECT id, mode, execution_ids, status, status_name, comment, identity, remote_status, acknowledged, failed, error, recorded_at FROM %s", table)
	var args []interface{}
	if id := strings.TrimSpace(f.ExecutionID); id != "" {
		q += " WHERE execution_ids LIKE ?"
		b, _ := json.Marshal(id)
		args = append(args, "%"+string(b)+"%")
	}
	q += " ORDER BY recorded_at DESC, id DESC"
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transitions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []connector.Transition
	for rows.Next() {
		var (
			t         connector.Transition
			ids       string
			comment   sql.NullString
			ack, fail int64
			at        string
		)
		if err := rows.Scan(&t.ID, &t.Mode, &ids, &t.Status, &t.StatusName, &comment, &t.Identity, &t.RemoteStatus, &ack, &fail, &t.Error, &at); err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		_ = json.Unmarshal([]byte(ids), &t.ExecutionIDs)
		if comment.Valid {
			c := comment.String
			t.Comment = &c
		}
		t.Acknowledged = s.dialect.ConvertBoolFromStorage(ack)
		t.Failed = s.dialect.ConvertBoolFromStorage(fail)
		t.RecordedAt = s.dialect.ConvertTimeFromStorage(at)
		out = append(out, t)
	}
	return out, rows.Err()
}
