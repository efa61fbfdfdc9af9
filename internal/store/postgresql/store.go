package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/loykin/zephyrrun/internal/common"
	"github.com/loykin/zephyrrun/internal/store/connector"
)

type Store struct {
	db      *sql.DB
	dialect *Dialect
	DSN     string
}

func NewStore() *Store {
	return &Store{dialect: NewDialect()}
}

func (p *Store) Load(config map[string]interface{}) error {
	if dsn, ok := config["dsn"].(string); ok && dsn != "" {
		p.DSN = dsn
	}
	return nil
}

func (p *Store) Connect() (*sql.DB, error) {
	if strings.TrimSpace(p.DSN) == "" {
		return nil, errors.New("postgresql: dsn or host is required")
	}
	db, err := p.dialect.Connect(p.DSN)
	if err != nil {
		return nil, err
	}
	p.db = db
	common.GetLogger().WithStore("postgresql").Info("PostgreSQL database connection established")
	return db, nil
}

func (p *Store) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

func (p *Store) Ensure(ctx context.Context, table string) error {
	logger := common.GetLogger().WithStore("postgresql")
	for i, q := range p.dialect.GetEnsureStatements(table) {
		if _, err := p.db.ExecContext(ctx, q); err != nil {
			logger.Error("failed to create schema", "error", err, "statement", i+1)
			return fmt.Errorf("failed to ensure %s in PostgreSQL (statement %d): %w", table, i+1, err)
		}
	}
	return nil
}

func (p *Store) Insert(ctx context.Context, table string, t connector.Transition) error {
	ids, err := json.Marshal(t.ExecutionIDs)
	if err != nil {
		return fmt.Errorf("failed to encode execution ids: %w", err)
	}
	q := fmt.Sprintf("INSERT INTO %s(id, mode, execution_ids, status, status_name, comment, identity, remote_status, acknowledged, failed, error, recorded_at) VALUES(%s)",
		table, p.dialect.Placeholders(12))
	_, err = p.db.ExecContext(ctx, q,
		t.ID, t.Mode, string(ids), t.Status, t.StatusName, t.Comment, t.Identity, t.RemoteStatus,
		p.dialect.ConvertBoolToStorage(t.Acknowledged), p.dialect.ConvertBoolToStorage(t.Failed),
		t.Error, p.dialect.ConvertTimeToStorage(t.RecordedAt))
	if err != nil {
		return fmt.Errorf("failed to record transition %s: %w", t.ID, err)
	}
	return nil
}

func (p *Store) List(ctx context.Context, table string, f connector.Filter) ([]connector.Transition, error) {
	q := fmt.Sprintf("SELECT id::text, mode, execution_ids::text, status, status_name, comment, identity, remote_status, acknowledged, failed, error, recorded_at FROM %s", table)
	var args []interface{}
	if id := strings.TrimSpace(f.ExecutionID); id != "" {
		q += " WHERE execution_ids ? " + p.dialect.GetPlaceholder(1)
		args = append(args, id)
	}
	q += " ORDER BY recorded_at DESC, id DESC"
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transitions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []connector.Transition
	for rows.Next() {
		var (
			t       connector.Transition
			ids     string
			comment sql.NullString
			at      time.Time
		)
		if err := rows.Scan(&t.ID, &t.Mode, &ids, &t.Status, &t.StatusName, &comment, &t.Identity, &t.RemoteStatus, &t.Acknowledged, &t.Failed, &t.Error, &at); err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		_ = json.Unmarshal([]byte(ids), &t.ExecutionIDs)
		if comment.Valid {
			c := comment.String
			t.Comment = &c
		}
		t.RecordedAt = p.dialect.ConvertTimeFromStorage(at)
		out = append(out, t)
	}
	return out, rows.Err()
}
