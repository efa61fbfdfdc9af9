package sqlite

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/loykin/zephyrrun/internal/store/connector"
)

func TestStore_InMemorySurvivesConnectionRecycle(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	if err := s.Load(map[string]interface{}{}); err != nil {
		t.Fatal(err)
	}
	db, err := s.Connect()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Ensure(ctx, "history"); err != nil {
		t.Fatal(err)
	}
	rec := connector.Transition{ID: "a", Mode: "single", ExecutionIDs: []string{"55"}, Status: 1, StatusName: "PASS", RecordedAt: time.Now()}
	if err := s.Insert(ctx, "history", rec); err != nil {
		t.Fatal(err)
	}

	// Discard the pooled connection the way an idle timeout would.
	conn, err := db.Conn(ctx)
	if err != nil {
		t.Fatal(err)
	}
	_ = conn.Raw(func(any) error { return driver.ErrBadConn })
	_ = conn.Close()

	rows, err := s.List(ctx, "history", connector.Filter{})
	if err != nil {
		t.Fatalf("list after recycle: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "a" {
		t.Fatalf("history lost after recycle: %+v", rows)
	}
}

func TestStore_SeparateInMemoryStoresAreIsolated(t *testing.T) {
	ctx := context.Background()
	a, b := NewStore(), NewStore()
	for _, s := range []*Store{a, b} {
		if _, err := s.Connect(); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = s.Close() })
		if err := s.Ensure(ctx, "history"); err != nil {
			t.Fatal(err)
		}
	}
	if err := a.Insert(ctx, "history", connector.Transition{ID: "x", Mode: "single", ExecutionIDs: []string{"1"}, StatusName: "PASS", RecordedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	rows, err := b.List(ctx, "history", connector.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Fatalf("stores share an in-memory database: %+v", rows)
	}
}
