package connector

import (
	"context"
	"database/sql"
	"time"
)

// Transition is one status change issued by the client, kept for audit. It is never read
// back to answer a lookup against the remote service.
type Transition struct {
	ID           string
	Mode         string // "single" or "bulk"
	ExecutionIDs []string
	Status       int
	StatusName   string
	Comment      *string
	Identity     string
	RemoteStatus int
	Acknowledged bool
	Failed       bool
	Error        string
	RecordedAt   time.Time
}

// Filter narrows List. Zero values mean no restriction.
type Filter struct {
	ExecutionID string
	Limit       int
}

type Connector interface {
	Connect() (*sql.DB, error)
	Load(config map[string]interface{}) error
	Ensure(ctx context.Context, table string) error
	Insert(ctx context.Context, table string, t Transition) error
	List(ctx context.Context, table string, f Filter) ([]Transition, error)
	Close() error
}
