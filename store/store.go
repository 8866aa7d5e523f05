// Package store persists run history for workflows and debates.
//
// The canonical backend is SQLite via the pure-Go modernc.org/sqlite
// driver; an in-memory implementation is provided for tests and for
// deployments that do not want a data directory.
package store

import (
	"context"
	"encoding/json"
	"time"
)

// Run kinds.
const (
	KindWorkflow = "workflow"
	KindDebate   = "debate"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunRecord is a persisted workflow or debate run. Agents holds the
// participating agent ids as a JSON array; Result holds the serialized
// outcome (workflow result or debate session) once the run finishes.
type RunRecord struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Prompt      string          `json:"prompt"`
	Mode        string          `json:"mode,omitempty"`
	Status      string          `json:"status"`
	Agents      json.RawMessage `json:"agents"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// RunStore is the persistence surface the server depends on.
type RunStore interface {
	// SaveRun inserts the run, or updates status, result, error and
	// completion time if a run with the same id already exists.
	SaveRun(ctx context.Context, r *RunRecord) error

	// GetRun returns the run with the given id, or nil if none exists.
	GetRun(ctx context.Context, id string) (*RunRecord, error)

	// ListRuns returns up to limit runs, most recent first. A limit
	// of zero or less applies the backend default.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)

	Close() error
}

const defaultListLimit = 100
