// Package journal records the jobs a client has observed, so an operator can see
// which server-side job an invocation produced and how observation ended.
package journal

import (
	"context"
	"errors"
	"time"

	"yqhp/geoanalysis/pkg/types"
)

// ErrNotFound is returned when no entry exists for an invocation id.
var ErrNotFound = errors.New("journal entry not found")

// Entry is the record of one invocation.
type Entry struct {
	InvocationID string          `json:"invocation_id"`
	Task         string          `json:"task"`
	JobID        string          `json:"job_id,omitempty"`
	Status       types.JobStatus `json:"status,omitempty"`
	Outcome      string          `json:"outcome"`
	Error        string          `json:"error,omitempty"`
	Messages     int             `json:"messages"`
	Outputs      []string        `json:"outputs,omitempty"`
	SubmittedAt  time.Time       `json:"submitted_at"`
	FinishedAt   time.Time       `json:"finished_at"`
}

// Duration returns the observed wall-clock time of the job.
func (e *Entry) Duration() time.Duration {
	if e.FinishedAt.IsZero() || e.SubmittedAt.IsZero() {
		return 0
	}
	return e.FinishedAt.Sub(e.SubmittedAt)
}

// Journal stores entries keyed by invocation id. Recording the same invocation
// twice replaces the earlier entry.
type Journal interface {
	Record(ctx context.Context, entry *Entry) error
	Get(ctx context.Context, invocationID string) (*Entry, error)
	// List returns up to limit entries, most recently submitted first.
	List(ctx context.Context, limit int) ([]*Entry, error)
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Record(context.Context, *Entry) error { return nil }

func (Nop) Get(context.Context, string) (*Entry, error) { return nil, ErrNotFound }

func (Nop) List(context.Context, int) ([]*Entry, error) { return nil, nil }
