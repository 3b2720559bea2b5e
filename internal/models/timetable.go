package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// GenerationRunStatus captures the outcome of one engine invocation.
type GenerationRunStatus string

const (
	GenerationRunSucceeded GenerationRunStatus = "SUCCEEDED"
	GenerationRunFailed    GenerationRunStatus = "FAILED"
)

// GenerationRun is the audit record of a timetable generation request.
type GenerationRun struct {
	ID        string              `db:"id" json:"id"`
	Status    GenerationRunStatus `db:"status" json:"status"`
	Sections  int                 `db:"sections" json:"sections"`
	Teachers  int                 `db:"teachers" json:"teachers"`
	Meta      types.JSONText      `db:"meta" json:"meta"`
	CreatedAt time.Time           `db:"created_at" json:"created_at"`
}

// SchedulingConflictError is returned when no feasible assignment exists for
// some section and subject under the current constraints.
type SchedulingConflictError struct {
	Section string `json:"section"`
	Subject string `json:"subject"`
	Teacher string `json:"teacher"`
}

// Error implements the error interface for conflict errors.
func (e *SchedulingConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return "cannot place subject " + e.Subject + " (teacher " + e.Teacher + ") for section " + e.Section
}
