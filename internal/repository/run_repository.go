package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/timetable-api/internal/models"
)

// RunRepository persists the audit log of timetable generation runs.
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository constructs the repository.
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a generation run record.
func (r *RunRepository) Create(ctx context.Context, run *models.GenerationRun) error {
	if run == nil {
		return fmt.Errorf("run payload is nil")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		return fmt.Errorf("run status is required")
	}
	if len(run.Meta) == 0 {
		run.Meta = types.JSONText(`{}`)
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	const query = `
INSERT INTO generation_runs (id, status, sections, teachers, meta, created_at)
VALUES (:id, :status, :sections, :teachers, :meta, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, run); err != nil {
		return fmt.Errorf("insert generation run: %w", err)
	}
	return nil
}

// List returns the most recent runs, newest first.
func (r *RunRepository) List(ctx context.Context, limit int) ([]models.GenerationRun, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT id, status, sections, teachers, meta, created_at
FROM generation_runs ORDER BY created_at DESC LIMIT $1`
	var runs []models.GenerationRun
	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("list generation runs: %w", err)
	}
	return runs, nil
}

// FindByID returns one run record.
func (r *RunRepository) FindByID(ctx context.Context, id string) (*models.GenerationRun, error) {
	const query = `SELECT id, status, sections, teachers, meta, created_at
FROM generation_runs WHERE id = $1`
	var run models.GenerationRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		return nil, fmt.Errorf("find generation run: %w", err)
	}
	return &run, nil
}
