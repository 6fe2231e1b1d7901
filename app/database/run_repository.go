package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// RunRepository records one row per scheduling run
type RunRepository struct {
	db *DB
}

func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) StartRun(ctx context.Context, runID string, startedAt time.Time) error {
	query, args, err := sq.Insert("runs").
		Columns("id", "started_at").
		Values(runID, startedAt.UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	return nil
}

func (r *RunRepository) FinishRun(ctx context.Context, runID string, finishedAt time.Time, reason string, stats string) error {
	query, args, err := sq.Update("runs").
		Set("finished_at", finishedAt.UTC()).
		Set("reason", reason).
		Set("stats", stats).
		Where(sq.Eq{"id": runID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

func (r *RunRepository) GetRun(ctx context.Context, runID string) (*Run, error) {
	query, args, err := sq.Select("id", "started_at", "finished_at", "reason", "stats").
		From("runs").
		Where(sq.Eq{"id": runID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}

	var run Run
	var finishedAt sql.NullTime
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&run.ID, &run.StartedAt, &finishedAt, &run.Reason, &run.Stats)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if finishedAt.Valid {
		finished := finishedAt.Time
		run.FinishedAt = &finished
	}
	return &run, nil
}
