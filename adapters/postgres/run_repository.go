package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"metascreen/domain/core"
	"metascreen/domain/screen"
	"metascreen/ports"
)

// runRepository implements the RunRepository interface
type runRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new screening run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &runRepository{db: db}
}

// Create inserts a finished screening run with its per-feature results
func (r *runRepository) Create(ctx context.Context, run *screen.Run) error {
	if run == nil {
		return fmt.Errorf("run cannot be nil")
	}

	optionsJSON, err := json.Marshal(run.Options)
	if err != nil {
		return fmt.Errorf("failed to marshal options: %w", err)
	}
	resultsJSON, err := json.Marshal(run.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	query := `INSERT INTO screening_runs (
		id, dataset, options, total_features, sample_count,
		computed_count, significant_count, skipped_count,
		results, runtime_ms, created_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
	)`

	_, err = r.db.ExecContext(ctx, query,
		run.RunID, run.Dataset, optionsJSON, run.TotalFeatures, run.SampleCount,
		run.ComputedCount, run.SignificantCount, run.SkippedCount,
		resultsJSON, run.RuntimeMs, run.CreatedAt.Time(),
	)
	if err != nil {
		return fmt.Errorf("failed to create screening run: %w", err)
	}
	return nil
}

// GetByID retrieves a screening run by its ID
func (r *runRepository) GetByID(ctx context.Context, id core.RunID) (*screen.Run, error) {
	query := `SELECT
		id, dataset, options, total_features, sample_count,
		computed_count, significant_count, skipped_count,
		results, runtime_ms, created_at
	FROM screening_runs WHERE id = $1`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("screening run %s: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get screening run: %w", err)
	}
	return run, nil
}

// List retrieves runs newest first, optionally filtered by dataset
func (r *runRepository) List(ctx context.Context, filters ports.RunFilters) ([]*screen.Run, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT
		id, dataset, options, total_features, sample_count,
		computed_count, significant_count, skipped_count,
		results, runtime_ms, created_at
	FROM screening_runs`
	args := []interface{}{}

	if filters.Dataset != "" {
		query += ` WHERE dataset = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, filters.Dataset, limit, filters.Offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, filters.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query screening runs: %w", err)
	}
	defer rows.Close()

	var runs []*screen.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan screening run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate screening runs: %w", err)
	}
	return runs, nil
}

// Delete removes a screening run
func (r *runRepository) Delete(ctx context.Context, id core.RunID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM screening_runs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete screening run: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("screening run %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// rowScanner covers both sql.Row and sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*screen.Run, error) {
	var run screen.Run
	var optionsJSON, resultsJSON []byte
	var createdAt sql.NullTime

	err := row.Scan(
		&run.RunID, &run.Dataset, &optionsJSON, &run.TotalFeatures, &run.SampleCount,
		&run.ComputedCount, &run.SignificantCount, &run.SkippedCount,
		&resultsJSON, &run.RuntimeMs, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	if len(optionsJSON) > 0 {
		if err := json.Unmarshal(optionsJSON, &run.Options); err != nil {
			return nil, fmt.Errorf("failed to unmarshal options: %w", err)
		}
	}
	if len(resultsJSON) > 0 {
		if err := json.Unmarshal(resultsJSON, &run.Results); err != nil {
			return nil, fmt.Errorf("failed to unmarshal results: %w", err)
		}
	}
	if createdAt.Valid {
		run.CreatedAt = core.NewTimestamp(createdAt.Time)
	}
	return &run, nil
}
