package migration

import (
	"context"

	"github.com/jmoiron/sqlx"

	"metascreen/internal/errors"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createScreeningRunsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create screening_runs table")
	}
	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}
	return nil
}

func (r *MigrationRunner) createScreeningRunsTable(ctx context.Context, db *sqlx.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS screening_runs (
		id VARCHAR(64) PRIMARY KEY,
		dataset TEXT NOT NULL,
		options JSONB NOT NULL,
		total_features INTEGER NOT NULL,
		sample_count INTEGER NOT NULL,
		computed_count INTEGER NOT NULL,
		significant_count INTEGER NOT NULL,
		skipped_count INTEGER NOT NULL,
		results JSONB NOT NULL,
		runtime_ms BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	)`
	_, err := db.ExecContext(ctx, query)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	queries := []string{
		`CREATE INDEX IF NOT EXISTS idx_screening_runs_dataset ON screening_runs(dataset)`,
		`CREATE INDEX IF NOT EXISTS idx_screening_runs_created_at ON screening_runs(created_at DESC)`,
	}
	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}
