// Package migration creates the load history schema.
package migration

import (
	"context"

	"github.com/jmoiron/sqlx"

	"kpidash/internal"
	"kpidash/internal/errors"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// Step is one idempotent schema statement
type Step struct {
	Name string
	SQL  string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
	steps   []Step
	logger  *internal.Logger
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
		steps:   Steps(),
		logger:  internal.DefaultLogger.Named("Migration"),
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all steps in order. Every step can run more than once.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	for _, step := range r.steps {
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			return errors.WithCode(errors.CodeDatabaseError, errors.Wrapf(err, "failed to %s", step.Name))
		}
		r.logger.Debug("applied %s", step.Name)
	}
	r.logger.Info("schema at version %s", r.version)
	return nil
}

// Steps lists the schema statements in execution order
func Steps() []Step {
	return []Step{
		{
			Name: "create load_history table",
			SQL: `
		CREATE TABLE IF NOT EXISTS load_history (
			id UUID PRIMARY KEY,
			source_file TEXT NOT NULL,
			sheet VARCHAR(255) NOT NULL DEFAULT '',
			fingerprint VARCHAR(128) NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL,
			error_code VARCHAR(50) NOT NULL DEFAULT '',
			error_message TEXT NOT NULL DEFAULT '',
			row_count INTEGER NOT NULL DEFAULT 0,
			column_count INTEGER NOT NULL DEFAULT 0,
			numeric_columns TEXT[] NOT NULL DEFAULT '{}',
			duration_ms BIGINT NOT NULL DEFAULT 0,
			loaded_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`,
		},
		{
			Name: "create load_history indexes",
			SQL: `
		CREATE INDEX IF NOT EXISTS idx_load_history_loaded_at ON load_history(loaded_at DESC)`,
		},
		{
			Name: "create load_history source index",
			SQL: `
		CREATE INDEX IF NOT EXISTS idx_load_history_source ON load_history(source_file, loaded_at DESC)`,
		},
	}
}
