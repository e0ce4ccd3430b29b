package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"time"

	"github.com/agentshield/api/pkg/logger"
)

// Runner applies schema migrations and tracks them in schema_migrations.
type Runner struct {
	db     *sql.DB
	fsys   fs.FS
	logger *logger.Logger
}

// NewRunner creates a migration runner over the given migration files.
func NewRunner(db *sql.DB, fsys fs.FS, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.NewNop()
	}
	return &Runner{
		db:     db,
		fsys:   fsys,
		logger: log.With("component", "migrations"),
	}
}

// Record is one row of the schema_migrations table.
type Record struct {
	Version   string
	AppliedAt time.Time
}

// EnsureMigrationTable creates the tracking table if it does not exist.
func (r *Runner) EnsureMigrationTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(14) PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure migration table: %w", err)
	}
	return nil
}

// Applied returns the applied migrations in version order.
func (r *Runner) Applied(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT version, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("failed to list applied migrations: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Version, &rec.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Pending returns available versions that have not been applied yet.
func (r *Runner) Pending(ctx context.Context) ([]string, error) {
	available, err := ScanVersions(r.fsys)
	if err != nil {
		return nil, err
	}

	applied, err := r.Applied(ctx)
	if err != nil {
		return nil, err
	}

	appliedSet := make(map[string]bool, len(applied))
	for _, rec := range applied {
		appliedSet[rec.Version] = true
	}

	var pending []string
	for _, v := range available {
		if !appliedSet[v] {
			pending = append(pending, v)
		}
	}
	return pending, nil
}

// Up applies all pending migrations in version order. Each migration
// runs in its own transaction together with its tracking row, so a
// failure leaves the schema at the last fully applied version.
func (r *Runner) Up(ctx context.Context) error {
	if err := r.EnsureMigrationTable(ctx); err != nil {
		return err
	}

	pending, err := r.Pending(ctx)
	if err != nil {
		return err
	}

	if len(pending) == 0 {
		r.logger.Debug("no pending migrations")
		return nil
	}

	r.logger.Info("applying migrations", "pending", len(pending))

	for _, version := range pending {
		if err := r.apply(ctx, version); err != nil {
			return fmt.Errorf("migration %s failed: %w", version, err)
		}
		r.logger.Info("migration applied", "version", version)
	}

	return nil
}

// Down rolls back the most recently applied migration.
func (r *Runner) Down(ctx context.Context) error {
	applied, err := r.Applied(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return nil
	}

	last := applied[len(applied)-1].Version

	name, err := FindFile(r.fsys, last, DirectionDown)
	if err != nil {
		return err
	}
	content, err := fs.ReadFile(r.fsys, name)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM schema_migrations WHERE version = $1`, last); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	r.logger.Info("migration rolled back", "version", last)
	return nil
}

func (r *Runner) apply(ctx context.Context, version string) error {
	name, err := FindFile(r.fsys, version, DirectionUp)
	if err != nil {
		return err
	}
	content, err := fs.ReadFile(r.fsys, name)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
		return err
	}

	return tx.Commit()
}
