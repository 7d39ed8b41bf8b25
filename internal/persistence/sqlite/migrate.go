package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrationStep pairs a monotonically increasing version with the statements
// that bring the schema to that version.
type migrationStep struct {
	version    int
	statements []string
}

var migrationSteps = []migrationStep{
	{
		version: 1,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS resources (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				unit_price_cents INTEGER NOT NULL CHECK (unit_price_cents >= 0),
				width_meters REAL NOT NULL DEFAULT 0,
				depth_meters REAL NOT NULL DEFAULT 0,
				height_meters REAL NOT NULL DEFAULT 0,
				weight_kilograms REAL NOT NULL DEFAULT 0,
				setup_duration_minutes INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS bookings (
				id TEXT PRIMARY KEY,
				client_id TEXT NOT NULL,
				status TEXT NOT NULL,
				start_date TEXT NOT NULL,
				end_date TEXT NOT NULL,
				total_price_cents INTEGER NOT NULL DEFAULT 0,
				notes TEXT NOT NULL DEFAULT '',
				version INTEGER NOT NULL DEFAULT 1,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				CHECK (start_date <= end_date)
			)`,
			`CREATE TABLE IF NOT EXISTS booking_assignments (
				booking_id TEXT NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
				resource_id TEXT NOT NULL REFERENCES resources(id),
				quantity INTEGER NOT NULL CHECK (quantity > 0),
				position INTEGER NOT NULL,
				PRIMARY KEY (booking_id, resource_id)
			)`,
			`CREATE TABLE IF NOT EXISTS booking_operators (
				booking_id TEXT NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
				operator_id TEXT NOT NULL,
				PRIMARY KEY (booking_id, operator_id)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
			`CREATE INDEX IF NOT EXISTS idx_bookings_dates ON bookings(start_date, end_date)`,
			`CREATE INDEX IF NOT EXISTS idx_booking_assignments_resource ON booking_assignments(resource_id)`,
		},
	},
	{
		version: 2,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS operators (
				id TEXT PRIMARY KEY,
				email TEXT NOT NULL UNIQUE,
				display_name TEXT NOT NULL,
				is_admin INTEGER NOT NULL DEFAULT 0,
				password_hash TEXT NOT NULL DEFAULT '',
				disabled INTEGER NOT NULL DEFAULT 0,
				failed_attempts INTEGER NOT NULL DEFAULT 0,
				last_failed_at TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS sessions (
				id TEXT PRIMARY KEY,
				operator_id TEXT NOT NULL REFERENCES operators(id) ON DELETE CASCADE,
				token TEXT NOT NULL UNIQUE,
				expires_at TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				revoked_at TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at)`,
		},
	},
}

// Migrate applies any pending schema migrations. Each step runs inside one
// transaction and records its version, so reapplying is a no-op.
func Migrate(ctx context.Context, pool *ConnectionPool) error {
	if pool == nil {
		return fmt.Errorf("connection pool is nil")
	}

	if _, err := pool.DB().ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	applied, err := appliedVersions(ctx, pool.DB())
	if err != nil {
		return err
	}

	for _, step := range migrationSteps {
		if _, ok := applied[step.version]; ok {
			continue
		}
		step := step
		err := pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			for _, statement := range step.statements {
				if _, err := tx.Exec(statement); err != nil {
					return fmt.Errorf("migration %d failed: %w", step.version, err)
				}
			}
			_, err := tx.Exec(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, datetime('now'))`, step.version)
			return err
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[int]struct{}, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]struct{})
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = struct{}{}
	}
	return applied, rows.Err()
}
