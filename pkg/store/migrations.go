package store

import (
	"context"
	"fmt"
)

// Migration represents a database migration. DDL differs slightly between
// the two dialects (autoincrement keys, boolean types), so each migration
// carries a statement per dialect.
type Migration struct {
	Version     int
	Description string
	SQLite      string
	Postgres    string
}

// GetMigrations returns all migrations in order.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQLite: `
				CREATE TABLE IF NOT EXISTS users (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					email TEXT NOT NULL UNIQUE,
					role TEXT NOT NULL,
					password_hash TEXT NOT NULL,
					enabled INTEGER NOT NULL DEFAULT 1,
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
				);
			`,
			Postgres: `
				CREATE TABLE IF NOT EXISTS users (
					id BIGSERIAL PRIMARY KEY,
					email TEXT NOT NULL UNIQUE,
					role TEXT NOT NULL,
					password_hash TEXT NOT NULL,
					enabled BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);
			`,
		},
		{
			Version:     2,
			Description: "Create sites table",
			SQLite: `
				CREATE TABLE IF NOT EXISTS sites (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL UNIQUE,
					slug TEXT NOT NULL UNIQUE,
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
				);
			`,
			Postgres: `
				CREATE TABLE IF NOT EXISTS sites (
					id BIGSERIAL PRIMARY KEY,
					name TEXT NOT NULL UNIQUE,
					slug TEXT NOT NULL UNIQUE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);
			`,
		},
		{
			Version:     3,
			Description: "Create devices table",
			SQLite: `
				CREATE TABLE IF NOT EXISTS devices (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT,
					mac TEXT UNIQUE,
					mgmt_ip TEXT,
					vendor TEXT,
					site_id INTEGER REFERENCES sites(id),
					last_seen TIMESTAMP
				);
				CREATE INDEX IF NOT EXISTS idx_devices_site_id ON devices(site_id);
			`,
			Postgres: `
				CREATE TABLE IF NOT EXISTS devices (
					id BIGSERIAL PRIMARY KEY,
					name TEXT,
					mac TEXT UNIQUE,
					mgmt_ip TEXT,
					vendor TEXT,
					site_id BIGINT REFERENCES sites(id),
					last_seen TIMESTAMP
				);
				CREATE INDEX IF NOT EXISTS idx_devices_site_id ON devices(site_id);
			`,
		},
		{
			Version:     4,
			Description: "Create device_links table",
			SQLite: `
				CREATE TABLE IF NOT EXISTS device_links (
					a_id INTEGER NOT NULL REFERENCES devices(id),
					b_id INTEGER NOT NULL REFERENCES devices(id),
					last_seen TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (a_id, b_id)
				);
			`,
			Postgres: `
				CREATE TABLE IF NOT EXISTS device_links (
					a_id BIGINT NOT NULL REFERENCES devices(id),
					b_id BIGINT NOT NULL REFERENCES devices(id),
					last_seen TIMESTAMP NOT NULL DEFAULT NOW(),
					PRIMARY KEY (a_id, b_id)
				);
			`,
		},
		{
			Version:     5,
			Description: "Create user_site_access table",
			SQLite: `
				CREATE TABLE IF NOT EXISTS user_site_access (
					user_id INTEGER NOT NULL REFERENCES users(id),
					site_id INTEGER NOT NULL REFERENCES sites(id),
					can_edit INTEGER NOT NULL DEFAULT 0,
					PRIMARY KEY (user_id, site_id)
				);
			`,
			Postgres: `
				CREATE TABLE IF NOT EXISTS user_site_access (
					user_id BIGINT NOT NULL REFERENCES users(id),
					site_id BIGINT NOT NULL REFERENCES sites(id),
					can_edit BOOLEAN NOT NULL DEFAULT FALSE,
					PRIMARY KEY (user_id, site_id)
				);
			`,
		},
		{
			Version:     6,
			Description: "Create endpoints table",
			SQLite: `
				CREATE TABLE IF NOT EXISTS endpoints (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					kind TEXT NOT NULL,
					address TEXT NOT NULL,
					auth_type TEXT NOT NULL,
					username TEXT,
					password TEXT,
					api_key TEXT,
					site TEXT,
					notes TEXT,
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
				);
			`,
			Postgres: `
				CREATE TABLE IF NOT EXISTS endpoints (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					kind TEXT NOT NULL,
					address TEXT NOT NULL,
					auth_type TEXT NOT NULL,
					username TEXT,
					password TEXT,
					api_key TEXT,
					site TEXT,
					notes TEXT,
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);
			`,
		},
		{
			Version:     7,
			Description: "Create maps and settings tables",
			SQLite: `
				CREATE TABLE IF NOT EXISTS maps (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
				);
				CREATE TABLE IF NOT EXISTS settings (
					key TEXT PRIMARY KEY,
					value TEXT NOT NULL
				);
			`,
			Postgres: `
				CREATE TABLE IF NOT EXISTS maps (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);
				CREATE TABLE IF NOT EXISTS settings (
					key TEXT PRIMARY KEY,
					value TEXT NOT NULL
				);
			`,
		},
	}
}

// Migrate executes all pending migrations inside transactions, tracking
// applied versions in schema_migrations.
func (s *Store) Migrate(ctx context.Context) error {
	trackDDL := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`
	if s.dialect == DialectPostgres {
		trackDDL = `
			CREATE TABLE IF NOT EXISTS schema_migrations (
				version INTEGER PRIMARY KEY,
				description TEXT NOT NULL,
				applied_at TIMESTAMP NOT NULL DEFAULT NOW()
			)
		`
	}
	if _, err := s.db.ExecContext(ctx, trackDDL); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	for _, migration := range GetMigrations() {
		if applied[migration.Version] {
			continue
		}

		ddl := migration.SQLite
		if s.dialect == DialectPostgres {
			ddl = migration.Postgres
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			s.rebind("INSERT INTO schema_migrations (version, description) VALUES (?, ?)"),
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
