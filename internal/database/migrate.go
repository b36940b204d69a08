package database

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate brings the schema up to date. Each pending .up.sql file runs
// in its own transaction together with its schema_migrations row, so a
// failed migration leaves the previous version intact.
func Migrate(database *sql.DB) error {
	if _, err := database.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	applied, err := appliedVersions(database)
	if err != nil {
		return err
	}

	pending, err := pendingMigrations(applied)
	if err != nil {
		return err
	}

	for _, migration := range pending {
		if err := applyMigration(database, migration); err != nil {
			return err
		}
		slog.Info("applied schema migration", "version", migration.version, "file", migration.filename)
	}
	return nil
}

type migrationFile struct {
	version  int
	filename string
}

func appliedVersions(database *sql.DB) (map[int]bool, error) {
	rows, err := database.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("listing applied migrations: %w", err)
	}
	defer rows.Close()

	applied := map[int]bool{}
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scanning applied migration: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing applied migrations: %w", err)
	}
	return applied, nil
}

func pendingMigrations(applied map[int]bool) ([]migrationFile, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var pending []migrationFile
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			return nil, fmt.Errorf("migration %s has no numeric version prefix: %w", name, err)
		}
		if applied[version] {
			continue
		}
		pending = append(pending, migrationFile{version: version, filename: name})
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].version < pending[j].version })
	return pending, nil
}

func applyMigration(database *sql.DB, migration migrationFile) error {
	content, err := migrationsFS.ReadFile("migrations/" + migration.filename)
	if err != nil {
		return fmt.Errorf("reading migration %s: %w", migration.filename, err)
	}

	transaction, err := database.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction for migration %d: %w", migration.version, err)
	}
	defer transaction.Rollback()

	if _, err := transaction.Exec(string(content)); err != nil {
		return fmt.Errorf("executing migration %s: %w", migration.filename, err)
	}
	if _, err := transaction.Exec("INSERT INTO schema_migrations (version) VALUES (?)", migration.version); err != nil {
		return fmt.Errorf("recording migration %d: %w", migration.version, err)
	}
	if err := transaction.Commit(); err != nil {
		return fmt.Errorf("committing migration %d: %w", migration.version, err)
	}
	return nil
}
