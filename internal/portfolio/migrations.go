package portfolio

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/proingenius/aria-banking/internal/config"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationManager applies the embedded schema migrations.
type MigrationManager struct {
	db     *sql.DB
	files  fs.FS
	driver string // sqlite or postgres
}

// NewMigrationManager creates a migration manager for the embedded migrations.
func NewMigrationManager(db *sql.DB, driver string) *MigrationManager {
	sub, _ := fs.Sub(migrationFiles, "migrations")
	return &MigrationManager{db: db, files: sub, driver: driver}
}

// MigrationStatus represents the status of migrations.
type MigrationStatus struct {
	UpToDate bool
	Applied  []string
	Pending  []string
	Total    int
}

// CheckMigrations reports applied and pending migrations.
func (m *MigrationManager) CheckMigrations(ctx context.Context) (*MigrationStatus, error) {
	if err := m.ensureSchemaMigrationsTable(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema_migrations table: %w", err)
	}

	migrations, err := m.listMigrationFiles()
	if err != nil {
		return nil, fmt.Errorf("list migration files: %w", err)
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read applied versions: %w", err)
	}

	status := &MigrationStatus{Total: len(migrations), Pending: []string{}}
	for _, name := range migrations {
		if applied[versionOf(name)] {
			status.Applied = append(status.Applied, name)
		} else {
			status.Pending = append(status.Pending, name)
		}
	}
	status.UpToDate = len(status.Pending) == 0
	return status, nil
}

// RunMigrations applies every pending migration in order, each in its own transaction.
func (m *MigrationManager) RunMigrations(ctx context.Context, status *MigrationStatus) error {
	pending := append([]string(nil), status.Pending...)
	sort.Strings(pending)

	for _, name := range pending {
		if err := m.runMigration(ctx, name); err != nil {
			return fmt.Errorf("run migration %s: %w", name, err)
		}
	}
	return nil
}

// Migrate checks and applies pending migrations, returning how many ran.
func (m *MigrationManager) Migrate(ctx context.Context) (int, error) {
	status, err := m.CheckMigrations(ctx)
	if err != nil {
		return 0, err
	}
	if err := m.RunMigrations(ctx, status); err != nil {
		return 0, err
	}
	return len(status.Pending), nil
}

func (m *MigrationManager) ensureSchemaMigrationsTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`
	_, err := m.db.ExecContext(ctx, query)
	return err
}

// listMigrationFiles returns one file per version: the _sqlite.sql variant
// when running on SQLite and it exists, the plain .sql file otherwise.
func (m *MigrationManager) listMigrationFiles() ([]string, error) {
	entries, err := fs.ReadDir(m.files, ".")
	if err != nil {
		return nil, fmt.Errorf("read migration directory: %w", err)
	}

	sqliteFiles := make(map[string]string)
	regularFiles := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		if strings.HasSuffix(name, "_sqlite.sql") {
			sqliteFiles[strings.TrimSuffix(name, "_sqlite.sql")] = name
		} else {
			regularFiles[strings.TrimSuffix(name, ".sql")] = name
		}
	}

	var migrations []string
	for version, name := range regularFiles {
		if m.driver == config.DriverSQLite {
			if sqliteName, ok := sqliteFiles[version]; ok {
				name = sqliteName
			}
		}
		migrations = append(migrations, name)
	}
	if m.driver == config.DriverSQLite {
		for version, name := range sqliteFiles {
			if _, ok := regularFiles[version]; !ok {
				migrations = append(migrations, name)
			}
		}
	}

	sort.Strings(migrations)
	return migrations, nil
}

func (m *MigrationManager) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (m *MigrationManager) runMigration(ctx context.Context, name string) error {
	data, err := fs.ReadFile(m.files, name)
	if err != nil {
		return fmt.Errorf("read migration file: %w", err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, string(data)); err != nil {
		return fmt.Errorf("execute migration: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", versionOf(name)); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return tx.Commit()
}

// versionOf strips the driver suffix so both variants record the same version.
func versionOf(name string) string {
	name = strings.TrimSuffix(name, ".sql")
	return strings.TrimSuffix(name, "_sqlite")
}
