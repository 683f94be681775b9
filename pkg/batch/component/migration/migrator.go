// Package migration applies embedded SQL migrations with golang-migrate.
package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	dbadapter "github.com/tigerroll/ridership/pkg/batch/adapter/database"
	"github.com/tigerroll/ridership/pkg/batch/support/util/logger"
)

// DefaultMigrationsTable tracks the applied schema version.
const DefaultMigrationsTable = "ridership_schema_migrations"

// Migrator handles database schema migrations.
type Migrator interface {
	// Up applies all pending migrations found under path in migrationFS and returns the
	// resulting schema version. Nothing to apply is not an error.
	Up(ctx context.Context, migrationFS fs.FS, path string, tableName string) (uint, error)
}

// migrator runs golang-migrate against the *sql.DB of a DBConnection.
// Closing the migrate instance closes that *sql.DB, so the connection must not be reused afterwards.
type migrator struct {
	dbConn dbadapter.DBConnection
	dbType string
}

// NewMigrator creates a Migrator for dbConn.
func NewMigrator(dbConn dbadapter.DBConnection) Migrator {
	return &migrator{dbConn: dbConn, dbType: dbConn.Type()}
}

func databaseDriver(dbType string, sqlDB *sql.DB, tableName string) (database.Driver, error) {
	switch dbType {
	case "postgres":
		return postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: tableName})
	case "mysql":
		return mysql.WithInstance(sqlDB, &mysql.Config{MigrationsTable: tableName})
	case "sqlite":
		return sqlite.WithInstance(sqlDB, &sqlite.Config{MigrationsTable: tableName})
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", dbType)
	}
}

func (m *migrator) Up(ctx context.Context, migrationFS fs.FS, path string, tableName string) (uint, error) {
	if tableName == "" {
		tableName = DefaultMigrationsTable
	}
	logger.Infof("Applying migrations (type: %s, path: %s, table: %s).", m.dbType, path, tableName)

	sqlDB, err := m.dbConn.GetSQLDB()
	if err != nil {
		return 0, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sourceDriver, err := iofs.New(migrationFS, path)
	if err != nil {
		return 0, fmt.Errorf("failed to create iofs source driver for path %s: %w", path, err)
	}
	dbDriver, err := databaseDriver(m.dbType, sqlDB, tableName)
	if err != nil {
		return 0, err
	}
	instance, err := migrate.NewWithInstance("iofs", sourceDriver, m.dbType, dbDriver)
	if err != nil {
		return 0, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() {
		if srcErr, dbErr := instance.Close(); srcErr != nil || dbErr != nil {
			logger.Warnf("Closing migrate instance: source=%v database=%v", srcErr, dbErr)
		}
	}()

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	// golang-migrate has no context support; stop between steps on cancellation.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			instance.GracefulStop <- true
		case <-done:
		}
	}()

	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migration failed (type: %s, path: %s): %w", m.dbType, path, err)
	}

	version, dirty, err := instance.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}
	logger.Infof("Migrations applied. Schema version: %d.", version)
	return version, nil
}
