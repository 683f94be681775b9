// Package database declares the relational connection contracts of the pipeline.
// The gorm subpackage implements them for postgres, mysql and sqlite.
package database

import (
	"context"
	"database/sql"

	dbconfig "github.com/tigerroll/ridership/pkg/batch/adapter/database/config"
	coreAdapter "github.com/tigerroll/ridership/pkg/batch/core/adapter"
)

// DBExecutor defines the read and write operations of a connection.
// An empty tableName makes the adapter fall back to the table of the model or target.
type DBExecutor interface {
	// ExecuteUpdate performs write operations ("CREATE", "UPDATE", "DELETE").
	ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (rowsAffected int64, err error)

	// ExecuteUpsert performs INSERT ... ON CONFLICT. Empty updateColumns means DO NOTHING.
	ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (rowsAffected int64, err error)

	// ExecuteQuery selects the rows of tableName matching query into target.
	// target may be a pointer to a slice of structs or to []map[string]interface{}.
	ExecuteQuery(ctx context.Context, target interface{}, tableName string, query map[string]interface{}) error

	// ExecuteQueryAdvanced is ExecuteQuery with an ORDER BY clause and a limit (0 means none).
	ExecuteQueryAdvanced(ctx context.Context, target interface{}, tableName string, query map[string]interface{}, orderBy string, limit int) error

	// Count counts the rows of tableName matching query.
	Count(ctx context.Context, tableName string, query map[string]interface{}) (int64, error)

	// Pluck reads one column into target (a pointer to a slice).
	// With distinct set, duplicate values are collapsed by the database.
	Pluck(ctx context.Context, tableName string, column string, distinct bool, target interface{}, query map[string]interface{}) error

	// SelectDistinct selects the distinct combinations of columns into target.
	SelectDistinct(ctx context.Context, tableName string, columns []string, target interface{}, query map[string]interface{}) error
}

// DBConnection represents a named database connection.
type DBConnection interface {
	coreAdapter.ResourceConnection
	DBExecutor

	// IsTableNotExistError checks if the given error indicates that a table does not exist.
	IsTableNotExistError(err error) bool
	// RefreshConnection forces the re-establishment of the database connection.
	RefreshConnection(ctx context.Context) error
	// Config returns the database configuration associated with this connection.
	Config() dbconfig.DatabaseConfig
	// GetSQLDB returns the underlying *sql.DB, used by the migrator.
	GetSQLDB() (*sql.DB, error)
}

// DBConnectionResolver resolves a database connection by name.
type DBConnectionResolver interface {
	coreAdapter.ResourceConnectionResolver

	// ResolveDBConnection returns a valid connection, re-establishing it if necessary.
	ResolveDBConnection(ctx context.Context, name string) (DBConnection, error)
}

// DBProvider provides connections of one database type.
type DBProvider interface {
	GetConnection(name string) (DBConnection, error)
	ForceReconnect(name string) (DBConnection, error)
	CloseAll() error
	// Type returns the database type handled by this provider (e.g., "postgres").
	Type() string
	// ConnectionNames returns the configured connection names of this provider's type.
	ConnectionNames() []string
}

// DBProviderGroup is the Fx group tag of all DBProvider implementations.
const DBProviderGroup = `group:"db_providers"`
