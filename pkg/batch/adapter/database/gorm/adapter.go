// Package gorm implements the database contracts on top of gorm.io/gorm.
// Dialect subpackages (postgres, mysql, sqlite) register their dialectors on import.
package gorm

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"github.com/tigerroll/ridership/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/ridership/pkg/batch/adapter/database/config"
	"github.com/tigerroll/ridership/pkg/batch/support/util/logger"
)

// GormDBAdapter implements database.DBConnection.
type GormDBAdapter struct {
	executor
	sqlDB  *sql.DB
	cfg    dbconfig.DatabaseConfig
	dbType string
	name   string
}

var _ database.DBConnection = (*GormDBAdapter)(nil)

// NewGormDBAdapter wraps an opened *gorm.DB.
func NewGormDBAdapter(db *gorm.DB, cfg dbconfig.DatabaseConfig, name string) *GormDBAdapter {
	sqlDB, err := db.DB()
	if err != nil {
		logger.Errorf("Failed to get underlying *sql.DB for '%s': %v", name, err)
	}
	return &GormDBAdapter{
		executor: executor{db: db},
		sqlDB:    sqlDB,
		cfg:      cfg,
		dbType:   cfg.Type,
		name:     name,
	}
}

// GetGormDB returns the underlying *gorm.DB. Used by the transaction manager.
func (a *GormDBAdapter) GetGormDB() *gorm.DB {
	return a.db
}

func (a *GormDBAdapter) Close() error {
	if a.sqlDB != nil {
		logger.Infof("Closing database connection '%s'...", a.name)
		return a.sqlDB.Close()
	}
	return nil
}

func (a *GormDBAdapter) Type() string { return a.dbType }

func (a *GormDBAdapter) Name() string { return a.name }

// RefreshConnection pings the pool.
func (a *GormDBAdapter) RefreshConnection(ctx context.Context) error {
	if a.sqlDB == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	return a.sqlDB.PingContext(ctx)
}

func (a *GormDBAdapter) Config() dbconfig.DatabaseConfig { return a.cfg }

func (a *GormDBAdapter) GetSQLDB() (*sql.DB, error) {
	if a.sqlDB == nil {
		return nil, fmt.Errorf("underlying sql.DB is nil")
	}
	return a.sqlDB, nil
}

func (a *GormDBAdapter) IsTableNotExistError(err error) bool {
	return isTableNotExist(err)
}

// ExecuteUpdate runs outside any transaction. gorm's implicit transaction is skipped.
func (a *GormDBAdapter) ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (int64, error) {
	return executor{db: a.db.Session(&gorm.Session{SkipDefaultTransaction: true})}.update(ctx, model, operation, tableName, query)
}

func (a *GormDBAdapter) ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (int64, error) {
	return executor{db: a.db.Session(&gorm.Session{SkipDefaultTransaction: true})}.upsert(ctx, model, tableName, conflictColumns, updateColumns)
}

func (a *GormDBAdapter) ExecuteQuery(ctx context.Context, target interface{}, tableName string, query map[string]interface{}) error {
	return a.query(ctx, target, tableName, query, "", 0)
}

func (a *GormDBAdapter) ExecuteQueryAdvanced(ctx context.Context, target interface{}, tableName string, query map[string]interface{}, orderBy string, limit int) error {
	return a.query(ctx, target, tableName, query, orderBy, limit)
}

func (a *GormDBAdapter) Count(ctx context.Context, tableName string, query map[string]interface{}) (int64, error) {
	return a.count(ctx, tableName, query)
}

func (a *GormDBAdapter) Pluck(ctx context.Context, tableName string, column string, distinct bool, target interface{}, query map[string]interface{}) error {
	return a.pluck(ctx, tableName, column, distinct, target, query)
}

func (a *GormDBAdapter) SelectDistinct(ctx context.Context, tableName string, columns []string, target interface{}, query map[string]interface{}) error {
	return a.selectDistinct(ctx, tableName, columns, target, query)
}
