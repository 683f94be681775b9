package gorm

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tigerroll/ridership/pkg/batch/adapter/database"
	tx "github.com/tigerroll/ridership/pkg/batch/core/tx"
)

// GormTxAdapter implements tx.Tx over a gorm transaction.
type GormTxAdapter struct {
	executor
}

var _ tx.Tx = (*GormTxAdapter)(nil)

func (t *GormTxAdapter) ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (int64, error) {
	return t.update(ctx, model, operation, tableName, query)
}

func (t *GormTxAdapter) ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (int64, error) {
	return t.upsert(ctx, model, tableName, conflictColumns, updateColumns)
}

func (t *GormTxAdapter) Count(ctx context.Context, tableName string, query map[string]interface{}) (int64, error) {
	return t.count(ctx, tableName, query)
}

func (t *GormTxAdapter) Savepoint(name string) error {
	return t.db.SavePoint(name).Error
}

func (t *GormTxAdapter) RollbackToSavepoint(name string) error {
	return t.db.RollbackTo(name).Error
}

// GormTransactionManager implements tx.TransactionManager for one named connection.
// The connection is resolved at every Begin so that a reconnect is picked up.
type GormTransactionManager struct {
	dbResolver database.DBConnectionResolver
	dbName     string
}

var _ tx.TransactionManager = (*GormTransactionManager)(nil)

// NewGormTransactionManager creates a transaction manager bound to dbName.
func NewGormTransactionManager(dbResolver database.DBConnectionResolver, dbName string) *GormTransactionManager {
	return &GormTransactionManager{dbResolver: dbResolver, dbName: dbName}
}

func (m *GormTransactionManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (tx.Tx, error) {
	conn, err := m.dbResolver.ResolveDBConnection(ctx, m.dbName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve DB connection '%s' for transaction: %w", m.dbName, err)
	}
	adapter, ok := conn.(*GormDBAdapter)
	if !ok {
		return nil, fmt.Errorf("internal error: DBConnection implementation is not *GormDBAdapter")
	}

	var txOpts *sql.TxOptions
	if len(opts) > 0 {
		txOpts = opts[0]
	}
	gormTx := adapter.GetGormDB().WithContext(ctx).Begin(txOpts)
	if gormTx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", gormTx.Error)
	}
	return &GormTxAdapter{executor{db: gormTx}}, nil
}

func (m *GormTransactionManager) Commit(t tx.Tx) error {
	a, ok := t.(*GormTxAdapter)
	if !ok {
		return fmt.Errorf("invalid transaction type: expected *GormTxAdapter")
	}
	return a.db.Commit().Error
}

func (m *GormTransactionManager) Rollback(t tx.Tx) error {
	a, ok := t.(*GormTxAdapter)
	if !ok {
		return fmt.Errorf("invalid transaction type: expected *GormTxAdapter")
	}
	return a.db.Rollback().Error
}

// GormTransactionManagerFactory is the gorm implementation of tx.TransactionManagerFactory.
type GormTransactionManagerFactory struct {
	dbResolver database.DBConnectionResolver
}

// NewGormTransactionManagerFactory creates a GormTransactionManagerFactory.
func NewGormTransactionManagerFactory(dbResolver database.DBConnectionResolver) *GormTransactionManagerFactory {
	return &GormTransactionManagerFactory{dbResolver: dbResolver}
}

func (f *GormTransactionManagerFactory) NewTransactionManager(dbName string) tx.TransactionManager {
	return NewGormTransactionManager(f.dbResolver, dbName)
}

var _ tx.TransactionManagerFactory = (*GormTransactionManagerFactory)(nil)
