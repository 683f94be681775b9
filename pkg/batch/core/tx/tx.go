// Package tx provides the transaction abstraction used by the persistence layer.
// A Tx started by a TransactionManager can travel through a context.Context so that
// writers deeper in the call chain join it instead of auto-committing.
package tx

import (
	"context"
	"database/sql"
)

// TxExecutor defines operations executable inside a transaction.
type TxExecutor interface {
	// ExecuteUpdate performs "CREATE", "UPDATE" or "DELETE" on tableName.
	// query holds the AND-combined WHERE conditions for UPDATE and DELETE.
	ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (rowsAffected int64, err error)

	// ExecuteUpsert inserts model into tableName. On a conflict over conflictColumns the
	// updateColumns are updated. An empty updateColumns means ON CONFLICT DO NOTHING.
	ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (rowsAffected int64, err error)

	// Count counts the rows of tableName matching query, reading through the transaction.
	Count(ctx context.Context, tableName string, query map[string]interface{}) (int64, error)
}

// Tx represents an ongoing database transaction.
type Tx interface {
	TxExecutor

	// Savepoint creates a named savepoint.
	Savepoint(name string) error
	// RollbackToSavepoint undoes changes made after the named savepoint.
	RollbackToSavepoint(name string) error
}

// TransactionManager manages the lifecycle of transactions.
type TransactionManager interface {
	Begin(ctx context.Context, opts ...*sql.TxOptions) (Tx, error)
	Commit(tx Tx) error
	Rollback(tx Tx) error
}

// TransactionManagerFactory creates TransactionManagers bound to a named connection.
type TransactionManagerFactory interface {
	NewTransactionManager(dbName string) TransactionManager
}

type txContextKey struct{}

// ContextWithTx returns a copy of ctx carrying t.
func ContextWithTx(ctx context.Context, t Tx) context.Context {
	return context.WithValue(ctx, txContextKey{}, t)
}

// TxFromContext returns the transaction carried by ctx, if any.
func TxFromContext(ctx context.Context) (Tx, bool) {
	t, ok := ctx.Value(txContextKey{}).(Tx)
	return t, ok && t != nil
}
