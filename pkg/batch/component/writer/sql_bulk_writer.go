package writer

import (
	"context"
	"fmt"

	"github.com/tigerroll/ridership/pkg/batch/core/tx"
	"github.com/tigerroll/ridership/pkg/batch/support/util/exception"
	"github.com/tigerroll/ridership/pkg/batch/support/util/logger"
)

// SqlBulkWriter writes items to a table in chunks of bulkSize.
// It joins the transaction carried by the context and never commits on its own.
type SqlBulkWriter[T any] struct {
	name            string
	bulkSize        int
	tableName       string
	conflictColumns []string
	// updateColumns empty means ON CONFLICT DO NOTHING.
	updateColumns []string
	written       int64
}

var _ ItemWriter[any] = (*SqlBulkWriter[any])(nil)

// NewSqlBulkWriter creates a new SqlBulkWriter. A non-positive bulkSize writes everything in one chunk.
func NewSqlBulkWriter[T any](name string, bulkSize int, tableName string, conflictColumns []string, updateColumns []string) *SqlBulkWriter[T] {
	return &SqlBulkWriter[T]{
		name:            name,
		bulkSize:        bulkSize,
		tableName:       tableName,
		conflictColumns: conflictColumns,
		updateColumns:   updateColumns,
	}
}

func (w *SqlBulkWriter[T]) Open(ctx context.Context) error {
	w.written = 0
	logger.Debugf("SqlBulkWriter '%s': Opened for table %s.", w.name, w.tableName)
	return nil
}

// Write upserts items through the transaction found in ctx.
func (w *SqlBulkWriter[T]) Write(ctx context.Context, items []T) error {
	if len(items) == 0 {
		return nil
	}

	currentTx, ok := tx.TxFromContext(ctx)
	if !ok {
		return exception.NewBatchError("writer", fmt.Sprintf("transaction not found in context for SqlBulkWriter '%s'", w.name), nil, false, false)
	}

	size := w.bulkSize
	if size <= 0 {
		size = len(items)
	}
	for i := 0; i < len(items); i += size {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		chunk := items[i:end]

		n, err := currentTx.ExecuteUpsert(ctx, &chunk, w.tableName, w.conflictColumns, w.updateColumns)
		if err != nil {
			return exception.NewBatchError("writer", fmt.Sprintf("failed to bulk upsert into %s (chunk start index %d)", w.tableName, i), err, false, true)
		}
		w.written += n
		logger.Debugf("SqlBulkWriter '%s': Wrote chunk %d-%d (%d rows affected).", w.name, i, end, n)
	}
	return nil
}

func (w *SqlBulkWriter[T]) Close(ctx context.Context) error {
	logger.Debugf("SqlBulkWriter '%s': Closed after %d rows.", w.name, w.written)
	return nil
}

// Written returns the rows affected since Open. Rows ignored by ON CONFLICT DO NOTHING are not counted.
func (w *SqlBulkWriter[T]) Written() int64 {
	return w.written
}

// TableName returns the target table.
func (w *SqlBulkWriter[T]) TableName() string {
	return w.tableName
}
