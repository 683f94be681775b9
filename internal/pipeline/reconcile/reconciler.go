package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/tigerroll/ridership/internal/domain/entity"
	"github.com/tigerroll/ridership/internal/domain/model"
	"github.com/tigerroll/ridership/pkg/batch/component/writer"
	"github.com/tigerroll/ridership/pkg/batch/core/metrics"
	"github.com/tigerroll/ridership/pkg/batch/core/tx"
	"github.com/tigerroll/ridership/pkg/batch/support/util/exception"
	"github.com/tigerroll/ridership/pkg/batch/support/util/logger"
)

// Outcome statuses.
const (
	StatusOK      = "ok"
	StatusSkipped = "skipped"
)

// Outcome reports one reconcile.
type Outcome struct {
	Status string
	Date   string
	// Rows is the size of the union.
	Rows int
	// Written counts inserted rows. Rows rejected by the unique key are not counted.
	Written int64
	Keys    []string
	Table   string
	// Records is the persisted union, empty when skipped.
	Records []entity.PredictionRecord
}

// Reconciler persists the union of prediction tables.
type Reconciler struct {
	txManager tx.TransactionManager
	table     string
	batchSize int
	recorder  metrics.MetricRecorder
}

// NewReconciler creates a Reconciler writing to table in chunks of batchSize.
func NewReconciler(txManager tx.TransactionManager, table string, batchSize int, recorder metrics.MetricRecorder) *Reconciler {
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	return &Reconciler{txManager: txManager, table: table, batchSize: batchSize, recorder: recorder}
}

// Reconcile validates and unions inputs for target and appends them unless target is already persisted.
// An already persisted date is reported as StatusSkipped with a nil error.
func (r *Reconciler) Reconcile(ctx context.Context, target time.Time, inputs []Input) (Outcome, error) {
	date := model.DateOnly(target).Format(model.DateLayout)
	outcome := Outcome{Date: date, Table: r.table}
	for _, in := range inputs {
		outcome.Keys = append(outcome.Keys, in.Name)
	}

	rows, err := Union(inputs, target)
	if err != nil {
		return outcome, err
	}
	outcome.Rows = len(rows)
	records := toRecords(rows)

	written, err := r.persist(ctx, date, records)
	if exception.IsPersistenceConflict(err) {
		logger.Infof("%v. Skipping write.", err)
		r.recorder.RecordPersistenceSkip(ctx, r.table)
		outcome.Status = StatusSkipped
		return outcome, nil
	}
	if err != nil {
		return outcome, err
	}

	outcome.Status = StatusOK
	outcome.Written = written
	outcome.Records = records
	if written < int64(len(records)) {
		logger.Warnf("%d of %d rows for %s were already present in %s and were ignored.", int64(len(records))-written, len(records), date, r.table)
	}
	logger.Infof("Persisted %d prediction rows for %s into %s.", written, date, r.table)
	return outcome, nil
}

// persist checks the date and appends records in one transaction.
func (r *Reconciler) persist(ctx context.Context, date string, records []entity.PredictionRecord) (written int64, err error) {
	t, err := r.txManager.Begin(ctx)
	if err != nil {
		return 0, exception.NewBatchError(module, "failed to begin transaction", err, false, true)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := r.txManager.Rollback(t); rbErr != nil {
				logger.Warnf("Rollback failed: %v", rbErr)
			}
		}
	}()

	existing, err := t.Count(ctx, r.table, map[string]interface{}{"date": date})
	if err != nil {
		return 0, exception.NewBatchError(module, fmt.Sprintf("failed to check existing predictions in %s", r.table), err, false, true)
	}
	if existing > 0 {
		return 0, exception.NewPersistenceConflict(module, date, existing)
	}

	w := writer.NewSqlBulkWriter[entity.PredictionRecord]("predictions", r.batchSize, r.table, entity.PredictionConflictColumns, nil)
	txCtx := tx.ContextWithTx(ctx, t)
	if err := w.Open(txCtx); err != nil {
		return 0, err
	}
	if err := w.Write(txCtx, records); err != nil {
		return 0, err
	}
	if err := w.Close(txCtx); err != nil {
		return 0, err
	}

	if err := r.txManager.Commit(t); err != nil {
		return 0, exception.NewBatchError(module, "failed to commit predictions", err, false, true)
	}
	committed = true
	return w.Written(), nil
}

func toRecords(rows []model.PredictionRow) []entity.PredictionRecord {
	out := make([]entity.PredictionRecord, len(rows))
	for i, r := range rows {
		out[i] = entity.PredictionRecord{
			Date:           r.Date.Format(model.DateLayout),
			TargetModel:    r.TargetModel,
			LineID:         r.LineID,
			StationName:    r.StationName,
			PredictedCount: r.PredictedCount,
		}
	}
	return out
}
