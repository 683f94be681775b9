package step

import (
	"context"
	"fmt"
	"time"

	"github.com/tigerroll/ridership/internal/domain/entity"
	"github.com/tigerroll/ridership/internal/domain/model"
	"github.com/tigerroll/ridership/internal/pipeline/reconcile"
	"github.com/tigerroll/ridership/internal/tabular"
	"github.com/tigerroll/ridership/pkg/batch/adapter/storage"
	"github.com/tigerroll/ridership/pkg/batch/component/writer"
	"github.com/tigerroll/ridership/pkg/batch/core/config"
	"github.com/tigerroll/ridership/pkg/batch/core/metrics"
	"github.com/tigerroll/ridership/pkg/batch/core/tx"
	"github.com/tigerroll/ridership/pkg/batch/support/util/exception"
	"github.com/tigerroll/ridership/pkg/batch/support/util/logger"
)

// ReconcileStep persists the prediction tables of every family for one date and
// optionally exports the persisted rows to parquet.
type ReconcileStep struct {
	store      objectStore
	resolver   storage.StorageConnectionResolver
	reconciler *reconcile.Reconciler
	cfg        *config.ForecastConfig
	recorder   metrics.MetricRecorder
}

var _ Step = (*ReconcileStep)(nil)

// NewReconcileStep creates a ReconcileStep.
func NewReconcileStep(
	resolver storage.StorageConnectionResolver,
	txFactory tx.TransactionManagerFactory,
	cfg *config.ForecastConfig,
	recorder metrics.MetricRecorder,
) *ReconcileStep {
	tm := txFactory.NewTransactionManager(cfg.DatabaseRef)
	return &ReconcileStep{
		store:      objectStore{resolver: resolver, name: cfg.StorageLocation},
		resolver:   resolver,
		reconciler: reconcile.NewReconciler(tm, cfg.Tables.Predictions, cfg.InsertBatchSize, recorder),
		cfg:        cfg,
		recorder:   recorder,
	}
}

func (s *ReconcileStep) Name() string { return "reconcile" }

func (s *ReconcileStep) Execute(ctx context.Context, p Params) (Result, error) {
	log := logger.ForStep(p.RunID, s.Name())

	keys, err := s.store.list(ctx, s.cfg.Prefixes.Predictions)
	if err != nil {
		return Result{}, err
	}
	target, err := s.targetDate(keys, p)
	if err != nil {
		return Result{}, err
	}

	present := make(map[string]bool, len(keys))
	for _, k := range keys {
		present[k] = true
	}
	var inputs []reconcile.Input
	for _, family := range s.cfg.FamilyNames() {
		key := tabular.PredictionKey(s.cfg.Prefixes.Predictions, target, family)
		if !present[key] {
			return Result{}, exception.NewDataError(s.Name(), fmt.Sprintf("prediction table %s is missing", key), nil)
		}
		table, err := s.store.readTable(ctx, key)
		if err != nil {
			return Result{}, err
		}
		inputs = append(inputs, reconcile.Input{Name: key, Table: table})
	}

	outcome, err := s.reconciler.Reconcile(ctx, target, inputs)
	if err != nil {
		return Result{}, err
	}
	res := Result{Date: target, Rows: int(outcome.Written), Keys: outcome.Keys}
	if outcome.Status == reconcile.StatusSkipped {
		res.Status = metrics.StatusSkipped
		log.Infof("Predictions for %s were already in %s.", outcome.Date, outcome.Table)
		return res, nil
	}
	s.recorder.RecordRows(ctx, s.Name(), "written", int(outcome.Written))

	if s.cfg.ExportParquet {
		exported, err := s.export(ctx, outcome.Records)
		if err != nil {
			return Result{}, err
		}
		res.Keys = append(res.Keys, exported...)
		log.Infof("Exported %d rows to %v.", len(outcome.Records), exported)
	}
	return res, nil
}

// targetDate returns the forced date or the newest date every family has a table for.
func (s *ReconcileStep) targetDate(keys []string, p Params) (time.Time, error) {
	if p.HasDate() {
		return model.DateOnly(p.Date), nil
	}
	d, ok := tabular.LatestCompleteDate(keys, s.cfg.FamilyNames())
	if !ok {
		return time.Time{}, exception.NewDataError(s.Name(), fmt.Sprintf("no date under %s has prediction tables for every family %v", s.cfg.Prefixes.Predictions, s.cfg.FamilyNames()), nil)
	}
	return d, nil
}

// export writes records as Hive-partitioned parquet under the export prefix.
func (s *ReconcileStep) export(ctx context.Context, records []entity.PredictionRecord) ([]string, error) {
	w, err := writer.NewParquetWriter[entity.PredictionRecord](
		"predictions",
		map[string]interface{}{
			"storageRef":    s.cfg.StorageLocation,
			"outputBaseDir": s.cfg.Prefixes.Export,
		},
		s.resolver,
		&entity.PredictionRecord{},
		func(r entity.PredictionRecord) (string, error) { return "dt=" + r.Date, nil },
	)
	if err != nil {
		return nil, err
	}
	if err := w.Open(ctx); err != nil {
		return nil, err
	}
	if err := w.Write(ctx, records); err != nil {
		return nil, err
	}
	if err := w.Close(ctx); err != nil {
		return nil, err
	}
	return w.Uploaded(), nil
}
