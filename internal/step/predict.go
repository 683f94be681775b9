package step

import (
	"context"
	"fmt"

	"github.com/tigerroll/ridership/internal/pipeline/encoding"
	"github.com/tigerroll/ridership/internal/pipeline/feature"
	"github.com/tigerroll/ridership/internal/pipeline/predict"
	"github.com/tigerroll/ridership/internal/tabular"
	"github.com/tigerroll/ridership/pkg/batch/adapter/storage"
	"github.com/tigerroll/ridership/pkg/batch/core/config"
	"github.com/tigerroll/ridership/pkg/batch/core/metrics"
	"github.com/tigerroll/ridership/pkg/batch/support/util/exception"
	"github.com/tigerroll/ridership/pkg/batch/support/util/logger"
)

// PredictStep encodes a feature table and writes one prediction table per model family.
type PredictStep struct {
	store     objectStore
	artifacts artifactStore
	cfg       *config.ForecastConfig
	recorder  metrics.MetricRecorder
}

var _ Step = (*PredictStep)(nil)

// NewPredictStep creates a PredictStep. A nil loader reads models with leaves.
func NewPredictStep(resolver storage.StorageConnectionResolver, cfg *config.ForecastConfig, recorder metrics.MetricRecorder, loader RegressorLoader) *PredictStep {
	if loader == nil {
		loader = predict.LoadRegressor
	}
	artifactsRef := cfg.Artifacts.StorageRef
	if artifactsRef == "" {
		artifactsRef = cfg.StorageLocation
	}
	return &PredictStep{
		store: objectStore{resolver: resolver, name: cfg.StorageLocation},
		artifacts: artifactStore{
			store:  objectStore{resolver: resolver, name: artifactsRef},
			cfg:    cfg.Artifacts,
			loadFn: loader,
		},
		cfg:      cfg,
		recorder: recorder,
	}
}

func (s *PredictStep) Name() string { return "predict" }

func (s *PredictStep) Execute(ctx context.Context, p Params) (Result, error) {
	log := logger.ForStep(p.RunID, s.Name())

	families, err := s.families(p.Family)
	if err != nil {
		return Result{}, err
	}
	key, err := s.featureKey(ctx, p)
	if err != nil {
		return Result{}, err
	}
	log.Infof("Reading features from %s.", key)

	table, err := s.store.readTable(ctx, key)
	if err != nil {
		return Result{}, err
	}
	rows, err := feature.FromTable(table)
	if err != nil {
		return Result{}, err
	}
	s.recorder.RecordRows(ctx, s.Name(), "read", len(rows))

	if len(rows) == 0 {
		return Result{}, exception.NewDataError(s.Name(), fmt.Sprintf("feature table %s is empty", key), nil)
	}
	target, ok := tabular.ParseFeatureKey(key)
	if !ok {
		target = rows[0].Date
	}

	contract, err := s.artifacts.contract(ctx)
	if err != nil {
		return Result{}, err
	}
	lineVocab, err := s.artifacts.vocabulary(ctx, encoding.FieldLine, s.cfg.Artifacts.LineEncoder)
	if err != nil {
		return Result{}, err
	}
	stationVocab, err := s.artifacts.vocabulary(ctx, encoding.FieldStation, s.cfg.Artifacts.StationEncoder)
	if err != nil {
		return Result{}, err
	}
	engine, err := predict.NewEngine(contract)
	if err != nil {
		return Result{}, err
	}

	encoded := encoding.NewEncoder(lineVocab, stationVocab, s.recorder).Encode(ctx, rows)
	if len(encoded.Rows) == 0 {
		return Result{}, exception.NewDataError(s.Name(), fmt.Sprintf("all %d feature rows of %s carry labels unseen at training time", len(rows), key), nil)
	}

	res := Result{Date: target}
	for _, fc := range families {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		fam, err := s.artifacts.family(ctx, fc)
		if err != nil {
			return Result{}, err
		}
		preds, err := engine.Predict(ctx, fam, encoded.Rows)
		if err != nil {
			return Result{}, err
		}
		out := tabular.PredictionKey(s.cfg.Prefixes.Predictions, target, fc.Name)
		if err := s.store.writeTable(ctx, out, predict.ToTable(preds)); err != nil {
			return Result{}, err
		}
		s.recorder.RecordRows(ctx, s.Name(), "predicted", len(preds))
		log.Infof("Wrote %d %s predictions to %s.", len(preds), fc.Name, out)
		res.Rows += len(preds)
		res.Keys = append(res.Keys, out)
	}
	return res, nil
}

// families returns the configured families, or only the named one.
func (s *PredictStep) families(only string) ([]config.FamilyConfig, error) {
	if only == "" {
		return s.cfg.Families, nil
	}
	fc, ok := s.cfg.Family(only)
	if !ok {
		return nil, exception.NewBatchError(s.Name(), fmt.Sprintf("model family %q is not configured (configured: %v)", only, s.cfg.FamilyNames()), nil, false, false)
	}
	return []config.FamilyConfig{fc}, nil
}

// featureKey returns the forced key, the key of the forced date, or the newest feature key.
func (s *PredictStep) featureKey(ctx context.Context, p Params) (string, error) {
	if p.Key != "" {
		return p.Key, nil
	}
	if p.HasDate() {
		return tabular.FeatureKey(s.cfg.Prefixes.Features, p.Date), nil
	}
	keys, err := s.store.list(ctx, s.cfg.Prefixes.Features)
	if err != nil {
		return "", err
	}
	key, ok := tabular.LatestFeatureKey(s.cfg.Prefixes.Features, keys)
	if !ok {
		return "", exception.NewDataError(s.Name(), fmt.Sprintf("no feature tables under %s", s.cfg.Prefixes.Features), nil)
	}
	return key, nil
}
