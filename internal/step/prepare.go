package step

import (
	"context"
	"fmt"
	"time"

	"github.com/tigerroll/ridership/internal/domain/model"
	"github.com/tigerroll/ridership/internal/pipeline/feature"
	"github.com/tigerroll/ridership/internal/pipeline/normalize"
	"github.com/tigerroll/ridership/internal/pipeline/weather"
	"github.com/tigerroll/ridership/internal/repository"
	"github.com/tigerroll/ridership/internal/tabular"
	"github.com/tigerroll/ridership/pkg/batch/adapter/storage"
	"github.com/tigerroll/ridership/pkg/batch/core/config"
	"github.com/tigerroll/ridership/pkg/batch/core/metrics"
	"github.com/tigerroll/ridership/pkg/batch/support/util/exception"
	"github.com/tigerroll/ridership/pkg/batch/support/util/logger"
)

// Prepare modes, given as the first positional argument.
const (
	// PrepareModeRoster anchors on every known station for a date without ridership yet.
	PrepareModeRoster = "roster"
	// PrepareModeHistory anchors on the ridership recorded for the target date.
	// It rebuilds the features of a past date, e.g. to backtest a model.
	PrepareModeHistory = "history"
)

// PrepareStep builds the feature table of the target date from the raw tables.
// In roster mode the target date is the day after the newest ridership date and in
// history mode it is the newest ridership date, unless one is forced.
type PrepareStep struct {
	repo     *repository.RawRepository
	store    objectStore
	cfg      *config.ForecastConfig
	recorder metrics.MetricRecorder
}

var _ Step = (*PrepareStep)(nil)

// NewPrepareStep creates a PrepareStep.
func NewPrepareStep(repo *repository.RawRepository, resolver storage.StorageConnectionResolver, cfg *config.ForecastConfig, recorder metrics.MetricRecorder) *PrepareStep {
	return &PrepareStep{
		repo:     repo,
		store:    objectStore{resolver: resolver, name: cfg.StorageLocation},
		cfg:      cfg,
		recorder: recorder,
	}
}

func (s *PrepareStep) Name() string { return "prepare" }

func (s *PrepareStep) Execute(ctx context.Context, p Params) (Result, error) {
	log := logger.ForStep(p.RunID, s.Name())

	mode := PrepareModeRoster
	if len(p.Args) > 0 {
		mode = p.Args[0]
	}
	if mode != PrepareModeRoster && mode != PrepareModeHistory {
		return Result{}, exception.NewBatchError(s.Name(), fmt.Sprintf("unknown prepare mode %q (modes: %s, %s)", mode, PrepareModeRoster, PrepareModeHistory), nil, false, false)
	}

	target, err := s.targetDate(ctx, p, mode)
	if err != nil {
		return Result{}, err
	}
	log.Infof("Target date is %s (%s mode).", target.Format(model.DateLayout), mode)

	weatherTable, err := s.repo.Weather(ctx, target)
	if err != nil {
		return Result{}, err
	}
	daily := weather.Aggregate(normalize.Weather(weatherTable))

	holidayTable, err := s.repo.Holidays(ctx, target)
	if err != nil {
		return Result{}, err
	}
	holidays := normalize.Holiday(holidayTable)

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	builder := feature.NewBuilder(feature.Options{RequireWeatherCoverage: s.cfg.WeatherCoverageRequired()})
	var rows []model.FeatureRow
	if mode == PrepareModeHistory {
		rows, err = s.fromHistory(ctx, builder, target, daily, holidays)
	} else {
		rows, err = s.fromRoster(ctx, builder, target, daily, holidays)
	}
	if err != nil {
		return Result{}, err
	}

	key := tabular.FeatureKey(s.cfg.Prefixes.Features, target)
	if err := s.store.writeTable(ctx, key, feature.ToTable(rows)); err != nil {
		return Result{}, err
	}
	s.recorder.RecordRows(ctx, s.Name(), "features", len(rows))
	log.Infof("Wrote %d feature rows to %s.", len(rows), key)
	return Result{Date: target, Rows: len(rows), Keys: []string{key}}, nil
}

func (s *PrepareStep) fromRoster(ctx context.Context, b *feature.Builder, target time.Time, daily []model.DailyWeather, holidays []model.HolidayFlag) ([]model.FeatureRow, error) {
	table, err := s.repo.Roster(ctx)
	if err != nil {
		return nil, err
	}
	roster, err := normalize.Roster(table)
	if err != nil {
		return nil, err
	}
	s.recorder.RecordRows(ctx, s.Name(), "read", len(roster))
	return b.FromRoster(ctx, roster, target, daily, holidays)
}

func (s *PrepareStep) fromHistory(ctx context.Context, b *feature.Builder, target time.Time, daily []model.DailyWeather, holidays []model.HolidayFlag) ([]model.FeatureRow, error) {
	table, err := s.repo.Ridership(ctx, target)
	if err != nil {
		return nil, err
	}
	records, err := normalize.Ridership(table)
	if err != nil {
		return nil, err
	}
	s.recorder.RecordRows(ctx, s.Name(), "read", len(records))
	return b.FromRidership(ctx, records, daily, holidays)
}

func (s *PrepareStep) targetDate(ctx context.Context, p Params, mode string) (time.Time, error) {
	if p.HasDate() {
		return model.DateOnly(p.Date), nil
	}
	latest, err := s.repo.LatestRidershipDate(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if mode == PrepareModeHistory {
		return latest, nil
	}
	return latest.AddDate(0, 0, 1), nil
}
