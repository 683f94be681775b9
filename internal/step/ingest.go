package step

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tigerroll/ridership/internal/domain/entity"
	"github.com/tigerroll/ridership/internal/domain/model"
	"github.com/tigerroll/ridership/internal/pipeline/normalize"
	"github.com/tigerroll/ridership/internal/repository"
	"github.com/tigerroll/ridership/pkg/batch/adapter/storage"
	"github.com/tigerroll/ridership/pkg/batch/core/config"
	"github.com/tigerroll/ridership/pkg/batch/core/metrics"
	"github.com/tigerroll/ridership/pkg/batch/core/tx"
	"github.com/tigerroll/ridership/pkg/batch/support/util/exception"
	"github.com/tigerroll/ridership/pkg/batch/support/util/logger"
)

// Raw table kinds accepted by ingest.
const (
	KindRidership = "ridership"
	KindWeather   = "weather"
	KindHoliday   = "holiday"
)

// IngestStep loads a raw CSV object into its raw table. Dates already present in the
// table are skipped, so ingesting the same object twice writes nothing the second time.
type IngestStep struct {
	store     objectStore
	repo      *repository.RawRepository
	txManager tx.TransactionManager
	cfg       *config.ForecastConfig
	recorder  metrics.MetricRecorder
}

var _ Step = (*IngestStep)(nil)

// NewIngestStep creates an IngestStep.
func NewIngestStep(
	resolver storage.StorageConnectionResolver,
	repo *repository.RawRepository,
	txFactory tx.TransactionManagerFactory,
	cfg *config.ForecastConfig,
	recorder metrics.MetricRecorder,
) *IngestStep {
	return &IngestStep{
		store:     objectStore{resolver: resolver, name: cfg.StorageLocation},
		repo:      repo,
		txManager: txFactory.NewTransactionManager(cfg.DatabaseRef),
		cfg:       cfg,
		recorder:  recorder,
	}
}

func (s *IngestStep) Name() string { return "ingest" }

// Execute expects Args to be <kind> <key>.
func (s *IngestStep) Execute(ctx context.Context, p Params) (Result, error) {
	if len(p.Args) != 2 {
		return Result{}, exception.NewBatchError(s.Name(), "usage: ingest <ridership|weather|holiday> <key>", nil, false, false)
	}
	kind, key := p.Args[0], p.Args[1]
	log := logger.ForStep(p.RunID, s.Name())

	table, err := s.store.readTable(ctx, key)
	if err != nil {
		return Result{}, err
	}
	s.recorder.RecordRows(ctx, s.Name(), "read", len(table.Rows))

	var written int64
	switch kind {
	case KindRidership:
		rows, err := RidershipStats(table, key)
		if err != nil {
			return Result{}, err
		}
		written, err = ingestNew(ctx, s, s.cfg.Tables.Subway, rows, func(r entity.SubwayStat) string { return r.Date })
		if err != nil {
			return Result{}, err
		}
	case KindWeather:
		rows, err := WeatherStats(table, key)
		if err != nil {
			return Result{}, err
		}
		written, err = ingestNew(ctx, s, s.cfg.Tables.Weather, rows, func(r entity.WeatherStat) string { return r.Date })
		if err != nil {
			return Result{}, err
		}
	case KindHoliday:
		rows, err := HolidayStats(table, key)
		if err != nil {
			return Result{}, err
		}
		written, err = ingestNew(ctx, s, s.cfg.Tables.Holiday, rows, func(r entity.HolidayStat) string { return r.Date })
		if err != nil {
			return Result{}, err
		}
	default:
		return Result{}, exception.NewBatchError(s.Name(), fmt.Sprintf("unknown ingest kind %q", kind), nil, false, false)
	}

	s.recorder.RecordRows(ctx, s.Name(), "written", int(written))
	log.Infof("Ingested %d %s rows from %s.", written, kind, key)
	status := metrics.StatusCompleted
	if written == 0 {
		status = metrics.StatusSkipped
	}
	return Result{Status: status, Rows: int(written), Keys: []string{key}}, nil
}

// ingestNew appends the rows whose date is not yet in table.
func ingestNew[T any](ctx context.Context, s *IngestStep, table string, rows []T, dateOf func(T) string) (int64, error) {
	existing, err := s.repo.Dates(ctx, table)
	if err != nil {
		return 0, err
	}
	present := make(map[time.Time]bool, len(existing))
	for _, d := range existing {
		present[d] = true
	}

	fresh := make([]T, 0, len(rows))
	skipped := make(map[string]bool)
	for _, r := range rows {
		d, ok := normalize.ParseDate(dateOf(r))
		if !ok {
			continue
		}
		if present[d] {
			skipped[d.Format(model.DateLayout)] = true
			continue
		}
		fresh = append(fresh, r)
	}
	for d := range skipped {
		logger.Infof("Rows for %s already exist in %s. Skipping.", d, table)
	}
	return repository.Append(ctx, s.txManager, table, fresh, s.cfg.InsertBatchSize)
}

// RidershipStats converts a ridership table to raw rows. Wide tables with a boarding and
// an alighting column (the card statistics API form) are melted to one row per direction.
func RidershipStats(table model.RawTable, name string) ([]entity.SubwayStat, error) {
	keys, err := normalize.Keys(table, name)
	if err != nil {
		return nil, err
	}

	if _, long := normalize.Column(table, "direction"); long {
		records, err := normalize.Ridership(table)
		if err != nil {
			return nil, err
		}
		out := make([]entity.SubwayStat, 0, len(records))
		for _, r := range records {
			out = append(out, entity.SubwayStat{
				Date:        r.Date.Format(model.DateLayout),
				LineID:      r.LineID,
				StationName: r.StationName,
				Direction:   normalize.DirectionLabel(r.Direction),
				Count:       r.Count,
			})
		}
		return out, nil
	}

	boardCol, okB := normalize.Column(table, "boarding")
	alightCol, okA := normalize.Column(table, "alighting")
	var missing []string
	if !okB {
		missing = append(missing, "boarding")
	}
	if !okA {
		missing = append(missing, "alighting")
	}
	if len(missing) > 0 {
		return nil, exception.NewSchemaError("ingest", name, missing)
	}

	var out []entity.SubwayStat
	var badCounts int
	for _, row := range table.Rows {
		d, ok := normalize.ParseDate(row[keys.Date])
		if !ok {
			continue
		}
		for _, dir := range []struct {
			direction model.Direction
			col       string
		}{{model.Boarding, boardCol}, {model.Alighting, alightCol}} {
			count, ok := normalize.ParseCount(row[dir.col])
			if !ok {
				badCounts++
			}
			out = append(out, entity.SubwayStat{
				Date:        d.Format(model.DateLayout),
				LineID:      strings.TrimSpace(row[keys.Line]),
				StationName: strings.TrimSpace(row[keys.Station]),
				Direction:   normalize.DirectionLabel(dir.direction),
				Count:       count,
			})
		}
	}
	if badCounts > 0 {
		logger.Warnf("%s: %d non-numeric counts coerced to 0.", name, badCounts)
	}
	return out, nil
}

// WeatherStats converts a weather table to raw rows. A table without a category column is
// treated as wide: every column other than date and hour becomes a category.
func WeatherStats(table model.RawTable, name string) ([]entity.WeatherStat, error) {
	dateCol, ok := normalize.Column(table, "date")
	if !ok {
		return nil, exception.NewSchemaError("ingest", name, []string{"date"})
	}
	hourCol, _ := normalize.Column(table, "hour")

	var out []entity.WeatherStat
	if catCol, long := normalize.Column(table, "category"); long {
		valCol, ok := normalize.Column(table, "value")
		if !ok {
			return nil, exception.NewSchemaError("ingest", name, []string{"value"})
		}
		for _, row := range table.Rows {
			out = append(out, entity.WeatherStat{
				Date:     cell(row, dateCol),
				Hour:     cell(row, hourCol),
				Category: cell(row, catCol),
				Value:    cell(row, valCol),
			})
		}
		return out, nil
	}

	for _, row := range table.Rows {
		for _, col := range table.Columns {
			if col == dateCol || col == hourCol {
				continue
			}
			out = append(out, entity.WeatherStat{
				Date:     cell(row, dateCol),
				Hour:     cell(row, hourCol),
				Category: strings.TrimSpace(col),
				Value:    cell(row, col),
			})
		}
	}
	return out, nil
}

// HolidayStats converts a holiday table to raw rows. Boolean flags are stored as Y/N.
func HolidayStats(table model.RawTable, name string) ([]entity.HolidayStat, error) {
	dateCol, ok := normalize.Column(table, "date")
	if !ok {
		return nil, exception.NewSchemaError("ingest", name, []string{"date"})
	}
	flagCol, _ := normalize.Column(table, "is_holiday")
	nameCol, _ := normalize.Column(table, "holiday_name")
	weekdayCol, _ := normalize.Column(table, "weekday")

	out := make([]entity.HolidayStat, 0, len(table.Rows))
	for _, row := range table.Rows {
		out = append(out, entity.HolidayStat{
			Date:        cell(row, dateCol),
			Weekday:     cell(row, weekdayCol),
			IsHoliday:   holidayFlag(row, flagCol),
			HolidayName: cell(row, nameCol),
		})
	}
	return out, nil
}

// holidayFlag maps boolean sources to Y/N. Any other value is stored as delivered,
// so only an exact "Y" marks a holiday.
func holidayFlag(row map[string]string, col string) string {
	if col == "" {
		return "N"
	}
	raw := row[col]
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1":
		return "Y"
	case "false", "0", "":
		return "N"
	default:
		return raw
	}
}

// cell returns the trimmed value of col, or "" when the column is absent.
func cell(row map[string]string, col string) string {
	if col == "" {
		return ""
	}
	return strings.TrimSpace(row[col])
}
