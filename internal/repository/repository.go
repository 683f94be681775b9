// Package repository reads the raw tables into the pipeline's tabular form and appends
// ingested rows. Raw dates are compared after normalization because the upstream
// writes them in several formats.
package repository

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/tigerroll/ridership/internal/domain/entity"
	"github.com/tigerroll/ridership/internal/domain/model"
	"github.com/tigerroll/ridership/internal/pipeline/normalize"
	"github.com/tigerroll/ridership/pkg/batch/adapter/database"
	"github.com/tigerroll/ridership/pkg/batch/component/writer"
	"github.com/tigerroll/ridership/pkg/batch/core/config"
	"github.com/tigerroll/ridership/pkg/batch/core/tx"
	"github.com/tigerroll/ridership/pkg/batch/support/util/exception"
	"github.com/tigerroll/ridership/pkg/batch/support/util/logger"
)

const module = "repository"

// RawRepository gives access to the subway, weather and holiday tables.
type RawRepository struct {
	resolver database.DBConnectionResolver
	dbName   string
	tables   config.TableNames
}

// NewRawRepository creates a RawRepository over the forecast database.
func NewRawRepository(resolver database.DBConnectionResolver, cfg *config.ForecastConfig) *RawRepository {
	return &RawRepository{resolver: resolver, dbName: cfg.DatabaseRef, tables: cfg.Tables}
}

// Tables returns the configured table names.
func (r *RawRepository) Tables() config.TableNames {
	return r.tables
}

func (r *RawRepository) conn(ctx context.Context) (database.DBConnection, error) {
	conn, err := r.resolver.ResolveDBConnection(ctx, r.dbName)
	if err != nil {
		return nil, exception.NewBatchError(module, fmt.Sprintf("failed to resolve database '%s'", r.dbName), err, false, true)
	}
	return conn, nil
}

func (r *RawRepository) queryError(conn database.DBConnection, table string, err error) error {
	if conn.IsTableNotExistError(err) {
		return exception.NewDataError(module, fmt.Sprintf("table %s does not exist", table), err)
	}
	return exception.NewBatchError(module, fmt.Sprintf("failed to read %s", table), err, false, true)
}

// Roster reads the distinct line/station pairs of the full ridership history.
func (r *RawRepository) Roster(ctx context.Context) (model.RawTable, error) {
	conn, err := r.conn(ctx)
	if err != nil {
		return model.RawTable{}, err
	}
	var rows []entity.SubwayStat
	if err := conn.SelectDistinct(ctx, r.tables.Subway, []string{"line_id", "station_name"}, &rows, nil); err != nil {
		return model.RawTable{}, r.queryError(conn, r.tables.Subway, err)
	}
	table := model.RawTable{Columns: []string{"line_id", "station_name"}}
	for _, row := range rows {
		table.Rows = append(table.Rows, map[string]string{"line_id": row.LineID, "station_name": row.StationName})
	}
	return table, nil
}

// Ridership reads every ridership row dated d.
func (r *RawRepository) Ridership(ctx context.Context, d time.Time) (model.RawTable, error) {
	var rows []entity.SubwayStat
	if err := r.rowsOn(ctx, r.tables.Subway, d, &rows); err != nil {
		return model.RawTable{}, err
	}
	table := model.RawTable{Columns: []string{"date", "line_id", "station_name", "direction", "count"}}
	for _, row := range rows {
		table.Rows = append(table.Rows, map[string]string{
			"date":         row.Date,
			"line_id":      row.LineID,
			"station_name": row.StationName,
			"direction":    row.Direction,
			"count":        strconv.FormatInt(row.Count, 10),
		})
	}
	return table, nil
}

// Weather reads the hourly observations dated d.
func (r *RawRepository) Weather(ctx context.Context, d time.Time) (model.RawTable, error) {
	var rows []entity.WeatherStat
	if err := r.rowsOn(ctx, r.tables.Weather, d, &rows); err != nil {
		return model.RawTable{}, err
	}
	table := model.RawTable{Columns: []string{"date", "hour", "category", "value"}}
	for _, row := range rows {
		table.Rows = append(table.Rows, map[string]string{
			"date":     row.Date,
			"hour":     row.Hour,
			"category": row.Category,
			"value":    row.Value,
		})
	}
	return table, nil
}

// Holidays reads the holiday rows dated d. Several rows for one date are possible.
func (r *RawRepository) Holidays(ctx context.Context, d time.Time) (model.RawTable, error) {
	var rows []entity.HolidayStat
	if err := r.rowsOn(ctx, r.tables.Holiday, d, &rows); err != nil {
		return model.RawTable{}, err
	}
	table := model.RawTable{Columns: []string{"date", "weekday", "is_holiday", "holiday_name"}}
	for _, row := range rows {
		table.Rows = append(table.Rows, map[string]string{
			"date":         row.Date,
			"weekday":      row.Weekday,
			"is_holiday":   row.IsHoliday,
			"holiday_name": row.HolidayName,
		})
	}
	return table, nil
}

// rowsOn selects the rows of table whose raw date normalizes to d.
func (r *RawRepository) rowsOn(ctx context.Context, table string, d time.Time, target interface{}) error {
	dates, err := r.rawDates(ctx, table)
	if err != nil {
		return err
	}
	want := model.DateOnly(d)
	var raw []string
	for s, parsed := range dates {
		if parsed.Equal(want) {
			raw = append(raw, s)
		}
	}
	if len(raw) == 0 {
		return nil
	}
	sort.Strings(raw)

	conn, err := r.conn(ctx)
	if err != nil {
		return err
	}
	if err := conn.ExecuteQueryAdvanced(ctx, target, table, map[string]interface{}{"date": raw}, "id", 0); err != nil {
		return r.queryError(conn, table, err)
	}
	return nil
}

// rawDates maps every distinct raw date string of table to its calendar date.
// Unparseable strings are left out.
func (r *RawRepository) rawDates(ctx context.Context, table string) (map[string]time.Time, error) {
	conn, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	var raw []string
	if err := conn.Pluck(ctx, table, "date", true, &raw, nil); err != nil {
		return nil, r.queryError(conn, table, err)
	}
	out := make(map[string]time.Time, len(raw))
	for _, s := range raw {
		if d, ok := normalize.ParseDate(s); ok {
			out[s] = d
		}
	}
	return out, nil
}

// Dates returns the distinct calendar dates present in table, ascending.
func (r *RawRepository) Dates(ctx context.Context, table string) ([]time.Time, error) {
	raw, err := r.rawDates(ctx, table)
	if err != nil {
		return nil, err
	}
	seen := make(map[time.Time]bool, len(raw))
	out := make([]time.Time, 0, len(raw))
	for _, d := range raw {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// LatestRidershipDate returns the newest date in the ridership table.
func (r *RawRepository) LatestRidershipDate(ctx context.Context) (time.Time, error) {
	dates, err := r.Dates(ctx, r.tables.Subway)
	if err != nil {
		return time.Time{}, err
	}
	if len(dates) == 0 {
		return time.Time{}, exception.NewDataError(module, fmt.Sprintf("table %s has no dated rows", r.tables.Subway), nil)
	}
	return dates[len(dates)-1], nil
}

// Append inserts rows into table inside one transaction, ignoring rows that hit a unique key.
// It returns the number of inserted rows.
func Append[T any](ctx context.Context, tm tx.TransactionManager, table string, rows []T, batchSize int) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	t, err := tm.Begin(ctx)
	if err != nil {
		return 0, exception.NewBatchError(module, "failed to begin transaction", err, false, true)
	}

	w := writer.NewSqlBulkWriter[T](table, batchSize, table, nil, nil)
	txCtx := tx.ContextWithTx(ctx, t)
	if err := w.Write(txCtx, rows); err != nil {
		if rbErr := tm.Rollback(t); rbErr != nil {
			logger.Warnf("Rollback of %s failed: %v", table, rbErr)
		}
		return 0, err
	}
	if err := tm.Commit(t); err != nil {
		return 0, exception.NewBatchError(module, fmt.Sprintf("failed to commit %s", table), err, false, true)
	}
	return w.Written(), nil
}
