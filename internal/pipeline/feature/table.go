package feature

import (
	"math"
	"strconv"
	"strings"

	"github.com/tigerroll/ridership/internal/domain/model"
	"github.com/tigerroll/ridership/internal/pipeline/normalize"
	"github.com/tigerroll/ridership/pkg/batch/support/util/exception"
)

// Columns is the column order of a feature CSV.
func Columns() []string {
	cols := []string{"date", "line_id", "station_name",
		model.FeatureYear, model.FeatureMonth, model.FeatureDay, model.FeatureIsHoliday}
	cols = append(cols, model.WeatherFeatures...)
	return append(cols, model.WeekdayFeatures...)
}

// ToTable renders rows as a feature table. Encoded ids are not part of it.
func ToTable(rows []model.FeatureRow) model.RawTable {
	t := model.RawTable{Columns: Columns(), Rows: make([]map[string]string, 0, len(rows))}
	for _, r := range rows {
		m := map[string]string{
			"date":                 r.Date.Format(model.DateLayout),
			"line_id":              r.LineID,
			"station_name":         r.StationName,
			model.FeatureYear:      strconv.Itoa(r.Year),
			model.FeatureMonth:     strconv.Itoa(r.Month),
			model.FeatureDay:       strconv.Itoa(r.Day),
			model.FeatureIsHoliday: strconv.Itoa(r.IsHoliday),
		}
		for i, name := range model.WeatherFeatures {
			m[name] = strconv.FormatFloat(r.Weather[i], 'f', -1, 64)
		}
		for i, name := range model.WeekdayFeatures {
			m[name] = strconv.Itoa(r.Weekday[i])
		}
		t.Rows = append(t.Rows, m)
	}
	return t
}

// FromTable reads a feature table written by ToTable or by the legacy preprocessing
// (Korean headers). Calendar features are derived again from the date. Weather and the
// holiday flag are coerced to numbers, with 0 for anything missing or non-numeric.
// Rows without a date are skipped.
func FromTable(table model.RawTable) ([]model.FeatureRow, error) {
	keys, err := normalize.Keys(table, "features")
	if err != nil {
		return nil, err
	}

	// first column of each canonical feature
	numeric := make(map[string]string)
	for _, c := range table.Columns {
		canon := model.CanonicalFeature(c)
		if _, taken := numeric[canon]; !taken {
			numeric[canon] = c
		}
	}

	rows := make([]model.FeatureRow, 0, len(table.Rows))
	for _, raw := range table.Rows {
		d, ok := normalize.ParseDate(raw[keys.Date])
		if !ok {
			continue
		}
		row := model.FeatureRow{
			Date:        d,
			LineID:      strings.TrimSpace(raw[keys.Line]),
			StationName: strings.TrimSpace(raw[keys.Station]),
		}
		if col, ok := numeric[model.FeatureIsHoliday]; ok && number(raw[col]) == 1 {
			row.IsHoliday = 1
		}
		for j, name := range model.WeatherFeatures {
			if col, ok := numeric[name]; ok {
				row.Weather[j] = number(raw[col])
			}
		}
		row.SetCalendar()
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, exception.NewDataError(module, "feature table has no dated rows", nil)
	}
	return rows, nil
}

func number(raw string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
