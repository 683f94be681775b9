// Package normalize maps the heterogeneous raw ridership, weather and holiday tables
// onto the pipeline's typed records. All functions are pure apart from warning logs.
package normalize

import (
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/tigerroll/ridership/internal/domain/model"
	"github.com/tigerroll/ridership/pkg/batch/support/util/exception"
	"github.com/tigerroll/ridership/pkg/batch/support/util/logger"
)

const module = "normalize"

// Ridership normalizes a ridership table. Date, line and station columns are required.
// Direction and count are optional; without a direction column Direction stays empty.
// Rows with a missing date or an unknown direction label are dropped.
func Ridership(table model.RawTable) ([]model.RidershipRecord, error) {
	dateCol, lineCol, stationCol, err := requireKeys(table, "ridership", true)
	if err != nil {
		return nil, err
	}
	dirCol, hasDir := resolve(table, directionAliases)
	countCol, hasCount := resolve(table, countAliases)

	out := make([]model.RidershipRecord, 0, len(table.Rows))
	var missingDates, badDirections, badCounts int
	for _, row := range table.Rows {
		d, ok := ParseDate(row[dateCol])
		if !ok {
			missingDates++
			continue
		}
		rec := model.RidershipRecord{
			Date:        d,
			LineID:      strings.TrimSpace(row[lineCol]),
			StationName: strings.TrimSpace(row[stationCol]),
		}
		if hasDir {
			dir, ok := ParseDirection(row[dirCol])
			if !ok {
				badDirections++
				continue
			}
			rec.Direction = dir
		}
		if hasCount {
			n, ok := ParseCount(row[countCol])
			if !ok {
				badCounts++
			}
			rec.Count = n
		}
		out = append(out, rec)
	}
	if missingDates > 0 {
		logger.Warnf("Dropped %d ridership rows with a missing or unparseable date.", missingDates)
	}
	if badDirections > 0 {
		logger.Warnf("Dropped %d ridership rows with an unknown direction label.", badDirections)
	}
	if badCounts > 0 {
		logger.Warnf("%d non-numeric ridership counts coerced to 0.", badCounts)
	}
	return out, nil
}

// Roster returns the distinct (line, station) pairs of a table, sorted.
// Only line and station columns are required. Blank stations are skipped.
func Roster(table model.RawTable) ([]model.RosterEntry, error) {
	_, lineCol, stationCol, err := requireKeys(table, "roster", false)
	if err != nil {
		return nil, err
	}
	seen := make(map[model.RosterEntry]bool)
	out := make([]model.RosterEntry, 0)
	for _, row := range table.Rows {
		e := model.RosterEntry{
			LineID:      strings.TrimSpace(row[lineCol]),
			StationName: strings.TrimSpace(row[stationCol]),
		}
		if e.StationName == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LineID != out[j].LineID {
			return out[i].LineID < out[j].LineID
		}
		return out[i].StationName < out[j].StationName
	})
	return out, nil
}

// Weather normalizes a long-format weather table. It never fails: missing columns
// give an empty result and a warning. Empty or non-numeric values are kept as Missing.
func Weather(table model.RawTable) []model.WeatherObservation {
	dateCol, okDate := resolve(table, dateAliases)
	catCol, okCat := resolve(table, categoryAliases)
	valCol, okVal := resolve(table, valueAliases)
	if !okDate || !okCat || !okVal {
		if len(table.Columns) > 0 {
			logger.Warnf("Weather table lacks date/category/value columns (columns: %v); treating as no weather.", table.Columns)
		}
		return nil
	}

	out := make([]model.WeatherObservation, 0, len(table.Rows))
	var missingDates int
	for _, row := range table.Rows {
		d, ok := ParseDate(row[dateCol])
		if !ok {
			missingDates++
			continue
		}
		obs := model.WeatherObservation{Date: d, Category: row[catCol]}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[valCol]), 64)
		if err != nil || math.IsNaN(v) {
			obs.Missing = true
		} else {
			obs.Value = v
		}
		out = append(out, obs)
	}
	if missingDates > 0 {
		logger.Warnf("Dropped %d weather rows with a missing or unparseable date.", missingDates)
	}
	return out
}

// Holiday normalizes a holiday table. It never fails. Without a flag column every flag is "N".
func Holiday(table model.RawTable) []model.HolidayFlag {
	dateCol, ok := resolve(table, dateAliases)
	if !ok {
		if len(table.Columns) > 0 {
			logger.Warnf("Holiday table lacks a date column (columns: %v); treating as no holidays.", table.Columns)
		}
		return nil
	}
	flagCol, hasFlag := resolve(table, flagAliases)
	nameCol, hasName := resolve(table, nameAliases)
	if !hasFlag {
		logger.Warnf("Holiday table lacks a flag column; defaulting every flag to N.")
	}

	out := make([]model.HolidayFlag, 0, len(table.Rows))
	var missingDates int
	for _, row := range table.Rows {
		d, ok := ParseDate(row[dateCol])
		if !ok {
			missingDates++
			continue
		}
		h := model.HolidayFlag{Date: d, Flag: "N"}
		if hasFlag {
			h.Flag = row[flagCol]
		}
		if hasName {
			h.Name = strings.TrimSpace(row[nameCol])
		}
		out = append(out, h)
	}
	if missingDates > 0 {
		logger.Warnf("Dropped %d holiday rows with a missing or unparseable date.", missingDates)
	}
	return out
}

// KeyColumns names the date, line and station columns of a table.
type KeyColumns struct {
	Date, Line, Station string
}

// Keys resolves the date, line and station columns of a table, failing with a SchemaError
// naming the absent ones.
func Keys(table model.RawTable, name string) (KeyColumns, error) {
	d, l, s, err := requireKeys(table, name, true)
	return KeyColumns{Date: d, Line: l, Station: s}, err
}

func requireKeys(table model.RawTable, name string, needDate bool) (dateCol, lineCol, stationCol string, err error) {
	var missing []string
	var ok bool
	if needDate {
		if dateCol, ok = resolve(table, dateAliases); !ok {
			missing = append(missing, "date")
		}
	}
	if lineCol, ok = resolve(table, lineAliases); !ok {
		missing = append(missing, "line_id")
	}
	if stationCol, ok = resolve(table, stationAliases); !ok {
		missing = append(missing, "station_name")
	}
	if len(missing) > 0 {
		return "", "", "", exception.NewSchemaError(module, name, missing)
	}
	return dateCol, lineCol, stationCol, nil
}

// ParseCount parses a ridership count. It accepts thousands separators and decimals.
// Negative counts clamp to 0 and values beyond int64 saturate. Non-numeric input
// gives 0, false.
func ParseCount(raw string) (int64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return max(n, 0), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) || math.IsNaN(f) {
		return 0, false
	}
	switch {
	case f <= 0:
		return 0, true
	case f >= math.MaxInt64:
		return math.MaxInt64, true
	}
	return int64(math.Round(f)), true
}
