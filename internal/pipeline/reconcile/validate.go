// Package reconcile validates and unions the prediction tables of all families and
// appends them to the prediction table at most once per date.
package reconcile

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/ridership/internal/domain/model"
	"github.com/tigerroll/ridership/internal/pipeline/normalize"
	"github.com/tigerroll/ridership/internal/pipeline/predict"
	"github.com/tigerroll/ridership/pkg/batch/support/util/exception"
	"github.com/tigerroll/ridership/pkg/batch/support/util/logger"
)

const module = "reconcile"

// Required columns and their accepted spellings.
var requiredColumns = []struct {
	name    string
	aliases []string
}{
	{"date", []string{"date", "날짜"}},
	{"line_id", []string{"line_id", "호선"}},
	{"station_name", []string{"station_name", "역명"}},
	{"target_model", []string{"target_model", "구분"}},
	{"predicted_count", []string{"predicted_count", "예측값"}},
}

// Input is one family's prediction table.
type Input struct {
	// Name identifies the table in errors, e.g. its storage key.
	Name  string
	Table model.RawTable
}

// columns maps each required column to the table's spelling of it.
func columns(in Input) (map[string]string, []string) {
	found := make(map[string]string, len(requiredColumns))
	var missing []string
	for _, rc := range requiredColumns {
		col := ""
		for _, alias := range rc.aliases {
			if in.Table.HasColumn(alias) {
				col = alias
				break
			}
		}
		if col == "" {
			missing = append(missing, rc.name)
			continue
		}
		found[rc.name] = col
	}
	return found, missing
}

// Union validates every input, coerces its rows and concatenates them in input order.
// Every problem of every table is reported in one ValidationError.
func Union(inputs []Input, target time.Time) ([]model.PredictionRow, error) {
	var errs *multierror.Error
	var out []model.PredictionRow
	target = model.DateOnly(target)

	for _, in := range inputs {
		cols, missing := columns(in)
		if len(missing) > 0 {
			errs = multierror.Append(errs, fmt.Errorf("%s: missing columns [%s]", in.Name, strings.Join(missing, ", ")))
			continue
		}
		var wrongDates, badCounts int
		for i, raw := range in.Table.Rows {
			d, ok := normalize.ParseDate(raw[cols["date"]])
			if !ok || !d.Equal(target) {
				wrongDates++
				if wrongDates == 1 {
					errs = multierror.Append(errs, fmt.Errorf("%s: row %d is dated %q, want %s", in.Name, i+1, raw[cols["date"]], target.Format(model.DateLayout)))
				}
				continue
			}
			count, ok := coerceCount(raw[cols["predicted_count"]])
			if !ok {
				badCounts++
			}
			out = append(out, model.PredictionRow{
				Date:           d,
				LineID:         strings.TrimSpace(raw[cols["line_id"]]),
				StationName:    strings.TrimSpace(raw[cols["station_name"]]),
				TargetModel:    strings.TrimSpace(raw[cols["target_model"]]),
				PredictedCount: count,
			})
		}
		if wrongDates > 1 {
			errs = multierror.Append(errs, fmt.Errorf("%s: %d rows in total are not dated %s", in.Name, wrongDates, target.Format(model.DateLayout)))
		}
		if badCounts > 0 {
			logger.Warnf("%s: %d non-numeric predicted counts coerced to 0.", in.Name, badCounts)
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, exception.NewValidationError(module, "prediction tables failed validation", err)
	}
	if len(out) == 0 {
		return nil, exception.NewValidationError(module, fmt.Sprintf("no prediction rows for %s", target.Format(model.DateLayout)), nil)
	}
	return out, nil
}

// coerceCount parses a count as a non-negative integer. Non-numeric values give 0, false.
func coerceCount(raw string) (int64, bool) {
	s := strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, true
		}
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return predict.Round(f), true
}
