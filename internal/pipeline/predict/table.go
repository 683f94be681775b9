package predict

import (
	"strconv"

	"github.com/tigerroll/ridership/internal/domain/model"
)

// Columns is the column order of a prediction CSV.
var Columns = []string{"date", "line_id", "station_name", "target_model", "predicted_count"}

// ToTable renders prediction rows as a prediction table.
func ToTable(rows []model.PredictionRow) model.RawTable {
	t := model.RawTable{Columns: Columns, Rows: make([]map[string]string, 0, len(rows))}
	for _, r := range rows {
		t.Rows = append(t.Rows, map[string]string{
			"date":            r.Date.Format(model.DateLayout),
			"line_id":         r.LineID,
			"station_name":    r.StationName,
			"target_model":    r.TargetModel,
			"predicted_count": strconv.FormatInt(r.PredictedCount, 10),
		})
	}
	return t
}
