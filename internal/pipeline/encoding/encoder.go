package encoding

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tigerroll/ridership/internal/domain/model"
	"github.com/tigerroll/ridership/pkg/batch/core/metrics"
	"github.com/tigerroll/ridership/pkg/batch/support/util/exception"
	"github.com/tigerroll/ridership/pkg/batch/support/util/logger"
)

const module = "encoding"

// Field names reported in DroppedLabel.
const (
	FieldLine    = "line_id"
	FieldStation = "station_name"
)

// DroppedLabel is one label unseen at training time.
type DroppedLabel struct {
	Field string
	Label string
}

// Result is the filtered batch plus the structured drop list.
type Result struct {
	Rows []model.FeatureRow
	// Dropped is unique and sorted by field, then label.
	Dropped     []DroppedLabel
	DroppedRows int
}

// DroppedFor returns the dropped labels of one field.
func (r Result) DroppedFor(field string) []string {
	var out []string
	for _, d := range r.Dropped {
		if d.Field == field {
			out = append(out, d.Label)
		}
	}
	return out
}

// Encoder encodes line and station labels. Rows with any unseen label are excluded,
// never mapped to a default code.
type Encoder struct {
	line     *Vocabulary
	station  *Vocabulary
	recorder metrics.MetricRecorder
}

// NewEncoder creates an Encoder. A nil recorder disables the dropped-label counter.
func NewEncoder(line, station *Vocabulary, recorder metrics.MetricRecorder) *Encoder {
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	return &Encoder{line: line, station: station, recorder: recorder}
}

// Encode returns the rows whose labels are both known, with LineEncoded and StationEncoded
// set and the labels trimmed.
func (e *Encoder) Encode(ctx context.Context, rows []model.FeatureRow) Result {
	unseen := map[string]map[string]bool{FieldLine: {}, FieldStation: {}}
	out := make([]model.FeatureRow, 0, len(rows))
	dropped := 0

	for _, r := range rows {
		r.LineID = strings.TrimSpace(r.LineID)
		r.StationName = strings.TrimSpace(r.StationName)
		lineCode, lineOK := e.line.Code(r.LineID)
		stationCode, stationOK := e.station.Code(r.StationName)
		if !lineOK {
			unseen[FieldLine][r.LineID] = true
		}
		if !stationOK {
			unseen[FieldStation][r.StationName] = true
		}
		if !lineOK || !stationOK {
			dropped++
			continue
		}
		r.LineEncoded, r.StationEncoded = lineCode, stationCode
		out = append(out, r)
	}

	res := Result{Rows: out, DroppedRows: dropped}
	for _, field := range []string{FieldLine, FieldStation} {
		labels := make([]string, 0, len(unseen[field]))
		for l := range unseen[field] {
			labels = append(labels, l)
		}
		sort.Strings(labels)
		for _, l := range labels {
			res.Dropped = append(res.Dropped, DroppedLabel{Field: field, Label: l})
		}
		e.recorder.RecordDroppedLabels(ctx, field, len(labels))
	}

	if dropped > 0 {
		warning := exception.NewEncodingError(module, fmt.Sprintf("dropped %d of %d rows: unseen %s %q, unseen %s %q",
			dropped, len(rows), FieldLine, res.DroppedFor(FieldLine), FieldStation, res.DroppedFor(FieldStation)))
		logger.Warnf("%v", warning)
	}
	return res
}
