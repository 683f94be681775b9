package normalize

import (
	"strings"

	"github.com/tigerroll/ridership/internal/domain/model"
)

// Canonical column names and their accepted spellings.
var (
	dateAliases      = []string{"date", "사용일자", "날짜", "USE_YMD", "use_date"}
	lineAliases      = []string{"line_id", "호선", "SBWY_ROUT_LN_NM"}
	stationAliases   = []string{"station_name", "역명", "SBWY_STNS_NM"}
	directionAliases = []string{"direction", "구분"}
	countAliases     = []string{"count", "인원수"}
	categoryAliases  = []string{"category", "구분", "카테고리"}
	valueAliases     = []string{"value", "값"}
	flagAliases      = []string{"is_holiday", "공휴일여부"}
	nameAliases      = []string{"holiday_name", "공휴일이름"}
)

// resolve returns the first column of table matching one of aliases.
// Column names are compared trimmed and case-insensitively.
func resolve(table model.RawTable, aliases []string) (string, bool) {
	for _, alias := range aliases {
		for _, col := range table.Columns {
			if strings.EqualFold(strings.TrimSpace(col), alias) {
				return col, true
			}
		}
	}
	return "", false
}

var directionLabels = map[string]model.Direction{
	"승차":        model.Boarding,
	"boarding":  model.Boarding,
	"하차":        model.Alighting,
	"alighting": model.Alighting,
}

// ParseDirection maps a raw direction label.
func ParseDirection(raw string) (model.Direction, bool) {
	d, ok := directionLabels[strings.ToLower(strings.TrimSpace(raw))]
	return d, ok
}

// DirectionLabel is the raw label stored in the ridership table.
func DirectionLabel(d model.Direction) string {
	if d == model.Alighting {
		return "하차"
	}
	return "승차"
}

var fieldAliases = map[string][]string{
	"date":         dateAliases,
	"line_id":      lineAliases,
	"station_name": stationAliases,
	"direction":    directionAliases,
	"count":        countAliases,
	"category":     categoryAliases,
	"value":        valueAliases,
	"is_holiday":   flagAliases,
	"holiday_name": nameAliases,
	"hour":         {"hour", "시간", "base_time", "baseTime"},
	"weekday":      {"weekday", "요일"},
	"boarding":     {"boarding", "승차", "GTON_TNOPE"},
	"alighting":    {"alighting", "하차", "GTOFF_TNOPE"},
}

// Column returns the column of table holding the canonical field, accepting every known spelling.
func Column(table model.RawTable, field string) (string, bool) {
	aliases, ok := fieldAliases[field]
	if !ok {
		return "", false
	}
	return resolve(table, aliases)
}
