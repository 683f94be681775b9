package normalize

import (
	"strings"
	"time"

	"github.com/tigerroll/ridership/internal/domain/model"
)

var nullMarkers = map[string]bool{"": true, "nan": true, "none": true, "nat": true, "null": true}

// Layouts tried in order. Layouts with an offset keep the wall-clock date of that offset.
var dateLayouts = []string{
	"20060102",
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 -0700 MST",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"20060102150405",
}

// ParseDate parses a raw date string to midnight UTC of its wall-clock date.
// Null markers ("", "nan", "none", "nat", "null", any case) and unparseable values
// return false.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if nullMarkers[strings.ToLower(s)] {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.DateOnly(t), true
		}
	}
	return time.Time{}, false
}
