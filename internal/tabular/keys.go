package tabular

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/tigerroll/ridership/internal/domain/model"
)

// CSVContentType is the content type of uploaded CSV objects.
const CSVContentType = "text/csv; charset=utf-8"

var (
	featureKeyPattern    = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})\.csv$`)
	predictionKeyPattern = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})_([A-Za-z0-9]+)\.csv$`)
)

// FeatureKey returns <prefix>/<YYYY-MM-DD>.csv.
func FeatureKey(prefix string, date time.Time) string {
	return path.Join(prefix, date.Format(model.DateLayout)+".csv")
}

// PredictionKey returns <prefix>/<YYYY-MM-DD>_<family>.csv.
func PredictionKey(prefix string, date time.Time, family string) string {
	return path.Join(prefix, fmt.Sprintf("%s_%s.csv", date.Format(model.DateLayout), family))
}

// ParseFeatureKey extracts the date embedded in a feature key.
func ParseFeatureKey(key string) (time.Time, bool) {
	m := featureKeyPattern.FindStringSubmatch(key)
	if m == nil {
		return time.Time{}, false
	}
	d, err := time.Parse(model.DateLayout, m[1])
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// ParsePredictionKey extracts the date and the family embedded in a prediction key.
func ParsePredictionKey(key string) (time.Time, string, bool) {
	m := predictionKeyPattern.FindStringSubmatch(key)
	if m == nil {
		return time.Time{}, "", false
	}
	d, err := time.Parse(model.DateLayout, m[1])
	if err != nil {
		return time.Time{}, "", false
	}
	return d, m[2], true
}

// LatestFeatureKey returns the feature key with the greatest embedded date.
// Keys outside prefix or without a date are ignored.
func LatestFeatureKey(prefix string, keys []string) (string, bool) {
	var (
		best     string
		bestDate time.Time
		found    bool
	)
	for _, k := range keys {
		if !strings.HasPrefix(k, strings.TrimSuffix(prefix, "/")+"/") {
			continue
		}
		d, ok := ParseFeatureKey(k)
		if !ok {
			continue
		}
		if !found || d.After(bestDate) || (d.Equal(bestDate) && k > best) {
			best, bestDate, found = k, d, true
		}
	}
	return best, found
}

// LatestCompleteDate returns the newest date for which every family has a prediction key.
func LatestCompleteDate(keys []string, families []string) (time.Time, bool) {
	byDate := make(map[time.Time]map[string]bool)
	for _, k := range keys {
		d, family, ok := ParsePredictionKey(k)
		if !ok {
			continue
		}
		if byDate[d] == nil {
			byDate[d] = make(map[string]bool)
		}
		byDate[d][family] = true
	}

	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })

	for _, d := range dates {
		complete := len(families) > 0
		for _, f := range families {
			if !byDate[d][f] {
				complete = false
				break
			}
		}
		if complete {
			return d, true
		}
	}
	return time.Time{}, false
}
