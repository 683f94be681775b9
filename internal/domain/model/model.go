// Package model holds the value types that flow through the forecast pipeline.
package model

import "time"

// DateLayout is the canonical date rendering used in storage keys, CSV files and the prediction table.
const DateLayout = "2006-01-02"

// Direction is the ridership direction of a count.
type Direction string

const (
	Boarding  Direction = "boarding"
	Alighting Direction = "alighting"
)

// Directions lists both directions in output order.
var Directions = []Direction{Boarding, Alighting}

// RawTable is an untyped table as read from the database or a CSV object.
// Every row maps a column name to its textual value.
type RawTable struct {
	Columns []string
	Rows    []map[string]string
}

// HasColumn reports whether name is one of the table's columns.
func (t RawTable) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// RidershipRecord is one long-format ridership count.
// (Date, LineID, StationName, Direction) identifies it.
type RidershipRecord struct {
	Date        time.Time
	LineID      string
	StationName string
	Direction   Direction
	Count       int64
}

// WeatherObservation is one hourly measurement of one category.
type WeatherObservation struct {
	Date     time.Time
	Category string
	Value    float64
	// Missing is set when the raw value was empty or non-numeric.
	Missing bool
}

// DailyWeather holds the per-category mean of one date.
type DailyWeather struct {
	Date   time.Time
	Values map[string]float64
}

// HolidayFlag is the holiday state of one date. Flag keeps the raw upstream value.
type HolidayFlag struct {
	Date time.Time
	Flag string
	Name string
}

// IsHoliday reports whether Flag is exactly "Y".
func (h HolidayFlag) IsHoliday() bool {
	return h.Flag == "Y"
}

// RosterEntry is one (line, station) pair known from historical ridership.
type RosterEntry struct {
	LineID      string
	StationName string
}

// PredictionRow is one forecast of one target model for one station.
type PredictionRow struct {
	Date           time.Time
	LineID         string
	StationName    string
	TargetModel    string
	PredictedCount int64
}

// TargetModel builds the tag of a direction and a model family, e.g. "boarding_lgb".
func TargetModel(d Direction, family string) string {
	return string(d) + "_" + family
}

// DateOnly truncates t to midnight UTC of its wall-clock date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
