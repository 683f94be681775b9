// Package entity declares the gorm entities of the raw and prediction tables.
// Raw tables keep dates as the strings the upstream produced.
package entity

// SubwayStat is one long-format ridership row.
type SubwayStat struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Date        string `gorm:"column:date;size:32;not null;index"`
	LineID      string `gorm:"column:line_id;size:64;not null"`
	StationName string `gorm:"column:station_name;size:128;not null"`
	// Direction holds the raw label (승차/하차).
	Direction string `gorm:"column:direction;size:16;not null"`
	Count     int64  `gorm:"column:count;not null"`
}

func (SubwayStat) TableName() string { return "subway_stats" }

// WeatherStat is one hourly weather observation.
type WeatherStat struct {
	ID       uint   `gorm:"primaryKey;autoIncrement"`
	Date     string `gorm:"column:date;size:32;not null;index"`
	Hour     string `gorm:"column:hour;size:8"`
	Category string `gorm:"column:category;size:32;not null"`
	Value    string `gorm:"column:value;size:32"`
}

func (WeatherStat) TableName() string { return "weather_stats" }

// HolidayStat is the holiday flag of one date.
type HolidayStat struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Date        string `gorm:"column:date;size:32;not null;index"`
	Weekday     string `gorm:"column:weekday;size:8"`
	IsHoliday   string `gorm:"column:is_holiday;size:4"`
	HolidayName string `gorm:"column:holiday_name;size:64"`
}

func (HolidayStat) TableName() string { return "holidays_stats" }

// PredictionRecord is one persisted forecast.
// UNIQUE(date, target_model, line_id, station_name) rejects duplicates that pass the date check concurrently.
type PredictionRecord struct {
	ID             int64  `gorm:"primaryKey;autoIncrement" parquet:"name=id, type=INT64"`
	Date           string `gorm:"column:date;size:10;not null;uniqueIndex:ux_pred_data_key,priority:1" parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8"`
	TargetModel    string `gorm:"column:target_model;size:64;not null;uniqueIndex:ux_pred_data_key,priority:2" parquet:"name=target_model, type=BYTE_ARRAY, convertedtype=UTF8"`
	LineID         string `gorm:"column:line_id;size:64;not null;uniqueIndex:ux_pred_data_key,priority:3" parquet:"name=line_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	StationName    string `gorm:"column:station_name;size:128;not null;uniqueIndex:ux_pred_data_key,priority:4" parquet:"name=station_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	PredictedCount int64  `gorm:"column:predicted_count;not null" parquet:"name=predicted_count, type=INT64"`
}

func (PredictionRecord) TableName() string { return "pred_data" }

// PredictionConflictColumns is the natural key of PredictionRecord.
var PredictionConflictColumns = []string{"date", "target_model", "line_id", "station_name"}
