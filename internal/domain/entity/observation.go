// Package entity defines the weather observation record.
package entity

import "time"

// TableName is the relational table observations are loaded into.
const TableName = "weather_observation"

// KeyColumn is the natural key used to deduplicate loads.
const KeyColumn = "obs_timestamp_utc"

// Columns is the fixed column order of raw and processed files.
var Columns = []string{
	"obs_timestamp_utc",
	"obs_timestamp_local",
	"temp",
	"feels_like",
	"humidity",
	"wind_speed",
	"visibility",
	"pressure",
	"weather_main",
	"cloudiness",
	"rain_mm",
}

// Observation is one weather snapshot. Nil fields were absent upstream.
type Observation struct {
	ObsTimestampUTC   time.Time `gorm:"column:obs_timestamp_utc;primaryKey"`
	ObsTimestampLocal time.Time `gorm:"column:obs_timestamp_local"`
	Temp              *float64  `gorm:"column:temp"`
	FeelsLike         *float64  `gorm:"column:feels_like"`
	Humidity          *float64  `gorm:"column:humidity"`
	WindSpeed         *float64  `gorm:"column:wind_speed"`
	Visibility        *float64  `gorm:"column:visibility"`
	Pressure          *float64  `gorm:"column:pressure"`
	WeatherMain       *string   `gorm:"column:weather_main"`
	Cloudiness        *float64  `gorm:"column:cloudiness"`
	RainMM            *float64  `gorm:"column:rain_mm"`
}

// TableName implements gorm's Tabler.
func (Observation) TableName() string {
	return TableName
}

// NumericFields returns pointers to the numeric columns keyed by column name.
func (o *Observation) NumericFields() map[string]**float64 {
	return map[string]**float64{
		"temp":       &o.Temp,
		"feels_like": &o.FeelsLike,
		"humidity":   &o.Humidity,
		"wind_speed": &o.WindSpeed,
		"visibility": &o.Visibility,
		"pressure":   &o.Pressure,
		"cloudiness": &o.Cloudiness,
		"rain_mm":    &o.RainMM,
	}
}

// ObservationParquet is the export row. Timestamps are epoch milliseconds.
type ObservationParquet struct {
	ObsTimestampUTC   int64    `parquet:"name=obs_timestamp_utc, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	ObsTimestampLocal string   `parquet:"name=obs_timestamp_local, type=BYTE_ARRAY, convertedtype=UTF8"`
	Temp              *float64 `parquet:"name=temp, type=DOUBLE, repetitiontype=OPTIONAL"`
	FeelsLike         *float64 `parquet:"name=feels_like, type=DOUBLE, repetitiontype=OPTIONAL"`
	Humidity          *float64 `parquet:"name=humidity, type=DOUBLE, repetitiontype=OPTIONAL"`
	WindSpeed         *float64 `parquet:"name=wind_speed, type=DOUBLE, repetitiontype=OPTIONAL"`
	Visibility        *float64 `parquet:"name=visibility, type=DOUBLE, repetitiontype=OPTIONAL"`
	Pressure          *float64 `parquet:"name=pressure, type=DOUBLE, repetitiontype=OPTIONAL"`
	WeatherMain       *string  `parquet:"name=weather_main, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Cloudiness        *float64 `parquet:"name=cloudiness, type=DOUBLE, repetitiontype=OPTIONAL"`
	RainMM            *float64 `parquet:"name=rain_mm, type=DOUBLE, repetitiontype=OPTIONAL"`
}

// ToParquet converts o to its export row.
func (o Observation) ToParquet() ObservationParquet {
	return ObservationParquet{
		ObsTimestampUTC:   o.ObsTimestampUTC.UnixMilli(),
		ObsTimestampLocal: o.ObsTimestampLocal.Format(time.RFC3339),
		Temp:              o.Temp,
		FeelsLike:         o.FeelsLike,
		Humidity:          o.Humidity,
		WindSpeed:         o.WindSpeed,
		Visibility:        o.Visibility,
		Pressure:          o.Pressure,
		WeatherMain:       o.WeatherMain,
		Cloudiness:        o.Cloudiness,
		RainMM:            o.RainMM,
	}
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }
