package openweather

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/tigerroll/weatheretl/internal/csvfile"
	"github.com/tigerroll/weatheretl/internal/domain/entity"
)

// lookup walks nested objects. Any missing key or non-object step yields nil.
func lookup(p map[string]interface{}, keys ...string) interface{} {
	var cur interface{} = p
	for _, k := range keys {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		if cur, ok = m[k]; !ok {
			return nil
		}
	}
	return cur
}

func asFloat(v interface{}) *float64 {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return nil
		}
		return entity.Float(f)
	case float64:
		return entity.Float(n)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return nil
		}
		return entity.Float(f)
	}
	return nil
}

func lookupFloat(p map[string]interface{}, keys ...string) *float64 {
	return asFloat(lookup(p, keys...))
}

// BuildRecord flattens payload. The timestamp falls back to now when dt is
// absent. Rain takes the 1h accumulation whenever that key holds a value, even
// an unusable one, and only otherwise the 3h accumulation.
func BuildRecord(payload Payload, now time.Time, loc *time.Location) entity.Observation {
	obsUTC := now.UTC()
	if dt := lookupFloat(payload, "dt"); dt != nil {
		obsUTC = time.Unix(int64(*dt), 0).UTC()
	}
	if loc == nil {
		loc = time.UTC
	}

	rec := entity.Observation{
		ObsTimestampUTC:   obsUTC,
		ObsTimestampLocal: obsUTC.In(loc),
		Temp:              lookupFloat(payload, "main", "temp"),
		FeelsLike:         lookupFloat(payload, "main", "feels_like"),
		Humidity:          lookupFloat(payload, "main", "humidity"),
		Pressure:          lookupFloat(payload, "main", "pressure"),
		WindSpeed:         lookupFloat(payload, "wind", "speed"),
		Visibility:        lookupFloat(payload, "visibility"),
		Cloudiness:        lookupFloat(payload, "clouds", "all"),
		WeatherMain:       weatherMain(payload),
	}

	if v := lookup(payload, "rain", "1h"); v != nil {
		rec.RainMM = asFloat(v)
	} else {
		rec.RainMM = lookupFloat(payload, "rain", "3h")
	}
	return rec
}

func weatherMain(payload Payload) *string {
	list, ok := payload["weather"].([]interface{})
	if !ok || len(list) == 0 {
		return nil
	}
	first, ok := list[0].(map[string]interface{})
	if !ok {
		return nil
	}
	s, ok := first["main"].(string)
	if !ok {
		return nil
	}
	return &s
}

// WriteRaw stores obs as a one-row raw snapshot in dir and returns its path.
func WriteRaw(dir string, obs entity.Observation) (string, error) {
	return csvfile.Write(dir, csvfile.RawPrefix, []entity.Observation{obs})
}
