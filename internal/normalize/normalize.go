// Package normalize coerces raw snapshot cells into typed observation records.
package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tigerroll/weatheretl/internal/csvfile"
	"github.com/tigerroll/weatheretl/internal/domain/entity"
	"github.com/tigerroll/weatheretl/pkg/batch/support/util/exception"
)

const moduleName = "normalizer"

// timeLayouts are tried in order. The second covers timestamps written with a space separator.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
}

// nullTokens are cell values read back as null.
var nullTokens = map[string]bool{"": true, "none": true, "nan": true, "null": true, "nat": true}

func isNull(s string) bool {
	return nullTokens[strings.ToLower(strings.TrimSpace(s))]
}

// ParseTime parses a timezone-aware timestamp cell.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// ParseNumber coerces a numeric cell. Anything unparsable, including NaN, is null.
func ParseNumber(s string) *float64 {
	if isNull(s) {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// ParseText keeps a string cell, mapping null markers to null.
func ParseText(s string) *string {
	if isNull(s) {
		return nil
	}
	return &s
}

// Normalize converts rows to observations. Timestamps must parse; numeric
// cells that do not parse become null.
func Normalize(rows []map[string]string) ([]entity.Observation, error) {
	if len(rows) == 0 {
		return nil, exception.NewBatchErrorf(moduleName, "input has no data rows")
	}
	out := make([]entity.Observation, 0, len(rows))
	for i, row := range rows {
		utc, err := ParseTime(row["obs_timestamp_utc"])
		if err != nil {
			return nil, exception.NewBatchError(moduleName, "row "+strconv.Itoa(i)+": invalid obs_timestamp_utc", err, false, false)
		}
		local, err := ParseTime(row["obs_timestamp_local"])
		if err != nil {
			return nil, exception.NewBatchError(moduleName, "row "+strconv.Itoa(i)+": invalid obs_timestamp_local", err, false, false)
		}

		obs := entity.Observation{
			ObsTimestampUTC:   utc.UTC(),
			ObsTimestampLocal: local,
			WeatherMain:       ParseText(row["weather_main"]),
		}
		for col, field := range obs.NumericFields() {
			*field = ParseNumber(row[col])
		}
		out = append(out, obs)
	}
	return out, nil
}

// LatestRaw returns the newest raw snapshot in dir.
func LatestRaw(dir string) (string, error) {
	return csvfile.Latest(dir, csvfile.RawPrefix, csvfile.ProcessedPrefix)
}

// LatestProcessed returns the newest processed snapshot in dir.
func LatestProcessed(dir string) (string, error) {
	return csvfile.Latest(dir, csvfile.ProcessedPrefix)
}

// File reads a snapshot, normalizes it, and writes the processed file to outDir.
func File(inputPath, outDir string) (string, []entity.Observation, error) {
	rows, err := csvfile.ReadRows(inputPath)
	if err != nil {
		return "", nil, err
	}
	obs, err := Normalize(rows)
	if err != nil {
		return "", nil, err
	}
	path, err := csvfile.Write(outDir, csvfile.ProcessedPrefix, obs)
	if err != nil {
		return "", nil, err
	}
	return path, obs, nil
}
