// Package csvfile reads and writes the pipeline's raw and processed CSV snapshots.
package csvfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tigerroll/weatheretl/internal/domain/entity"
	"github.com/tigerroll/weatheretl/pkg/batch/support/util/exception"
	"github.com/tigerroll/weatheretl/pkg/batch/support/util/logger"
)

const moduleName = "csvfile"

// File name conventions. Both kinds embed the local observation time to the minute.
const (
	RawPrefix       = "weather_"
	ProcessedPrefix = "weather_processed_"
	Extension       = ".csv"
	stampLayout     = "20060102_1504"
)

// FileName returns prefix + local time + ".csv", e.g. weather_20231114_1513.csv.
func FileName(prefix string, local time.Time) string {
	return prefix + local.Format(stampLayout) + Extension
}

// FormatTime renders a timestamp cell.
func FormatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// FormatRow renders o in entity.Columns order. Nulls are empty cells.
func FormatRow(o entity.Observation) []string {
	return []string{
		FormatTime(o.ObsTimestampUTC),
		FormatTime(o.ObsTimestampLocal),
		formatFloat(o.Temp),
		formatFloat(o.FeelsLike),
		formatFloat(o.Humidity),
		formatFloat(o.WindSpeed),
		formatFloat(o.Visibility),
		formatFloat(o.Pressure),
		formatString(o.WeatherMain),
		formatFloat(o.Cloudiness),
		formatFloat(o.RainMM),
	}
}

// Write stores rows in dir under a name derived from prefix and the first row's local time.
// The file appears atomically: it is written to a temporary name and renamed.
func Write(dir, prefix string, rows []entity.Observation) (string, error) {
	if len(rows) == 0 {
		return "", exception.NewBatchErrorf(moduleName, "no rows to write")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", exception.NewBatchError(moduleName, "failed to create directory "+dir, err, false, false)
	}
	path := filepath.Join(dir, FileName(prefix, rows[0].ObsTimestampLocal))

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", exception.NewBatchError(moduleName, "failed to create temporary file", err, false, false)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := csv.NewWriter(tmp)
	if err := w.Write(entity.Columns); err != nil {
		tmp.Close()
		return "", exception.NewBatchError(moduleName, "failed to write header", err, false, false)
	}
	for _, row := range rows {
		if err := w.Write(FormatRow(row)); err != nil {
			tmp.Close()
			return "", exception.NewBatchError(moduleName, "failed to write row", err, false, false)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return "", exception.NewBatchError(moduleName, "failed to flush "+tmpName, err, false, false)
	}
	if err := tmp.Close(); err != nil {
		return "", exception.NewBatchError(moduleName, "failed to close "+tmpName, err, false, false)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", exception.NewBatchError(moduleName, "failed to move snapshot into place", err, false, false)
	}
	logger.Debugf("Wrote %d row(s) to %s.", len(rows), path)
	return path, nil
}

// ReadRows returns the data rows of path keyed by header name.
// Every column of entity.Columns must be present in the header.
func ReadRows(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to open "+path, err, false, false)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err == io.EOF {
		return nil, exception.NewBatchErrorf(moduleName, "%s is empty", path)
	}
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to read header of "+path, err, false, false)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, col := range entity.Columns {
		if _, ok := index[col]; !ok {
			return nil, exception.NewBatchErrorf(moduleName, "%s is missing column %s", path, col)
		}
	}

	var rows []map[string]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, exception.NewBatchError(moduleName, "failed to read "+path, err, false, false)
		}
		row := make(map[string]string, len(entity.Columns))
		for _, col := range entity.Columns {
			if i := index[col]; i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Latest returns the most recently modified prefix*.csv in dir, skipping names
// that start with any of exclude. Ties on modification time go to the larger name.
// The error wraps fs.ErrNotExist when nothing matches.
func Latest(dir, prefix string, exclude ...string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return "", exception.NewBatchError(moduleName, "failed to list "+dir, err, false, false)
	}

	var (
		best     string
		bestTime time.Time
	)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, Extension) || hasAnyPrefix(name, exclude) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		mod := info.ModTime()
		if best == "" || mod.After(bestTime) || (mod.Equal(bestTime) && name > best) {
			best, bestTime = name, mod
		}
	}
	if best == "" {
		return "", exception.NewBatchError(moduleName,
			fmt.Sprintf("no %s*%s files found in %s", prefix, Extension, dir), fs.ErrNotExist, false, false)
	}
	return filepath.Join(dir, best), nil
}

func hasAnyPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
