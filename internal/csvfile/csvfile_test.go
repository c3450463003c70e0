package csvfile

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/weatheretl/internal/domain/entity"
)

func sample() entity.Observation {
	utc := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)
	return entity.Observation{
		ObsTimestampUTC:   utc,
		ObsTimestampLocal: utc.In(time.FixedZone("MST", -7*3600)),
		Temp:              entity.Float(28.5),
		Humidity:          entity.Float(40),
		WindSpeed:         entity.Float(3.1),
		WeatherMain:       entity.String("Clear"),
		Cloudiness:        entity.Float(10),
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path, err := Write(dir, RawPrefix, []entity.Observation{sample()})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "weather_20231114_1513.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"obs_timestamp_utc,obs_timestamp_local,temp,feels_like,humidity,wind_speed,visibility,pressure,weather_main,cloudiness,rain_mm\n"+
			"2023-11-14T22:13:20Z,2023-11-14T15:13:20-07:00,28.5,,40,3.1,,,Clear,10,\n",
		string(data))

	rows, err := ReadRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "28.5", rows[0]["temp"])
	assert.Equal(t, "", rows[0]["rain_mm"])
	assert.Equal(t, "Clear", rows[0]["weather_main"])

	leftovers, err := filepath.Glob(filepath.Join(dir, ".*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestWrite_NoRows(t *testing.T) {
	_, err := Write(t.TempDir(), RawPrefix, nil)
	assert.Error(t, err)
}

func TestReadRows_MissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weather_x.csv")
	require.NoError(t, os.WriteFile(path, []byte("obs_timestamp_utc,temp\n2023-11-14T22:13:20Z,1\n"), 0o644))

	_, err := ReadRows(path)
	assert.ErrorContains(t, err, "obs_timestamp_local")
}

func TestLatest_PicksNewestAndExcludes(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "weather_20231114_1400.csv")
	newer := filepath.Join(dir, "weather_20231114_1500.csv")
	processed := filepath.Join(dir, "weather_processed_20231114_1600.csv")
	for _, p := range []string{old, newer, processed} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	base := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, base, base))
	require.NoError(t, os.Chtimes(newer, base.Add(time.Minute), base.Add(time.Minute)))
	require.NoError(t, os.Chtimes(processed, base.Add(2*time.Minute), base.Add(2*time.Minute)))

	got, err := Latest(dir, RawPrefix, ProcessedPrefix)
	require.NoError(t, err)
	assert.Equal(t, newer, got)

	got, err = Latest(dir, ProcessedPrefix)
	require.NoError(t, err)
	assert.Equal(t, processed, got)
}

func TestLatest_NotFound(t *testing.T) {
	_, err := Latest(filepath.Join(t.TempDir(), "absent"), RawPrefix)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}
