package normalize

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/weatheretl/internal/csvfile"
	"github.com/tigerroll/weatheretl/internal/domain/entity"
)

func rawRow() map[string]string {
	return map[string]string{
		"obs_timestamp_utc":   "2023-11-14T22:13:20Z",
		"obs_timestamp_local": "2023-11-14T15:13:20-07:00",
		"temp":                "28.5",
		"feels_like":          "",
		"humidity":            "40",
		"wind_speed":          "3.1",
		"visibility":          "n/a",
		"pressure":            "nan",
		"weather_main":        "Clear",
		"cloudiness":          "10",
		"rain_mm":             "",
	}
}

func TestNormalize_CoercesTypes(t *testing.T) {
	obs, err := Normalize([]map[string]string{rawRow()})
	require.NoError(t, err)
	require.Len(t, obs, 1)

	o := obs[0]
	assert.True(t, o.ObsTimestampUTC.Equal(time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)))
	_, offset := o.ObsTimestampLocal.Zone()
	assert.Equal(t, -7*3600, offset)
	assert.Equal(t, 28.5, *o.Temp)
	assert.Equal(t, 40.0, *o.Humidity)
	assert.Nil(t, o.FeelsLike)
	assert.Nil(t, o.Visibility, "unparsable numbers become null")
	assert.Nil(t, o.Pressure)
	assert.Nil(t, o.RainMM)
	assert.Equal(t, "Clear", *o.WeatherMain)
}

func TestNormalize_NullWeatherStaysNull(t *testing.T) {
	for _, cell := range []string{"", "None", "nan"} {
		row := rawRow()
		row["weather_main"] = cell
		obs, err := Normalize([]map[string]string{row})
		require.NoError(t, err)
		assert.Nil(t, obs[0].WeatherMain, "cell %q", cell)
	}
}

func TestNormalize_Errors(t *testing.T) {
	_, err := Normalize(nil)
	assert.Error(t, err)

	row := rawRow()
	row["obs_timestamp_utc"] = "yesterday"
	_, err = Normalize([]map[string]string{row})
	assert.Error(t, err)
}

func TestParseTime_SpaceSeparated(t *testing.T) {
	got, err := ParseTime("2023-11-14 22:13:20+00:00")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)))
}

func TestFile_WritesProcessedNamedAfterFirstRow(t *testing.T) {
	rawDir, processedDir := t.TempDir(), t.TempDir()
	first, err := Normalize([]map[string]string{rawRow()})
	require.NoError(t, err)
	second := first[0]
	second.ObsTimestampUTC = second.ObsTimestampUTC.Add(time.Hour)
	second.ObsTimestampLocal = second.ObsTimestampLocal.Add(time.Hour)
	rawPath, err := csvfile.Write(rawDir, csvfile.RawPrefix, []entity.Observation{first[0], second})
	require.NoError(t, err)

	latest, err := LatestRaw(rawDir)
	require.NoError(t, err)
	assert.Equal(t, rawPath, latest)

	path, obs, err := File(rawPath, processedDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(processedDir, "weather_processed_20231114_1513.csv"), path)
	assert.Len(t, obs, 2)

	rows, err := csvfile.ReadRows(path)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, "", rows[0]["pressure"])
	assert.Equal(t, "Clear", rows[0]["weather_main"])
}
