package openweather

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, body string) Payload {
	t.Helper()
	p := Payload{}
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&p))
	return p
}

func mazatlan(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("America/Mazatlan")
	require.NoError(t, err)
	return loc
}

func TestBuildRecord_FullPayload(t *testing.T) {
	p := decode(t, `{"dt": 1700000000, "main": {"temp": 28.5, "humidity": 40}, "wind": {"speed": 3.1},
		"weather": [{"main": "Clear"}], "clouds": {"all": 10}}`)

	rec := BuildRecord(p, time.Now(), mazatlan(t))

	assert.Equal(t, time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC), rec.ObsTimestampUTC)
	assert.Equal(t, "2023-11-14T15:13:20-07:00", rec.ObsTimestampLocal.Format(time.RFC3339))
	assert.Equal(t, 28.5, *rec.Temp)
	assert.Equal(t, 40.0, *rec.Humidity)
	assert.Equal(t, 3.1, *rec.WindSpeed)
	assert.Equal(t, "Clear", *rec.WeatherMain)
	assert.Equal(t, 10.0, *rec.Cloudiness)
	assert.Nil(t, rec.RainMM)
	assert.Nil(t, rec.FeelsLike)
	assert.Nil(t, rec.Visibility)
}

func TestBuildRecord_MissingSectionsAreNull(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := BuildRecord(decode(t, `{"visibility": 10000}`), now, time.UTC)

	assert.Equal(t, now, rec.ObsTimestampUTC)
	assert.Nil(t, rec.Temp)
	assert.Nil(t, rec.Humidity)
	assert.Nil(t, rec.Pressure)
	assert.Nil(t, rec.WindSpeed)
	assert.Nil(t, rec.Cloudiness)
	assert.Nil(t, rec.RainMM)
	assert.Nil(t, rec.WeatherMain)
	assert.Equal(t, 10000.0, *rec.Visibility)
}

func TestBuildRecord_MalformedFieldsAreNull(t *testing.T) {
	rec := BuildRecord(decode(t, `{"main": "oops", "wind": [1, 2], "weather": [], "clouds": {"all": null}}`), time.Now(), time.UTC)

	assert.Nil(t, rec.Temp)
	assert.Nil(t, rec.WindSpeed)
	assert.Nil(t, rec.WeatherMain)
	assert.Nil(t, rec.Cloudiness)
}

func TestBuildRecord_RainPrecedence(t *testing.T) {
	tests := []struct {
		name string
		body string
		want *float64
	}{
		{"both", `{"rain": {"1h": 0.5, "3h": 2.0}}`, ptr(0.5)},
		{"only 3h", `{"rain": {"3h": 2.0}}`, ptr(2.0)},
		{"neither", `{"rain": {}}`, nil},
		{"no rain section", `{}`, nil},
		{"unparsable 1h", `{"rain": {"1h": "n/a", "3h": 2.5}}`, nil},
		{"null 1h", `{"rain": {"1h": null, "3h": 2.5}}`, ptr(2.5)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := BuildRecord(decode(t, tc.body), time.Now(), time.UTC)
			assert.Equal(t, tc.want, rec.RainMM)
		})
	}
}

func ptr(v float64) *float64 { return &v }
