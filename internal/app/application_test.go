package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jsl "github.com/tigerroll/weatheretl/pkg/batch/core/config/jsl"
	model "github.com/tigerroll/weatheretl/pkg/batch/core/domain/model"
)

const pipelineJSL = `
id: weatherPipelineJob
name: weatherPipelineJob
listeners:
  - ref: loggingJobListener
flow:
  start-element: migrateStep
  elements:
    migrateStep:
      id: migrateStep
      tasklet:
        ref: migrationTasklet
      transitions:
        - on: COMPLETED
          to: fetchStep
        - on: "*"
          fail: true
    fetchStep:
      id: fetchStep
      tasklet:
        ref: fetchTasklet
      execution-context-promotion:
        job-level-keys:
          output.path: pipeline.raw_path
      transitions:
        - on: COMPLETED
          to: normalizeStep
        - on: "*"
          fail: true
    normalizeStep:
      id: normalizeStep
      tasklet:
        ref: normalizeTasklet
      execution-context-promotion:
        job-level-keys:
          output.path: pipeline.processed_path
      transitions:
        - on: COMPLETED
          to: loadStep
        - on: "*"
          fail: true
    loadStep:
      id: loadStep
      tasklet:
        ref: loadTasklet
      transitions:
        - on: COMPLETED
          end: true
        - on: "*"
          fail: true
`

var migrations = fstest.MapFS{
	"sqlite/000001_create_weather_observation.up.sql": {Data: []byte(`CREATE TABLE IF NOT EXISTS weather_observation (
		obs_timestamp_utc TIMESTAMP PRIMARY KEY, obs_timestamp_local TIMESTAMP NOT NULL,
		temp REAL, feels_like REAL, humidity REAL, wind_speed REAL, visibility REAL,
		pressure REAL, weather_main TEXT, cloudiness REAL, rain_mm REAL);`)},
	"sqlite/000001_create_weather_observation.down.sql": {Data: []byte(`DROP TABLE IF EXISTS weather_observation;`)},
}

func appConfig(dir, endpoint string) []byte {
	return []byte(fmt.Sprintf(`
surfin:
  system:
    logging:
      level: ERROR
  database:
    workload:
      type: sqlite
      database: %[1]s/weather.db
      log_level: SILENT
weather:
  endpoint: %[2]s
  api_key: test-key
  timeout: 5s
  raw_dir: %[1]s/raw
  processed_dir: %[1]s/processed
`, dir, endpoint))
}

func runPipeline(t *testing.T, status int, body string, steps ...string) (*model.JobExecution, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	dir := t.TempDir()
	je, err := Run(context.Background(), Options{
		EnvFilePath:  filepath.Join(dir, "missing.env"),
		Config:       appConfig(dir, srv.URL),
		JSL:          jsl.JSLDefinitionBytes(pipelineJSL),
		MigrationsFS: migrations,
		DBProviders:  DBProviderOptions(""),
		Steps:        steps,
	})
	require.NoError(t, err)
	require.NotNil(t, je)
	return je, dir
}

func TestRun_CompletesPipeline(t *testing.T) {
	je, dir := runPipeline(t, http.StatusOK, `{"dt": 1700000000, "main": {"temp": 28.5, "humidity": 40}, "weather": [{"main": "Clear"}]}`)
	assert.Equal(t, model.BatchStatusCompleted, je.Status)
	require.Len(t, je.StepExecutions, 4)
	assert.Equal(t, 1, je.StepExecutions[3].WriteCount)
	assert.NoError(t, Result(je))
	version, ok := SchemaVersion(je, "migrateStep")
	require.True(t, ok)
	assert.Equal(t, 1, version)

	_, err := os.Stat(filepath.Join(dir, "raw", "weather_20231114_1513.csv"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "processed", "weather_processed_20231114_1513.csv"))
	assert.NoError(t, err)
}

func TestRun_UpstreamFailureStopsBeforeNormalize(t *testing.T) {
	je, dir := runPipeline(t, http.StatusInternalServerError, `{"message":"boom"}`)
	assert.Equal(t, model.BatchStatusFailed, je.Status)
	require.Len(t, je.StepExecutions, 2)
	assert.Equal(t, "fetchStep", je.StepExecutions[1].StepName)
	assert.ErrorContains(t, Result(je), "step 'fetchStep' failed")

	entries, _ := os.ReadDir(filepath.Join(dir, "raw"))
	assert.Empty(t, entries)
}

func TestRun_UnknownStepFailsStartup(t *testing.T) {
	dir := t.TempDir()
	_, err := Run(context.Background(), Options{
		EnvFilePath:  filepath.Join(dir, "missing.env"),
		Config:       appConfig(dir, "http://127.0.0.1:1"),
		JSL:          jsl.JSLDefinitionBytes(pipelineJSL),
		MigrationsFS: migrations,
		DBProviders:  DBProviderOptions("sqlite"),
		Steps:        []string{"noSuchStep"},
	})
	assert.Error(t, err)
}

func TestDBProviderOptions(t *testing.T) {
	assert.Len(t, DBProviderOptions(""), 1)
	assert.Len(t, DBProviderOptions("postgres, mysql,sqlite"), 3)
	assert.Len(t, DBProviderOptions("oracle"), 0)
}

func TestResult_NoExecution(t *testing.T) {
	assert.Error(t, Result(nil))
	_, ok := SchemaVersion(nil, "migrateStep")
	assert.False(t, ok)
}
