package gcs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	storageConfig "github.com/tigerroll/weatheretl/pkg/batch/adapter/storage/config"
)

func TestNewGCSAdapter_RequiresBucket(t *testing.T) {
	_, err := NewGCSAdapter(context.Background(), storageConfig.StorageConfig{Type: ProviderType}, "archive", option.WithoutAuthentication())
	assert.Error(t, err)
}

func TestGCSAdapter_ListObjects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || !strings.Contains(r.URL.Path, "/b/weather-archive/o") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"kind":"storage#objects","items":[` +
			`{"kind":"storage#object","bucket":"weather-archive","name":"weather_observation/dt=2023-11-14/a.parquet"},` +
			`{"kind":"storage#object","bucket":"weather-archive","name":"weather_observation/dt=2023-11-14/b.parquet"}]}`))
	}))
	defer srv.Close()

	conn, err := NewGCSAdapter(context.Background(),
		storageConfig.StorageConfig{Type: ProviderType, BucketName: "weather-archive"}, "archive",
		option.WithEndpoint(srv.URL+"/storage/v1/"), option.WithoutAuthentication())
	require.NoError(t, err)
	defer conn.Close()

	var names []string
	err = conn.ListObjects(context.Background(), "", "weather_observation/", func(name string) error {
		names = append(names, name)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"weather_observation/dt=2023-11-14/a.parquet",
		"weather_observation/dt=2023-11-14/b.parquet",
	}, names)
}
