// Package openweather fetches current weather from the OpenWeather API and
// flattens the response into an observation record.
package openweather

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tigerroll/weatheretl/pkg/batch/support/util/exception"
	"github.com/tigerroll/weatheretl/pkg/batch/support/util/logger"
)

const moduleName = "fetcher"

// maxErrorBody caps how much of a failed response is kept in the error.
const maxErrorBody = 4096

// Payload is the decoded JSON body. It is kept untyped so that a malformed
// field maps to null instead of failing the decode.
type Payload map[string]interface{}

// ClientConfig configures a Client.
type ClientConfig struct {
	Endpoint string
	APIKey   string
	Lat      float64
	Lon      float64
	Units    string
	Timeout  time.Duration
}

// Client calls the current-weather endpoint.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
}

// NewClient creates a Client. A nil httpClient gets one bounded by cfg.Timeout.
func NewClient(cfg ClientConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

func (c *Client) requestURL() (string, error) {
	u, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", c.cfg.Endpoint, err)
	}
	q := u.Query()
	q.Set("lat", strconv.FormatFloat(c.cfg.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(c.cfg.Lon, 'f', -1, 64))
	q.Set("appid", c.cfg.APIKey)
	q.Set("units", c.cfg.Units)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Fetch issues one GET. Any status other than 200 is returned as a fatal
// BatchError carrying the response body; statuses >= 500 are marked retryable.
func (c *Client) Fetch(ctx context.Context) (int, Payload, error) {
	reqURL, err := c.requestURL()
	if err != nil {
		return 0, nil, exception.NewBatchError(moduleName, "failed to build request URL", err, false, false)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, nil, exception.NewBatchError(moduleName, "failed to create request", err, false, false)
	}
	req.Header.Set("Accept", "application/json")

	logger.Infof("Requesting OpenWeather API (lat=%v, lon=%v)...", c.cfg.Lat, c.cfg.Lon)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, exception.NewBatchError(moduleName, "request to OpenWeather API failed", err, false, false)
	}
	defer resp.Body.Close()
	logger.Infof("Status Code: %d", resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, exception.NewBatchError(moduleName, "failed to read response body", err, false, false)
	}

	if resp.StatusCode != http.StatusOK {
		snippet := body
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		logger.Errorf("API error response (no snapshot will be saved): %s", string(snippet))
		return resp.StatusCode, nil, exception.NewBatchError(moduleName,
			fmt.Sprintf("OpenWeather API returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet)),
			nil, false, resp.StatusCode >= http.StatusInternalServerError)
	}

	payload := Payload{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return resp.StatusCode, nil, exception.NewBatchError(moduleName, "failed to decode OpenWeather response", err, false, false)
	}
	return resp.StatusCode, payload, nil
}
