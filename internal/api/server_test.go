// ABOUTME: Tests for the HTTP API routes
// ABOUTME: Drives a real resolver over memory persistence through fiber's app.Test

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/skycast/internal/forecast"
	"github.com/harper/skycast/internal/models"
	"github.com/harper/skycast/internal/resolver"
)

var paris = models.Candidate{ID: 2988507, Name: "Paris", Country: "France", Admin1: "Île-de-France", Latitude: 48.8566, Longitude: 2.3522}

type stubGeocoder struct{}

func (stubGeocoder) Search(_ context.Context, q string) ([]models.Candidate, error) {
	if strings.EqualFold(q, "paris") {
		return []models.Candidate{paris}, nil
	}
	return nil, nil
}

func (stubGeocoder) Reverse(context.Context, float64, float64) (*models.Candidate, error) {
	return nil, nil
}

type stubWeather struct {
	report forecast.Report
	err    error
}

func (w stubWeather) Latest() (forecast.Report, error) { return w.report, w.err }

func newTestServer(t *testing.T, weather Weather) (*Server, *resolver.Resolver) {
	t.Helper()
	r := resolver.New(resolver.Options{Geocoder: stubGeocoder{}})
	t.Cleanup(func() { _ = r.Close() })
	_, err := r.Initialize(context.Background())
	require.NoError(t, err)
	return New(Options{Locations: r, Weather: weather}), r
}

func do(t *testing.T, s *Server, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	resp, body := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"ok"`)
}

func TestGetLocation_Fallback(t *testing.T) {
	s, _ := newTestServer(t, nil)
	resp, body := do(t, s, http.MethodGet, "/api/v1/location", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var active models.ActiveLocation
	require.NoError(t, json.Unmarshal(body, &active))
	assert.Equal(t, models.SourceFallback, active.Source)
	assert.Equal(t, "New York", active.Name)
}

func TestPutLocation(t *testing.T) {
	s, r := newTestServer(t, nil)

	resp, _ := do(t, s, http.MethodPut, "/api/v1/location", `{"latitude":48.8566,"longitude":2.3522,"name":"Paris","country":"France","id":2988507}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	active, ok := r.Active()
	require.True(t, ok)
	assert.Equal(t, "Paris", active.Name)
	assert.Equal(t, models.SourceSearch, active.Source)
	require.NotEmpty(t, r.Recent())
	assert.Equal(t, "Paris", r.Recent()[0].Name)
}

func TestPutLocation_Invalid(t *testing.T) {
	s, _ := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"missing_latitude", `{"longitude":2.35}`},
		{"latitude_out_of_range", `{"latitude":95,"longitude":2.35}`},
		{"unknown_source", `{"latitude":1,"longitude":2,"source":"gps"}`},
		{"not_json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, s, http.MethodPut, "/api/v1/location", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, string(body), `"error":true`)
		})
	}
}

func TestSearch(t *testing.T) {
	s, _ := newTestServer(t, nil)

	resp, body := do(t, s, http.MethodGet, "/api/v1/search?q=Paris", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"Paris"`)

	resp, body = do(t, s, http.MethodGet, "/api/v1/search?q=nowhere", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"results":[]`)

	resp, _ = do(t, s, http.MethodGet, "/api/v1/search", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSavedLifecycle(t *testing.T) {
	s, r := newTestServer(t, nil)

	resp, _ := do(t, s, http.MethodPost, "/api/v1/saved", `{"id":2988507,"name":"Paris","country":"France","latitude":48.8566,"longitude":2.3522}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// First saved location becomes default and active.
	resp, body := do(t, s, http.MethodGet, "/api/v1/default", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"isDefault":true`)
	active, _ := r.Active()
	assert.Equal(t, models.SourceDefault, active.Source)

	resp, _ = do(t, s, http.MethodPost, "/api/v1/saved", `{"id":2643743,"name":"London","country":"United Kingdom","latitude":51.5074,"longitude":-0.1278}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = do(t, s, http.MethodPut, "/api/v1/default/2643743", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	def, _ := r.Default()
	assert.Equal(t, int64(2643743), def.ID)

	resp, _ = do(t, s, http.MethodDelete, "/api/v1/saved/2643743", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	def, ok := r.Default()
	require.True(t, ok)
	assert.Equal(t, int64(2988507), def.ID, "remaining location is promoted")

	resp, _ = do(t, s, http.MethodDelete, "/api/v1/saved/42", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = do(t, s, http.MethodPut, "/api/v1/default/42", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = do(t, s, http.MethodDelete, "/api/v1/saved/abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAddSaved_Invalid(t *testing.T) {
	s, _ := newTestServer(t, nil)
	resp, _ := do(t, s, http.MethodPost, "/api/v1/saved", `{"name":"Paris","latitude":48.8,"longitude":2.3}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRecent(t *testing.T) {
	s, r := newTestServer(t, nil)
	require.NoError(t, r.SetLocation(context.Background(), paris, models.SourceSearch))

	resp, body := do(t, s, http.MethodGet, "/api/v1/recent", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"Paris"`)

	resp, _ = do(t, s, http.MethodDelete, "/api/v1/recent/2988507", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, -1, models.IndexByID(r.Recent(), paris.ID))

	resp, _ = do(t, s, http.MethodDelete, "/api/v1/recent/2988507", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWeather(t *testing.T) {
	s, _ := newTestServer(t, nil)
	resp, _ := do(t, s, http.MethodGet, "/api/v1/weather", "")
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)

	s, _ = newTestServer(t, stubWeather{err: forecast.ErrNoReport})
	resp, _ = do(t, s, http.MethodGet, "/api/v1/weather", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	s, _ = newTestServer(t, stubWeather{err: errors.New("upstream")})
	resp, _ = do(t, s, http.MethodGet, "/api/v1/weather", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	s, _ = newTestServer(t, stubWeather{report: forecast.Report{Units: forecast.Metric, Location: paris}})
	resp, body := do(t, s, http.MethodGet, "/api/v1/weather", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"units":"metric"`)
}

func TestClosedResolver(t *testing.T) {
	s, r := newTestServer(t, nil)
	require.NoError(t, r.Close())

	resp, _ := do(t, s, http.MethodPut, "/api/v1/location", `{"latitude":1,"longitude":2}`)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
