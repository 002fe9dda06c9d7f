// ABOUTME: Tests for the resilient HTTP client
// ABOUTME: Uses httptest servers to cover retries, API errors, and the circuit breaker

package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastClient(opts Options) *Client {
	opts.Delay = time.Millisecond
	opts.MaxDelay = 5 * time.Millisecond
	return New(opts)
}

func TestGetJSON_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "paris", r.URL.Query().Get("name"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var out struct{ OK bool }
	err := fastClient(Options{Name: "test"}).GetJSON(context.Background(), srv.URL, url.Values{"name": {"paris"}}, &out)

	require.NoError(t, err)
	assert.True(t, out.OK)
}

func TestGetJSON_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"value":42}`))
	}))
	defer srv.Close()

	var out struct{ Value int }
	err := fastClient(Options{Attempts: 3}).GetJSON(context.Background(), srv.URL, nil, &out)

	require.NoError(t, err)
	assert.Equal(t, 42, out.Value)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetJSON_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "no such place", http.StatusNotFound)
	}))
	defer srv.Close()

	var out map[string]any
	err := fastClient(Options{Attempts: 3}).GetJSON(context.Background(), srv.URL, nil, &out)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.False(t, apiErr.Temporary())
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetJSON_ExhaustedRetriesReturnAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	var out map[string]any
	err := fastClient(Options{Attempts: 2}).GetJSON(context.Background(), srv.URL, nil, &out)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	assert.True(t, apiErr.Temporary())
}

func TestGetJSON_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"broken":`))
	}))
	defer srv.Close()

	var out map[string]any
	err := fastClient(Options{Name: "broken"}).GetJSON(context.Background(), srv.URL, nil, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode broken response")
}

func TestGetJSON_CircuitOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := fastClient(Options{Attempts: 1, MaxFailures: 2, OpenFor: time.Minute})
	var out map[string]any
	for i := 0; i < 2; i++ {
		require.Error(t, c.GetJSON(context.Background(), srv.URL, nil, &out))
	}

	err := c.GetJSON(context.Background(), srv.URL, nil, &out)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load(), "open breaker must not reach the server")
}

func TestGetJSON_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out map[string]any
	err := fastClient(Options{}).GetJSON(ctx, srv.URL, nil, &out)
	assert.Error(t, err)
}
