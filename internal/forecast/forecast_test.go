// ABOUTME: Tests for forecast parsing, conditions, units, sun times, and the watcher
// ABOUTME: Uses an httptest server for Open-Meteo and an event bus for location changes

package forecast

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/skycast/internal/events"
	"github.com/harper/skycast/internal/httpclient"
	"github.com/harper/skycast/internal/models"
)

func TestConditionFor(t *testing.T) {
	tests := []struct {
		code int
		want Condition
	}{
		{0, Clear},
		{2, PartlyCloudy},
		{3, Cloudy},
		{45, Fog},
		{53, Drizzle},
		{63, Rain},
		{81, Rain},
		{75, Snow},
		{86, Snow},
		{95, Storm},
		{42, Unknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ConditionFor(tt.code), "code %d", tt.code)
	}
}

func TestParseUnits(t *testing.T) {
	u, err := ParseUnits("")
	require.NoError(t, err)
	assert.Equal(t, Metric, u)

	u, err = ParseUnits("Imperial")
	require.NoError(t, err)
	assert.Equal(t, Imperial, u)

	_, err = ParseUnits("kelvin")
	assert.Error(t, err)
}

func TestReport_Convert(t *testing.T) {
	r := Report{
		Units:   Metric,
		Current: Current{Temperature: 100, WindSpeed: 1.609344},
		Hourly:  []Hour{{Temperature: 0}},
		Daily:   []Day{{High: 20, Low: -40, Precipitation: 25.4}},
	}

	imp := r.Convert(Imperial)
	assert.Equal(t, Imperial, imp.Units)
	assert.InDelta(t, 212, imp.Current.Temperature, 1e-9)
	assert.InDelta(t, 1, imp.Current.WindSpeed, 1e-9)
	assert.InDelta(t, 32, imp.Hourly[0].Temperature, 1e-9)
	assert.InDelta(t, 68, imp.Daily[0].High, 1e-9)
	assert.InDelta(t, -40, imp.Daily[0].Low, 1e-9)
	assert.InDelta(t, 1, imp.Daily[0].Precipitation, 1e-9)

	assert.Equal(t, float64(0), r.Hourly[0].Temperature, "original must not change")
	assert.Equal(t, r, r.Convert(Metric))
}

func TestSunTimes(t *testing.T) {
	london := time.Date(2024, time.June, 21, 0, 0, 0, 0, time.UTC)
	rise, set, ok := SunTimes(london, 51.5074, -0.1278)
	require.True(t, ok)
	assert.True(t, set.After(rise))
	daylight := set.Sub(rise)
	assert.Greater(t, daylight, 16*time.Hour)
	assert.Less(t, daylight, 17*time.Hour)

	// Svalbard in midsummer never sees the sun set.
	_, _, ok = SunTimes(london, 78.2232, 15.6267)
	assert.False(t, ok)

	days := []Day{{Date: london}}
	withSunTimes(days, 78.2232, 15.6267)
	assert.Equal(t, 24*time.Hour, days[0].Daylight)
}

const forecastBody = `{
  "timezone": "Europe/London",
  "utc_offset_seconds": 3600,
  "current": {"time": "2024-06-21T12:00", "temperature_2m": 18.5, "apparent_temperature": 17.9,
    "relative_humidity_2m": 60, "wind_speed_10m": 12.3, "weather_code": 2, "is_day": 1},
  "hourly": {
    "time": ["2024-06-21T10:00", "2024-06-21T11:00", "2024-06-21T12:00", "2024-06-21T13:00"],
    "temperature_2m": [16, 17, 18.5, 19],
    "precipitation_probability": [0, 5, null, 20],
    "weather_code": [0, 1, 2, 61]
  },
  "daily": {
    "time": ["2024-06-21", "2024-06-22"],
    "weather_code": [2, 63],
    "temperature_2m_max": [21, 17],
    "temperature_2m_min": [12, 11],
    "precipitation_sum": [0, 4.2]
  }
}`

func TestOpenMeteo_Fetch(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"latitude":  q.Get("latitude"),
			"longitude": q.Get("longitude"),
			"timezone":  q.Get("timezone"),
			"days":      q.Get("forecast_days"),
		}
		_, _ = w.Write([]byte(forecastBody))
	}))
	defer srv.Close()

	now := time.Date(2024, time.June, 21, 11, 30, 0, 0, time.UTC) // 12:30 local
	o := NewOpenMeteo(OpenMeteoOptions{
		URL:    srv.URL,
		Days:   2,
		Hours:  2,
		Client: httpclient.New(httpclient.Options{Attempts: 1}),
		Now:    func() time.Time { return now },
	})

	london := models.Candidate{ID: 2643743, Name: "London", Country: "United Kingdom", Latitude: 51.5074, Longitude: -0.1278}
	r, err := o.Fetch(context.Background(), london)
	require.NoError(t, err)

	assert.Equal(t, "51.5074", gotQuery["latitude"])
	assert.Equal(t, "-0.1278", gotQuery["longitude"])
	assert.Equal(t, "auto", gotQuery["timezone"])
	assert.Equal(t, "2", gotQuery["days"])

	assert.Equal(t, Metric, r.Units)
	assert.Equal(t, "Europe/London", r.Timezone)
	assert.Equal(t, 18.5, r.Current.Temperature)
	assert.Equal(t, PartlyCloudy, r.Current.Condition)
	assert.True(t, r.Current.IsDay)

	require.Len(t, r.Hourly, 2, "past hours are skipped and the list is capped")
	assert.Equal(t, 12, r.Hourly[0].Time.Hour())
	assert.Equal(t, float64(0), r.Hourly[0].PrecipitationProbability)
	assert.Equal(t, Rain, r.Hourly[1].Condition)

	require.Len(t, r.Daily, 2)
	assert.Equal(t, 21.0, r.Daily[0].High)
	assert.Equal(t, Rain, r.Daily[1].Condition)
	assert.False(t, r.Daily[0].Sunrise.IsZero())
	assert.Greater(t, r.Daily[0].Daylight, 16*time.Hour)
}

func TestOpenMeteo_InvalidLocation(t *testing.T) {
	o := NewOpenMeteo(OpenMeteoOptions{URL: "http://127.0.0.1:0"})
	_, err := o.Fetch(context.Background(), models.Candidate{Latitude: 91})
	assert.Error(t, err)
}

// fakeSource drives the watcher through a real event bus.
type fakeSource struct {
	*events.Bus
	mu     sync.Mutex
	active *models.ActiveLocation
}

func newFakeSource(c models.Candidate) *fakeSource {
	return &fakeSource{Bus: events.NewBus(nil), active: &models.ActiveLocation{Candidate: c, Source: models.SourceFallback}}
}

func (s *fakeSource) Active() (models.ActiveLocation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return models.ActiveLocation{}, false
	}
	return *s.active, true
}

func (s *fakeSource) move(c models.Candidate) {
	loc := models.ActiveLocation{Candidate: c, Source: models.SourceSearch}
	s.mu.Lock()
	s.active = &loc
	s.mu.Unlock()
	s.Emit(events.Event{Kind: events.LocationChanged, Location: &loc})
}

type fakeFetcher struct {
	mu    sync.Mutex
	calls []string
	fail  error
}

func (f *fakeFetcher) Fetch(_ context.Context, loc models.Candidate) (Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, loc.Name)
	if f.fail != nil {
		return Report{}, f.fail
	}
	return Report{Units: Metric, Current: Current{Temperature: 10}}, nil
}

func TestWatcher_FollowsLocation(t *testing.T) {
	src := newFakeSource(models.Candidate{Name: "New York", Latitude: 40.7128, Longitude: -74.006})
	f := &fakeFetcher{}
	w := NewWatcher(WatcherOptions{Fetcher: f, Source: src, Interval: time.Hour, Units: Imperial})

	_, err := w.Latest()
	assert.ErrorIs(t, err, ErrNoReport)

	require.NoError(t, w.Start())
	defer w.Stop()

	assert.Eventually(t, func() bool {
		r, err := w.Latest()
		return err == nil && r.Location.Name == "New York"
	}, 2*time.Second, 10*time.Millisecond)

	r, _ := w.Latest()
	assert.Equal(t, Imperial, r.Units)
	assert.InDelta(t, 50, r.Current.Temperature, 1e-9)

	src.move(models.Candidate{Name: "London", Latitude: 51.5074, Longitude: -0.1278})
	assert.Eventually(t, func() bool {
		r, err := w.Latest()
		return err == nil && r.Location.Name == "London"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_RefreshError(t *testing.T) {
	src := newFakeSource(models.Candidate{Name: "Oslo", Latitude: 59.91, Longitude: 10.75})
	boom := errors.New("upstream down")
	w := NewWatcher(WatcherOptions{Fetcher: &fakeFetcher{fail: boom}, Source: src})

	_, err := w.Refresh(context.Background())
	assert.ErrorIs(t, err, boom)

	_, err = w.Latest()
	assert.ErrorIs(t, err, boom)
}

func TestWatcher_StopUnsubscribes(t *testing.T) {
	src := newFakeSource(models.Candidate{Name: "Oslo", Latitude: 59.91, Longitude: 10.75})
	w := NewWatcher(WatcherOptions{Fetcher: &fakeFetcher{}, Source: src, Interval: time.Hour})

	require.NoError(t, w.Start())
	assert.Equal(t, 1, src.Count(events.LocationChanged))
	w.Stop()
	assert.Equal(t, 0, src.Count(events.LocationChanged))
}

func TestWatcher_LateLocationChangeAfterStop(t *testing.T) {
	src := newFakeSource(models.Candidate{Name: "Oslo", Latitude: 59.91, Longitude: 10.75})
	f := &fakeFetcher{}
	w := NewWatcher(WatcherOptions{Fetcher: f, Source: src, Interval: time.Hour})
	require.NoError(t, w.Start())
	w.Stop()

	// A handler already picked up by the bus can still run after Stop.
	loc := models.ActiveLocation{Candidate: models.Candidate{Name: "Bergen", Latitude: 60.39, Longitude: 5.32}}
	w.onLocationChanged(events.Event{Kind: events.LocationChanged, Location: &loc})

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.NotContains(t, f.calls, "Bergen")
	assert.ErrorIs(t, w.Start(), ErrStopped)
}

func TestWatcher_StopDuringLocationChanges(t *testing.T) {
	src := newFakeSource(models.Candidate{Name: "Oslo", Latitude: 59.91, Longitude: 10.75})
	w := NewWatcher(WatcherOptions{Fetcher: &fakeFetcher{}, Source: src, Interval: time.Hour})
	require.NoError(t, w.Start())

	loc := models.ActiveLocation{Candidate: models.Candidate{Name: "Bergen", Latitude: 60.39, Longitude: 5.32}}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				w.onLocationChanged(events.Event{Kind: events.LocationChanged, Location: &loc})
			}
		}()
	}
	w.Stop()
	wg.Wait()
}
