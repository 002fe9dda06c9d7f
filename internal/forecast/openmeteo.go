// ABOUTME: Open-Meteo forecast client
// ABOUTME: Fetches current, hourly, and daily weather through the resilient HTTP client

package forecast

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harper/skycast/internal/httpclient"
	"github.com/harper/skycast/internal/logging"
	"github.com/harper/skycast/internal/models"
)

// DefaultForecastURL is the Open-Meteo forecast endpoint.
const DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"

const (
	defaultDays  = 7
	defaultHours = 24
	hourLayout   = "2006-01-02T15:04"
	dayLayout    = "2006-01-02"
)

// Fetcher returns a forecast for a location.
type Fetcher interface {
	Fetch(ctx context.Context, loc models.Candidate) (Report, error)
}

// OpenMeteoOptions configures an OpenMeteo client.
type OpenMeteoOptions struct {
	URL    string
	Days   int
	Hours  int
	Client *httpclient.Client
	Logger *log.Logger
	Now    func() time.Time
}

// OpenMeteo fetches forecasts from api.open-meteo.com.
type OpenMeteo struct {
	url    string
	days   int
	hours  int
	client *httpclient.Client
	logger *log.Logger
	now    func() time.Time
}

// NewOpenMeteo creates a forecast client.
func NewOpenMeteo(opts OpenMeteoOptions) *OpenMeteo {
	logger := logging.OrDiscard(opts.Logger)
	o := &OpenMeteo{
		url:    opts.URL,
		days:   opts.Days,
		hours:  opts.Hours,
		client: opts.Client,
		logger: logger,
		now:    opts.Now,
	}
	if o.url == "" {
		o.url = DefaultForecastURL
	}
	if o.days <= 0 || o.days > 16 {
		o.days = defaultDays
	}
	if o.hours <= 0 {
		o.hours = defaultHours
	}
	if o.client == nil {
		o.client = httpclient.New(httpclient.Options{Name: "open-meteo-forecast", Logger: logger})
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

type forecastResponse struct {
	Timezone         string `json:"timezone"`
	UTCOffsetSeconds int    `json:"utc_offset_seconds"`
	Current          struct {
		Time                string  `json:"time"`
		Temperature         float64 `json:"temperature_2m"`
		ApparentTemperature float64 `json:"apparent_temperature"`
		Humidity            float64 `json:"relative_humidity_2m"`
		WindSpeed           float64 `json:"wind_speed_10m"`
		WeatherCode         int     `json:"weather_code"`
		IsDay               int     `json:"is_day"`
	} `json:"current"`
	Hourly struct {
		Time                     []string   `json:"time"`
		Temperature              []float64  `json:"temperature_2m"`
		PrecipitationProbability []*float64 `json:"precipitation_probability"`
		WeatherCode              []int      `json:"weather_code"`
	} `json:"hourly"`
	Daily struct {
		Time             []string  `json:"time"`
		WeatherCode      []int     `json:"weather_code"`
		TemperatureMax   []float64 `json:"temperature_2m_max"`
		TemperatureMin   []float64 `json:"temperature_2m_min"`
		PrecipitationSum []float64 `json:"precipitation_sum"`
	} `json:"daily"`
}

// Fetch retrieves a metric forecast for loc.
func (o *OpenMeteo) Fetch(ctx context.Context, loc models.Candidate) (Report, error) {
	if err := loc.Validate(); err != nil {
		return Report{}, fmt.Errorf("forecast: %w", err)
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', 4, 64))
	q.Set("current", "temperature_2m,apparent_temperature,relative_humidity_2m,wind_speed_10m,weather_code,is_day")
	q.Set("hourly", "temperature_2m,precipitation_probability,weather_code")
	q.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min,precipitation_sum")
	q.Set("timezone", "auto")
	q.Set("forecast_days", strconv.Itoa(o.days))

	var resp forecastResponse
	if err := o.client.GetJSON(ctx, o.url, q, &resp); err != nil {
		return Report{}, fmt.Errorf("forecast: %w", err)
	}

	report := o.build(loc, resp)
	o.logger.Debug("forecast fetched", "location", loc.Label(), "days", len(report.Daily), "hours", len(report.Hourly))
	return report, nil
}

func (o *OpenMeteo) build(loc models.Candidate, resp forecastResponse) Report {
	zone := time.FixedZone(resp.Timezone, resp.UTCOffsetSeconds)
	now := o.now().In(zone)

	r := Report{
		Location:  loc,
		Units:     Metric,
		Timezone:  resp.Timezone,
		FetchedAt: o.now(),
	}

	r.Current = Current{
		Temperature:         resp.Current.Temperature,
		ApparentTemperature: resp.Current.ApparentTemperature,
		Humidity:            resp.Current.Humidity,
		WindSpeed:           resp.Current.WindSpeed,
		Code:                resp.Current.WeatherCode,
		Condition:           ConditionFor(resp.Current.WeatherCode),
		IsDay:               resp.Current.IsDay == 1,
	}
	if t, err := time.ParseInLocation(hourLayout, resp.Current.Time, zone); err == nil {
		r.Current.Time = t
	}

	h := resp.Hourly
	for i, raw := range h.Time {
		if len(r.Hourly) == o.hours {
			break
		}
		t, err := time.ParseInLocation(hourLayout, raw, zone)
		if err != nil {
			continue
		}
		// Skip hours that already ended.
		if t.Add(time.Hour).Before(now) {
			continue
		}
		hour := Hour{Time: t}
		if i < len(h.Temperature) {
			hour.Temperature = h.Temperature[i]
		}
		if i < len(h.PrecipitationProbability) && h.PrecipitationProbability[i] != nil {
			hour.PrecipitationProbability = *h.PrecipitationProbability[i]
		}
		if i < len(h.WeatherCode) {
			hour.Code = h.WeatherCode[i]
		}
		hour.Condition = ConditionFor(hour.Code)
		r.Hourly = append(r.Hourly, hour)
	}

	d := resp.Daily
	for i, raw := range d.Time {
		date, err := time.ParseInLocation(dayLayout, raw, zone)
		if err != nil {
			continue
		}
		day := Day{Date: date}
		if i < len(d.WeatherCode) {
			day.Code = d.WeatherCode[i]
		}
		if i < len(d.TemperatureMax) {
			day.High = d.TemperatureMax[i]
		}
		if i < len(d.TemperatureMin) {
			day.Low = d.TemperatureMin[i]
		}
		if i < len(d.PrecipitationSum) {
			day.Precipitation = d.PrecipitationSum[i]
		}
		day.Condition = ConditionFor(day.Code)
		r.Daily = append(r.Daily, day)
	}
	withSunTimes(r.Daily, loc.Latitude, loc.Longitude)

	return r
}
