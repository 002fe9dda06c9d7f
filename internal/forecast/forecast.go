// ABOUTME: Weather report types, condition codes, and unit conversion
// ABOUTME: Reports are fetched for the active location and rendered by the CLI, API, and MCP server

package forecast

import (
	"fmt"
	"strings"
	"time"

	"github.com/harper/skycast/internal/models"
)

// Units selects the measurement system of a Report.
type Units string

const (
	Metric   Units = "metric"
	Imperial Units = "imperial"
)

// ParseUnits accepts "metric" or "imperial"; empty means metric.
func ParseUnits(s string) (Units, error) {
	switch Units(strings.ToLower(strings.TrimSpace(s))) {
	case "", Metric:
		return Metric, nil
	case Imperial:
		return Imperial, nil
	}
	return "", fmt.Errorf("unknown units %q", s)
}

// TemperatureSymbol returns the degree suffix for the units.
func (u Units) TemperatureSymbol() string {
	if u == Imperial {
		return "°F"
	}
	return "°C"
}

// SpeedSymbol returns the wind speed suffix for the units.
func (u Units) SpeedSymbol() string {
	if u == Imperial {
		return "mph"
	}
	return "km/h"
}

// PrecipitationSymbol returns the precipitation suffix for the units.
func (u Units) PrecipitationSymbol() string {
	if u == Imperial {
		return "in"
	}
	return "mm"
}

// Condition is a coarse weather category derived from a WMO code.
type Condition string

const (
	Clear        Condition = "clear"
	PartlyCloudy Condition = "partly-cloudy"
	Cloudy       Condition = "cloudy"
	Fog          Condition = "fog"
	Drizzle      Condition = "drizzle"
	Rain         Condition = "rain"
	Snow         Condition = "snow"
	Storm        Condition = "storm"
	Unknown      Condition = "unknown"
)

// ConditionFor maps a WMO weather interpretation code.
func ConditionFor(code int) Condition {
	switch {
	case code == 0:
		return Clear
	case code == 1 || code == 2:
		return PartlyCloudy
	case code == 3:
		return Cloudy
	case code == 45 || code == 48:
		return Fog
	case code >= 51 && code <= 57:
		return Drizzle
	case (code >= 61 && code <= 67) || (code >= 80 && code <= 82):
		return Rain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return Snow
	case code >= 95 && code <= 99:
		return Storm
	default:
		return Unknown
	}
}

// Current is the observation at fetch time.
type Current struct {
	Time                time.Time `json:"time"`
	Temperature         float64   `json:"temperature"`
	ApparentTemperature float64   `json:"apparentTemperature"`
	Humidity            float64   `json:"humidity"`
	WindSpeed           float64   `json:"windSpeed"`
	Code                int       `json:"code"`
	Condition           Condition `json:"condition"`
	IsDay               bool      `json:"isDay"`
}

// Hour is one hourly forecast step.
type Hour struct {
	Time                     time.Time `json:"time"`
	Temperature              float64   `json:"temperature"`
	PrecipitationProbability float64   `json:"precipitationProbability"`
	Code                     int       `json:"code"`
	Condition                Condition `json:"condition"`
}

// Day is one daily forecast entry. Sunrise and Sunset are zero during polar day or night.
type Day struct {
	Date          time.Time     `json:"date"`
	High          float64       `json:"high"`
	Low           float64       `json:"low"`
	Precipitation float64       `json:"precipitation"`
	Code          int           `json:"code"`
	Condition     Condition     `json:"condition"`
	Sunrise       time.Time     `json:"sunrise,omitzero"`
	Sunset        time.Time     `json:"sunset,omitzero"`
	Daylight      time.Duration `json:"daylight"`
}

// Report is a forecast for one location.
type Report struct {
	Location  models.Candidate `json:"location"`
	Units     Units            `json:"units"`
	Timezone  string           `json:"timezone"`
	Current   Current          `json:"current"`
	Hourly    []Hour           `json:"hourly"`
	Daily     []Day            `json:"daily"`
	FetchedAt time.Time        `json:"fetchedAt"`
}

// Convert returns a copy of r expressed in the given units. Reports are fetched in metric.
func (r Report) Convert(u Units) Report {
	if u == r.Units || u != Imperial || r.Units != Metric {
		return r
	}
	out := r
	out.Units = Imperial
	out.Current.Temperature = CelsiusToFahrenheit(r.Current.Temperature)
	out.Current.ApparentTemperature = CelsiusToFahrenheit(r.Current.ApparentTemperature)
	out.Current.WindSpeed = KmhToMph(r.Current.WindSpeed)

	out.Hourly = make([]Hour, len(r.Hourly))
	for i, h := range r.Hourly {
		h.Temperature = CelsiusToFahrenheit(h.Temperature)
		out.Hourly[i] = h
	}
	out.Daily = make([]Day, len(r.Daily))
	for i, d := range r.Daily {
		d.High = CelsiusToFahrenheit(d.High)
		d.Low = CelsiusToFahrenheit(d.Low)
		d.Precipitation = MillimetersToInches(d.Precipitation)
		out.Daily[i] = d
	}
	return out
}

func CelsiusToFahrenheit(c float64) float64 { return c*9/5 + 32 }

func KmhToMph(v float64) float64 { return v / 1.609344 }

func MillimetersToInches(v float64) float64 { return v / 25.4 }
