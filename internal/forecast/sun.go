// ABOUTME: Sunrise, sunset, and daylight computation
// ABOUTME: Uses suncalc so daily entries carry sun times even when the provider omits them

package forecast

import (
	"time"

	"github.com/sixdouglas/suncalc"
)

// SunTimes returns sunrise and sunset for the day containing date at the given coordinates.
// ok is false when the sun does not rise or set that day.
func SunTimes(date time.Time, lat, lon float64) (sunrise, sunset time.Time, ok bool) {
	noon := time.Date(date.Year(), date.Month(), date.Day(), 12, 0, 0, 0, date.Location())
	times := suncalc.GetTimes(noon, lat, lon)

	sunrise = times["sunrise"].Value
	sunset = times["sunset"].Value
	if !plausible(noon, sunrise) || !plausible(noon, sunset) || !sunset.After(sunrise) {
		return time.Time{}, time.Time{}, false
	}
	return sunrise.In(date.Location()), sunset.In(date.Location()), true
}

// plausible rejects the garbage times produced for polar day and night.
func plausible(noon, t time.Time) bool {
	if t.IsZero() {
		return false
	}
	d := t.Sub(noon)
	return d > -24*time.Hour && d < 24*time.Hour
}

// withSunTimes fills sunrise, sunset, and daylight on each day.
func withSunTimes(days []Day, lat, lon float64) {
	for i := range days {
		rise, set, ok := SunTimes(days[i].Date, lat, lon)
		if !ok {
			if polarDay(days[i].Date, lat, lon) {
				days[i].Daylight = 24 * time.Hour
			}
			continue
		}
		days[i].Sunrise = rise
		days[i].Sunset = set
		days[i].Daylight = set.Sub(rise)
	}
}

// polarDay reports whether the sun is above the horizon at local noon on a day without sunrise.
func polarDay(date time.Time, lat, lon float64) bool {
	noon := time.Date(date.Year(), date.Month(), date.Day(), 12, 0, 0, 0, date.Location())
	return suncalc.GetPosition(noon, lat, lon).Altitude > 0
}
