// ABOUTME: Terminal UI formatting utilities
// ABOUTME: Human-readable output for locations, search results, and forecasts

package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/harper/skycast/internal/forecast"
	"github.com/harper/skycast/internal/models"
)

var faint = color.New(color.Faint)

// FormatActive formats the active location with how it was chosen.
func FormatActive(a models.ActiveLocation) string {
	return fmt.Sprintf("%s %s %s",
		color.CyanString(a.Label()),
		faint.Sprint(a.Coordinates()),
		FormatSource(a.Source))
}

// FormatSource renders a source tag; search and saved choices stand out.
func FormatSource(s models.Source) string {
	tag := "[" + string(s) + "]"
	switch s {
	case models.SourceDefault, models.SourceSaved:
		return color.GreenString(tag)
	case models.SourceFallback:
		return color.YellowString(tag)
	default:
		return faint.Sprint(tag)
	}
}

// FormatSaved formats one line of the saved or recent list.
func FormatSaved(loc models.SavedLocation) string {
	marker := "  "
	if loc.IsDefault {
		marker = color.GreenString("* ")
	}
	return fmt.Sprintf("%s%s %s %s",
		marker,
		color.CyanString(loc.Label()),
		faint.Sprint(loc.Coordinates()),
		faint.Sprintf("id:%d", loc.ID))
}

// FormatCandidate formats a numbered search result.
func FormatCandidate(index int, c models.Candidate) string {
	return fmt.Sprintf("%s %s %s",
		color.New(color.Bold).Sprintf("%2d.", index),
		c.Label(),
		faint.Sprint(c.Coordinates()))
}

// FormatReport formats a forecast: current conditions, the next hours, and the daily outlook.
func FormatReport(r forecast.Report) string {
	var b strings.Builder
	temp := r.Units.TemperatureSymbol()

	fmt.Fprintf(&b, "%s %s\n", color.CyanString(r.Location.Label()), faint.Sprint("updated "+FormatRelativeTime(r.FetchedAt)))
	fmt.Fprintf(&b, "  %s %s, feels like %.0f%s\n",
		color.New(color.Bold).Sprintf("%.0f%s", r.Current.Temperature, temp),
		FormatCondition(r.Current.Condition),
		r.Current.ApparentTemperature, temp)
	fmt.Fprintf(&b, "  humidity %.0f%%, wind %.0f %s\n", r.Current.Humidity, r.Current.WindSpeed, r.Units.SpeedSymbol())

	if len(r.Hourly) > 0 {
		b.WriteString("\n")
		for _, h := range r.Hourly {
			fmt.Fprintf(&b, "  %s %5.0f%s  %3.0f%%  %s\n",
				h.Time.Format("15:04"), h.Temperature, temp, h.PrecipitationProbability, FormatCondition(h.Condition))
		}
	}

	if len(r.Daily) > 0 {
		b.WriteString("\n")
		for _, d := range r.Daily {
			fmt.Fprintf(&b, "  %s %5.0f%s / %.0f%s  %-14s %s\n",
				d.Date.Format("Mon Jan 2"), d.High, temp, d.Low, temp,
				FormatCondition(d.Condition), faint.Sprint(FormatSun(d)))
		}
	}
	return b.String()
}

// FormatCondition renders a weather condition in a matching color.
func FormatCondition(c forecast.Condition) string {
	text := strings.ReplaceAll(string(c), "-", " ")
	switch c {
	case forecast.Clear:
		return color.YellowString(text)
	case forecast.Rain, forecast.Drizzle:
		return color.BlueString(text)
	case forecast.Storm:
		return color.RedString(text)
	case forecast.Snow:
		return color.WhiteString(text)
	default:
		return text
	}
}

// FormatSun renders sunrise, sunset, and daylight for a day.
func FormatSun(d forecast.Day) string {
	if d.Sunrise.IsZero() {
		if d.Daylight >= 24*time.Hour {
			return "sun up all day"
		}
		return "no sunrise"
	}
	return fmt.Sprintf("↑%s ↓%s %s",
		d.Sunrise.Format("15:04"), d.Sunset.Format("15:04"), FormatDuration(d.Daylight))
}

// FormatDuration renders a duration as "14h32m".
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}

// FormatRelativeTime formats a time as relative to now.
func FormatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	diff := time.Since(t)

	// Handle future times (clock skew, bad data)
	if diff < 0 {
		return color.YellowString("in the future")
	}

	if diff < time.Minute {
		return "just now"
	}
	if diff < time.Hour {
		return plural(int(diff.Minutes()), "minute")
	}
	if diff < 24*time.Hour {
		return plural(int(diff.Hours()), "hour")
	}
	return plural(int(diff.Hours()/24), "day")
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
