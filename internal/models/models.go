// ABOUTME: Core data models for candidate, saved, and active locations
// ABOUTME: Provides validation helpers and display labels

package models

import (
	"fmt"
	"math"
	"strings"
)

// ValidateCoordinates checks if latitude and longitude are within valid ranges.
func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return fmt.Errorf("coordinates cannot be NaN")
	}
	if math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return fmt.Errorf("coordinates cannot be infinite")
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180")
	}
	return nil
}

// ValidateName checks if a name is valid (non-empty, within length limits).
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("name cannot be empty or whitespace")
	}
	if len(name) > 255 {
		return fmt.Errorf("name too long (max 255 characters)")
	}
	return nil
}

// Candidate is a location that has not been confirmed as a user choice.
// Empty strings and a zero ID mean the field is absent.
type Candidate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	Country   string  `json:"country,omitempty"`
	Admin1    string  `json:"admin1,omitempty"`
	Admin2    string  `json:"admin2,omitempty"`
	ID        int64   `json:"id,omitempty"`
}

// Validate checks the candidate's coordinates.
func (c Candidate) Validate() error {
	return ValidateCoordinates(c.Latitude, c.Longitude)
}

// HasIdentity reports whether the candidate is a previously known place
// rather than a bare coordinate pair.
func (c Candidate) HasIdentity() bool {
	return c.ID != 0 && ValidateName(c.Name) == nil
}

// Coordinates formats the coordinate pair for display.
func (c Candidate) Coordinates() string {
	return fmt.Sprintf("(%.4f, %.4f)", c.Latitude, c.Longitude)
}

// Label returns "Name, Region, Country", falling back to coordinates for unnamed candidates.
func (c Candidate) Label() string {
	if c.Name == "" {
		return c.Coordinates()
	}
	parts := []string{c.Name}
	if c.Admin1 != "" && c.Admin1 != c.Name {
		parts = append(parts, c.Admin1)
	}
	if c.Country != "" {
		parts = append(parts, c.Country)
	}
	return strings.Join(parts, ", ")
}

// SavedLocation is a candidate the user explicitly kept.
// ID, Name, and Country are mandatory.
type SavedLocation struct {
	Candidate
	IsDefault bool `json:"isDefault,omitempty"`
}

// Validate checks the mandatory fields of a saved location.
func (s SavedLocation) Validate() error {
	if err := s.Candidate.Validate(); err != nil {
		return err
	}
	if s.ID == 0 {
		return fmt.Errorf("saved location requires an id")
	}
	if err := ValidateName(s.Name); err != nil {
		return err
	}
	if strings.TrimSpace(s.Country) == "" {
		return fmt.Errorf("saved location requires a country")
	}
	return nil
}

// ValidateRecent checks an entry of the recent list. Recent entries need an
// identity but, unlike saved ones, no country.
func (s SavedLocation) ValidateRecent() error {
	if err := s.Candidate.Validate(); err != nil {
		return err
	}
	if !s.HasIdentity() {
		return fmt.Errorf("recent location requires an id and a name")
	}
	return nil
}

// Source records how the active location was established.
type Source string

// Source tags.
const (
	SourceDefault     Source = "default"
	SourceSaved       Source = "saved"
	SourceRecent      Source = "recent"
	SourceSearch      Source = "search"
	SourceGeolocation Source = "geolocation"
	SourceIPLocation  Source = "ip-location"
	SourceFallback    Source = "fallback"
)

var sources = []Source{
	SourceDefault, SourceSaved, SourceRecent, SourceSearch,
	SourceGeolocation, SourceIPLocation, SourceFallback,
}

// ParseSource converts a string to a Source.
func ParseSource(s string) (Source, error) {
	for _, src := range sources {
		if string(src) == s {
			return src, nil
		}
	}
	return "", fmt.Errorf("unknown source %q", s)
}

// ActiveLocation is the single location the app currently shows weather for.
type ActiveLocation struct {
	Candidate
	Source Source `json:"source"`
}

// Position is a device-reported coordinate pair.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// IPLocation is the result of an IP-based geolocation lookup.
type IPLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Region    string  `json:"region"`
}

// Candidate converts the lookup result into a location candidate.
func (l IPLocation) Candidate() Candidate {
	return Candidate{
		Latitude:  l.Latitude,
		Longitude: l.Longitude,
		Name:      l.Name,
		Country:   l.Country,
		Admin1:    l.Region,
	}
}
