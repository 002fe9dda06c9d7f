// ABOUTME: GeoJSON export of saved and recent locations
// ABOUTME: Saved places become Points and the recent history a LineString trail

package geojson

import (
	"encoding/json"

	"github.com/harper/skycast/internal/models"
)

// FeatureCollection represents a GeoJSON FeatureCollection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature represents a GeoJSON Feature.
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   Geometry               `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// Geometry represents a GeoJSON Geometry.
type Geometry struct {
	Type        string      `json:"type"`
	Coordinates interface{} `json:"coordinates"`
}

// PointCoordinates represents [longitude, latitude] for a Point.
type PointCoordinates [2]float64

// LineCoordinates represents [[lng, lat], [lng, lat], ...] for a LineString.
type LineCoordinates []PointCoordinates

func point(c models.Candidate) PointCoordinates {
	return PointCoordinates{c.Longitude, c.Latitude}
}

func properties(c models.Candidate) map[string]interface{} {
	props := map[string]interface{}{
		"id":    c.ID,
		"name":  c.Name,
		"label": c.Label(),
	}
	if c.Country != "" {
		props["country"] = c.Country
	}
	if c.Admin1 != "" {
		props["admin1"] = c.Admin1
	}
	return props
}

// SavedPoints converts saved locations to a FeatureCollection of Points.
func SavedPoints(saved []models.SavedLocation) *FeatureCollection {
	features := make([]Feature, 0, len(saved))
	for _, loc := range saved {
		props := properties(loc.Candidate)
		props["is_default"] = loc.IsDefault

		features = append(features, Feature{
			Type:       "Feature",
			Geometry:   Geometry{Type: "Point", Coordinates: point(loc.Candidate)},
			Properties: props,
		})
	}
	return &FeatureCollection{Type: "FeatureCollection", Features: features}
}

// RecentTrail converts the recent list to Points plus a LineString from oldest to newest.
// The line is omitted with fewer than 2 entries.
func RecentTrail(recent []models.SavedLocation) *FeatureCollection {
	features := make([]Feature, 0, len(recent)+1)
	for i, loc := range recent {
		props := properties(loc.Candidate)
		props["rank"] = i + 1

		features = append(features, Feature{
			Type:       "Feature",
			Geometry:   Geometry{Type: "Point", Coordinates: point(loc.Candidate)},
			Properties: props,
		})
	}

	if len(recent) >= 2 {
		coords := make(LineCoordinates, len(recent))
		for i, loc := range recent {
			// recent is newest first
			coords[len(recent)-1-i] = point(loc.Candidate)
		}
		features = append(features, Feature{
			Type:     "Feature",
			Geometry: Geometry{Type: "LineString", Coordinates: coords},
			Properties: map[string]interface{}{
				"name":        "recent",
				"point_count": len(recent),
			},
		})
	}

	return &FeatureCollection{Type: "FeatureCollection", Features: features}
}

// ToJSON serializes a FeatureCollection to JSON.
func (fc *FeatureCollection) ToJSON() ([]byte, error) {
	return json.Marshal(fc)
}

// ToJSONIndent serializes a FeatureCollection to indented JSON.
func (fc *FeatureCollection) ToJSONIndent() ([]byte, error) {
	return json.MarshalIndent(fc, "", "  ")
}
