// ABOUTME: Google Maps geocoding provider
// ABOUTME: Wraps kelvins/geocoder, which keeps its API key in a package global

package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/kelvins/geocoder"

	"github.com/harper/skycast/internal/logging"
	"github.com/harper/skycast/internal/models"
)

// ErrNoAPIKey is returned when the Google provider has no key.
var ErrNoAPIKey = errors.New("google maps api key not configured")

// googleMu guards geocoder.ApiKey, which the library reads on every call.
var googleMu sync.Mutex

// Google resolves places through the Google Geocoding API.
// Results carry a SyntheticID since Google returns no numeric place ID.
type Google struct {
	apiKey string
	logger *log.Logger

	// Overridable for tests.
	forward func(geocoder.Address) (geocoder.Location, error)
	reverse func(geocoder.Location) ([]geocoder.Address, error)
}

// NewGoogle creates a Google provider.
func NewGoogle(apiKey string, logger *log.Logger) *Google {
	return &Google{
		apiKey:  apiKey,
		logger:  logging.OrDiscard(logger),
		forward: geocoder.Geocoding,
		reverse: geocoder.GeocodingReverse,
	}
}

// Search geocodes query into a single candidate.
func (g *Google) Search(ctx context.Context, query string) ([]models.Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if g.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	loc, err := callWithContext(ctx, func() (geocoder.Location, error) {
		googleMu.Lock()
		defer googleMu.Unlock()
		geocoder.ApiKey = g.apiKey
		return g.forward(geocoder.Address{City: query})
	})
	if err != nil {
		return nil, fmt.Errorf("google search %q: %w", query, err)
	}
	if err := models.ValidateCoordinates(loc.Latitude, loc.Longitude); err != nil {
		return nil, fmt.Errorf("google search %q: %w", query, err)
	}

	c := models.Candidate{Latitude: loc.Latitude, Longitude: loc.Longitude, Name: query}
	if named, err := g.Reverse(ctx, loc.Latitude, loc.Longitude); err == nil && named != nil {
		c = *named
	} else if err != nil {
		g.logger.Debug("google reverse after search failed", "query", query, "err", err)
	}
	c.ID = SyntheticID(c.Latitude, c.Longitude)
	return []models.Candidate{c}, nil
}

// Reverse names the place at the coordinates.
func (g *Google) Reverse(ctx context.Context, lat, lon float64) (*models.Candidate, error) {
	if g.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if err := models.ValidateCoordinates(lat, lon); err != nil {
		return nil, err
	}

	addrs, err := callWithContext(ctx, func() ([]geocoder.Address, error) {
		googleMu.Lock()
		defer googleMu.Unlock()
		geocoder.ApiKey = g.apiKey
		return g.reverse(geocoder.Location{Latitude: lat, Longitude: lon})
	})
	if err != nil {
		return nil, fmt.Errorf("google reverse %s: %w", coordKey(lat, lon), err)
	}

	for _, a := range addrs {
		if a.City == "" {
			continue
		}
		return &models.Candidate{
			Latitude:  lat,
			Longitude: lon,
			Name:      a.City,
			Country:   a.Country,
			Admin1:    a.State,
			Admin2:    a.County,
		}, nil
	}
	return nil, nil
}

// callWithContext runs fn, which cannot be cancelled, and stops waiting when ctx ends.
func callWithContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
