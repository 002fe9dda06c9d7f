// ABOUTME: TTL cache in front of any geocoder
// ABOUTME: Keys searches by normalized text and reverse lookups by rounded coordinates

package geocode

import (
	"context"
	"time"

	"github.com/maypok86/otter/v2"

	"github.com/harper/skycast/internal/models"
)

// Geocoder is the provider contract shared by every implementation here.
type Geocoder interface {
	Search(ctx context.Context, query string) ([]models.Candidate, error)
	Reverse(ctx context.Context, lat, lon float64) (*models.Candidate, error)
}

var (
	_ Geocoder = Disabled{}
	_ Geocoder = (*OpenMeteo)(nil)
	_ Geocoder = (*Google)(nil)
	_ Geocoder = (*Cached)(nil)
)

// Cached memoizes successful lookups. Errors are never cached.
type Cached struct {
	next     Geocoder
	searches *otter.Cache[string, []models.Candidate]
	reverses *otter.Cache[string, models.Candidate]
}

// NewCached wraps next with caches holding up to size entries each for ttl.
func NewCached(next Geocoder, size int, ttl time.Duration) *Cached {
	if size <= 0 {
		size = 1_000
	}
	return &Cached{
		next: next,
		searches: otter.Must(&otter.Options[string, []models.Candidate]{
			MaximumSize:      size,
			ExpiryCalculator: otter.ExpiryWriting[string, []models.Candidate](ttl),
		}),
		reverses: otter.Must(&otter.Options[string, models.Candidate]{
			MaximumSize:      size,
			ExpiryCalculator: otter.ExpiryWriting[string, models.Candidate](ttl),
		}),
	}
}

// Search returns cached results for the normalized query when present.
func (c *Cached) Search(ctx context.Context, query string) ([]models.Candidate, error) {
	key := normalizeQuery(query)
	if hit, ok := c.searches.GetIfPresent(key); ok {
		return cloneCandidates(hit), nil
	}

	res, err := c.next.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	c.searches.Set(key, cloneCandidates(res))
	return res, nil
}

// Reverse returns the cached name for nearby coordinates when present.
// Misses from the provider are not cached so a later lookup can succeed.
func (c *Cached) Reverse(ctx context.Context, lat, lon float64) (*models.Candidate, error) {
	key := coordKey(lat, lon)
	if hit, ok := c.reverses.GetIfPresent(key); ok {
		hit.Latitude, hit.Longitude = lat, lon
		return &hit, nil
	}

	res, err := c.next.Reverse(ctx, lat, lon)
	if err != nil || res == nil {
		return res, err
	}
	c.reverses.Set(key, *res)
	return res, nil
}

// Invalidate drops every cached entry.
func (c *Cached) Invalidate() {
	c.searches.InvalidateAll()
	c.reverses.InvalidateAll()
}

func cloneCandidates(in []models.Candidate) []models.Candidate {
	out := make([]models.Candidate, len(in))
	copy(out, in)
	return out
}
