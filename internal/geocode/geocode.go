// ABOUTME: Geocoding providers for place search and reverse lookups
// ABOUTME: Shared errors, the offline provider, and helpers

package geocode

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/harper/skycast/internal/models"
)

// ErrDisabled is returned by the offline provider.
var ErrDisabled = errors.New("geocoding disabled")

// ErrEmptyQuery is returned when searching for blank text.
var ErrEmptyQuery = errors.New("search query is empty")

// Disabled never reaches the network.
type Disabled struct{}

// Search always fails with ErrDisabled.
func (Disabled) Search(context.Context, string) ([]models.Candidate, error) {
	return nil, ErrDisabled
}

// Reverse always fails with ErrDisabled.
func (Disabled) Reverse(context.Context, float64, float64) (*models.Candidate, error) {
	return nil, ErrDisabled
}

// normalizeQuery lowercases and collapses whitespace.
func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// coordKey rounds to three decimals (about 100m) so nearby lookups share a cache entry.
func coordKey(lat, lon float64) string {
	return fmt.Sprintf("%.3f,%.3f", lat, lon)
}

// SyntheticIDBase is the lowest synthetic ID. GeoNames IDs stay far below it.
const SyntheticIDBase int64 = 1 << 60

// SyntheticID derives a stable ID for providers that return no place ID, so the
// result can still be saved. IDs are positive so they work as CLI arguments.
func SyntheticID(lat, lon float64) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(coordKey(lat, lon)))
	return SyntheticIDBase | int64(h.Sum64()&uint64(SyntheticIDBase-1))
}

// IsSyntheticID reports whether id came from SyntheticID.
func IsSyntheticID(id int64) bool {
	return id >= SyntheticIDBase
}
