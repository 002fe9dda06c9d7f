// ABOUTME: Open-Meteo place search with Nominatim reverse geocoding
// ABOUTME: Default geocoder; both endpoints go through the resilient HTTP client

package geocode

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/harper/skycast/internal/httpclient"
	"github.com/harper/skycast/internal/logging"
	"github.com/harper/skycast/internal/models"
)

const (
	DefaultSearchURL  = "https://geocoding-api.open-meteo.com/v1/search"
	DefaultReverseURL = "https://nominatim.openstreetmap.org/reverse"
)

// OpenMeteoOptions configures OpenMeteo.
type OpenMeteoOptions struct {
	SearchURL  string
	ReverseURL string
	Language   string
	Count      int
	Logger     *log.Logger
	// Search and Reverse override the HTTP clients, mostly for tests.
	Search  *httpclient.Client
	Reverse *httpclient.Client
}

// OpenMeteo searches the Open-Meteo geocoding API and reverse geocodes through Nominatim.
type OpenMeteo struct {
	searchURL  string
	reverseURL string
	language   string
	count      int
	search     *httpclient.Client
	reverse    *httpclient.Client
	logger     *log.Logger
}

// NewOpenMeteo creates the default geocoder.
func NewOpenMeteo(opts OpenMeteoOptions) *OpenMeteo {
	logger := logging.OrDiscard(opts.Logger)
	if opts.SearchURL == "" {
		opts.SearchURL = DefaultSearchURL
	}
	if opts.ReverseURL == "" {
		opts.ReverseURL = DefaultReverseURL
	}
	if opts.Language == "" {
		opts.Language = "en"
	}
	if opts.Count <= 0 {
		opts.Count = 10
	}
	if opts.Search == nil {
		opts.Search = httpclient.New(httpclient.Options{Name: "open-meteo-geocoding", Logger: logger})
	}
	if opts.Reverse == nil {
		opts.Reverse = httpclient.New(httpclient.Options{Name: "nominatim", Logger: logger})
	}
	return &OpenMeteo{
		searchURL:  opts.SearchURL,
		reverseURL: opts.ReverseURL,
		language:   opts.Language,
		count:      opts.Count,
		search:     opts.Search,
		reverse:    opts.Reverse,
		logger:     logger,
	}
}

type searchResponse struct {
	Results []struct {
		ID        int64   `json:"id"`
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Country   string  `json:"country"`
		Admin1    string  `json:"admin1"`
		Admin2    string  `json:"admin2"`
	} `json:"results"`
}

// Search finds places by name. No match returns an empty slice.
func (o *OpenMeteo) Search(ctx context.Context, query string) ([]models.Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	params := url.Values{}
	params.Set("name", query)
	params.Set("count", strconv.Itoa(o.count))
	params.Set("language", o.language)
	params.Set("format", "json")

	var resp searchResponse
	if err := o.search.GetJSON(ctx, o.searchURL, params, &resp); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	out := make([]models.Candidate, 0, len(resp.Results))
	for _, r := range resp.Results {
		c := models.Candidate{
			ID:        r.ID,
			Name:      r.Name,
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
			Country:   r.Country,
			Admin1:    r.Admin1,
			Admin2:    r.Admin2,
		}
		if err := c.Validate(); err != nil {
			o.logger.Debug("skipping search result", "name", r.Name, "err", err)
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

type reverseResponse struct {
	Name    string `json:"name"`
	Error   string `json:"error"`
	Address struct {
		City         string `json:"city"`
		Town         string `json:"town"`
		Village      string `json:"village"`
		Municipality string `json:"municipality"`
		County       string `json:"county"`
		State        string `json:"state"`
		Country      string `json:"country"`
	} `json:"address"`
}

// Reverse names the place at the coordinates. Returns nil, nil when Nominatim knows nothing.
func (o *OpenMeteo) Reverse(ctx context.Context, lat, lon float64) (*models.Candidate, error) {
	if err := models.ValidateCoordinates(lat, lon); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	params.Set("format", "jsonv2")
	params.Set("zoom", "10")
	params.Set("addressdetails", "1")
	params.Set("accept-language", o.language)

	var resp reverseResponse
	if err := o.reverse.GetJSON(ctx, o.reverseURL, params, &resp); err != nil {
		return nil, fmt.Errorf("reverse %s: %w", coordKey(lat, lon), err)
	}
	if resp.Error != "" {
		o.logger.Debug("reverse lookup found nothing", "coords", coordKey(lat, lon), "reason", resp.Error)
		return nil, nil
	}

	name := firstNonEmpty(resp.Address.City, resp.Address.Town, resp.Address.Village, resp.Address.Municipality, resp.Name)
	if name == "" {
		return nil, nil
	}
	return &models.Candidate{
		Latitude:  lat,
		Longitude: lon,
		Name:      name,
		Country:   resp.Address.Country,
		Admin1:    resp.Address.State,
		Admin2:    resp.Address.County,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
