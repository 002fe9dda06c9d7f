// ABOUTME: Device and IP geolocation providers
// ABOUTME: Fixed and unavailable device sources plus an ipapi.co lookup

package geolocate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/harper/skycast/internal/httpclient"
	"github.com/harper/skycast/internal/logging"
	"github.com/harper/skycast/internal/models"
)

// ErrUnavailable is returned when no position source exists.
var ErrUnavailable = errors.New("location unavailable")

// DefaultIPAPIURL is the ipapi.co JSON endpoint.
const DefaultIPAPIURL = "https://ipapi.co/json/"

// Fixed reports a configured position, standing in for a device GPS.
type Fixed struct {
	Position models.Position
}

// CurrentPosition returns the configured position unless ctx is already done.
func (f Fixed) CurrentPosition(ctx context.Context) (models.Position, error) {
	if err := ctx.Err(); err != nil {
		return models.Position{}, err
	}
	return f.Position, nil
}

// Unavailable has no position, like a device that denied permission.
type Unavailable struct{}

// CurrentPosition always fails.
func (Unavailable) CurrentPosition(context.Context) (models.Position, error) {
	return models.Position{}, ErrUnavailable
}

// Lookup always fails.
func (Unavailable) Lookup(context.Context) (models.IPLocation, error) {
	return models.IPLocation{}, ErrUnavailable
}

// IPAPI looks up the caller's public IP with ipapi.co.
type IPAPI struct {
	url    string
	client *httpclient.Client
	logger *log.Logger
}

// NewIPAPI creates an IP locator. Empty url uses DefaultIPAPIURL; nil client builds one.
func NewIPAPI(url string, client *httpclient.Client, logger *log.Logger) *IPAPI {
	logger = logging.OrDiscard(logger)
	if url == "" {
		url = DefaultIPAPIURL
	}
	if client == nil {
		client = httpclient.New(httpclient.Options{Name: "ipapi", Logger: logger})
	}
	return &IPAPI{url: url, client: client, logger: logger}
}

type ipapiResponse struct {
	IP          string  `json:"ip"`
	City        string  `json:"city"`
	Region      string  `json:"region"`
	CountryName string  `json:"country_name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Error       bool    `json:"error"`
	Reason      string  `json:"reason"`
}

// Lookup returns the estimated location of the public IP.
func (p *IPAPI) Lookup(ctx context.Context) (models.IPLocation, error) {
	var resp ipapiResponse
	if err := p.client.GetJSON(ctx, p.url, nil, &resp); err != nil {
		return models.IPLocation{}, fmt.Errorf("ip lookup: %w", err)
	}
	if resp.Error {
		return models.IPLocation{}, fmt.Errorf("ip lookup: %s", strings.TrimSpace(resp.Reason))
	}
	if resp.Latitude == 0 && resp.Longitude == 0 {
		return models.IPLocation{}, fmt.Errorf("ip lookup: %w", ErrUnavailable)
	}
	if err := models.ValidateCoordinates(resp.Latitude, resp.Longitude); err != nil {
		return models.IPLocation{}, fmt.Errorf("ip lookup: %w", err)
	}

	p.logger.Debug("ip lookup", "city", resp.City, "country", resp.CountryName)
	return models.IPLocation{
		Latitude:  resp.Latitude,
		Longitude: resp.Longitude,
		Name:      resp.City,
		Country:   resp.CountryName,
		Region:    resp.Region,
	}, nil
}
