// ABOUTME: Wires config into storage, providers, and the resolver
// ABOUTME: Shared by every command that reads or changes locations

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/harper/skycast/internal/config"
	"github.com/harper/skycast/internal/forecast"
	"github.com/harper/skycast/internal/geocode"
	"github.com/harper/skycast/internal/geolocate"
	"github.com/harper/skycast/internal/persist"
	"github.com/harper/skycast/internal/resolver"
	"github.com/harper/skycast/internal/storage"
)

const geocodeCacheSize = 512

// App holds the opened stores and the resolver built on them.
type App struct {
	Resolver *resolver.Resolver
	Forecast forecast.Fetcher
	Units    forecast.Units

	durable storage.KeyValueStore
	plain   storage.PlainStore
	logger  *log.Logger
}

// NewApp opens storage and builds collaborators from cfg.
func NewApp(cfg *config.Config, logger *log.Logger) (*App, error) {
	durable, plain, err := cfg.OpenStores()
	if err != nil {
		return nil, err
	}
	app, err := newAppWithStores(cfg, logger, durable, plain)
	if err != nil {
		_ = durable.Close()
		_ = plain.Close()
		return nil, err
	}
	return app, nil
}

func newAppWithStores(cfg *config.Config, logger *log.Logger, durable storage.KeyValueStore, plain storage.PlainStore) (*App, error) {
	units, err := forecast.ParseUnits(cfg.GetUnits())
	if err != nil {
		return nil, err
	}
	geocoder, err := buildGeocoder(cfg, logger)
	if err != nil {
		return nil, err
	}
	device, err := buildDevice(cfg)
	if err != nil {
		return nil, err
	}

	r := resolver.New(resolver.Options{
		Persistence: persist.NewStore(durable, plain, logger),
		Geocoder:    geocoder,
		Device:      device,
		IP:          buildIPLocator(cfg, logger),
		Fallback:    cfg.GetFallback(),
		Logger:      logger,
	})

	return &App{
		Resolver: r,
		Forecast: forecast.NewOpenMeteo(forecast.OpenMeteoOptions{URL: cfg.ForecastURL, Logger: logger}),
		Units:    units,
		durable:  durable,
		plain:    plain,
		logger:   logger,
	}, nil
}

func buildGeocoder(cfg *config.Config, logger *log.Logger) (resolver.Geocoder, error) {
	var g geocode.Geocoder
	switch cfg.GetGeocoder() {
	case config.GeocoderOpenMeteo:
		g = geocode.NewOpenMeteo(geocode.OpenMeteoOptions{
			SearchURL:  cfg.GeocodeURL,
			ReverseURL: cfg.ReverseURL,
			Logger:     logger,
		})
	case config.GeocoderGoogle:
		g = geocode.NewGoogle(cfg.GoogleAPIKey, logger)
	case config.GeocoderNone:
		return geocode.Disabled{}, nil
	default:
		return nil, fmt.Errorf("unknown geocoder: %q", cfg.GetGeocoder())
	}
	return geocode.NewCached(g, geocodeCacheSize, cfg.GetCacheTTL()), nil
}

// buildDevice returns nil when no device position is configured.
func buildDevice(cfg *config.Config) (resolver.DeviceLocator, error) {
	pos, err := cfg.GetDevice()
	if err != nil {
		return nil, err
	}
	if pos == nil {
		return nil, nil
	}
	return geolocate.Fixed{Position: *pos}, nil
}

func buildIPLocator(cfg *config.Config, logger *log.Logger) resolver.IPLocator {
	if cfg.GetIPLookup() == config.IPLookupIPAPI {
		return geolocate.NewIPAPI(cfg.IPLookupURL, nil, logger)
	}
	return nil
}

// Weather fetches a forecast for the active location in the configured units.
func (a *App) Weather(ctx context.Context) (forecast.Report, error) {
	active, ok := a.Resolver.Active()
	if !ok {
		return forecast.Report{}, forecast.ErrNoReport
	}
	report, err := a.Forecast.Fetch(ctx, active.Candidate)
	if err != nil {
		return forecast.Report{}, err
	}
	return report.Convert(a.Units), nil
}

// Close flushes pending writes and closes the stores.
func (a *App) Close() error {
	err := a.Resolver.Close()
	if cerr := a.durable.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("close durable store: %w", cerr))
	}
	if cerr := a.plain.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("close legacy store: %w", cerr))
	}
	return err
}
