// ABOUTME: skycast configuration management with backend selection
// ABOUTME: Loads JSON config, .env files, and SKYCAST_* environment overrides

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/harper/skycast/internal/charm"
	"github.com/harper/skycast/internal/models"
	"github.com/harper/skycast/internal/storage"
)

// Backend names.
const (
	BackendBadger = "badger"
	BackendCharm  = "charm"
	BackendMemory = "memory"
)

// Geocoder names.
const (
	GeocoderOpenMeteo = "open-meteo"
	GeocoderGoogle    = "google"
	GeocoderNone      = "none"
)

// IP lookup names.
const (
	IPLookupIPAPI = "ipapi"
	IPLookupNone  = "none"
)

// Config stores skycast configuration.
type Config struct {
	// Backend selects the durable store: "badger" (default), "charm", or "memory".
	Backend string `json:"backend,omitempty"`

	// DataDir is the root directory for data storage.
	// Badger puts its files in DataDir/badger, the legacy store is DataDir/legacy.db.
	// Supports ~ expansion for home directory. Defaults to ~/.local/share/skycast.
	DataDir string `json:"data_dir,omitempty"`

	CharmHost string `json:"charm_host,omitempty"`

	// Geocoder selects the geocoding provider: "open-meteo" (default), "google", or "none".
	Geocoder     string `json:"geocoder,omitempty"`
	GoogleAPIKey string `json:"google_api_key,omitempty"`

	// IPLookup selects the IP geolocation provider: "ipapi" (default) or "none".
	IPLookup string `json:"ip_lookup,omitempty"`

	// Device is a fixed "lat,lon" standing in for device geolocation.
	// Empty means no device position is available.
	Device string `json:"device,omitempty"`

	// Fallback overrides the last-resort location.
	Fallback *models.Candidate `json:"fallback,omitempty"`

	// Endpoint overrides for self-hosted or mirrored providers. Empty uses the public APIs.
	GeocodeURL  string `json:"geocode_url,omitempty"`
	ReverseURL  string `json:"reverse_url,omitempty"`
	ForecastURL string `json:"forecast_url,omitempty"`
	IPLookupURL string `json:"ip_lookup_url,omitempty"`

	Units           string `json:"units,omitempty"`
	Port            int    `json:"port,omitempty"`
	RefreshInterval string `json:"refresh_interval,omitempty"`
	CacheTTL        string `json:"cache_ttl,omitempty"`
	LogLevel        string `json:"log_level,omitempty"`
}

// overrides are the environment variables applied on top of the config file.
type overrides struct {
	Backend         string `env:"SKYCAST_BACKEND"`
	DataDir         string `env:"SKYCAST_DATA_DIR"`
	CharmHost       string `env:"CHARM_HOST"`
	Geocoder        string `env:"SKYCAST_GEOCODER"`
	GoogleAPIKey    string `env:"GOOGLE_MAPS_API_KEY"`
	IPLookup        string `env:"SKYCAST_IP_LOOKUP"`
	Device          string `env:"SKYCAST_DEVICE"`
	GeocodeURL      string `env:"SKYCAST_GEOCODE_URL"`
	ReverseURL      string `env:"SKYCAST_REVERSE_URL"`
	ForecastURL     string `env:"SKYCAST_FORECAST_URL"`
	IPLookupURL     string `env:"SKYCAST_IP_LOOKUP_URL"`
	Units           string `env:"SKYCAST_UNITS"`
	Port            int    `env:"SKYCAST_PORT"`
	RefreshInterval string `env:"SKYCAST_REFRESH_INTERVAL"`
	CacheTTL        string `env:"SKYCAST_CACHE_TTL"`
	LogLevel        string `env:"SKYCAST_LOG_LEVEL"`
}

// DefaultFallback is New York City, used when nothing else resolves.
var DefaultFallback = models.Candidate{
	Latitude:  40.7128,
	Longitude: -74.0060,
	Name:      "New York",
	Country:   "United States",
	Admin1:    "New York",
	ID:        5128581,
}

// GetBackend returns the configured backend, defaulting to "badger".
func (c *Config) GetBackend() string {
	if c.Backend == "" {
		return BackendBadger
	}
	return c.Backend
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return defaultDataDir()
	}
	return ExpandPath(c.DataDir)
}

// GetGeocoder returns the configured geocoder, defaulting to Open-Meteo.
func (c *Config) GetGeocoder() string {
	if c.Geocoder == "" {
		return GeocoderOpenMeteo
	}
	return c.Geocoder
}

// GetIPLookup returns the configured IP lookup provider, defaulting to ipapi.
func (c *Config) GetIPLookup() string {
	if c.IPLookup == "" {
		return IPLookupIPAPI
	}
	return c.IPLookup
}

// GetUnits returns "metric" or "imperial".
func (c *Config) GetUnits() string {
	if c.Units == "imperial" {
		return "imperial"
	}
	return "metric"
}

// GetPort returns the HTTP API port.
func (c *Config) GetPort() int {
	if c.Port <= 0 {
		return 8080
	}
	return c.Port
}

// GetRefreshInterval returns how often the forecast watcher refreshes.
func (c *Config) GetRefreshInterval() time.Duration {
	return parseDuration(c.RefreshInterval, 15*time.Minute)
}

// GetCacheTTL returns how long geocoding results are cached.
func (c *Config) GetCacheTTL() time.Duration {
	return parseDuration(c.CacheTTL, 24*time.Hour)
}

// GetFallback returns the configured fallback or New York.
func (c *Config) GetFallback() models.Candidate {
	if c.Fallback != nil && c.Fallback.Validate() == nil {
		return *c.Fallback
	}
	return DefaultFallback
}

// GetDevice parses the configured device position.
// Returns nil when none is configured.
func (c *Config) GetDevice() (*models.Position, error) {
	if strings.TrimSpace(c.Device) == "" {
		return nil, nil
	}
	parts := strings.Split(c.Device, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("device must be \"lat,lon\", got %q", c.Device)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, fmt.Errorf("device latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, fmt.Errorf("device longitude: %w", err)
	}
	if err := models.ValidateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	return &models.Position{Latitude: lat, Longitude: lon}, nil
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// defaultDataDir returns the default XDG data directory for skycast.
func defaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "skycast")
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// BadgerDir returns the directory of the badger store.
func (c *Config) BadgerDir() string {
	return filepath.Join(c.GetDataDir(), "badger")
}

// LegacyPath returns the legacy plain store database path.
func (c *Config) LegacyPath() string {
	return filepath.Join(c.GetDataDir(), "legacy.db")
}

// OpenDurable creates the durable store for the named backend.
func (c *Config) OpenDurable(backend string) (storage.KeyValueStore, error) {
	switch backend {
	case BackendBadger:
		return storage.NewBadgerStore(c.BadgerDir())
	case BackendCharm:
		cfg := charm.DefaultConfig()
		if c.CharmHost != "" {
			cfg.CharmHost = c.CharmHost
		}
		return charm.NewStore(cfg)
	case BackendMemory:
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown backend: %q", backend)
	}
}

// OpenStores opens the durable store and the legacy plain store.
// The memory backend pairs with an in-memory plain store so nothing touches disk.
func (c *Config) OpenStores() (storage.KeyValueStore, storage.PlainStore, error) {
	backend := c.GetBackend()
	durable, err := c.OpenDurable(backend)
	if err != nil {
		return nil, nil, err
	}
	if backend == BackendMemory {
		return durable, storage.NewMemoryPlainStore(), nil
	}

	plain, err := storage.NewSQLitePlainStore(c.LegacyPath())
	if err != nil {
		_ = durable.Close()
		return nil, nil, fmt.Errorf("open legacy store: %w", err)
	}
	return durable, plain, nil
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "skycast", "config.json")
}

// Load reads config from disk, then applies .env and environment overrides.
func Load() (*Config, error) {
	cfg, err := loadFile()
	if err != nil {
		return nil, err
	}
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile() (*Config, error) {
	path := GetConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := &Config{Backend: BackendBadger}
			if saveErr := cfg.Save(); saveErr != nil {
				fmt.Fprintf(os.Stderr, "warning: could not save default config: %v\n", saveErr)
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv loads SKYCAST_ENV_FILE, or ./.env when present.
// Variables already set in the environment win.
func loadDotEnv() error {
	path := os.Getenv("SKYCAST_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var o overrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Backend, o.Backend)
	set(&c.DataDir, o.DataDir)
	set(&c.CharmHost, o.CharmHost)
	set(&c.Geocoder, o.Geocoder)
	set(&c.GoogleAPIKey, o.GoogleAPIKey)
	set(&c.IPLookup, o.IPLookup)
	set(&c.GeocodeURL, o.GeocodeURL)
	set(&c.ReverseURL, o.ReverseURL)
	set(&c.ForecastURL, o.ForecastURL)
	set(&c.IPLookupURL, o.IPLookupURL)
	set(&c.Device, o.Device)
	set(&c.Units, o.Units)
	set(&c.RefreshInterval, o.RefreshInterval)
	set(&c.CacheTTL, o.CacheTTL)
	set(&c.LogLevel, o.LogLevel)
	if o.Port > 0 {
		c.Port = o.Port
	}
	return nil
}

// Save writes config to disk atomically.
func (c *Config) Save() error {
	path := GetConfigPath()
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(path, data)
}

func atomicWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil { //nolint:gosec // 0750 is appropriate for user config directory
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
