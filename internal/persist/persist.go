// ABOUTME: Persistence adapter over the durable and legacy stores
// ABOUTME: Loads resolver state once, migrating legacy values into the durable store

package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/harper/skycast/internal/logging"
	"github.com/harper/skycast/internal/models"
	"github.com/harper/skycast/internal/storage"
)

// Key names a persisted value.
type Key string

const (
	KeySaved   Key = "savedLocations"
	KeyDefault Key = "defaultLocation"
	KeyRecent  Key = "recentLocations"
	// KeyLast lives only in the plain store.
	KeyLast Key = "lastLocation"
)

// DurableKeys are the keys held by the durable store.
var DurableKeys = []Key{KeySaved, KeyDefault, KeyRecent}

// State is everything the resolver restores at startup.
type State struct {
	Saved   []models.SavedLocation
	Default *models.SavedLocation
	Recent  []models.SavedLocation
	Last    *models.Candidate
}

// Store reads and writes resolver state.
type Store struct {
	durable storage.KeyValueStore
	plain   storage.PlainStore
	logger  *log.Logger
}

// NewStore creates a Store. plain may be nil when no legacy store exists.
func NewStore(durable storage.KeyValueStore, plain storage.PlainStore, logger *log.Logger) *Store {
	return &Store{
		durable: durable,
		plain:   plain,
		logger:  logging.OrDiscard(logger),
	}
}

// Load reads every key. It never fails: unreadable or malformed values are
// logged and come back empty.
func (s *Store) Load(ctx context.Context) State {
	var st State

	var saved []models.SavedLocation
	if s.loadDurable(ctx, KeySaved, &saved) {
		st.Saved = cleanList(saved, 0, models.SavedLocation.Validate, s.logger, KeySaved)
	}

	var def *models.SavedLocation
	if s.loadDurable(ctx, KeyDefault, &def) && def != nil {
		if err := def.Validate(); err != nil {
			s.logger.Warn("ignoring invalid default location", "err", err)
		} else {
			def.IsDefault = true
			st.Default = def
		}
	}

	var recent []models.SavedLocation
	if s.loadDurable(ctx, KeyRecent, &recent) {
		st.Recent = cleanList(recent, models.RecentCapacity, models.SavedLocation.ValidateRecent, s.logger, KeyRecent)
	}

	st.Last = s.loadLast()
	return st
}

// loadDurable decodes key into dst, preferring the durable store and falling back
// to the legacy plain store. A legacy hit is copied into the durable store.
// Returns false when nothing usable was found.
func (s *Store) loadDurable(ctx context.Context, key Key, dst any) bool {
	data, getErr := s.durable.Get(ctx, string(key))
	switch {
	case getErr == nil:
		if err := json.Unmarshal(data, dst); err != nil {
			s.logger.Warn("malformed stored value", "key", key, "err", err)
			return false
		}
		return true
	case errors.Is(getErr, storage.ErrNotFound):
	default:
		s.logger.Warn("durable store read failed", "key", key, "err", getErr)
	}

	raw, ok := s.readPlain(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.logger.Warn("malformed legacy value", "key", key, "err", err)
		return false
	}

	// Migrate only when the durable store answered.
	if errors.Is(getErr, storage.ErrNotFound) {
		if err := s.durable.Set(ctx, string(key), []byte(raw)); err != nil {
			s.logger.Warn("legacy migration failed", "key", key, "err", err)
		} else {
			s.logger.Info("migrated legacy value", "key", key)
		}
	}
	return true
}

func (s *Store) loadLast() *models.Candidate {
	raw, ok := s.readPlain(KeyLast)
	if !ok {
		return nil
	}
	var c models.Candidate
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		s.logger.Warn("malformed last location", "err", err)
		return nil
	}
	if err := c.Validate(); err != nil {
		s.logger.Warn("ignoring invalid last location", "err", err)
		return nil
	}
	return &c
}

func (s *Store) readPlain(key Key) (string, bool) {
	if s.plain == nil {
		return "", false
	}
	raw, err := s.plain.Get(string(key))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("legacy store read failed", "key", key, "err", err)
		}
		return "", false
	}
	if raw == "" {
		return "", false
	}
	return raw, true
}

// Save encodes value as JSON and writes it under key.
// A nil default is written as JSON null so the legacy copy stays shadowed.
func (s *Store) Save(ctx context.Context, key Key, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	if key == KeyLast {
		if s.plain == nil {
			return nil
		}
		return s.plain.Set(string(key), string(data))
	}
	return s.durable.Set(ctx, string(key), data)
}

// cleanList drops entries failing validate and duplicates, and truncates to limit (0 = no limit).
func cleanList(in []models.SavedLocation, limit int, validate func(models.SavedLocation) error, logger *log.Logger, key Key) []models.SavedLocation {
	out := make([]models.SavedLocation, 0, len(in))
	seen := make(map[int64]bool, len(in))
	for _, loc := range in {
		if err := validate(loc); err != nil {
			logger.Warn("dropping invalid stored location", "key", key, "err", err)
			continue
		}
		if seen[loc.ID] {
			continue
		}
		seen[loc.ID] = true
		out = append(out, loc)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
