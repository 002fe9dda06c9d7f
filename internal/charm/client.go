// ABOUTME: Charm KV client wrapper using transactional Do API
// ABOUTME: Durable location store synced through a Charm server

package charm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/charm/kv"

	"github.com/harper/skycast/internal/storage"
)

const (
	// DBName is the name of the Charm KV database for location data.
	DBName = "skycast"

	// DefaultCharmHost is the default Charm server to use.
	DefaultCharmHost = "charm.2389.dev"

	// KeyPrefix namespaces resolver keys inside the shared database.
	KeyPrefix = "location:"
)

var _ storage.KeyValueStore = (*Store)(nil)

// Store holds configuration for KV operations.
// It does NOT hold a persistent connection: each operation opens the
// database, performs the operation, and closes it.
type Store struct {
	dbName   string
	autoSync bool
}

// Config holds client configuration options.
type Config struct {
	// CharmHost is the Charm server to use (default: charm.2389.dev).
	CharmHost string
	// AutoSync enables automatic sync after writes.
	AutoSync bool
	// DBName overrides the database name, mostly for tests.
	DBName string
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	host := os.Getenv("CHARM_HOST")
	if host == "" {
		host = DefaultCharmHost
	}
	return &Config{
		CharmHost: host,
		AutoSync:  true,
		DBName:    DBName,
	}
}

// NewStore creates a new store with the given config.
func NewStore(cfg *Config) (*Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.CharmHost != "" {
		// Set CHARM_HOST before any KV operations
		if err := os.Setenv("CHARM_HOST", cfg.CharmHost); err != nil {
			return nil, err
		}
	}
	name := cfg.DBName
	if name == "" {
		name = DBName
	}

	return &Store{
		dbName:   name,
		autoSync: cfg.AutoSync,
	}, nil
}

// NewTestStore creates a store for testing without network access.
func NewTestStore(dbName string) *Store {
	return &Store{dbName: dbName}
}

// Get retrieves a value by key (read-only, no lock contention).
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	var val []byte
	err := kv.DoReadOnly(s.dbName, func(k *kv.KV) error {
		var err error
		val, err = k.Get([]byte(KeyPrefix + key))
		return err
	})
	if errors.Is(err, kv.ErrMissingKey) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return val, nil
}

// Set stores a value with the given key.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	if err := s.do(func(k *kv.KV) error {
		return k.Set([]byte(KeyPrefix+key), value)
	}); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes a key.
func (s *Store) Delete(_ context.Context, key string) error {
	if err := s.do(func(k *kv.KV) error {
		return k.Delete([]byte(KeyPrefix + key))
	}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Keys returns every resolver key, without the namespace prefix.
func (s *Store) Keys(_ context.Context) ([]string, error) {
	var raw [][]byte
	err := kv.DoReadOnly(s.dbName, func(k *kv.KV) error {
		var err error
		raw, err = k.Keys()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}

	keys := make([]string, 0, len(raw))
	for _, key := range raw {
		if name, ok := strings.CutPrefix(string(key), KeyPrefix); ok {
			keys = append(keys, name)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Sync triggers a manual sync with the charm server.
func (s *Store) Sync() error {
	return kv.Do(s.dbName, func(k *kv.KV) error {
		return k.Sync()
	})
}

// Reset clears all data (nuclear option).
func (s *Store) Reset() error {
	return kv.Do(s.dbName, func(k *kv.KV) error {
		return k.Reset()
	})
}

// Close is a no-op. With the Do API connections close after each operation.
func (s *Store) Close() error {
	return nil
}

func (s *Store) do(fn func(k *kv.KV) error) error {
	return kv.Do(s.dbName, func(k *kv.KV) error {
		if err := fn(k); err != nil {
			return err
		}
		if s.autoSync {
			return k.Sync()
		}
		return nil
	})
}
