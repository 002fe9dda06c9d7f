// ABOUTME: Storage interfaces for durable and legacy key-value persistence
// ABOUTME: Enables testability and storage backend swapping

package storage

import "context"

// KeyValueStore is a durable key-value store holding JSON-encoded values.
type KeyValueStore interface {
	// Get returns ErrNotFound when the key has never been written.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// PlainStore is the legacy synchronous string store.
// It is only read to seed a KeyValueStore once, plus the last-used location.
type PlainStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Close() error
}

// Compile-time interface implementation checks for the local backends.
// The charm package carries its own check: var _ KeyValueStore = (*charm.Store)(nil)
var (
	_ KeyValueStore = (*BadgerStore)(nil)
	_ KeyValueStore = (*MemoryStore)(nil)
	_ PlainStore    = (*SQLitePlainStore)(nil)
	_ PlainStore    = (*MemoryPlainStore)(nil)
)
