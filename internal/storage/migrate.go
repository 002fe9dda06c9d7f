// ABOUTME: Data migration between durable storage backends
// ABOUTME: Copies every key from a source store to a destination store

package storage

import (
	"context"
	"fmt"
	"os"
)

// CopySummary holds counts of migrated keys.
type CopySummary struct {
	Keys  int
	Bytes int
}

// Copy writes every key of src into dst. Existing destination keys are overwritten.
func Copy(ctx context.Context, src, dst KeyValueStore) (*CopySummary, error) {
	summary := &CopySummary{}

	keys, err := src.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list source keys: %w", err)
	}

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		val, err := src.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", key, err)
		}
		if err := dst.Set(ctx, key, val); err != nil {
			return nil, fmt.Errorf("write %q: %w", key, err)
		}
		summary.Keys++
		summary.Bytes += len(val)
	}

	return summary, nil
}

// IsDirNonEmpty checks whether a directory exists and contains any files or subdirectories.
// Returns false if the directory does not exist or is empty.
func IsDirNonEmpty(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read directory %q: %w", path, err)
	}
	return len(entries) > 0, nil
}
