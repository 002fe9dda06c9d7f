// ABOUTME: Portable YAML backups of resolver state
// ABOUTME: Exports saved, default, recent, and last locations and restores them into the stores

package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harper/skycast/internal/models"
)

// BackupVersion is the current backup format.
const BackupVersion = 1

// ErrBackupVersion is returned for backups written by a newer format.
var ErrBackupVersion = errors.New("unsupported backup version")

// Backup is the file layout of a backup.
type Backup struct {
	Version   int              `yaml:"version"`
	CreatedAt time.Time        `yaml:"created_at"`
	Default   *backupLocation  `yaml:"default,omitempty"`
	Saved     []backupLocation `yaml:"saved"`
	Recent    []backupLocation `yaml:"recent"`
	Last      *backupLocation  `yaml:"last,omitempty"`
}

type backupLocation struct {
	ID        int64   `yaml:"id,omitempty"`
	Name      string  `yaml:"name,omitempty"`
	Admin1    string  `yaml:"admin1,omitempty"`
	Admin2    string  `yaml:"admin2,omitempty"`
	Country   string  `yaml:"country,omitempty"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

func toBackup(c models.Candidate) backupLocation {
	return backupLocation{
		ID:        c.ID,
		Name:      c.Name,
		Admin1:    c.Admin1,
		Admin2:    c.Admin2,
		Country:   c.Country,
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
	}
}

func (b backupLocation) candidate() models.Candidate {
	return models.Candidate{
		ID:        b.ID,
		Name:      b.Name,
		Admin1:    b.Admin1,
		Admin2:    b.Admin2,
		Country:   b.Country,
		Latitude:  b.Latitude,
		Longitude: b.Longitude,
	}
}

func toBackupList(in []models.SavedLocation) []backupLocation {
	out := make([]backupLocation, 0, len(in))
	for _, loc := range in {
		out = append(out, toBackup(loc.Candidate))
	}
	return out
}

// ExportBackup encodes st as YAML.
func ExportBackup(st State, now time.Time) ([]byte, error) {
	b := Backup{
		Version:   BackupVersion,
		CreatedAt: now.UTC().Truncate(time.Second),
		Saved:     toBackupList(st.Saved),
		Recent:    toBackupList(st.Recent),
	}
	if st.Default != nil {
		def := toBackup(st.Default.Candidate)
		b.Default = &def
	}
	if st.Last != nil {
		last := toBackup(*st.Last)
		b.Last = &last
	}

	data, err := yaml.Marshal(&b)
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	return data, nil
}

// ParseBackup decodes and validates a backup. Unlike Load, any invalid entry is an error.
// A default missing from the saved list is added to it.
func ParseBackup(data []byte) (State, error) {
	var b Backup
	if err := yaml.Unmarshal(data, &b); err != nil {
		return State{}, fmt.Errorf("decode backup: %w", err)
	}
	if b.Version < 1 || b.Version > BackupVersion {
		return State{}, fmt.Errorf("%w: %d", ErrBackupVersion, b.Version)
	}

	var st State
	saved, err := parseList(b.Saved, 0, models.SavedLocation.Validate, "saved")
	if err != nil {
		return State{}, err
	}
	recent, err := parseList(b.Recent, models.RecentCapacity, models.SavedLocation.ValidateRecent, "recent")
	if err != nil {
		return State{}, err
	}
	st.Saved, st.Recent = saved, recent

	if b.Default != nil {
		def := models.SavedLocation{Candidate: b.Default.candidate(), IsDefault: true}
		if err := def.Validate(); err != nil {
			return State{}, fmt.Errorf("default: %w", err)
		}
		st.Default = &def
		idx := models.IndexByID(st.Saved, def.ID)
		if idx < 0 {
			st.Saved = append(st.Saved, def)
		} else {
			st.Saved[idx].IsDefault = true
		}
	}

	if b.Last != nil {
		last := b.Last.candidate()
		if err := last.Validate(); err != nil {
			return State{}, fmt.Errorf("last: %w", err)
		}
		st.Last = &last
	}
	return st, nil
}

func parseList(in []backupLocation, limit int, validate func(models.SavedLocation) error, field string) ([]models.SavedLocation, error) {
	out := make([]models.SavedLocation, 0, len(in))
	for i, b := range in {
		loc := models.SavedLocation{Candidate: b.candidate()}
		if err := validate(loc); err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", field, i, err)
		}
		if models.IndexByID(out, loc.ID) >= 0 {
			return nil, fmt.Errorf("%s[%d]: duplicate id %d", field, i, loc.ID)
		}
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, loc)
	}
	return out, nil
}

// Restore replaces every persisted value with st.
// The last location is left alone when st has none.
func (s *Store) Restore(ctx context.Context, st State) error {
	saved := st.Saved
	if saved == nil {
		saved = []models.SavedLocation{}
	}
	recent := st.Recent
	if recent == nil {
		recent = []models.SavedLocation{}
	}

	if err := s.Save(ctx, KeySaved, saved); err != nil {
		return fmt.Errorf("restore saved: %w", err)
	}
	if err := s.Save(ctx, KeyDefault, st.Default); err != nil {
		return fmt.Errorf("restore default: %w", err)
	}
	if err := s.Save(ctx, KeyRecent, recent); err != nil {
		return fmt.Errorf("restore recent: %w", err)
	}
	if st.Last != nil {
		if err := s.Save(ctx, KeyLast, st.Last); err != nil {
			return fmt.Errorf("restore last: %w", err)
		}
	}
	return nil
}
