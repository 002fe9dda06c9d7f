// ABOUTME: Location resolver that owns the active, saved, default, and recent locations
// ABOUTME: Runs the startup priority chain and emits events on every state change

package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harper/skycast/internal/events"
	"github.com/harper/skycast/internal/geocode"
	"github.com/harper/skycast/internal/logging"
	"github.com/harper/skycast/internal/models"
	"github.com/harper/skycast/internal/persist"
)

// ErrClosed is returned by methods called after Close.
var ErrClosed = errors.New("resolver closed")

// DefaultDeviceTimeout bounds the device geolocation step of the startup chain.
const DefaultDeviceTimeout = 10 * time.Second

// Geocoder finds places by name and names places by coordinates.
type Geocoder interface {
	Search(ctx context.Context, query string) ([]models.Candidate, error)
	// Reverse returns nil, nil when nothing is known at the coordinates.
	Reverse(ctx context.Context, lat, lon float64) (*models.Candidate, error)
}

// DeviceLocator reports the device position. It fails on denial or timeout.
type DeviceLocator interface {
	CurrentPosition(ctx context.Context) (models.Position, error)
}

// IPLocator estimates location from the public IP address.
type IPLocator interface {
	Lookup(ctx context.Context) (models.IPLocation, error)
}

// Persistence loads and saves resolver state.
type Persistence interface {
	Load(ctx context.Context) persist.State
	Save(ctx context.Context, key persist.Key, value any) error
}

// Options configures a Resolver. Nil collaborators are treated as unavailable.
type Options struct {
	Persistence   Persistence
	Geocoder      Geocoder
	Device        DeviceLocator
	IP            IPLocator
	Fallback      models.Candidate
	DeviceTimeout time.Duration
	Logger        *log.Logger
}

// DefaultFallback is used when Options.Fallback is unset or invalid.
var DefaultFallback = models.Candidate{
	Latitude:  40.7128,
	Longitude: -74.0060,
	Name:      "New York",
	Country:   "United States",
	Admin1:    "New York",
	ID:        5128581,
}

// Resolver establishes and tracks the active location.
type Resolver struct {
	geocoder      Geocoder
	device        DeviceLocator
	ip            IPLocator
	fallback      models.Candidate
	deviceTimeout time.Duration
	logger        *log.Logger

	bus    *events.Bus
	writer *persist.Writer
	chain  []Step

	ctx    context.Context
	cancel context.CancelFunc
	loaded chan struct{}

	mu         sync.Mutex
	saved      []models.SavedLocation
	def        *models.SavedLocation
	recent     []models.SavedLocation
	last       *models.Candidate
	active     *models.ActiveLocation
	initDone   chan struct{}
	initResult models.ActiveLocation
	ready      bool
	closed     bool
}

// New creates a resolver and starts loading persisted state in the background.
// It never fails; load problems are logged and leave the state empty.
func New(opts Options) *Resolver {
	logger := logging.OrDiscard(opts.Logger)
	if opts.Persistence == nil {
		opts.Persistence = nopPersistence{}
	}
	if opts.Geocoder == nil {
		opts.Geocoder = geocode.Disabled{}
	}
	if opts.DeviceTimeout <= 0 {
		opts.DeviceTimeout = DefaultDeviceTimeout
	}
	fallback := opts.Fallback
	if fallback.Validate() != nil || (fallback == models.Candidate{}) {
		fallback = DefaultFallback
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Resolver{
		geocoder:      opts.Geocoder,
		device:        opts.Device,
		ip:            opts.IP,
		fallback:      fallback,
		deviceTimeout: opts.DeviceTimeout,
		logger:        logger,
		bus:           events.NewBus(logger),
		writer:        persist.NewWriter(opts.Persistence, logger),
		ctx:           ctx,
		cancel:        cancel,
		loaded:        make(chan struct{}),
	}
	r.chain = r.defaultChain()

	go r.load(opts.Persistence)
	return r
}

func (r *Resolver) load(p Persistence) {
	defer close(r.loaded)

	st := p.Load(r.ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = models.CloneLocations(st.Saved)
	r.recent = models.CloneLocations(st.Recent)
	if st.Default != nil {
		d := *st.Default
		r.def = &d
	}
	if st.Last != nil {
		l := *st.Last
		r.last = &l
	}
	r.logger.Debug("state loaded", "saved", len(r.saved), "recent", len(r.recent), "default", r.def != nil)
}

// waitLoaded blocks until persisted state is in memory.
func (r *Resolver) waitLoaded(ctx context.Context) error {
	select {
	case <-r.loaded:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Initialize establishes the active location. Concurrent and repeated calls share
// one run of the priority chain. Errors only come from a cancelled ctx or Close.
func (r *Resolver) Initialize(ctx context.Context) (models.ActiveLocation, error) {
	if err := r.waitLoaded(ctx); err != nil {
		return models.ActiveLocation{}, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return models.ActiveLocation{}, ErrClosed
	}
	if r.initDone == nil {
		r.initDone = make(chan struct{})
		go r.runChain(r.initDone)
	}
	done := r.initDone
	r.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return models.ActiveLocation{}, ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ready {
		return models.ActiveLocation{}, ErrClosed
	}
	return r.initResult, nil
}

// Initialized reports whether the priority chain has completed.
func (r *Resolver) Initialized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

// SetLocation makes candidate the active location.
// Unnamed candidates are reverse geocoded; lookup failures leave them unnamed.
func (r *Resolver) SetLocation(ctx context.Context, candidate models.Candidate, source models.Source) error {
	if err := r.waitLoaded(ctx); err != nil {
		return err
	}
	_, err := r.setLocation(ctx, candidate, source)
	return err
}

func (r *Resolver) setLocation(ctx context.Context, candidate models.Candidate, source models.Source) (models.ActiveLocation, error) {
	if err := candidate.Validate(); err != nil {
		return models.ActiveLocation{}, fmt.Errorf("set location: %w", err)
	}
	if _, err := models.ParseSource(string(source)); err != nil {
		return models.ActiveLocation{}, fmt.Errorf("set location: %w", err)
	}
	if candidate.Name == "" {
		candidate = r.enrich(ctx, candidate)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return models.ActiveLocation{}, ErrClosed
	}
	active := models.ActiveLocation{Candidate: candidate, Source: source}
	r.active = &active
	last := candidate
	r.last = &last

	var recent []models.SavedLocation
	entry := models.SavedLocation{Candidate: candidate}
	pushed := entry.ValidateRecent() == nil
	if pushed {
		r.recent = models.PushRecent(r.recent, entry)
		recent = models.CloneLocations(r.recent)
	}
	r.mu.Unlock()

	r.writer.Enqueue(persist.KeyLast, candidate)
	if pushed {
		r.writer.Enqueue(persist.KeyRecent, recent)
		r.bus.Emit(events.Event{Kind: events.RecentChanged, Recent: models.CloneLocations(recent)})
	}
	emitted := active
	r.bus.Emit(events.Event{Kind: events.LocationChanged, Location: &emitted})

	r.logger.Info("active location changed", "location", candidate.Label(), "source", source)
	return active, nil
}

// enrich fills descriptive fields from a reverse lookup.
func (r *Resolver) enrich(ctx context.Context, c models.Candidate) models.Candidate {
	found, err := r.geocoder.Reverse(ctx, c.Latitude, c.Longitude)
	if err != nil {
		if errors.Is(err, geocode.ErrDisabled) {
			r.logger.Debug("reverse geocoding disabled", "coords", c.Coordinates())
		} else {
			r.logger.Warn("reverse geocoding failed", "coords", c.Coordinates(), "err", err)
		}
		return c
	}
	if found == nil || found.Name == "" {
		r.logger.Debug("reverse geocoding found nothing", "coords", c.Coordinates())
		return c
	}
	c.Name = found.Name
	c.Country = found.Country
	c.Admin1 = found.Admin1
	c.Admin2 = found.Admin2
	return c
}

// SaveLocation appends loc to the saved list. Saving a known ID is a no-op.
// The first saved location becomes the default when none exists.
func (r *Resolver) SaveLocation(ctx context.Context, loc models.SavedLocation) error {
	if err := r.waitLoaded(ctx); err != nil {
		return err
	}
	if err := loc.Validate(); err != nil {
		return fmt.Errorf("save location: %w", err)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	if models.IndexByID(r.saved, loc.ID) >= 0 {
		r.mu.Unlock()
		return nil
	}
	loc.IsDefault = false
	next := models.CloneLocations(r.saved)
	r.saved = append(next, loc)
	saved := models.CloneLocations(r.saved)
	promote := len(r.saved) == 1 && r.def == nil
	r.mu.Unlock()

	r.writer.Enqueue(persist.KeySaved, saved)
	r.bus.Emit(events.Event{Kind: events.SavedChanged, Saved: models.CloneLocations(saved)})

	if promote {
		return r.setDefault(ctx, loc.ID)
	}
	return nil
}

// SetDefaultLocation marks the saved location id as default and activates it.
// Unknown IDs are ignored.
func (r *Resolver) SetDefaultLocation(ctx context.Context, id int64) error {
	if err := r.waitLoaded(ctx); err != nil {
		return err
	}
	return r.setDefault(ctx, id)
}

func (r *Resolver) setDefault(ctx context.Context, id int64) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	idx := models.IndexByID(r.saved, id)
	if idx < 0 {
		r.mu.Unlock()
		return nil
	}
	next := models.CloneLocations(r.saved)
	for i := range next {
		next[i].IsDefault = i == idx
	}
	r.saved = next
	def := next[idx]
	r.def = &def
	saved := models.CloneLocations(next)
	r.mu.Unlock()

	stored := def
	r.writer.Enqueue(persist.KeyDefault, &stored)
	r.writer.Enqueue(persist.KeySaved, saved)
	emitted := def
	r.bus.Emit(events.Event{Kind: events.DefaultChanged, Default: &emitted})

	_, err := r.setLocation(ctx, def.Candidate, models.SourceDefault)
	return err
}

// RemoveLocation deletes a saved location. Removing the default clears it and
// promotes the next saved location, which also becomes active.
func (r *Resolver) RemoveLocation(ctx context.Context, id int64) error {
	if err := r.waitLoaded(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	next, removed := models.RemoveByID(r.saved, id)
	if !removed {
		r.mu.Unlock()
		return nil
	}
	r.saved = next
	saved := models.CloneLocations(next)
	wasDefault := r.def != nil && r.def.ID == id
	var promote int64
	if wasDefault {
		r.def = nil
		if len(next) > 0 {
			promote = next[0].ID
		}
	}
	r.mu.Unlock()

	r.writer.Enqueue(persist.KeySaved, saved)
	r.bus.Emit(events.Event{Kind: events.SavedChanged, Saved: models.CloneLocations(saved)})

	if !wasDefault {
		return nil
	}
	r.writer.Enqueue(persist.KeyDefault, (*models.SavedLocation)(nil))
	r.bus.Emit(events.Event{Kind: events.DefaultChanged})

	if promote != 0 {
		return r.setDefault(ctx, promote)
	}
	return nil
}

// RemoveFromRecent drops id from the recent list without touching saved locations.
func (r *Resolver) RemoveFromRecent(ctx context.Context, id int64) error {
	if err := r.waitLoaded(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	next, removed := models.RemoveByID(r.recent, id)
	if !removed {
		r.mu.Unlock()
		return nil
	}
	r.recent = next
	recent := models.CloneLocations(next)
	r.mu.Unlock()

	r.writer.Enqueue(persist.KeyRecent, recent)
	r.bus.Emit(events.Event{Kind: events.RecentChanged, Recent: models.CloneLocations(recent)})
	return nil
}

// Search looks up places by name.
func (r *Resolver) Search(ctx context.Context, query string) ([]models.Candidate, error) {
	return r.geocoder.Search(ctx, query)
}

// Active returns the active location, if one has been set.
func (r *Resolver) Active() (models.ActiveLocation, bool) {
	<-r.loaded
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return models.ActiveLocation{}, false
	}
	return *r.active, true
}

// Saved returns a copy of the saved locations in insertion order.
func (r *Resolver) Saved() []models.SavedLocation {
	<-r.loaded
	r.mu.Lock()
	defer r.mu.Unlock()
	return models.CloneLocations(r.saved)
}

// Default returns the default location, if any.
func (r *Resolver) Default() (models.SavedLocation, bool) {
	<-r.loaded
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.def == nil {
		return models.SavedLocation{}, false
	}
	return *r.def, true
}

// Recent returns a copy of the recent list, most recent first.
func (r *Resolver) Recent() []models.SavedLocation {
	<-r.loaded
	r.mu.Lock()
	defer r.mu.Unlock()
	return models.CloneLocations(r.recent)
}

// Subscribe registers h for events of kind. The returned func unsubscribes.
func (r *Resolver) Subscribe(kind events.Kind, h events.Handler) func() {
	return r.bus.Subscribe(kind, h)
}

// Flush waits for queued persistence writes.
func (r *Resolver) Flush(ctx context.Context) error {
	return r.writer.Flush(ctx)
}

// Close cancels in-flight work, drains pending writes, and drops subscribers.
func (r *Resolver) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	r.writer.Close()
	r.bus.Close()
	return nil
}

type nopPersistence struct{}

func (nopPersistence) Load(context.Context) persist.State           { return persist.State{} }
func (nopPersistence) Save(context.Context, persist.Key, any) error { return nil }
