// ABOUTME: Keeps a forecast for the active location up to date
// ABOUTME: Refetches on every location change and on a gocron interval

package forecast

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron"

	"github.com/harper/skycast/internal/events"
	"github.com/harper/skycast/internal/logging"
	"github.com/harper/skycast/internal/models"
)

// ErrNoReport is returned before the first successful fetch.
var ErrNoReport = errors.New("no forecast available yet")

// ErrStopped is returned when starting a watcher that was stopped.
var ErrStopped = errors.New("forecast watcher stopped")

const (
	DefaultInterval = 15 * time.Minute
	fetchTimeout    = 30 * time.Second
)

// Source supplies the active location and its change notifications.
type Source interface {
	Active() (models.ActiveLocation, bool)
	Subscribe(kind events.Kind, h events.Handler) func()
}

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	Fetcher  Fetcher
	Source   Source
	Interval time.Duration
	Units    Units
	Logger   *log.Logger
}

// Watcher holds the latest report for the active location.
type Watcher struct {
	fetcher  Fetcher
	source   Source
	interval time.Duration
	units    Units
	logger   *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	sched       *gocron.Scheduler
	unsubscribe func()
	stopped     bool
	gen         uint64
	latest      *Report
	lastErr     error
}

// NewWatcher creates a stopped Watcher.
func NewWatcher(opts WatcherOptions) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		fetcher:  opts.Fetcher,
		source:   opts.Source,
		interval: opts.Interval,
		units:    opts.Units,
		logger:   logging.OrDiscard(opts.Logger),
		ctx:      ctx,
		cancel:   cancel,
	}
	if w.interval <= 0 {
		w.interval = DefaultInterval
	}
	if w.units == "" {
		w.units = Metric
	}
	return w
}

// Start subscribes to location changes and schedules periodic refreshes.
// The first scheduled run fires immediately.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return ErrStopped
	}
	if w.sched != nil {
		return nil
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	if _, err := s.Every(w.interval).Do(w.refreshScheduled); err != nil {
		return err
	}

	w.unsubscribe = w.source.Subscribe(events.LocationChanged, w.onLocationChanged)
	w.sched = s
	s.StartAsync()
	w.logger.Debug("forecast watcher started", "interval", w.interval)
	return nil
}

// Stop cancels in-flight fetches and the schedule.
func (w *Watcher) Stop() {
	w.mu.Lock()
	w.stopped = true
	sched, unsub := w.sched, w.unsubscribe
	w.sched, w.unsubscribe = nil, nil
	w.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if sched != nil {
		sched.Stop()
	}
	w.cancel()
	w.wg.Wait()
}

// Latest returns the most recent report in the watcher's units.
func (w *Watcher) Latest() (Report, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.latest == nil {
		if w.lastErr != nil {
			return Report{}, w.lastErr
		}
		return Report{}, ErrNoReport
	}
	return w.latest.Convert(w.units), nil
}

// Refresh fetches the active location now and returns the new report.
func (w *Watcher) Refresh(ctx context.Context) (Report, error) {
	active, ok := w.source.Active()
	if !ok {
		return Report{}, ErrNoReport
	}
	w.mu.Lock()
	gen := w.gen
	w.mu.Unlock()

	if err := w.fetch(ctx, gen, active.Candidate); err != nil {
		return Report{}, err
	}
	return w.Latest()
}

func (w *Watcher) onLocationChanged(e events.Event) {
	if e.Location == nil {
		return
	}
	// Add runs under mu so it cannot race with Stop's Wait.
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.gen++
	gen := w.gen
	w.wg.Add(1)
	w.mu.Unlock()

	loc := e.Location.Candidate
	go func() {
		defer w.wg.Done()
		ctx, cancel := context.WithTimeout(w.ctx, fetchTimeout)
		defer cancel()
		_ = w.fetch(ctx, gen, loc)
	}()
}

func (w *Watcher) refreshScheduled() {
	active, ok := w.source.Active()
	if !ok {
		return
	}
	w.mu.Lock()
	gen := w.gen
	w.mu.Unlock()

	ctx, cancel := context.WithTimeout(w.ctx, fetchTimeout)
	defer cancel()
	_ = w.fetch(ctx, gen, active.Candidate)
}

// fetch stores the result unless a newer location change arrived meanwhile.
func (w *Watcher) fetch(ctx context.Context, gen uint64, loc models.Candidate) error {
	report, err := w.fetcher.Fetch(ctx, loc)

	w.mu.Lock()
	defer w.mu.Unlock()

	if gen != w.gen {
		w.logger.Debug("discarding stale forecast", "location", loc.Label())
		return err
	}
	if err != nil {
		w.lastErr = err
		w.logger.Warn("forecast fetch failed", "location", loc.Label(), "err", err)
		return err
	}
	report.Location = loc
	w.latest = &report
	w.lastErr = nil
	return nil
}
