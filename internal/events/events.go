// ABOUTME: Typed publish/subscribe bus for resolver state changes
// ABOUTME: Delivers events synchronously and isolates panicking handlers

package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/harper/skycast/internal/models"
)

// Kind identifies an event type.
type Kind string

const (
	LocationChanged        Kind = "location-changed"
	DefaultChanged         Kind = "default-changed"
	SavedChanged           Kind = "saved-changed"
	RecentChanged          Kind = "recent-changed"
	InitializationComplete Kind = "initialization-complete"
)

// Kinds lists every event kind in a stable order.
var Kinds = []Kind{LocationChanged, DefaultChanged, SavedChanged, RecentChanged, InitializationComplete}

// Event is a single state transition. Payload fields are copies owned by the receiver.
type Event struct {
	ID   uuid.UUID `json:"id"`
	Kind Kind      `json:"kind"`
	At   time.Time `json:"at"`

	// Location is set for location-changed and initialization-complete.
	Location *models.ActiveLocation `json:"location,omitempty"`
	// Default is set for default-changed; nil means the default was cleared.
	Default *models.SavedLocation `json:"default,omitempty"`
	// Saved is set for saved-changed.
	Saved []models.SavedLocation `json:"saved,omitempty"`
	// Recent is set for recent-changed.
	Recent []models.SavedLocation `json:"recent,omitempty"`
}

// Handler receives events.
type Handler func(Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus fans events out to subscribers by kind.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Kind][]subscription
	nextID uint64
	logger *log.Logger
}

// NewBus creates an empty bus. A nil logger discards handler failures.
func NewBus(logger *log.Logger) *Bus {
	return &Bus{
		subs:   make(map[Kind][]subscription),
		logger: logger,
	}
}

// Subscribe registers h for kind and returns a func that removes it.
// Calling the returned func more than once is safe.
func (b *Bus) Subscribe(kind Kind, h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[kind] = append(b.subs[kind], subscription{id: id, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(kind, id) })
	}
}

func (b *Bus) unsubscribe(kind Kind, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[kind]
	for i, s := range list {
		if s.id == id {
			next := make([]subscription, 0, len(list)-1)
			next = append(next, list[:i]...)
			b.subs[kind] = append(next, list[i+1:]...)
			return
		}
	}
}

// Emit stamps e and delivers it to every subscriber of its kind in subscription order.
// Handlers run on the caller's goroutine; a panic in one handler is logged and the
// rest still run.
func (b *Bus) Emit(e Event) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.RLock()
	list := b.subs[e.Kind]
	b.mu.RUnlock()

	for _, s := range list {
		b.deliver(s, e.clone())
	}
}

// clone copies the payload so each handler owns what it receives.
func (e Event) clone() Event {
	out := e
	if e.Location != nil {
		loc := *e.Location
		out.Location = &loc
	}
	if e.Default != nil {
		def := *e.Default
		out.Default = &def
	}
	if e.Saved != nil {
		out.Saved = models.CloneLocations(e.Saved)
	}
	if e.Recent != nil {
		out.Recent = models.CloneLocations(e.Recent)
	}
	return out
}

func (b *Bus) deliver(s subscription, e Event) {
	defer func() {
		if r := recover(); r != nil && b.logger != nil {
			b.logger.Error("event handler failed", "kind", e.Kind, "event", e.ID, "err", fmt.Sprint(r))
		}
	}()
	s.handler(e)
}

// Count returns the number of subscribers for kind.
func (b *Bus) Count(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[kind])
}

// Close drops all subscribers.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[Kind][]subscription)
}
