// ABOUTME: Ordered background writer for fire-and-forget persistence
// ABOUTME: Coalesces repeated writes of one key and never blocks callers

package persist

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harper/skycast/internal/logging"
)

// Saver is the write side of the persistence adapter.
type Saver interface {
	Save(ctx context.Context, key Key, value any) error
}

// DefaultWriteTimeout bounds a single background write.
const DefaultWriteTimeout = 5 * time.Second

// Writer applies saves on a single goroutine in submission order.
// If a key is enqueued again before its earlier write ran, only the latest value
// is written, in the earlier slot.
type Writer struct {
	saver   Saver
	logger  *log.Logger
	timeout time.Duration

	mu      sync.Mutex
	order   []Key
	values  map[Key]any
	waiters []chan struct{}
	closed  bool

	notify chan struct{}
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
}

// NewWriter starts a writer goroutine. Call Close to stop it.
func NewWriter(saver Saver, logger *log.Logger) *Writer {
	w := &Writer{
		saver:   saver,
		logger:  logging.OrDiscard(logger),
		timeout: DefaultWriteTimeout,
		values:  make(map[Key]any),
		notify:  make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// Enqueue schedules value to be written under key. It returns immediately.
func (w *Writer) Enqueue(key Key, value any) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.logger.Warn("dropping write after close", "key", key)
		return
	}
	if _, pending := w.values[key]; !pending {
		w.order = append(w.order, key)
	}
	w.values[key] = value
	w.mu.Unlock()

	w.signal()
}

// Flush blocks until every write enqueued before the call has been attempted.
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	w.waiters = append(w.waiters, ch)
	w.mu.Unlock()

	w.signal()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains pending writes and stops the writer.
func (w *Writer) Close() {
	w.once.Do(func() {
		close(w.stop)
		<-w.done
	})
}

func (w *Writer) signal() {
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

func (w *Writer) run() {
	defer close(w.done)
	for {
		select {
		case <-w.notify:
			w.drain(false)
		case <-w.stop:
			w.drain(true)
			return
		}
	}
}

// drain writes batches until the queue is empty, then releases flush waiters.
func (w *Writer) drain(final bool) {
	for {
		w.mu.Lock()
		if len(w.order) == 0 {
			waiters := w.waiters
			w.waiters = nil
			if final {
				w.closed = true
			}
			w.mu.Unlock()
			for _, ch := range waiters {
				close(ch)
			}
			return
		}
		order, values := w.order, w.values
		w.order = nil
		w.values = make(map[Key]any)
		w.mu.Unlock()

		for _, key := range order {
			w.write(key, values[key])
		}
	}
}

func (w *Writer) write(key Key, value any) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.saver.Save(ctx, key, value); err != nil {
		w.logger.Warn("persist write failed", "key", key, "err", err)
		return
	}
	w.logger.Debug("persisted", "key", key)
}
