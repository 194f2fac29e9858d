package eventlogger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const saveTimeout = 5 * time.Second

type Worker struct {
	eventCh chan Event
	logger  EventLogger
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	// mu orders Log against Shutdown: once stopped is set no event can
	// enter the channel, so the drain loop sees every accepted event.
	mu      sync.RWMutex
	stopped bool
	dropped atomic.Int64
}

func NewWorker(logger EventLogger, bufferSize int) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		eventCh: make(chan Event, bufferSize),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.ctx.Done():
				slog.Info("draining audit events before shutdown", "remaining_events", len(w.eventCh))
				for len(w.eventCh) > 0 {
					w.save(context.Background(), <-w.eventCh)
				}
				return
			case event := <-w.eventCh:
				w.save(w.ctx, event)
			}
		}
	}()
}

func (w *Worker) save(parent context.Context, event Event) {
	ctx, cancel := context.WithTimeout(parent, saveTimeout)
	defer cancel()
	if err := w.logger.Save(ctx, event); err != nil {
		slog.Error("failed to save audit event", "error", err, "event_type", event.Type)
	}
}

// Log queues the event. It never blocks: when the buffer is full or the
// worker has shut down the event is dropped with a warning.
func (w *Worker) Log(event Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		w.dropped.Add(1)
		slog.Warn("audit worker stopped, dropping event", "event_type", event.Type)
		return
	}
	select {
	case w.eventCh <- event:
	default:
		w.dropped.Add(1)
		slog.Warn("audit event channel full, dropping event", "event_type", event.Type)
	}
}

// Dropped is the number of events Log has discarded so far.
func (w *Worker) Dropped() int64 {
	return w.dropped.Load()
}

// Shutdown stops accepting events and waits until the queued ones are saved.
func (w *Worker) Shutdown() {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
	if n := w.Dropped(); n > 0 {
		slog.Warn("audit events dropped", "count", n)
	}
}
