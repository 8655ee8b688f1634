package watch

import (
	"context"
	"log/slog"
	"time"
)

// pendingChange accumulates the most recent event for a path together with
// the deadline after which the path is considered stable.
type pendingChange struct {
	event    Event
	deadline time.Time
}

// Debouncer coalesces bursts of events for the same path into a single
// dispatch carrying the last observed event. A path already being processed
// downstream is not re-dispatched until Release is called for it, which
// serializes pipeline runs per path.
//
// All mutable state is owned by the Run goroutine; the public surface
// communicates over channels, so no locks are needed.
type Debouncer struct {
	window   time.Duration
	in       chan Event
	dispatch chan Event
	release  chan string
	logger   *slog.Logger
}

// NewDebouncer creates a Debouncer with the given quiet window.
func NewDebouncer(window time.Duration, logger *slog.Logger) *Debouncer {
	return &Debouncer{
		window:   window,
		in:       make(chan Event, 64),
		dispatch: make(chan Event),
		release:  make(chan string, 64),
		logger:   logger,
	}
}

// In is the channel the Detector emits into.
func (d *Debouncer) In() chan<- Event { return d.in }

// Dispatch delivers stable events to workers. It is closed when Run
// returns, letting workers drain and exit.
func (d *Debouncer) Dispatch() <-chan Event { return d.dispatch }

// Release marks a path's pipeline run as finished, making the path
// eligible for dispatch again.
func (d *Debouncer) Release(path string) {
	d.release <- path
}

// Run owns the pending-change map until ctx is cancelled. Changes still
// waiting on their deadline at shutdown are dropped.
func (d *Debouncer) Run(ctx context.Context) error {
	pending := make(map[string]*pendingChange)
	inflight := make(map[string]struct{})

	sweepEvery := d.window / 4
	if sweepEvery < 25*time.Millisecond {
		sweepEvery = 25 * time.Millisecond
	}
	ticker := time.NewTicker(sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if n := len(pending); n > 0 {
				d.logger.Info("debouncer dropping pending changes", slog.Int("count", n))
			}
			close(d.dispatch)
			return nil

		case ev := <-d.in:
			// A newer event supersedes the stored one and resets the
			// deadline, so a note is only dispatched once it has been
			// quiet for a full window.
			pending[ev.Path] = &pendingChange{
				event:    ev,
				deadline: ev.Time.Add(d.window),
			}

		case path := <-d.release:
			delete(inflight, path)

		case now := <-ticker.C:
			for path, pc := range pending {
				if now.Before(pc.deadline) {
					continue
				}
				if _, busy := inflight[path]; busy {
					// Prior run still in flight; hold the change until
					// the path is released.
					continue
				}
				select {
				case d.dispatch <- pc.event:
					inflight[path] = struct{}{}
					delete(pending, path)
					d.logger.Debug("dispatching stable change",
						slog.String("path", path),
						slog.String("kind", string(pc.event.Kind)))
				default:
					// All workers busy; retry on the next sweep.
				}
			}
		}
	}
}
