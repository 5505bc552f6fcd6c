package tracker

import (
	"context"
	"sync"
	"time"
)

// Debouncer delays execution until a quiet period has passed. Scheduling
// again before the delay elapses replaces the pending function and restarts
// the wait.
type Debouncer struct {
	delay   time.Duration
	onError func(error)
	timer   *time.Timer
	mu      sync.Mutex
	pending func(context.Context) error
	gen     uint64
}

// NewDebouncer creates a new debouncer with the specified delay. onError
// receives failures of timer-driven runs and may be nil.
func NewDebouncer(delay time.Duration, onError func(error)) *Debouncer {
	return &Debouncer{
		delay:   delay,
		onError: onError,
	}
}

// Schedule schedules fn, cancelling any previously scheduled function.
func (d *Debouncer) Schedule(fn func(context.Context) error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = fn
	d.gen++
	gen := d.gen

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if gen != d.gen {
			// superseded by a later Schedule, Flush or Stop
			d.mu.Unlock()
			return
		}
		fn := d.pending
		d.pending = nil
		d.timer = nil
		d.mu.Unlock()

		if fn == nil {
			return
		}
		if err := fn(context.Background()); err != nil && d.onError != nil {
			d.onError(err)
		}
	})
}

// Pending reports whether a function is waiting to run.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Stop cancels any pending execution
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
}

// Flush runs the pending function, if any, on the calling goroutine and
// returns its error. ran is false when nothing was pending.
func (d *Debouncer) Flush(ctx context.Context) (ran bool, err error) {
	d.mu.Lock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	fn := d.pending
	d.pending = nil
	d.mu.Unlock()

	if fn == nil {
		return false, nil
	}
	return true, fn(ctx)
}
