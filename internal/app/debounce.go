package app

import (
	"sync"
	"time"
)

// Debouncer holds the latest raw value and publishes it as the effective
// value once no new input has arrived for the quiet window.
type Debouncer struct {
	quiet    time.Duration
	onChange func(string)

	mu        sync.Mutex
	raw       string
	effective string
	timer     *time.Timer
	gen       uint64
	stopped   bool
}

// NewDebouncer creates a Debouncer. onChange, if set, is called with each
// new effective value from the timer goroutine.
func NewDebouncer(quiet time.Duration, onChange func(string)) *Debouncer {
	return &Debouncer{quiet: quiet, onChange: onChange}
}

// Set records new raw input and restarts the quiet window, cancelling any
// pending update.
func (d *Debouncer) Set(value string) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.raw = value
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
	}
	if d.quiet <= 0 {
		changed := d.applyLocked(value)
		d.mu.Unlock()
		d.notify(changed, value)
		return
	}

	gen := d.gen
	d.timer = time.AfterFunc(d.quiet, func() {
		d.mu.Lock()
		// A timer that fired while Set was replacing it must not win
		if d.stopped || gen != d.gen {
			d.mu.Unlock()
			return
		}
		changed := d.applyLocked(value)
		d.mu.Unlock()
		d.notify(changed, value)
	})
	d.mu.Unlock()
}

func (d *Debouncer) applyLocked(value string) bool {
	if value == d.effective {
		return false
	}
	d.effective = value
	return true
}

func (d *Debouncer) notify(changed bool, value string) {
	if changed && d.onChange != nil {
		d.onChange(value)
	}
}

// Raw returns the latest input, debounced or not.
func (d *Debouncer) Raw() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.raw
}

// Value returns the effective (debounced) value.
func (d *Debouncer) Value() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.effective
}

// Stop cancels any pending update. Later calls to Set are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
