package maillist

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// debouncer holds at most one pending deferred action. Scheduling a new
// action cancels the previous one, whose command then yields nil.
type debouncer struct {
	delay time.Duration
	seq   uint64
	stop  chan struct{}
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay}
}

// Schedule cancels any pending action and returns a command that waits
// for the delay and then produces fire(seq).
func (d *debouncer) Schedule(fire func(seq uint64) tea.Msg) tea.Cmd {
	d.Cancel()
	d.seq++
	seq, stop, delay := d.seq, make(chan struct{}), d.delay
	d.stop = stop

	return func() tea.Msg {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			return fire(seq)
		case <-stop:
			return nil
		}
	}
}

// Cancel drops the pending action, if any.
func (d *debouncer) Cancel() {
	if d.stop != nil {
		close(d.stop)
		d.stop = nil
	}
}

// Pending reports whether an action is scheduled and not yet consumed.
func (d *debouncer) Pending() bool { return d.stop != nil }

// Fire consumes the pending action if seq identifies it. A fire that
// raced a cancel or a newer schedule returns false.
func (d *debouncer) Fire(seq uint64) bool {
	if d.stop == nil || seq != d.seq {
		return false
	}
	d.stop = nil
	return true
}
