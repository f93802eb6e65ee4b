package presence

import (
	"cmp"
	"slices"
	"time"
)

// Clock returns the current time. Tests substitute a manual clock.
type Clock func() time.Time

// Timer is a one-shot deferred callback owned by a [Timers] queue.
type Timer struct {
	due  time.Time
	seq  uint64
	fn   func()
	done bool
}

// Cancel stops the timer from firing. It reports whether the call
// prevented a pending callback.
func (t *Timer) Cancel() bool {
	if t == nil || t.done {
		return false
	}
	t.done = true
	return true
}

// Pending reports whether the timer has neither fired nor been cancelled.
func (t *Timer) Pending() bool {
	return t != nil && !t.done
}

// Timers is a queue of one-shot callbacks evaluated against a clock on the
// caller's goroutine. Nothing fires unless [Timers.Fire] is called.
type Timers struct {
	now     Clock
	seq     uint64
	pending []*Timer
}

// NewTimers returns an empty queue reading time from now.
func NewTimers(now Clock) *Timers {
	if now == nil {
		now = time.Now
	}
	return &Timers{now: now}
}

// After schedules fn to run on the first Fire at or after d from now.
func (q *Timers) After(d time.Duration, fn func()) *Timer {
	q.seq++
	t := &Timer{due: q.now().Add(d), seq: q.seq, fn: fn}
	q.pending = append(q.pending, t)
	return t
}

// Fire runs every due callback in due order and returns how many ran.
// Callbacks scheduled while firing wait for the next call.
func (q *Timers) Fire() int {
	now := q.now()
	var due []*Timer
	kept := q.pending[:0]
	for _, t := range q.pending {
		switch {
		case t.done:
		case !t.due.After(now):
			due = append(due, t)
		default:
			kept = append(kept, t)
		}
	}
	clear(q.pending[len(kept):])
	q.pending = kept

	slices.SortFunc(due, func(a, b *Timer) int {
		if c := a.due.Compare(b.due); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	ran := 0
	for _, t := range due {
		// An earlier callback in this batch may have cancelled it.
		if t.done {
			continue
		}
		t.done = true
		t.fn()
		ran++
	}
	return ran
}

// CancelAll cancels every pending callback.
func (q *Timers) CancelAll() {
	for _, t := range q.pending {
		t.done = true
	}
	clear(q.pending)
	q.pending = q.pending[:0]
}

// Len returns the number of pending callbacks.
func (q *Timers) Len() int {
	n := 0
	for _, t := range q.pending {
		if !t.done {
			n++
		}
	}
	return n
}
