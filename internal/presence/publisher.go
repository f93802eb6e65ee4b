package presence

import (
	"errors"
	"log/slog"
	"time"
)

// DefaultThrottleBackoff is how long a throttled status waits before its
// single retry.
const DefaultThrottleBackoff = 30 * time.Second

// Publisher sends statuses over the [Manager]'s live handle, skipping
// duplicates and retrying once after a throttle.
type Publisher struct {
	conns       *Manager
	timers      *Timers
	backoff     time.Duration
	log         *slog.Logger
	cache       Cache
	retry       *Timer
	retrying    Status
	onPublished func(Status, error)
}

// NewPublisher returns a publisher with an empty cache. A non-positive
// backoff selects [DefaultThrottleBackoff].
func NewPublisher(conns *Manager, timers *Timers, backoff time.Duration, log *slog.Logger) *Publisher {
	if backoff <= 0 {
		backoff = DefaultThrottleBackoff
	}
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{conns: conns, timers: timers, backoff: backoff, log: log}
}

// OnPublished registers fn to receive the outcome of every transmitted
// status: nil on success, a classified error otherwise.
func (p *Publisher) OnPublished(fn func(Status, error)) { p.onPublished = fn }

// Last returns the most recently attempted status.
func (p *Publisher) Last() (Status, bool) { return p.cache.Last() }

// RetryPending reports whether a throttle retry is waiting to fire.
func (p *Publisher) RetryPending() bool { return p.retry.Pending() }

// Publish transmits s on h unless h is not live or, without force, s equals
// the last attempted status. The cache is updated before the outcome is
// known and is not rolled back on failure.
func (p *Publisher) Publish(h *Handle, s Status, force bool) {
	p.publish(h, s, force, false)
}

// Reset cancels any pending retry and empties the cache.
func (p *Publisher) Reset() {
	p.retry.Cancel()
	p.retry = nil
	p.cache.Reset()
}

func (p *Publisher) publish(h *Handle, s Status, force, retry bool) {
	if !p.conns.Owns(h) {
		return
	}
	if !force && p.cache.Seen(s) {
		return
	}
	// A different status supersedes the one waiting to be retried.
	if !retry && p.retry.Pending() && s != p.retrying {
		p.retry.Cancel()
		p.retry = nil
	}
	p.cache.Store(s)

	err := p.conns.Update(h, s.Activity(), func(err error) {
		p.complete(s, err, retry)
	})
	if err != nil {
		p.complete(s, err, retry)
	}
}

func (p *Publisher) complete(s Status, err error, retry bool) {
	switch {
	case err == nil:
		p.log.Debug("presence updated", "state", s.State, "details", s.Details, "active", s.Active)
	case errors.Is(err, ErrThrottled) && !retry:
		p.log.Warn("presence update throttled, retrying", "after", p.backoff, "error", err)
		p.scheduleRetry(s)
	case errors.Is(err, ErrThrottled):
		p.log.Warn("presence retry throttled, dropping", "error", err)
	default:
		p.log.Warn("presence update failed", "error", err)
	}
	if p.onPublished != nil {
		p.onPublished(s, err)
	}
}

func (p *Publisher) scheduleRetry(s Status) {
	p.retry.Cancel()
	p.retrying = s
	p.retry = p.timers.After(p.backoff, func() {
		p.retry = nil
		p.publish(p.conns.Current(), s, true, true)
	})
}
