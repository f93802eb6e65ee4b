package presence

import (
	"log/slog"
	"time"
)

// Host is the surface the embedding application drives. Every method must
// be called from the same goroutine.
type Host interface {
	NotifyContextChanged(label string)
	NotifyModeChanged(active bool)
	Tick()
	Shutdown()
}

// PeerLocator reports whether a Discord process is running.
type PeerLocator interface {
	Available() bool
}

// Default intervals.
const (
	DefaultStartupDelay    = time.Second
	DefaultPublishInterval = 5 * time.Second
	DefaultPeerCheck       = 3 * time.Minute
)

// Config holds the scheduler's timing and rendering settings. Zero
// durations select the defaults.
type Config struct {
	AppID string
	// StartupDelay postpones the first connection attempt after Start.
	StartupDelay time.Duration
	// PublishInterval gates periodic publishes from Tick.
	PublishInterval time.Duration
	// ReconnectInterval spaces connection attempts; zero means PublishInterval.
	ReconnectInterval time.Duration
	// PeerCheckInterval is how often a live connection re-checks the process list.
	PeerCheckInterval time.Duration
	// ThrottleBackoff delays the single retry after a throttled update.
	ThrottleBackoff time.Duration
	Builder         StatusBuilder
}

func (c Config) withDefaults() Config {
	if c.StartupDelay <= 0 {
		c.StartupDelay = DefaultStartupDelay
	}
	if c.PublishInterval <= 0 {
		c.PublishInterval = DefaultPublishInterval
	}
	if c.ReconnectInterval <= 0 {
		c.ReconnectInterval = c.PublishInterval
	}
	if c.PeerCheckInterval <= 0 {
		c.PeerCheckInterval = DefaultPeerCheck
	}
	if c.ThrottleBackoff <= 0 {
		c.ThrottleBackoff = DefaultThrottleBackoff
	}
	return c
}

// Option customizes a [Scheduler].
type Option func(*Scheduler)

// WithClock replaces the wall clock.
func WithClock(now Clock) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithLogger sets the logger for the scheduler and its components.
func WithLogger(log *slog.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

// Scheduler ties the locator, connection manager and publisher to the
// host's tick. It is not safe for concurrent use.
type Scheduler struct {
	cfg     Config
	now     Clock
	log     *slog.Logger
	locator PeerLocator
	timers  *Timers
	conns   *Manager
	pub     *Publisher
	info    HostInfo

	armed       bool
	ready       bool
	closed      bool
	lastPublish time.Time
	lastAttempt time.Time
	lastCheck   time.Time
}

var _ Host = (*Scheduler)(nil)

// NewScheduler wires a scheduler. Call [Scheduler.Start] before ticking.
func NewScheduler(cfg Config, transport Transport, locator PeerLocator, opts ...Option) *Scheduler {
	s := &Scheduler{
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		log:     slog.Default(),
		locator: locator,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.timers = NewTimers(s.now)
	s.conns = NewManager(s.cfg.AppID, transport, s.now, s.log)
	s.pub = NewPublisher(s.conns, s.timers, s.cfg.ThrottleBackoff, s.log)
	s.conns.OnTeardown(func(*Handle) { s.pub.Reset() })
	return s
}

// Connections exposes the connection manager.
func (s *Scheduler) Connections() *Manager { return s.conns }

// Publisher exposes the publisher, e.g. to register [Publisher.OnPublished].
func (s *Scheduler) Publisher() *Publisher { return s.pub }

// Info returns what the host has reported so far.
func (s *Scheduler) Info() HostInfo { return s.info }

// Start arms the startup probe. Calling it again is a no-op.
func (s *Scheduler) Start() {
	if s.armed || s.closed {
		return
	}
	s.armed = true
	s.timers.After(s.cfg.StartupDelay, func() {
		s.ready = true
		s.reconnect(s.now())
	})
	s.log.Debug("presence scheduler started", "startup_delay", s.cfg.StartupDelay)
}

// Tick runs one cooperative step: due timers, inbound traffic, the peer
// check, and the periodic publish or reconnect.
func (s *Scheduler) Tick() {
	if s.closed {
		return
	}
	if !s.armed {
		s.Start()
	}
	s.timers.Fire()
	if !s.ready {
		return
	}

	now := s.now()
	h := s.conns.Current()
	if h == nil {
		if s.lastAttempt.IsZero() || now.Sub(s.lastAttempt) >= s.cfg.ReconnectInterval {
			s.reconnect(now)
		}
		return
	}

	if err := s.conns.Pump(h); err != nil {
		return
	}

	if now.Sub(s.lastCheck) >= s.cfg.PeerCheckInterval {
		s.lastCheck = now
		if !s.locator.Available() {
			s.log.Info("discord process gone, disconnecting")
			s.conns.Disconnect(h)
			s.lastAttempt = now
			return
		}
	}

	if now.Sub(s.lastPublish) >= s.cfg.PublishInterval {
		s.publish(h)
	}
}

// NotifyContextChanged records a new context label and publishes it
// without waiting for the interval.
func (s *Scheduler) NotifyContextChanged(label string) {
	if s.closed {
		return
	}
	s.info.Context = label
	s.publishNow()
}

// NotifyModeChanged records a play/edit mode switch and publishes it
// without waiting for the interval.
func (s *Scheduler) NotifyModeChanged(active bool) {
	if s.closed {
		return
	}
	s.info.Active = active
	s.publishNow()
}

// NotifyHostInfo records host metadata and publishes it without waiting for
// the interval.
func (s *Scheduler) NotifyHostInfo(product, engineVersion string, sessionStart int64) {
	if s.closed {
		return
	}
	s.info.Product = product
	s.info.EngineVersion = engineVersion
	s.info.SessionStart = sessionStart
	s.publishNow()
}

// Shutdown cancels deferred work and disconnects before returning. Later
// calls, and every other method afterwards, do nothing.
func (s *Scheduler) Shutdown() {
	if s.closed {
		return
	}
	s.closed = true
	s.timers.CancelAll()
	s.conns.Disconnect(s.conns.Current())
	s.log.Info("presence scheduler stopped")
}

// Reset tears down the connection, drops deferred work and re-arms the
// startup probe. Host info is kept.
func (s *Scheduler) Reset() {
	if s.closed {
		return
	}
	s.timers.CancelAll()
	s.conns.Disconnect(s.conns.Current())
	s.pub.Reset()
	s.armed = false
	s.ready = false
	s.lastAttempt = time.Time{}
	s.lastPublish = time.Time{}
	s.Start()
}

func (s *Scheduler) reconnect(now time.Time) {
	s.lastAttempt = now
	if !s.locator.Available() {
		s.log.Debug("discord not running")
		return
	}
	s.log.Debug("attempting discord connection")
	h, err := s.conns.Connect()
	if err != nil {
		return
	}
	s.lastCheck = now
	s.publish(h)
}

func (s *Scheduler) publishNow() {
	if !s.ready {
		return
	}
	if h := s.conns.Current(); h != nil {
		s.publish(h)
	}
}

func (s *Scheduler) publish(h *Handle) {
	s.lastPublish = s.now()
	s.pub.Publish(h, s.cfg.Builder.Build(s.info, h.StartedAt()), false)
}
