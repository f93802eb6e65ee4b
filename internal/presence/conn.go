package presence

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tools.zach/dev/editorcord/internal/discord"
)

// ConnState is the lifecycle state of the [Manager].
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("ConnState(%d)", int(s))
	}
}

// Handle is an established connection. Callers may only pass it back to
// the [Manager] that issued it.
type Handle struct {
	id        uint64
	session   Session
	startedAt time.Time
}

// ID is unique per connection for the lifetime of the manager.
func (h *Handle) ID() uint64 { return h.id }

// StartedAt is when the handshake succeeded.
func (h *Handle) StartedAt() time.Time { return h.startedAt }

// Manager owns the single logical connection to the peer.
type Manager struct {
	appID      string
	transport  Transport
	now        Clock
	log        *slog.Logger
	state      ConnState
	current    *Handle
	nextID     uint64
	onTeardown func(*Handle)
}

// NewManager returns a disconnected manager.
func NewManager(appID string, transport Transport, now Clock, log *slog.Logger) *Manager {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = slog.Default()
	}
	return &Manager{appID: appID, transport: transport, now: now, log: log}
}

// OnTeardown registers fn to run after a handle is disposed for any reason.
func (m *Manager) OnTeardown(fn func(*Handle)) { m.onTeardown = fn }

// State returns the current lifecycle state.
func (m *Manager) State() ConnState { return m.state }

// Current returns the live handle, or nil.
func (m *Manager) Current() *Handle { return m.current }

// Owns reports whether h is the live handle.
func (m *Manager) Owns(h *Handle) bool { return h != nil && h == m.current }

// Connect tears down any existing handle and opens a new one.
func (m *Manager) Connect() (*Handle, error) {
	if m.current != nil {
		m.teardown("reconnect")
	}

	m.state = Connecting
	m.log.Debug("connecting to discord", "app_id", m.appID)
	sess, err := m.transport.Connect(m.appID)
	if err != nil {
		m.state = Disconnected
		err = classifyConnect(err)
		m.log.Warn("discord connect failed", "error", err)
		return nil, err
	}

	m.nextID++
	h := &Handle{id: m.nextID, session: sess, startedAt: m.now()}
	m.current = h
	m.state = Connected
	attrs := []any{"connection", h.id}
	if u, ok := sess.(interface{ User() discord.User }); ok && u.User().Username != "" {
		attrs = append(attrs, "user", u.User().Username)
	}
	m.log.Info("connected to discord", attrs...)
	return h, nil
}

// Disconnect releases h. It is a no-op for nil, stale or foreign handles.
func (m *Manager) Disconnect(h *Handle) {
	if !m.Owns(h) {
		return
	}
	m.teardown("disconnect")
}

// Pump delivers pending inbound traffic for h without blocking. A broken
// channel disposes the handle and returns [ErrPeerLost].
func (m *Manager) Pump(h *Handle) error {
	if !m.Owns(h) {
		return fmt.Errorf("%w: stale connection", ErrPeerLost)
	}
	if err := h.session.Pump(); err != nil {
		err = classifyUpdate(err)
		if !errors.Is(err, ErrPeerLost) {
			err = fmt.Errorf("%w: %w", ErrPeerLost, err)
		}
		m.log.Warn("discord connection lost", "connection", h.id, "error", err)
		m.teardown("peer lost")
		return err
	}
	return nil
}

// Update sends a SET_ACTIVITY for h. If it returns nil, done receives the
// classified outcome from a later Pump unless h is torn down first.
func (m *Manager) Update(h *Handle, a *discord.Activity, done func(error)) error {
	if !m.Owns(h) {
		return fmt.Errorf("%w: stale connection", ErrPeerLost)
	}
	err := h.session.SetActivity(a, func(err error) {
		if done != nil {
			done(classifyUpdate(err))
		}
	})
	if err != nil {
		err = classifyUpdate(err)
		if errors.Is(err, ErrPeerLost) {
			m.log.Warn("discord write failed", "connection", h.id, "error", err)
			m.teardown("write failed")
		}
		return err
	}
	return nil
}

func (m *Manager) teardown(reason string) {
	h := m.current
	m.current = nil
	m.state = Disconnected
	if err := h.session.Close(); err != nil {
		m.log.Debug("closing discord session", "connection", h.id, "error", err)
	}
	m.log.Info("disconnected from discord", "connection", h.id, "reason", reason)
	if m.onTeardown != nil {
		m.onTeardown(h)
	}
}
