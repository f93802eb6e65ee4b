package presence

import (
	"errors"
	"log/slog"
	"time"

	"tools.zach/dev/editorcord/internal/discord"
)

var quiet = slog.New(slog.DiscardHandler)

// manualClock only moves when advance is called.
type manualClock struct{ t time.Time }

func newClock() *manualClock {
	return &manualClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) now() time.Time          { return c.t }
func (c *manualClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// fakeSession records activities and completes them on the next Pump with
// whatever respond returns.
type fakeSession struct {
	sent     []*discord.Activity
	pending  []func(error)
	results  []error
	respond  func(n int) error
	setErr   error
	pumpErr  error
	closes   int
	closed   bool
	pumpRuns int
}

func (s *fakeSession) SetActivity(a *discord.Activity, done func(error)) error {
	if s.closed {
		return discord.ErrNotConnected
	}
	if s.setErr != nil {
		return s.setErr
	}
	s.sent = append(s.sent, a)
	var res error
	if s.respond != nil {
		res = s.respond(len(s.sent))
	}
	s.pending = append(s.pending, done)
	s.results = append(s.results, res)
	return nil
}

func (s *fakeSession) Pump() error {
	s.pumpRuns++
	if s.pumpErr != nil {
		pending := s.pending
		s.pending, s.results = nil, nil
		s.closed = true
		for _, done := range pending {
			done(discord.ErrConnectionLost)
		}
		return s.pumpErr
	}
	pending, results := s.pending, s.results
	s.pending, s.results = nil, nil
	for i, done := range pending {
		done(results[i])
	}
	return nil
}

func (s *fakeSession) Close() error {
	s.closes++
	s.closed = true
	s.pending, s.results = nil, nil
	return nil
}

// fakeTransport hands out fresh sessions, or fails with err.
type fakeTransport struct {
	err      error
	connects int
	sessions []*fakeSession
	setup    func(*fakeSession)
}

func (t *fakeTransport) Connect(string) (Session, error) {
	t.connects++
	if t.err != nil {
		return nil, t.err
	}
	s := &fakeSession{}
	if t.setup != nil {
		t.setup(s)
	}
	t.sessions = append(t.sessions, s)
	return s, nil
}

func (t *fakeTransport) last() *fakeSession {
	if len(t.sessions) == 0 {
		return nil
	}
	return t.sessions[len(t.sessions)-1]
}

// sent counts activities across every session.
func (t *fakeTransport) sent() int {
	n := 0
	for _, s := range t.sessions {
		n += len(s.sent)
	}
	return n
}

type fakeLocator struct {
	up    bool
	calls int
}

func (l *fakeLocator) Available() bool {
	l.calls++
	return l.up
}

func throttled() error {
	return &discord.RPCError{Code: 4000, Message: "You are being rate limited."}
}

var errBroken = errors.New("broken pipe")
