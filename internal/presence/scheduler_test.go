package presence

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"tools.zach/dev/editorcord/internal/discord"
)

const frame = 16 * time.Millisecond

type schedRig struct {
	clk   *manualClock
	tr    *fakeTransport
	loc   *fakeLocator
	sched *Scheduler
}

func newSchedRig(peerUp bool) *schedRig {
	r := &schedRig{clk: newClock(), tr: &fakeTransport{}, loc: &fakeLocator{up: peerUp}}
	cfg := Config{
		AppID:   "1283700247440134174",
		Builder: DefaultStatusBuilder(),
	}
	r.sched = NewScheduler(cfg, r.tr, r.loc, WithClock(r.clk.now), WithLogger(quiet))
	r.sched.NotifyHostInfo("Space Game", "2022.3.10f1", 0)
	r.sched.NotifyContextChanged("Lobby")
	r.sched.Start()
	return r
}

// run ticks once per frame for d of simulated time.
func (r *schedRig) run(d time.Duration) {
	for end := r.clk.now().Add(d); r.clk.now().Before(end); {
		r.clk.advance(frame)
		r.sched.Tick()
	}
}

func TestScheduler_StartupDelay(t *testing.T) {
	r := newSchedRig(true)
	r.run(900 * time.Millisecond)
	if r.tr.connects != 0 || r.loc.calls != 0 {
		t.Fatalf("connects=%d locator=%d before the startup delay", r.tr.connects, r.loc.calls)
	}
	r.run(200 * time.Millisecond)
	if r.tr.connects != 1 {
		t.Fatalf("connects = %d after startup, want 1", r.tr.connects)
	}
	if r.tr.sent() != 1 {
		t.Fatalf("first connection should publish once, sent %d", r.tr.sent())
	}
}

// Scenario: peer absent at startup, then appears.
func TestScheduler_PeerAbsentAtStartup(t *testing.T) {
	r := newSchedRig(false)
	r.run(2 * time.Second)
	if r.tr.connects != 0 {
		t.Fatalf("connected %d times with no peer", r.tr.connects)
	}
	if r.sched.Connections().State() != Disconnected {
		t.Fatalf("state = %s", r.sched.Connections().State())
	}

	r.loc.up = true
	r.run(6 * time.Second)
	if r.tr.connects != 1 {
		t.Fatalf("connects = %d once the peer appeared, want exactly 1", r.tr.connects)
	}
	if r.tr.sent() != 1 {
		t.Fatalf("sent %d, want the first status only", r.tr.sent())
	}
	if got := r.tr.last().sent[0].State; got != "Lobby scene" {
		t.Fatalf("State = %q", got)
	}
}

func TestScheduler_ReconnectRateLimited(t *testing.T) {
	r := newSchedRig(true)
	r.tr.err = fmt.Errorf("probing: %w", discord.ErrIPCNotAvailable)

	r.run(time.Second + 30*time.Second)
	// One attempt from the startup probe, then one per 5s interval.
	if r.tr.connects < 6 || r.tr.connects > 8 {
		t.Fatalf("connects = %d over 30s, want one per reconnect interval", r.tr.connects)
	}
	if r.tr.sent() != 0 {
		t.Fatal("published without a connection")
	}

	r.tr.err = nil
	r.run(6 * time.Second)
	if r.sched.Connections().State() != Connected || r.tr.sent() != 1 {
		t.Fatalf("state=%s sent=%d after the endpoint recovered", r.sched.Connections().State(), r.tr.sent())
	}
}

func TestScheduler_PeriodicPublishDedupes(t *testing.T) {
	r := newSchedRig(true)
	r.run(time.Minute)
	if r.tr.sent() != 1 {
		t.Fatalf("unchanged status sent %d times, want 1", r.tr.sent())
	}
}

func TestScheduler_StartTimestampPerConnection(t *testing.T) {
	r := newSchedRig(true)
	r.run(2 * time.Second)
	first := r.tr.last().sent[0].Timestamps.Start

	r.sched.NotifyContextChanged("Boss")
	r.run(10 * time.Second)
	s := r.tr.last()
	if len(s.sent) != 2 || s.sent[1].Timestamps.Start != first {
		t.Fatalf("StartTimestamp changed within a connection")
	}

	s.pumpErr = discord.ErrConnectionLost
	r.run(10 * time.Second)
	if len(r.tr.sessions) != 2 {
		t.Fatalf("sessions = %d, want a reconnect", len(r.tr.sessions))
	}
	second := r.tr.last().sent[0].Timestamps.Start
	if second == first {
		t.Fatal("reconnect should restart the elapsed timer")
	}
}

// Scenario: a mode change publishes immediately.
func TestScheduler_ModeChangePublishesImmediately(t *testing.T) {
	r := newSchedRig(true)
	r.run(2 * time.Second)
	sess := r.tr.last()

	r.sched.NotifyModeChanged(true)
	if len(sess.sent) != 2 {
		t.Fatalf("mode change did not publish before the next tick, sent %d", len(sess.sent))
	}
	a := sess.sent[1]
	if a.Assets == nil || a.Assets.SmallImage != "play-mode-v2" || a.Assets.SmallText != "Play mode" {
		t.Fatalf("assets = %+v", a.Assets)
	}

	r.sched.NotifyModeChanged(true)
	if len(sess.sent) != 2 {
		t.Fatal("repeated identical event should be deduplicated")
	}
}

func TestScheduler_EventsBeforeConnectOnlyRecord(t *testing.T) {
	r := newSchedRig(false)
	r.run(2 * time.Second)
	r.sched.NotifyContextChanged("Boss")
	r.sched.NotifyModeChanged(true)
	if r.tr.connects != 0 || r.tr.sent() != 0 {
		t.Fatal("events must not connect or publish")
	}
	if info := r.sched.Info(); info.Context != "Boss" || !info.Active {
		t.Fatalf("info = %+v", info)
	}
}

// Scenario: the peer dies mid-session.
func TestScheduler_PeerLostMidSession(t *testing.T) {
	r := newSchedRig(true)
	r.run(2 * time.Second)
	first := r.tr.last()
	first.pumpErr = fmt.Errorf("%w: EOF", discord.ErrConnectionLost)

	r.clk.advance(frame)
	r.sched.Tick()
	if r.sched.Connections().State() != Disconnected {
		t.Fatal("lost connection was not torn down")
	}
	if r.tr.connects != 1 {
		t.Fatal("reconnect must not happen in the same tick")
	}

	r.run(6 * time.Second)
	if r.tr.connects != 2 || r.sched.Connections().State() != Connected {
		t.Fatalf("connects=%d state=%s after the next ticks", r.tr.connects, r.sched.Connections().State())
	}
	if len(r.tr.last().sent) != 1 {
		t.Fatal("fresh connection should publish even though the status is unchanged")
	}
}

func TestScheduler_PeerCheckTearsDown(t *testing.T) {
	r := newSchedRig(true)
	r.run(2 * time.Second)
	r.loc.up = false

	r.run(2 * time.Minute)
	if r.sched.Connections().State() != Connected {
		t.Fatal("peer check ran before its interval")
	}
	r.run(2 * time.Minute)
	if r.sched.Connections().State() != Disconnected {
		t.Fatal("missing peer did not tear the connection down")
	}
	if r.tr.sessions[0].closes != 1 {
		t.Fatalf("closes = %d", r.tr.sessions[0].closes)
	}
	if r.tr.connects != 1 {
		t.Fatalf("reconnected %d times with the peer gone", r.tr.connects-1)
	}
}

func TestScheduler_ThrottleRetry(t *testing.T) {
	r := newSchedRig(true)
	r.tr.setup = func(s *fakeSession) {
		s.respond = func(n int) error {
			if n == 1 {
				return throttled()
			}
			return nil
		}
	}
	var outcomes []error
	r.sched.Publisher().OnPublished(func(_ Status, err error) { outcomes = append(outcomes, err) })

	r.run(2 * time.Second)
	r.run(28 * time.Second)
	if r.tr.sent() != 1 {
		t.Fatalf("retried early, sent %d", r.tr.sent())
	}
	r.run(2 * time.Second)
	sess := r.tr.last()
	if len(sess.sent) != 2 || sess.sent[1].State != sess.sent[0].State {
		t.Fatalf("want exactly one retry of the same status, sent %d", len(sess.sent))
	}
	if len(outcomes) != 2 || !errors.Is(outcomes[0], ErrThrottled) || outcomes[1] != nil {
		t.Fatalf("outcomes = %v", outcomes)
	}
}

// Scenario: shutdown while connected.
func TestScheduler_Shutdown(t *testing.T) {
	r := newSchedRig(true)
	r.run(2 * time.Second)
	sess := r.tr.last()

	r.sched.Shutdown()
	if sess.closes != 1 {
		t.Fatalf("closes = %d after Shutdown returned, want 1", sess.closes)
	}
	r.sched.Shutdown()
	r.sched.NotifyModeChanged(true)
	r.run(time.Minute)
	if sess.closes != 1 || r.tr.connects != 1 || len(sess.sent) != 1 {
		t.Fatalf("activity after shutdown: closes=%d connects=%d sent=%d", sess.closes, r.tr.connects, len(sess.sent))
	}
}

func TestScheduler_ShutdownCancelsStartupProbe(t *testing.T) {
	r := newSchedRig(true)
	r.sched.Shutdown()
	r.run(5 * time.Second)
	if r.tr.connects != 0 || r.loc.calls != 0 {
		t.Fatal("startup probe fired after shutdown")
	}
}

func TestScheduler_Reset(t *testing.T) {
	r := newSchedRig(true)
	r.run(2 * time.Second)
	first := r.tr.last()

	r.sched.Reset()
	if first.closes != 1 || r.sched.Connections().State() != Disconnected {
		t.Fatal("Reset should tear the connection down")
	}
	r.run(500 * time.Millisecond)
	if r.tr.connects != 1 {
		t.Fatal("Reset should wait for the startup delay again")
	}
	r.run(time.Second)
	if r.tr.connects != 2 || len(r.tr.last().sent) != 1 {
		t.Fatalf("connects=%d after Reset", r.tr.connects)
	}
	if r.sched.Info().Product != "Space Game" {
		t.Fatal("Reset should keep host info")
	}
}

func TestConfigDefaults(t *testing.T) {
	c := Config{PublishInterval: 10 * time.Second}.withDefaults()
	if c.ReconnectInterval != 10*time.Second {
		t.Fatalf("ReconnectInterval = %v, want the publish interval", c.ReconnectInterval)
	}
	if c.StartupDelay != DefaultStartupDelay || c.PeerCheckInterval != DefaultPeerCheck || c.ThrottleBackoff != DefaultThrottleBackoff {
		t.Fatalf("defaults = %+v", c)
	}
}
