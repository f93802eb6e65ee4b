package presence

import (
	"testing"
	"time"
)

func TestTimers_FireInDueOrder(t *testing.T) {
	clk := newClock()
	q := NewTimers(clk.now)
	var got []string
	q.After(2*time.Second, func() { got = append(got, "b") })
	q.After(time.Second, func() { got = append(got, "a") })
	q.After(time.Second, func() { got = append(got, "a2") })
	q.After(time.Minute, func() { got = append(got, "late") })

	if n := q.Fire(); n != 0 {
		t.Fatalf("nothing is due yet, fired %d", n)
	}
	clk.advance(2 * time.Second)
	if n := q.Fire(); n != 3 {
		t.Fatalf("fired %d, want 3", n)
	}
	if len(got) != 3 || got[0] != "a" || got[1] != "a2" || got[2] != "b" {
		t.Fatalf("order = %v", got)
	}
	if q.Len() != 1 {
		t.Fatalf("Len = %d, want 1", q.Len())
	}
}

func TestTimers_OneShot(t *testing.T) {
	clk := newClock()
	q := NewTimers(clk.now)
	n := 0
	tm := q.After(0, func() { n++ })
	q.Fire()
	q.Fire()
	if n != 1 {
		t.Fatalf("ran %d times, want 1", n)
	}
	if tm.Pending() || tm.Cancel() {
		t.Fatal("fired timer should not be pending or cancellable")
	}
}

func TestTimers_Cancel(t *testing.T) {
	clk := newClock()
	q := NewTimers(clk.now)
	ran := false
	tm := q.After(time.Second, func() { ran = true })
	if !tm.Cancel() {
		t.Fatal("Cancel on a pending timer should report true")
	}
	clk.advance(time.Hour)
	q.Fire()
	if ran {
		t.Fatal("cancelled timer fired")
	}

	var nilTimer *Timer
	if nilTimer.Cancel() || nilTimer.Pending() {
		t.Fatal("nil timer should be inert")
	}
}

func TestTimers_CancelFromCallback(t *testing.T) {
	clk := newClock()
	q := NewTimers(clk.now)
	var second *Timer
	ranSecond := false
	q.After(time.Second, func() { second.Cancel() })
	second = q.After(2*time.Second, func() { ranSecond = true })
	clk.advance(5 * time.Second)
	q.Fire()
	if ranSecond {
		t.Fatal("timer cancelled by an earlier callback in the batch fired")
	}
}

func TestTimers_ScheduledWhileFiringWaits(t *testing.T) {
	clk := newClock()
	q := NewTimers(clk.now)
	inner := false
	q.After(0, func() {
		q.After(0, func() { inner = true })
	})
	q.Fire()
	if inner {
		t.Fatal("callback scheduled during Fire ran in the same call")
	}
	q.Fire()
	if !inner {
		t.Fatal("callback did not run on the next Fire")
	}
}

func TestTimers_CancelAll(t *testing.T) {
	clk := newClock()
	q := NewTimers(clk.now)
	ran := 0
	a := q.After(time.Second, func() { ran++ })
	q.After(time.Second, func() { ran++ })
	q.CancelAll()
	clk.advance(time.Minute)
	q.Fire()
	if ran != 0 || q.Len() != 0 || a.Pending() {
		t.Fatalf("ran=%d len=%d pending=%v after CancelAll", ran, q.Len(), a.Pending())
	}
}
