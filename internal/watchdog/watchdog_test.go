package watchdog

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

// fakeRestarter succeeds after failing a configured number of times, and
// flips the paired dialer healthy on success.
type fakeRestarter struct {
	failures int
	calls    int
	onOK     func()
}

func (r *fakeRestarter) Restart(context.Context) (RestartResult, error) {
	r.calls++
	if r.calls <= r.failures {
		return RestartResult{Success: false, Output: "unit not found"}, nil
	}
	if r.onOK != nil {
		r.onOK()
	}
	return RestartResult{Success: true, Output: "restarted"}, nil
}

// fakeDialer reports healthy or refused based on a flag.
type fakeDialer struct {
	healthy bool
}

func (d *fakeDialer) dial(string, time.Duration) (net.Conn, error) {
	if d.healthy {
		c, s := net.Pipe()
		go func() { _ = s.Close() }()
		return c, nil
	}
	return nil, errors.New("connection refused")
}

func newTestWatchdog(r Restarter, d *fakeDialer) *Watchdog {
	return New(r,
		WithDialer(d.dial),
		WithMaxRetries(3),
		withTimings(0, 0),
	)
}

// TestRunCheckHealthy verifies no restart happens for a healthy gateway.
func TestRunCheckHealthy(t *testing.T) {
	r := &fakeRestarter{}
	w := newTestWatchdog(r, &fakeDialer{healthy: true})

	result := w.RunCheck(context.Background())
	if result.Status != StatusHealthy || result.Action != "none" {
		t.Errorf("unexpected result: %+v", result)
	}
	if r.calls != 0 {
		t.Errorf("restarter should not be called, got %d calls", r.calls)
	}
}

// TestRunCheckRecoversAfterRetries verifies failed restart attempts are
// retried and the recovery is reported with the attempt trail.
func TestRunCheckRecoversAfterRetries(t *testing.T) {
	d := &fakeDialer{healthy: false}
	r := &fakeRestarter{failures: 2, onOK: func() { d.healthy = true }}
	w := newTestWatchdog(r, d)

	result := w.RunCheck(context.Background())
	if result.Status != StatusRecovered || result.Action != "restarted" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.RestartAttempts) != 3 {
		t.Errorf("expected 3 attempts, got %d", len(result.RestartAttempts))
	}
	if result.RestartAttempts[0].Success || !result.RestartAttempts[2].Success {
		t.Errorf("unexpected attempt outcomes: %+v", result.RestartAttempts)
	}
}

// TestRunCheckGivesUpAfterMaxRetries verifies the escalate outcome.
func TestRunCheckGivesUpAfterMaxRetries(t *testing.T) {
	d := &fakeDialer{healthy: false}
	r := &fakeRestarter{failures: 100}
	w := newTestWatchdog(r, d)

	result := w.RunCheck(context.Background())
	if result.Status != StatusDown || result.Action != "escalate" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if r.calls != 3 {
		t.Errorf("expected exactly 3 restart attempts, got %d", r.calls)
	}
}

// TestRunCheckRestartSucceedsButStillDown verifies a successful restart
// with a failing verification probe counts as a failed attempt.
func TestRunCheckRestartSucceedsButStillDown(t *testing.T) {
	d := &fakeDialer{healthy: false}
	r := &fakeRestarter{} // always "succeeds", but dialer stays down
	w := newTestWatchdog(r, d)

	result := w.RunCheck(context.Background())
	if result.Status != StatusDown {
		t.Fatalf("unexpected status %q", result.Status)
	}
	if r.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", r.calls)
	}
}

// TestHistoryIsCapped verifies the retained history never exceeds the cap
// and keeps the newest entries.
func TestHistoryIsCapped(t *testing.T) {
	w := newTestWatchdog(&fakeRestarter{}, &fakeDialer{healthy: true})

	for i := 0; i < historyCap+10; i++ {
		w.RunCheck(context.Background())
	}
	if got := len(w.History()); got != historyCap {
		t.Errorf("history length: got %d, want %d", got, historyCap)
	}

	last, ok := w.LastCheck()
	if !ok || last.Status != StatusHealthy {
		t.Errorf("unexpected last check: %+v ok=%v", last, ok)
	}
}

// TestRestoreKeepsCap verifies restoring oversized persisted history trims
// to the newest entries.
func TestRestoreKeepsCap(t *testing.T) {
	w := newTestWatchdog(&fakeRestarter{}, &fakeDialer{healthy: true})

	oversized := make([]CheckResult, historyCap+5)
	for i := range oversized {
		oversized[i] = CheckResult{Status: StatusHealthy}
	}
	oversized[len(oversized)-1].Status = StatusDown

	w.Restore(oversized)
	if got := len(w.History()); got != historyCap {
		t.Errorf("restored history length: got %d, want %d", got, historyCap)
	}
	last, _ := w.LastCheck()
	if last.Status != StatusDown {
		t.Errorf("expected newest entry preserved, got %+v", last)
	}
}

// TestCommandRestarterNoCommand verifies the unconfigured case is a failed
// attempt rather than an error.
func TestCommandRestarterNoCommand(t *testing.T) {
	r := &CommandRestarter{}
	res, err := r.Restart(context.Background())
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if res.Success {
		t.Errorf("expected failure without a configured command")
	}
}
