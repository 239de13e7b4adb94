package dispatch

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

// TestRegisterValidation verifies rejection of empty names and nil handlers.
func TestRegisterValidation(t *testing.T) {
	d := New(zap.NewNop())

	if err := d.Register("", func(context.Context) error { return nil }); !errors.Is(err, ErrEmptyAction) {
		t.Errorf("empty name: expected ErrEmptyAction, got %v", err)
	}
	if err := d.Register("x", nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("nil handler: expected ErrNilHandler, got %v", err)
	}
	if d.Registered("x") {
		t.Error("rejected registration must not be stored")
	}
}

// TestRegisterLastWins verifies that re-registering a name replaces the
// previous handler.
func TestRegisterLastWins(t *testing.T) {
	d := New(zap.NewNop())

	var called string
	if err := d.Register("act", func(context.Context) error { called = "first"; return nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := d.Register("act", func(context.Context) error { called = "second"; return nil }); err != nil {
		t.Fatalf("re-register: %v", err)
	}

	executed := d.Dispatch(context.Background(), []string{"act"})
	if len(executed) != 1 || executed[0] != "act" {
		t.Fatalf("expected [act] executed, got %v", executed)
	}
	if called != "second" {
		t.Errorf("expected replacement handler to run, got %q", called)
	}
}

// TestDispatchIsolatesFailures verifies that one failing handler does not
// block the remaining actions: dispatching a, b, c where b fails still
// executes a and c.
func TestDispatchIsolatesFailures(t *testing.T) {
	d := New(zap.NewNop())

	register := func(name string, err error) {
		t.Helper()
		if regErr := d.Register(name, func(context.Context) error { return err }); regErr != nil {
			t.Fatalf("register %s: %v", name, regErr)
		}
	}
	register("a", nil)
	register("b", errors.New("boom"))
	register("c", nil)

	executed := d.Dispatch(context.Background(), []string{"a", "b", "c"})
	if len(executed) != 2 || executed[0] != "a" || executed[1] != "c" {
		t.Errorf("expected [a c], got %v", executed)
	}
}

// TestDispatchRecoversPanic verifies that a panicking handler is contained
// the same way as an erroring one.
func TestDispatchRecoversPanic(t *testing.T) {
	d := New(zap.NewNop())

	if err := d.Register("panics", func(context.Context) error { panic("handler bug") }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := d.Register("fine", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("register: %v", err)
	}

	executed := d.Dispatch(context.Background(), []string{"panics", "fine"})
	if len(executed) != 1 || executed[0] != "fine" {
		t.Errorf("expected [fine], got %v", executed)
	}
}

// TestDispatchUnregisteredIsNotAnError verifies that unhandled actions are
// skipped silently: proposed-but-not-executed, no failure.
func TestDispatchUnregisteredIsNotAnError(t *testing.T) {
	d := New(zap.NewNop())

	executed := d.Dispatch(context.Background(), []string{"ghost"})
	if len(executed) != 0 {
		t.Errorf("expected no executions, got %v", executed)
	}
}

// TestDispatchExecutedIsSubsetOfProposed verifies the core invariant across
// a mixed dispatch.
func TestDispatchExecutedIsSubsetOfProposed(t *testing.T) {
	d := New(zap.NewNop())
	if err := d.Register("known", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("register: %v", err)
	}

	proposed := []string{"known", "unknown", "also-unknown"}
	executed := d.Dispatch(context.Background(), proposed)

	set := make(map[string]bool)
	for _, p := range proposed {
		set[p] = true
	}
	for _, e := range executed {
		if !set[e] {
			t.Errorf("%q executed but not proposed", e)
		}
	}
}
