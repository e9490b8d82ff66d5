package stored_test

import (
	"errors"
	"testing"

	"github.com/calvinalkan/slotarena/pkg/stored"
)

// counter is an uncloneable-by-convention payload used across tests.
type counter struct {
	n int
}

// label is a string with a value-receiver String method.
type label string

func (l label) String() string { return string(l) }

// tally has a pointer-receiver mutator, so it only acts on the stored value
// when reached through a pointer.
type tally struct {
	hits int
}

func (t *tally) Hit() int {
	t.hits++
	return t.hits
}

type hitter interface {
	Hit() int
}

func newRuntime(t *testing.T) *stored.Runtime {
	t.Helper()

	rt := stored.NewRuntime(stored.Options{})
	t.Cleanup(rt.Dispose)

	return rt
}

// mustPanicAccess runs f and returns the *AccessError it panicked with.
func mustPanicAccess(t *testing.T, f func()) *stored.AccessError {
	t.Helper()

	var got any

	func() {
		defer func() { got = recover() }()

		f()
	}()

	if got == nil {
		t.Fatal("expected panic, got none")
	}

	err, ok := got.(error)
	if !ok {
		t.Fatalf("panic value %T (%v) is not an error", got, got)
	}

	var accessErr *stored.AccessError
	if !errors.As(err, &accessErr) {
		t.Fatalf("panic value %T (%v) is not an *AccessError", got, got)
	}

	return accessErr
}
