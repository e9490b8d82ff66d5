package stored

import (
	"errors"
	"fmt"
)

// Sentinel errors describing why an access through a handle failed.
//
// Strict handle methods panic with an [*AccessError] wrapping one of these;
// fallible methods report ok == false; the *Err variants return the
// [*AccessError] directly. Callers should use [errors.Is]:
//
//	if _, err := stored.WithErr(h, read); errors.Is(err, stored.ErrDisposed) {
//	    // value was torn down while we were suspended
//	}
var (
	// ErrDisposed indicates the slot is gone: disposed explicitly, torn
	// down with its scope, or the runtime itself was disposed.
	//
	// Recovery: none for that handle. Expected when disposal races with
	// access, so use the fallible variants at such call sites.
	ErrDisposed = errors.New("stored: disposed")

	// ErrNoRuntime indicates the handle has no runtime, typically a zero
	// handle that was never returned by a constructor.
	//
	// This is a programming error.
	ErrNoRuntime = errors.New("stored: no runtime")

	// ErrAliasing indicates an access overlapped a conflicting access to the
	// same slot: a write while any guard was held, or a read while a write
	// guard was held.
	//
	// This is a programming error and always panics, even from the fallible
	// variants.
	ErrAliasing = errors.New("stored: aliasing violation")

	// ErrTypeMismatch indicates the live payload does not have the type the
	// handle claims, or a downcast requested an incompatible type.
	//
	// Downcast reports this as ok == false; MustDowncast panics.
	ErrTypeMismatch = errors.New("stored: type mismatch")

	// ErrScopeDisposed indicates a value was stored into a scope that has
	// already been torn down.
	//
	// This is a programming error.
	ErrScopeDisposed = errors.New("stored: scope disposed")
)

// AccessError records which operation on which handle failed.
type AccessError struct {
	Op  string // "with", "update", "set", "downcast", ...
	Key Key    // handle that was accessed
	Err error  // one of the sentinel errors above
}

func (e *AccessError) Error() string {
	what := "could not get stored value"
	if e.Op == opDowncast && errors.Is(e.Err, ErrTypeMismatch) {
		what = "downcasted to wrong type"
	}

	return fmt.Sprintf("%s: %s %s: %v", what, e.Op, e.Key, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}

// Operation names used in AccessError.Op.
const (
	opStore    = "store"
	opWith     = "with"
	opUpdate   = "update"
	opGet      = "get"
	opSet      = "set"
	opDowncast = "downcast"
	opAsView   = "as-view"
)
