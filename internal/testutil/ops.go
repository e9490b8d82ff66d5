// Package testutil provides ops and results for model-vs-runtime behavior
// tests of package stored.
package testutil

import (
	"errors"
	"fmt"
	"slices"

	"github.com/calvinalkan/slotarena/pkg/stored"
	"github.com/calvinalkan/slotarena/pkg/stored/model"
)

// Result is an operation outcome. Err is compared by sentinel class only;
// Elems is compared when both sides succeed and return a payload.
type Result struct {
	Err   error
	Elems []int
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// ErrorClass maps err to the sentinel it wraps, or "" for nil.
func ErrorClass(err error) string {
	if err == nil {
		return ""
	}

	for _, sentinel := range []error{
		stored.ErrDisposed,
		stored.ErrNoRuntime,
		stored.ErrAliasing,
		stored.ErrTypeMismatch,
		stored.ErrScopeDisposed,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}

	return "unexpected: " + err.Error()
}

// Op is a behavior test operation executed against model and runtime.
type Op interface {
	ApplyModel(h *Harness) Result
	ApplyReal(h *Harness) Result
	String() string
}

// OpStore stores a new value in a scope.
type OpStore struct {
	Scope int
	Kind  model.Kind
	Elems []int
}

func (o OpStore) ApplyReal(h *Harness) Result {
	handle, err := h.store(o.Scope, o.Kind, o.Elems)
	if err != nil {
		return Result{Err: err}
	}

	h.handles = append(h.handles, handle)

	return Result{}
}

func (o OpStore) ApplyModel(h *Harness) Result {
	_, err := h.Model.Store(o.Scope, o.Kind, o.Elems)
	return Result{Err: err}
}

func (o OpStore) String() string {
	return fmt.Sprintf("Store(scope=%d, %s, %v)", o.Scope, o.Kind, o.Elems)
}

// OpNewScope creates a child scope.
type OpNewScope struct {
	Parent int
}

func (o OpNewScope) ApplyReal(h *Harness) Result {
	var child *stored.Scope

	err := catch(func() { child = h.scopes[o.Parent].Child() })
	if err != nil {
		return Result{Err: err}
	}

	h.scopes = append(h.scopes, child)

	return Result{}
}

func (o OpNewScope) ApplyModel(h *Harness) Result {
	_, err := h.Model.NewScope(o.Parent)
	return Result{Err: err}
}

func (o OpNewScope) String() string {
	return fmt.Sprintf("NewScope(parent=%d)", o.Parent)
}

// OpDisposeScope tears a scope down.
type OpDisposeScope struct {
	Scope int
}

func (o OpDisposeScope) ApplyReal(h *Harness) Result {
	h.scopes[o.Scope].Dispose()
	return Result{}
}

func (o OpDisposeScope) ApplyModel(h *Harness) Result {
	h.Model.DisposeScope(o.Scope)
	return Result{}
}

func (o OpDisposeScope) String() string {
	return fmt.Sprintf("DisposeScope(%d)", o.Scope)
}

// OpGet reads a payload.
type OpGet struct {
	Handle int
}

func (o OpGet) ApplyReal(h *Harness) Result {
	elems, err := h.handle(o.Handle).get()
	return Result{Err: err, Elems: elems}
}

func (o OpGet) ApplyModel(h *Harness) Result {
	elems, err := h.Model.Get(o.Handle)
	return Result{Err: err, Elems: elems}
}

func (o OpGet) String() string {
	return fmt.Sprintf("Get(h%d)", o.Handle)
}

// OpSet replaces a payload.
type OpSet struct {
	Handle int
	Elems  []int
}

func (o OpSet) ApplyReal(h *Harness) Result {
	return Result{Err: h.handle(o.Handle).set(o.Elems)}
}

func (o OpSet) ApplyModel(h *Harness) Result {
	return Result{Err: h.Model.Set(o.Handle, o.Elems)}
}

func (o OpSet) String() string {
	return fmt.Sprintf("Set(h%d, %v)", o.Handle, o.Elems)
}

// OpAdd mutates a payload in place.
type OpAdd struct {
	Handle int
	Delta  int
}

func (o OpAdd) ApplyReal(h *Harness) Result {
	return Result{Err: h.handle(o.Handle).add(o.Delta)}
}

func (o OpAdd) ApplyModel(h *Harness) Result {
	return Result{Err: h.Model.Add(o.Handle, o.Delta)}
}

func (o OpAdd) String() string {
	return fmt.Sprintf("Add(h%d, %+d)", o.Handle, o.Delta)
}

// OpDispose disposes a single slot.
type OpDispose struct {
	Handle int
}

func (o OpDispose) ApplyReal(h *Harness) Result {
	h.handle(o.Handle).dispose()
	return Result{}
}

func (o OpDispose) ApplyModel(h *Harness) Result {
	h.Model.Dispose(o.Handle)
	return Result{}
}

func (o OpDispose) String() string {
	return fmt.Sprintf("Dispose(h%d)", o.Handle)
}

// OpDowncast re-types a view or slice handle and appends the result.
type OpDowncast struct {
	Handle int
}

func (o OpDowncast) ApplyReal(h *Harness) Result {
	src := h.handle(o.Handle)

	d, ok := src.(erasedHandle)
	if !ok {
		// Only views and slices can be downcast.
		if _, err := src.get(); err != nil {
			return Result{Err: err}
		}

		return Result{Err: stored.ErrTypeMismatch}
	}

	out, err := d.downcast()
	if err != nil {
		return Result{Err: err}
	}

	h.handles = append(h.handles, out)

	return Result{}
}

func (o OpDowncast) ApplyModel(h *Harness) Result {
	_, err := h.Model.Downcast(o.Handle)
	return Result{Err: err}
}

func (o OpDowncast) String() string {
	return fmt.Sprintf("Downcast(h%d)", o.Handle)
}

// OpRefresh rebinds a view or slice handle to the live payload.
type OpRefresh struct {
	Handle int
}

func (o OpRefresh) ApplyReal(h *Harness) Result {
	src := h.handle(o.Handle)

	d, ok := src.(erasedHandle)
	if !ok {
		_, err := src.get()
		return Result{Err: err}
	}

	fresh, err := d.refresh()
	if err != nil {
		return Result{Err: err}
	}

	h.handles[o.Handle] = fresh

	return Result{}
}

func (o OpRefresh) ApplyModel(h *Harness) Result {
	return Result{Err: h.Model.Refresh(o.Handle)}
}

func (o OpRefresh) String() string {
	return fmt.Sprintf("Refresh(h%d)", o.Handle)
}

// OpNested reads Inner while holding Outer's write guard. Two handles to
// the same live slot must report an aliasing violation.
type OpNested struct {
	Outer int
	Inner int
}

func (o OpNested) ApplyReal(h *Harness) Result {
	outer := h.handle(o.Outer)
	inner := h.handle(o.Inner)

	var innerErr error

	err := catch(func() {
		err := outer.within(func() { _, innerErr = inner.get() })
		if err != nil {
			panic(err)
		}
	})
	if err != nil {
		return Result{Err: err}
	}

	return Result{Err: innerErr}
}

func (o OpNested) ApplyModel(h *Harness) Result {
	if _, err := h.Model.Get(o.Outer); err != nil {
		return Result{Err: err}
	}

	if _, err := h.Model.Get(o.Inner); err != nil {
		return Result{Err: err}
	}

	if h.Model.Handles[o.Outer].Slot == h.Model.Handles[o.Inner].Slot {
		return Result{Err: stored.ErrAliasing}
	}

	return Result{}
}

func (o OpNested) String() string {
	return fmt.Sprintf("Nested(h%d { h%d })", o.Outer, o.Inner)
}

// OpDisposeRuntime disposes the whole runtime.
type OpDisposeRuntime struct{}

func (OpDisposeRuntime) ApplyReal(h *Harness) Result {
	h.Runtime.Dispose()
	return Result{}
}

func (OpDisposeRuntime) ApplyModel(h *Harness) Result {
	h.Model.DisposeAll()
	return Result{}
}

func (OpDisposeRuntime) String() string {
	return "DisposeRuntime()"
}

// compareResults compares model and real results.
func compareResults(op Op, modelRes, realRes Result) error {
	if ErrorClass(modelRes.Err) != ErrorClass(realRes.Err) {
		return fmt.Errorf("result mismatch: %s, model: %v, real: %v", op, modelRes.Err, realRes.Err)
	}

	if modelRes.OK() && !slices.Equal(modelRes.Elems, realRes.Elems) {
		return fmt.Errorf("payload mismatch: %s, model: %v, real: %v", op, modelRes.Elems, realRes.Elems)
	}

	return nil
}
