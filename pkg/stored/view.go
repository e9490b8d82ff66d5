package stored

import (
	"fmt"
	"reflect"
)

// View is a copyable handle that exposes a stored value through the
// capability interface I while the slot keeps the value's concrete type.
//
// The concrete type can be recovered with [Downcast]. A View remembers the
// identity of the payload it was created for; once that payload is replaced
// (by [View.Set], [Value.Set] or [Slice.Set] through any handle to the same
// slot) the View still reads the live payload but can no longer be
// downcast. Use [View.Refresh] to rebind it.
type View[I any] struct {
	h  handle
	id identity
}

// NewView stores v with its concrete type and returns a view of it as I.
//
// NewView panics if v is a nil interface, o has no runtime or o has been
// disposed.
func NewView[I any](o Owner, v I) View[I] {
	ptr, tag := boxDynamic(v)
	if ptr == nil {
		panic(&AccessError{Op: opStore, Err: errNilView[I]()})
	}

	h := mustStore(o, ptr, tag)

	return View[I]{h: h, id: identity{tag: tag}}
}

func errNilView[I any]() error {
	return fmt.Errorf("nil %s: %w", reflect.TypeFor[I](), ErrTypeMismatch)
}

// boxDynamic copies v into a freshly allocated variable of v's dynamic type
// and returns a pointer to it.
func boxDynamic(v any) (any, TypeTag) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, 0
	}

	box := reflect.New(rv.Type())
	box.Elem().Set(rv)

	return box.Interface(), TagOf(rv.Type())
}

// capability returns the payload behind ptr as I. The pointer itself is
// preferred so that pointer-receiver methods act on the stored value.
func capability[I any](ptr any) (I, bool) {
	if c, ok := ptr.(I); ok {
		return c, true
	}

	c, ok := reflect.ValueOf(ptr).Elem().Interface().(I)

	return c, ok
}

func (v View[I]) capability(op string) (*cell, I, *AccessError) {
	var zero I

	c, err := v.h.cell(op)
	if err != nil {
		return nil, zero, err
	}

	capa, ok := capability[I](c.ptr)
	if !ok {
		return nil, zero, v.h.fail(op, ErrTypeMismatch)
	}

	return c, capa, nil
}

func (v View[I]) read(op string, f func(I)) *AccessError {
	c, capa, err := v.capability(op)
	if err != nil {
		return err
	}

	v.h.read(c, op, func() { f(capa) })

	return nil
}

func (v View[I]) write(op string, f func(I)) *AccessError {
	c, capa, err := v.capability(op)
	if err != nil {
		return err
	}

	v.h.write(c, op, func() { f(capa) })

	return nil
}

// WithValue runs f with the payload as I under a read guard.
func (v View[I]) WithValue(f func(I)) {
	v.h.must(v.read(opWith, f))
}

// TryWithValue is like WithValue but reports false if the slot is gone.
func (v View[I]) TryWithValue(f func(I)) bool {
	return v.read(opWith, f) == nil
}

// UpdateValue runs f with the payload as I under a write guard. Calls to
// pointer-receiver methods of the concrete type mutate the stored value.
func (v View[I]) UpdateValue(f func(I)) {
	v.h.must(v.write(opUpdate, f))
}

// TryUpdateValue is like UpdateValue but reports false if the slot is gone.
func (v View[I]) TryUpdateValue(f func(I)) bool {
	return v.write(opUpdate, f) == nil
}

// Set replaces the payload with val, which may have a different concrete
// type than the current payload. Set panics if the slot is gone, any access
// to it is in progress, or val is a nil interface.
func (v View[I]) Set(val I) {
	c, err := v.h.cell(opSet)
	v.h.must(err)

	ptr, tag := boxDynamic(val)
	if ptr == nil {
		v.h.must(v.h.fail(opSet, errNilView[I]()))
	}

	v.h.write(c, opSet, func() { c.replace(ptr, tag) })
}

// TrySet is like Set but returns val back with ok == false if the slot is
// gone or val is a nil interface.
func (v View[I]) TrySet(val I) (I, bool) {
	c, err := v.h.cell(opSet)
	if err != nil {
		return val, false
	}

	ptr, tag := boxDynamic(val)
	if ptr == nil {
		return val, false
	}

	v.h.write(c, opSet, func() { c.replace(ptr, tag) })

	var zero I

	return zero, true
}

// Refresh returns a copy of v bound to the slot's current payload, so it can
// be downcast again after a replacement.
func (v View[I]) Refresh() (View[I], bool) {
	c, err := v.h.cell(opWith)
	if err != nil {
		return v, false
	}

	if _, ok := capability[I](c.ptr); !ok {
		return v, false
	}

	return View[I]{h: v.h, id: c.identity()}, true
}

// Dispose removes the slot now. Dispose is idempotent.
func (v View[I]) Dispose() {
	v.h.dispose()
}

// IsDisposed reports whether the slot is gone.
func (v View[I]) IsDisposed() bool {
	return v.h.isDisposed()
}

// Key returns the slot key.
func (v View[I]) Key() Key {
	return v.h.key()
}

// Equal reports whether v and other refer to the same slot.
func (v View[I]) Equal(other View[I]) bool {
	return v.h.key() == other.h.key()
}

// Runtime returns the runtime that issued v, or nil for a zero View.
func (v View[I]) Runtime() *Runtime {
	return v.h.rt
}

func (v View[I]) String() string {
	return fmt.Sprintf("View[%s](%s)", reflect.TypeFor[I](), v.h.key())
}

func (v View[I]) downcastSource() (handle, identity) {
	return v.h, v.id
}
