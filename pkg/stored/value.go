package stored

import (
	"fmt"
	"reflect"
)

// Value is a copyable handle to a T stored in a [Runtime].
//
// A Value does not own its payload: the payload lives until the slot is
// disposed, explicitly or by its owner, regardless of how many copies of the
// handle exist. Two Values are == iff they refer to the same slot of the same
// runtime.
type Value[T any] struct {
	h handle
}

// New stores v in o's runtime, registers it with o and returns its handle.
//
// New panics if o has no runtime or o has been disposed; use [TryNew] where
// that can legitimately happen.
func New[T any](o Owner, v T) Value[T] {
	p := new(T)
	*p = v

	return Value[T]{h: mustStore(o, p, TagFor[T]())}
}

// TryNew is like [New] but returns an error instead of panicking.
func TryNew[T any](o Owner, v T) (Value[T], error) {
	p := new(T)
	*p = v

	h, err := store(o, p, TagFor[T]())
	if err != nil {
		return Value[T]{}, err
	}

	return Value[T]{h: h}, nil
}

// Default stores the zero value of T.
func Default[T any](o Owner) Value[T] {
	var zero T
	return New(o, zero)
}

func (v Value[T]) pointer(op string) (*cell, *T, *AccessError) {
	c, err := v.h.cell(op)
	if err != nil {
		return nil, nil, err
	}

	// ptr's dynamic type is exactly the type named by c.tag, so this
	// assertion is the tag comparison.
	p, ok := c.ptr.(*T)
	if !ok {
		return nil, nil, v.h.fail(op, ErrTypeMismatch)
	}

	return c, p, nil
}

func (v Value[T]) read(op string, f func(*T)) *AccessError {
	c, p, err := v.pointer(op)
	if err != nil {
		return err
	}

	v.h.read(c, op, func() { f(p) })

	return nil
}

func (v Value[T]) write(op string, f func(*T)) *AccessError {
	c, p, err := v.pointer(op)
	if err != nil {
		return err
	}

	v.h.write(c, op, func() { f(p) })

	return nil
}

// WithValue runs f with a pointer to the payload under a read guard.
// f must not retain the pointer or write through it.
func (v Value[T]) WithValue(f func(*T)) {
	v.h.must(v.read(opWith, f))
}

// TryWithValue is like WithValue but reports false if the slot is gone.
func (v Value[T]) TryWithValue(f func(*T)) bool {
	return v.read(opWith, f) == nil
}

// UpdateValue runs f with a pointer to the payload under a write guard.
func (v Value[T]) UpdateValue(f func(*T)) {
	v.h.must(v.write(opUpdate, f))
}

// TryUpdateValue is like UpdateValue but reports false if the slot is gone.
func (v Value[T]) TryUpdateValue(f func(*T)) bool {
	return v.write(opUpdate, f) == nil
}

// Get returns a copy of the payload. The copy is shallow: maps, slices and
// pointers inside T are shared with the stored value.
func (v Value[T]) Get() T {
	out, err := v.get()
	v.h.must(err)

	return out
}

// TryGet is like Get but reports false if the slot is gone.
func (v Value[T]) TryGet() (T, bool) {
	out, err := v.get()
	return out, err == nil
}

// GetErr is like Get but returns the failure as an [*AccessError].
func (v Value[T]) GetErr() (T, error) {
	out, err := v.get()
	if err != nil {
		return out, err
	}

	return out, nil
}

func (v Value[T]) get() (T, *AccessError) {
	var out T

	err := v.read(opGet, func(p *T) { out = *p })

	return out, err
}

// Set replaces the payload.
//
// Set panics if the slot is gone or any access to it is in progress.
func (v Value[T]) Set(val T) {
	c, p, err := v.pointer(opSet)
	v.h.must(err)

	v.replace(c, p, val)
}

// TrySet replaces the payload if the slot is live. If it is not, TrySet
// returns val back to the caller with ok == false.
func (v Value[T]) TrySet(val T) (T, bool) {
	c, p, err := v.pointer(opSet)
	if err != nil {
		return val, false
	}

	v.replace(c, p, val)

	var zero T

	return zero, true
}

func (v Value[T]) replace(c *cell, p *T, val T) {
	v.h.write(c, opSet, func() {
		*p = val
		c.epoch++
	})
}

// Dispose removes the slot now, ahead of its owner's teardown. Dispose is
// idempotent.
func (v Value[T]) Dispose() {
	v.h.dispose()
}

// IsDisposed reports whether the slot is gone.
func (v Value[T]) IsDisposed() bool {
	return v.h.isDisposed()
}

// Key returns the slot key.
func (v Value[T]) Key() Key {
	return v.h.key()
}

// Equal reports whether v and other refer to the same slot.
func (v Value[T]) Equal(other Value[T]) bool {
	return v.h.key() == other.h.key()
}

// Runtime returns the runtime that issued v, or nil for a zero Value.
func (v Value[T]) Runtime() *Runtime {
	return v.h.rt
}

func (v Value[T]) String() string {
	return fmt.Sprintf("Value[%s](%s)", reflect.TypeFor[T](), v.h.key())
}
