package stored

import (
	"fmt"
	"reflect"
)

// Const is a copyable handle to a read-only T. It suits values that are
// expensive or impossible to copy and are shared rather than modified.
type Const[T any] struct {
	h handle
}

// NewConst stores v as a read-only value.
func NewConst[T any](o Owner, v T) Const[T] {
	p := new(T)
	*p = v

	return Const[T]{h: mustStore(o, p, TagFor[T]())}
}

func (c Const[T]) read(op string, f func(*T)) *AccessError {
	cl, err := c.h.cell(op)
	if err != nil {
		return err
	}

	p, ok := cl.ptr.(*T)
	if !ok {
		return c.h.fail(op, ErrTypeMismatch)
	}

	c.h.read(cl, op, func() { f(p) })

	return nil
}

// Get returns the shared pointer to the stored value. The pointer stays
// valid after disposal, but callers must not write through it.
func (c Const[T]) Get() *T {
	p, err := c.get()
	c.h.must(err)

	return p
}

// TryGet is like Get but reports false if the slot is gone.
func (c Const[T]) TryGet() (*T, bool) {
	p, err := c.get()
	return p, err == nil
}

func (c Const[T]) get() (*T, *AccessError) {
	var out *T

	err := c.read(opGet, func(p *T) { out = p })

	return out, err
}

// WithValue runs f with the stored value under a read guard.
func (c Const[T]) WithValue(f func(*T)) {
	c.h.must(c.read(opWith, f))
}

// TryWithValue is like WithValue but reports false if the slot is gone.
func (c Const[T]) TryWithValue(f func(*T)) bool {
	return c.read(opWith, f) == nil
}

// Dispose removes the slot now. Dispose is idempotent.
func (c Const[T]) Dispose() {
	c.h.dispose()
}

// IsDisposed reports whether the slot is gone.
func (c Const[T]) IsDisposed() bool {
	return c.h.isDisposed()
}

// Key returns the slot key.
func (c Const[T]) Key() Key {
	return c.h.key()
}

// Equal reports whether c and other refer to the same slot.
func (c Const[T]) Equal(other Const[T]) bool {
	return c.h.key() == other.h.key()
}

// Runtime returns the runtime that issued c, or nil for a zero Const.
func (c Const[T]) Runtime() *Runtime {
	return c.h.rt
}

func (c Const[T]) String() string {
	return fmt.Sprintf("Const[%s](%s)", reflect.TypeFor[T](), c.h.key())
}
