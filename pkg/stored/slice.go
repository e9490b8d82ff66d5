package stored

import (
	"fmt"
	"reflect"
	"slices"
)

// Slice is a copyable handle to a run of E values whose length is fixed when
// stored.
//
// The payload is stored as an array [N]E, so a Slice can be downcast to
// Value[[N]E] for exactly its current N. Closures receive a []E view of the
// stored array: elements may be mutated under [Slice.UpdateValue], but the
// length can only change through [Slice.Set], which replaces the payload.
type Slice[E any] struct {
	h  handle
	id identity
}

// NewSlice copies elems into a new fixed-size array and stores it.
func NewSlice[E any](o Owner, elems ...E) Slice[E] {
	ptr, tag := boxArray(elems)
	h := mustStore(o, ptr, tag)

	return Slice[E]{h: h, id: identity{tag: tag}}
}

// boxArray copies elems into a new [len(elems)]E and returns a pointer to it.
func boxArray[E any](elems []E) (any, TypeTag) {
	t := reflect.ArrayOf(len(elems), reflect.TypeFor[E]())
	box := reflect.New(t)
	reflect.Copy(box.Elem(), reflect.ValueOf(elems))

	return box.Interface(), TagOf(t)
}

func (s Slice[E]) elems(op string) (*cell, []E, *AccessError) {
	c, err := s.h.cell(op)
	if err != nil {
		return nil, nil, err
	}

	rv := reflect.ValueOf(c.ptr).Elem()
	if rv.Kind() != reflect.Array || rv.Type().Elem() != reflect.TypeFor[E]() {
		return nil, nil, s.h.fail(op, ErrTypeMismatch)
	}

	view, ok := rv.Slice(0, rv.Len()).Interface().([]E)
	if !ok {
		return nil, nil, s.h.fail(op, ErrTypeMismatch)
	}

	return c, view, nil
}

func (s Slice[E]) read(op string, f func([]E)) *AccessError {
	c, view, err := s.elems(op)
	if err != nil {
		return err
	}

	s.h.read(c, op, func() { f(view) })

	return nil
}

func (s Slice[E]) write(op string, f func([]E)) *AccessError {
	c, view, err := s.elems(op)
	if err != nil {
		return err
	}

	s.h.write(c, op, func() { f(view) })

	return nil
}

// WithValue runs f with a view of the stored elements under a read guard.
// f must not retain or modify the slice.
func (s Slice[E]) WithValue(f func([]E)) {
	s.h.must(s.read(opWith, f))
}

// TryWithValue is like WithValue but reports false if the slot is gone.
func (s Slice[E]) TryWithValue(f func([]E)) bool {
	return s.read(opWith, f) == nil
}

// UpdateValue runs f with a mutable view of the stored elements under a
// write guard. f must not retain the slice.
func (s Slice[E]) UpdateValue(f func([]E)) {
	s.h.must(s.write(opUpdate, f))
}

// TryUpdateValue is like UpdateValue but reports false if the slot is gone.
func (s Slice[E]) TryUpdateValue(f func([]E)) bool {
	return s.write(opUpdate, f) == nil
}

// GetOwned returns an independent copy of the stored elements.
func (s Slice[E]) GetOwned() []E {
	out, err := s.getOwned()
	s.h.must(err)

	return out
}

// TryGetOwned is like GetOwned but reports false if the slot is gone.
func (s Slice[E]) TryGetOwned() ([]E, bool) {
	out, err := s.getOwned()
	return out, err == nil
}

func (s Slice[E]) getOwned() ([]E, *AccessError) {
	var out []E

	err := s.read(opGet, func(view []E) { out = slices.Clone(view) })

	return out, err
}

// Len returns the number of stored elements. Len panics if the slot is gone.
func (s Slice[E]) Len() int {
	_, view, err := s.elems(opGet)
	s.h.must(err)

	return len(view)
}

// Set replaces the payload with a copy of elems. The length may differ from
// the current one. Set panics if the slot is gone or any access to it is in
// progress.
func (s Slice[E]) Set(elems []E) {
	c, err := s.h.cell(opSet)
	s.h.must(err)

	s.replace(c, elems)
}

// TrySet is like Set but returns elems back with ok == false if the slot is
// gone.
func (s Slice[E]) TrySet(elems []E) ([]E, bool) {
	c, err := s.h.cell(opSet)
	if err != nil {
		return elems, false
	}

	s.replace(c, elems)

	return nil, true
}

func (s Slice[E]) replace(c *cell, elems []E) {
	ptr, tag := boxArray(elems)
	s.h.write(c, opSet, func() { c.replace(ptr, tag) })
}

// Refresh returns a copy of s bound to the slot's current payload.
func (s Slice[E]) Refresh() (Slice[E], bool) {
	c, _, err := s.elems(opWith)
	if err != nil {
		return s, false
	}

	return Slice[E]{h: s.h, id: c.identity()}, true
}

// Dispose removes the slot now. Dispose is idempotent.
func (s Slice[E]) Dispose() {
	s.h.dispose()
}

// IsDisposed reports whether the slot is gone.
func (s Slice[E]) IsDisposed() bool {
	return s.h.isDisposed()
}

// Key returns the slot key.
func (s Slice[E]) Key() Key {
	return s.h.key()
}

// Equal reports whether s and other refer to the same slot.
func (s Slice[E]) Equal(other Slice[E]) bool {
	return s.h.key() == other.h.key()
}

// Runtime returns the runtime that issued s, or nil for a zero Slice.
func (s Slice[E]) Runtime() *Runtime {
	return s.h.rt
}

func (s Slice[E]) String() string {
	return fmt.Sprintf("Slice[%s](%s)", reflect.TypeFor[E](), s.h.key())
}

func (s Slice[E]) downcastSource() (handle, identity) {
	return s.h, s.id
}
