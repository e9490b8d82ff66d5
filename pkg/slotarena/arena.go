package slotarena

import (
	"fmt"
	"iter"
)

// firstGeneration is the generation of a never-used index. Starting at 1
// keeps the zero SlotID invalid.
const firstGeneration uint32 = 1

// retiredGeneration marks an index whose generation counter is exhausted.
// Retired indices are never handed out again.
const retiredGeneration uint32 = 0

// SlotID addresses one slot in an [Arena].
//
// A given (Index, Generation) pair names at most one payload over the
// lifetime of the arena. The zero SlotID never names a live slot.
type SlotID struct {
	Index      uint32
	Generation uint32
}

// IsZero reports whether id is the zero SlotID.
func (id SlotID) IsZero() bool {
	return id == SlotID{}
}

// String renders id as "<index>v<generation>".
func (id SlotID) String() string {
	return fmt.Sprintf("%dv%d", id.Index, id.Generation)
}

// entry is one index in the arena. When occupied is false, generation is the
// generation the next insert at this index will receive.
type entry[V any] struct {
	value      V
	generation uint32
	occupied   bool
}

// Arena is a generation-checked slot arena. The zero value is ready to use.
type Arena[V any] struct {
	entries []entry[V]
	free    []uint32 // LIFO stack of reusable indices
	live    int
}

// New returns an arena with room for capacity slots before growing.
func New[V any](capacity int) *Arena[V] {
	if capacity < 0 {
		capacity = 0
	}

	return &Arena[V]{entries: make([]entry[V], 0, capacity)}
}

// Insert stores v and returns its SlotID. Insert always succeeds.
//
// The returned SlotID has never been issued before by this arena. Its index
// may be recycled from a removed slot, in which case its generation is
// strictly greater than any generation issued earlier for that index.
func (a *Arena[V]) Insert(v V) SlotID {
	a.live++

	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]

		e := &a.entries[idx]
		e.value = v
		e.occupied = true

		return SlotID{Index: idx, Generation: e.generation}
	}

	idx := uint32(len(a.entries)) //nolint:gosec // arena never exceeds MaxUint32 slots in practice
	a.entries = append(a.entries, entry[V]{value: v, generation: firstGeneration, occupied: true})

	return SlotID{Index: idx, Generation: firstGeneration}
}

// Get returns the payload stored at id. ok is false if id is stale, zero or
// was never issued.
func (a *Arena[V]) Get(id SlotID) (V, bool) {
	e := a.lookup(id)
	if e == nil {
		var zero V
		return zero, false
	}

	return e.value, true
}

// Contains reports whether id names a live slot.
func (a *Arena[V]) Contains(id SlotID) bool {
	return a.lookup(id) != nil
}

// Remove removes and returns the payload stored at id.
//
// The index's generation is bumped and the index becomes reusable. Remove is
// idempotent: a second call with the same id returns ok == false.
func (a *Arena[V]) Remove(id SlotID) (V, bool) {
	e := a.lookup(id)
	if e == nil {
		var zero V
		return zero, false
	}

	v := e.value

	var zero V
	e.value = zero
	e.occupied = false
	e.generation++
	a.live--

	if e.generation != retiredGeneration {
		a.free = append(a.free, id.Index)
	}

	return v, true
}

// Len returns the number of live slots.
func (a *Arena[V]) Len() int {
	return a.live
}

// Cap returns the number of indices the arena has allocated, live or free.
func (a *Arena[V]) Cap() int {
	return len(a.entries)
}

// Free returns the number of indices waiting to be reused.
func (a *Arena[V]) Free() int {
	return len(a.free)
}

// All iterates over live slots in index order.
//
// Removing the slot currently being visited is allowed; inserting during
// iteration is not.
func (a *Arena[V]) All() iter.Seq2[SlotID, V] {
	return func(yield func(SlotID, V) bool) {
		for i := range a.entries {
			e := &a.entries[i]
			if !e.occupied {
				continue
			}

			id := SlotID{Index: uint32(i), Generation: e.generation} //nolint:gosec // bounded by Insert
			if !yield(id, e.value) {
				return
			}
		}
	}
}

// Clear removes every live slot, bumping each removed index's generation.
func (a *Arena[V]) Clear() {
	for i := range a.entries {
		e := &a.entries[i]
		if !e.occupied {
			continue
		}

		a.Remove(SlotID{Index: uint32(i), Generation: e.generation}) //nolint:gosec // bounded by Insert
	}
}

func (a *Arena[V]) lookup(id SlotID) *entry[V] {
	if id.Generation == retiredGeneration || int(id.Index) >= len(a.entries) {
		return nil
	}

	e := &a.entries[id.Index]
	if !e.occupied || e.generation != id.Generation {
		return nil
	}

	return e
}
