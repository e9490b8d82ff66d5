// Package model provides a deliberately simple, in-memory state model of
// the stored runtime's publicly observable behavior.
//
// The model is easy to audit: payloads are runs of ints, types are strings,
// and nothing is reused. Slot ids are never recycled here, which is exactly
// the property the real arena must make unobservable.
package model

import (
	"fmt"
	"slices"

	"github.com/calvinalkan/slotarena/pkg/stored"
)

// Kind says which handle type a model handle stands for.
type Kind uint8

// Handle kinds mirrored by the model.
const (
	KindValue Kind = iota + 1 // Value[int]
	KindView                  // View[fmt.Stringer] over a Num
	KindSlice                 // Slice[int]
	KindNum                   // Value[Num], the result of downcasting a view
	KindArray                 // Value[[ArrayLen]int], the result of downcasting a slice
)

// ArrayLen is the only array length the behavior tests downcast slices to.
const ArrayLen = 3

func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindView:
		return "view"
	case KindSlice:
		return "slice"
	case KindNum:
		return "num"
	case KindArray:
		return "array"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// RootScope is the id of the runtime's root scope.
const RootScope = 0

// SlotRecord is one stored payload. Records are never removed so the
// history stays inspectable.
type SlotRecord struct {
	Type  string // "int", "num" or "[N]int"
	Elems []int
	Epoch uint64
	Live  bool
}

// HandleRecord is one handle issued to a caller.
type HandleRecord struct {
	Kind  Kind
	Slot  int
	Epoch uint64 // payload epoch remembered at creation, used by Downcast
}

// ScopeRecord is one node of the disposal tree.
type ScopeRecord struct {
	Parent   int
	Children []int
	Slots    []int
	Disposed bool
}

// Model is the reference runtime.
type Model struct {
	Slots    []SlotRecord
	Handles  []HandleRecord
	Scopes   []ScopeRecord
	Disposed bool
}

// New returns a model with only a root scope.
func New() *Model {
	return &Model{Scopes: []ScopeRecord{{Parent: -1}}}
}

// NewScope creates a child of parent.
func (m *Model) NewScope(parent int) (int, error) {
	if err := m.checkScope(parent); err != nil {
		return 0, err
	}

	id := len(m.Scopes)
	m.Scopes = append(m.Scopes, ScopeRecord{Parent: parent})
	m.Scopes[parent].Children = append(m.Scopes[parent].Children, id)

	return id, nil
}

// Store stores elems in scope as a new handle of kind. KindValue and
// KindView use elems[0] only.
func (m *Model) Store(scope int, kind Kind, elems []int) (int, error) {
	if m.Disposed {
		return 0, stored.ErrDisposed
	}

	if err := m.checkScope(scope); err != nil {
		return 0, err
	}

	rec := SlotRecord{Live: true}

	switch kind {
	case KindValue:
		rec.Type = "int"
		rec.Elems = []int{first(elems)}
	case KindView:
		rec.Type = "num"
		rec.Elems = []int{first(elems)}
	case KindSlice:
		rec.Type = arrayType(len(elems))
		rec.Elems = slices.Clone(elems)
	default:
		return 0, fmt.Errorf("model: cannot store kind %s", kind)
	}

	slot := len(m.Slots)
	m.Slots = append(m.Slots, rec)
	m.Scopes[scope].Slots = append(m.Scopes[scope].Slots, slot)

	return m.issue(kind, slot), nil
}

// Get returns a copy of the payload behind h.
func (m *Model) Get(h int) ([]int, error) {
	rec, err := m.typed(h)
	if err != nil {
		return nil, err
	}

	return slices.Clone(rec.Elems), nil
}

// Set replaces the payload behind h. Slices may change length; every other
// kind uses elems[0], or all ArrayLen elements for KindArray.
func (m *Model) Set(h int, elems []int) error {
	rec, err := m.typed(h)
	if err != nil {
		return err
	}

	switch m.Handles[h].Kind {
	case KindSlice:
		rec.Type = arrayType(len(elems))
		rec.Elems = slices.Clone(elems)
	case KindArray:
		rec.Elems = make([]int, ArrayLen)
		copy(rec.Elems, elems)
	default:
		rec.Elems = []int{first(elems)}
	}

	rec.Epoch++

	return nil
}

// Add adds delta to every element behind h in place.
func (m *Model) Add(h int, delta int) error {
	rec, err := m.typed(h)
	if err != nil {
		return err
	}

	for i := range rec.Elems {
		rec.Elems[i] += delta
	}

	return nil
}

// Dispose removes the slot behind h. Disposing twice is a no-op.
func (m *Model) Dispose(h int) {
	if h < 0 || h >= len(m.Handles) || m.Disposed {
		return
	}

	m.Slots[m.Handles[h].Slot].Live = false
}

// DisposeScope tears scope and its descendants down.
func (m *Model) DisposeScope(scope int) {
	if scope < 0 || scope >= len(m.Scopes) {
		return
	}

	s := &m.Scopes[scope]
	if s.Disposed {
		return
	}

	s.Disposed = true

	for _, child := range slices.Backward(s.Children) {
		m.DisposeScope(child)
	}

	for _, slot := range s.Slots {
		m.Slots[slot].Live = false
	}
}

// Downcast re-types a view as KindNum or a slice as KindArray. It fails with
// ErrTypeMismatch for other kinds, for payloads replaced since h was
// created, and for slices whose length is not ArrayLen.
func (m *Model) Downcast(h int) (int, error) {
	rec, err := m.typed(h)
	if err != nil {
		return 0, err
	}

	src := m.Handles[h]
	if rec.Epoch != src.Epoch {
		return 0, stored.ErrTypeMismatch
	}

	switch src.Kind {
	case KindView:
		return m.issue(KindNum, src.Slot), nil
	case KindSlice:
		if rec.Type != arrayType(ArrayLen) {
			return 0, stored.ErrTypeMismatch
		}

		return m.issue(KindArray, src.Slot), nil
	default:
		return 0, stored.ErrTypeMismatch
	}
}

// Refresh rebinds a view or slice handle to the live payload so it can be
// downcast again.
func (m *Model) Refresh(h int) error {
	rec, err := m.typed(h)
	if err != nil {
		return err
	}

	m.Handles[h].Epoch = rec.Epoch

	return nil
}

// DisposeAll disposes the runtime.
func (m *Model) DisposeAll() {
	m.DisposeScope(RootScope)

	for i := range m.Slots {
		m.Slots[i].Live = false
	}

	m.Disposed = true
}

// Live returns the number of live slots.
func (m *Model) Live() int {
	n := 0

	for _, rec := range m.Slots {
		if rec.Live {
			n++
		}
	}

	return n
}

// LiveScopes returns the number of scopes not yet disposed.
func (m *Model) LiveScopes() int {
	n := 0

	for _, s := range m.Scopes {
		if !s.Disposed {
			n++
		}
	}

	return n
}

// ScopeDisposed reports whether scope has been torn down.
func (m *Model) ScopeDisposed(scope int) bool {
	return m.Scopes[scope].Disposed
}

func (m *Model) issue(kind Kind, slot int) int {
	m.Handles = append(m.Handles, HandleRecord{Kind: kind, Slot: slot, Epoch: m.Slots[slot].Epoch})
	return len(m.Handles) - 1
}

// typed returns the live slot behind h after checking the payload still has
// the type h expects.
func (m *Model) typed(h int) (*SlotRecord, error) {
	if h < 0 || h >= len(m.Handles) {
		return nil, stored.ErrNoRuntime
	}

	hr := m.Handles[h]

	rec := &m.Slots[hr.Slot]
	if !rec.Live {
		return nil, stored.ErrDisposed
	}

	var ok bool

	switch hr.Kind {
	case KindValue:
		ok = rec.Type == "int"
	case KindView, KindNum:
		ok = rec.Type == "num"
	case KindSlice:
		ok = rec.Type != "int" && rec.Type != "num"
	case KindArray:
		ok = rec.Type == arrayType(ArrayLen)
	}

	if !ok {
		return nil, stored.ErrTypeMismatch
	}

	return rec, nil
}

func (m *Model) checkScope(scope int) error {
	if scope < 0 || scope >= len(m.Scopes) {
		return stored.ErrNoRuntime
	}

	if m.Scopes[scope].Disposed {
		return stored.ErrScopeDisposed
	}

	return nil
}

func arrayType(n int) string {
	return fmt.Sprintf("[%d]int", n)
}

func first(elems []int) int {
	if len(elems) == 0 {
		return 0
	}

	return elems[0]
}
