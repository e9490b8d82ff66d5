package stored

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/calvinalkan/slotarena/pkg/slotarena"
)

// Options configure a new [Runtime].
type Options struct {
	// Logger receives debug events and contract-violation warnings.
	// Nil means zap.NewNop().
	Logger *zap.Logger

	// InitialCapacity pre-sizes the slot arena. Zero is fine.
	InitialCapacity int
}

// Key identifies a slot independently of the handle type that refers to it.
// Two handles are equal iff their keys are equal.
type Key struct {
	Runtime uuid.UUID
	Slot    slotarena.SlotID
}

// String renders the key as "<slot>@<first 8 hex digits of the runtime id>".
func (k Key) String() string {
	return fmt.Sprintf("%s@%s", k.Slot, k.Runtime.String()[:8])
}

// Stats is a snapshot of runtime counters.
type Stats struct {
	Live               int    // slots currently stored
	Capacity           int    // slot indices allocated by the arena
	Free               int    // indices waiting to be reused
	Scopes             int    // live scopes, including the root
	Stored             uint64 // values stored since creation
	Disposed           uint64 // slots removed since creation
	AliasingViolations uint64 // detected overlapping accesses
	RuntimeDisposed    bool
}

// Runtime owns the slot arena and the root scope.
//
// A Runtime is not safe for concurrent use. Handles carry a pointer to their
// runtime, so every operation on a handle is routed to the runtime that
// issued it without consulting any global state.
type Runtime struct {
	id     uuid.UUID
	slots  *slotarena.Arena[*cell]
	root   *Scope
	logger *zap.Logger

	scopes     int
	stored     uint64
	disposed   uint64
	violations uint64
	isDisposed bool
}

// NewRuntime creates a runtime with a fresh identity and an empty root scope.
func NewRuntime(opts Options) *Runtime {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	rt := &Runtime{
		id:    uuid.Must(uuid.NewV7()),
		slots: slotarena.New[*cell](opts.InitialCapacity),
	}
	rt.logger = logger.With(zap.String("runtime", rt.id.String()))
	rt.root = newScope(rt, nil)

	rt.logger.Debug("runtime created", zap.Int("initial_capacity", opts.InitialCapacity))

	return rt
}

// ID returns the runtime identity used in handle equality and hashing.
func (rt *Runtime) ID() uuid.UUID {
	return rt.id
}

// Runtime returns rt, so a Runtime can be used as an [Owner]. Values stored
// directly into a runtime belong to its root scope.
func (rt *Runtime) Runtime() *Runtime {
	return rt
}

// Register adds tok to the root scope.
func (rt *Runtime) Register(tok Token) {
	rt.root.Register(tok)
}

// Root returns the root scope.
func (rt *Runtime) Root() *Scope {
	return rt.root
}

// IsDisposed reports whether Dispose has been called.
func (rt *Runtime) IsDisposed() bool {
	return rt.isDisposed
}

// Dispose tears down the root scope and removes every remaining slot,
// including slots registered with external owners. Every outstanding handle
// observes [ErrDisposed] afterwards. Dispose is idempotent.
func (rt *Runtime) Dispose() {
	if rt.isDisposed {
		return
	}

	rt.root.Dispose()

	remaining := rt.slots.Len()
	rt.disposed += uint64(remaining) //nolint:gosec // Len is non-negative
	rt.slots.Clear()
	rt.isDisposed = true

	rt.logger.Debug("runtime disposed", zap.Int("orphaned_slots", remaining))
}

// Stats returns a snapshot of the runtime counters.
func (rt *Runtime) Stats() Stats {
	return Stats{
		Live:               rt.slots.Len(),
		Capacity:           rt.slots.Cap(),
		Free:               rt.slots.Free(),
		Scopes:             rt.scopes,
		Stored:             rt.stored,
		Disposed:           rt.disposed,
		AliasingViolations: rt.violations,
		RuntimeDisposed:    rt.isDisposed,
	}
}

// Keys returns the keys of every live slot in slot order.
func (rt *Runtime) Keys() []Key {
	keys := make([]Key, 0, rt.slots.Len())
	for id := range rt.slots.All() {
		keys = append(keys, Key{Runtime: rt.id, Slot: id})
	}

	return keys
}

// TypeOf returns the tag of the payload stored at key, or 0 if the slot is
// not live in rt.
func (rt *Runtime) TypeOf(key Key) TypeTag {
	if key.Runtime != rt.id {
		return 0
	}

	c, ok := rt.slots.Get(key.Slot)
	if !ok {
		return 0
	}

	return c.tag
}

func (rt *Runtime) insert(c *cell) slotarena.SlotID {
	rt.stored++
	return rt.slots.Insert(c)
}

// remove is the single place slots leave the arena.
func (rt *Runtime) remove(id slotarena.SlotID) bool {
	if rt.isDisposed {
		return false
	}

	if _, ok := rt.slots.Remove(id); !ok {
		return false
	}

	rt.disposed++

	return true
}

func (rt *Runtime) lookup(id slotarena.SlotID) (*cell, bool) {
	if rt.isDisposed {
		return nil, false
	}

	return rt.slots.Get(id)
}
