package stored

import (
	"go.uber.org/zap"

	"github.com/calvinalkan/slotarena/pkg/slotarena"
)

// Compile-time interface satisfaction checks.
var (
	_ Accessor[*int]  = Value[int]{}
	_ Accessor[any]   = View[any]{}
	_ Accessor[[]int] = Slice[int]{}
	_ Reader[*int]    = Const[int]{}
	_ Downcaster      = View[any]{}
	_ Downcaster      = Slice[int]{}
	_ Owner           = (*Scope)(nil)
	_ Owner           = (*Runtime)(nil)
)

// handle is the untyped part shared by every handle type. It is a weak
// reference: it never keeps a payload alive.
type handle struct {
	rt *Runtime
	id slotarena.SlotID
}

func (h handle) key() Key {
	if h.rt == nil {
		return Key{Slot: h.id}
	}

	return Key{Runtime: h.rt.id, Slot: h.id}
}

func (h handle) fail(op string, err error) *AccessError {
	return &AccessError{Op: op, Key: h.key(), Err: err}
}

// cell revalidates h against its runtime.
func (h handle) cell(op string) (*cell, *AccessError) {
	if h.rt == nil {
		return nil, h.fail(op, ErrNoRuntime)
	}

	c, ok := h.rt.lookup(h.id)
	if !ok {
		return nil, h.fail(op, ErrDisposed)
	}

	return c, nil
}

// typedCell is cell plus a check that the payload has type tag want.
func (h handle) typedCell(op string, want TypeTag) (*cell, *AccessError) {
	c, err := h.cell(op)
	if err != nil {
		return nil, err
	}

	if c.tag != want {
		return nil, h.fail(op, ErrTypeMismatch)
	}

	return c, nil
}

// read runs f under a read guard.
func (h handle) read(c *cell, op string, f func()) {
	h.acquireRead(c, op)
	defer c.releaseRead()

	f()
}

// write runs f under a write guard.
func (h handle) write(c *cell, op string, f func()) {
	h.acquireWrite(c, op)
	defer c.releaseWrite()

	f()
}

func (h handle) dispose() {
	if h.rt == nil {
		return
	}

	h.rt.remove(h.id)
}

func (h handle) isDisposed() bool {
	if h.rt == nil {
		return true
	}

	_, ok := h.rt.lookup(h.id)

	return !ok
}

// must panics with err if it is non-nil. Used by every strict variant.
func (h handle) must(err *AccessError) {
	if err == nil {
		return
	}

	if h.rt != nil {
		h.rt.logger.Debug("strict access failed",
			zap.String("op", err.Op),
			zap.Stringer("key", err.Key),
			zap.Error(err.Err),
		)
	}

	panic(err)
}

// store inserts a new cell for ptr into o's runtime and registers its
// disposal token with o.
func store(o Owner, ptr any, tag TypeTag) (handle, error) {
	if o == nil {
		return handle{}, &AccessError{Op: opStore, Err: ErrNoRuntime}
	}

	rt := o.Runtime()
	if rt == nil {
		return handle{}, &AccessError{Op: opStore, Err: ErrNoRuntime}
	}

	if rt.isDisposed {
		return handle{}, &AccessError{Op: opStore, Key: Key{Runtime: rt.id}, Err: ErrDisposed}
	}

	if d, ok := o.(interface{ IsDisposed() bool }); ok && d.IsDisposed() {
		return handle{}, &AccessError{Op: opStore, Key: Key{Runtime: rt.id}, Err: ErrScopeDisposed}
	}

	id := rt.insert(&cell{ptr: ptr, tag: tag})
	o.Register(Token{rt: rt, id: id})

	return handle{rt: rt, id: id}, nil
}

func mustStore(o Owner, ptr any, tag TypeTag) handle {
	h, err := store(o, ptr, tag)
	if err != nil {
		panic(err)
	}

	return h
}
