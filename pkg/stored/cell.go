package stored

import (
	"go.uber.org/zap"
)

// cell is the arena's sole owner of one payload.
//
// ptr always holds a pointer to the concrete payload (*C). tag is the tag of
// C. epoch changes whenever the payload is replaced wholesale, so view
// handles can detect that the value they were created for is gone even
// though the slot id is unchanged.
type cell struct {
	ptr    any
	tag    TypeTag
	epoch  uint64
	borrow int // 0 free, >0 readers, -1 writer
}

// identity is what a view handle remembers about the payload it was created
// for.
type identity struct {
	epoch uint64
	tag   TypeTag
}

func (c *cell) identity() identity {
	return identity{epoch: c.epoch, tag: c.tag}
}

// replace swaps in a new payload. The caller must hold the write guard.
func (c *cell) replace(ptr any, tag TypeTag) {
	c.ptr = ptr
	c.tag = tag
	c.epoch++
}

func (h handle) acquireRead(c *cell, op string) {
	if c.borrow < 0 {
		h.violation(op, "read while a write guard is held")
	}

	c.borrow++
}

func (c *cell) releaseRead() {
	c.borrow--
}

func (h handle) acquireWrite(c *cell, op string) {
	switch {
	case c.borrow < 0:
		h.violation(op, "write while a write guard is held")
	case c.borrow > 0:
		h.violation(op, "write while a read guard is held")
	}

	c.borrow = -1
}

func (c *cell) releaseWrite() {
	c.borrow = 0
}

// violation reports an overlapping access. It never returns.
func (h handle) violation(op string, detail string) {
	h.rt.violations++
	h.rt.logger.Warn("aliasing violation",
		zap.String("op", op),
		zap.Stringer("key", h.key()),
		zap.String("detail", detail),
	)

	panic(&AccessError{Op: op, Key: h.key(), Err: ErrAliasing})
}
