package testutil

import (
	"fmt"

	"github.com/calvinalkan/slotarena/pkg/stored/model"
)

// SeedBuilder builds deterministic byte seeds for OpGenerator without
// hand-writing raw byte sequences.
//
// The builder encodes values according to OpGenerator's byte consumption
// order. Handles and scopes are referenced by their table index: the n-th
// successful Store or Downcast creates handle n, the n-th successful
// NewScope creates scope n (scope 0 is the root).
type SeedBuilder struct {
	cfg  OpGenConfig
	data []byte
}

// NewSeedBuilder creates a new builder for the given OpGenerator config.
func NewSeedBuilder(cfg *OpGenConfig) *SeedBuilder {
	if cfg == nil {
		panic("seed builder: cfg must not be nil")
	}

	return &SeedBuilder{cfg: *cfg}
}

// Bytes returns a copy of the built seed bytes.
func (b *SeedBuilder) Bytes() []byte {
	return append([]byte(nil), b.data...)
}

// Store appends a store of elems into scope.
func (b *SeedBuilder) Store(scope int, kind model.Kind, elems ...int) *SeedBuilder {
	if kind < model.KindValue || kind > model.KindSlice {
		panic(fmt.Sprintf("seed builder: cannot store kind %s", kind))
	}

	b.op(opStore)
	b.appendInt(scope)
	b.appendInt(int(kind) - 1)
	b.values(elems)

	return b
}

// NewScope appends creation of a child of parent.
func (b *SeedBuilder) NewScope(parent int) *SeedBuilder {
	b.op(opNewScope)
	b.appendInt(parent)

	return b
}

// DisposeScope appends teardown of scope.
func (b *SeedBuilder) DisposeScope(scope int) *SeedBuilder {
	b.op(opDisposeScope)
	b.appendInt(scope)

	return b
}

// Get appends a read of handle h.
func (b *SeedBuilder) Get(h int) *SeedBuilder {
	b.opGet()
	b.handle(h)

	return b
}

// Set appends a replacement of handle h's payload.
func (b *SeedBuilder) Set(h int, elems ...int) *SeedBuilder {
	b.op(opSet)
	b.handle(h)
	b.values(elems)

	return b
}

// Add appends an in-place update of handle h.
func (b *SeedBuilder) Add(h, delta int) *SeedBuilder {
	if delta < -deltaSpan/2 || delta >= deltaSpan/2 {
		panic(fmt.Sprintf("seed builder: delta %d out of range", delta))
	}

	b.op(opAdd)
	b.handle(h)
	b.appendInt(delta + deltaSpan/2)

	return b
}

// Dispose appends disposal of handle h.
func (b *SeedBuilder) Dispose(h int) *SeedBuilder {
	b.op(opDispose)
	b.handle(h)

	return b
}

// Downcast appends a downcast of handle h.
func (b *SeedBuilder) Downcast(h int) *SeedBuilder {
	b.op(opDowncast)
	b.handle(h)

	return b
}

// Refresh appends a refresh of handle h.
func (b *SeedBuilder) Refresh(h int) *SeedBuilder {
	b.op(opRefresh)
	b.handle(h)

	return b
}

// Nested appends a read of inner under outer's write guard.
func (b *SeedBuilder) Nested(outer, inner int) *SeedBuilder {
	b.op(opNested)
	b.handle(outer)
	b.handle(inner)

	return b
}

// DisposeRuntime appends disposal of the runtime.
func (b *SeedBuilder) DisposeRuntime() *SeedBuilder {
	b.op(opDisposeRuntime)
	return b
}

func (b *SeedBuilder) op(kind opKind) {
	rates := b.cfg.rates()

	start := 0
	for _, rate := range rates[:kind] {
		start += rate
	}

	if rates[kind] <= 0 {
		panic(fmt.Sprintf("seed builder: op rate is zero at start=%d", start))
	}

	// NextOp uses choice := NextByte()%100. Any value in [start, start+rate)
	// selects this op. We always choose the range start for stability.
	b.appendInt(start)
}

func (b *SeedBuilder) opGet() {
	// NextOp falls through to Get when choice is not in earlier buckets.
	start := 0
	for _, rate := range b.cfg.rates() {
		start += rate
	}

	if start >= 100 {
		panic("seed builder: Get cannot be selected when other rates sum to 100")
	}

	b.appendInt(start)
}

// handle encodes a valid reference to handle h. The caller must know that
// the table holds more than h handles when the op runs.
func (b *SeedBuilder) handle(h int) {
	rate := b.cfg.InvalidHandleRate
	if rate >= 100 {
		panic("seed builder: cannot force valid handle when InvalidHandleRate=100")
	}

	// pickHandle treats v%100 < rate as invalid. Setting v==rate is valid.
	b.appendInt(rate)
	b.appendInt(h)
}

func (b *SeedBuilder) values(elems []int) {
	if len(elems) >= maxElems {
		panic(fmt.Sprintf("seed builder: at most %d values", maxElems-1))
	}

	b.appendInt(len(elems))

	for _, v := range elems {
		if v < 0 || v >= maxValue {
			panic(fmt.Sprintf("seed builder: value %d out of range", v))
		}

		b.appendInt(v)
	}
}

func (b *SeedBuilder) appendInt(v int) {
	b.data = append(b.data, byte(v))
}
