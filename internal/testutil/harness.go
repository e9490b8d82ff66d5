package testutil

import (
	"errors"
	"fmt"
	"strconv"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/calvinalkan/slotarena/pkg/stored"
	"github.com/calvinalkan/slotarena/pkg/stored/model"
)

// Harness wires together a real runtime and the reference model.
//
// Handle and scope indices are shared: the i-th handle the model issued
// corresponds to h.handles[i]. Ops only append on success, and success is
// compared after every op, so the tables stay aligned.
type Harness struct {
	TB      testing.TB
	Runtime *stored.Runtime
	Model   *model.Model

	scopes  []*stored.Scope
	handles []realHandle
}

// NewHarness creates a new behavior test harness. The runtime is disposed
// when the test ends.
func NewHarness(tb testing.TB) *Harness {
	tb.Helper()

	rt := stored.NewRuntime(stored.Options{
		// Aliasing warnings are expected here; only errors are interesting.
		Logger: zaptest.NewLogger(tb, zaptest.Level(zap.ErrorLevel)),
	})
	tb.Cleanup(rt.Dispose)

	return &Harness{
		TB:      tb,
		Runtime: rt,
		Model:   model.New(),
		scopes:  []*stored.Scope{rt.Root()},
	}
}

// Apply runs op against the runtime first, then the model.
func (h *Harness) Apply(op Op) (Result, Result) {
	realRes := op.ApplyReal(h)
	modelRes := op.ApplyModel(h)

	return modelRes, realRes
}

func (h *Harness) handle(i int) realHandle {
	if i < 0 || i >= len(h.handles) {
		return valueHandle{}
	}

	return h.handles[i]
}

func (h *Harness) store(scope int, kind model.Kind, elems []int) (realHandle, error) {
	owner := h.scopes[scope]

	switch kind {
	case model.KindValue:
		v, err := stored.TryNew(owner, first(elems))
		return valueHandle{v}, err
	case model.KindView:
		var v stored.View[numeric]

		err := catch(func() { v = stored.NewView[numeric](owner, Num(first(elems))) })

		return viewHandle{v}, err
	case model.KindSlice:
		var s stored.Slice[int]

		err := catch(func() { s = stored.NewSlice(owner, elems...) })

		return sliceHandle{s}, err
	default:
		return nil, fmt.Errorf("testutil: cannot store kind %s", kind)
	}
}

// Num is the concrete type stored behind view handles.
type Num int

func (n Num) Int() int { return int(n) }

func (n Num) String() string { return strconv.Itoa(int(n)) }

func (n *Num) Add(delta int) { *n += Num(delta) }

// numeric is the capability view handles expose.
type numeric interface {
	Int() int
	fmt.Stringer
}

// realHandle is one entry of the harness handle table.
type realHandle interface {
	get() ([]int, error)
	set(elems []int) error
	add(delta int) error
	// within runs f while holding the handle's write guard.
	within(f func()) error
	dispose()
}

// erasedHandle is a realHandle that can be downcast.
type erasedHandle interface {
	realHandle
	downcast() (realHandle, error)
	refresh() (realHandle, error)
}

type valueHandle struct{ v stored.Value[int] }

func (h valueHandle) get() ([]int, error) {
	n, err := h.v.GetErr()
	if err != nil {
		return nil, err
	}

	return []int{n}, nil
}

func (h valueHandle) set(elems []int) error {
	return catch(func() { h.v.Set(first(elems)) })
}

func (h valueHandle) add(delta int) error {
	_, err := stored.UpdateErr(h.v, func(p *int) int {
		*p += delta
		return *p
	})

	return err
}

func (h valueHandle) within(f func()) error {
	_, err := stored.UpdateErr(h.v, func(*int) struct{} {
		f()
		return struct{}{}
	})

	return err
}

func (h valueHandle) dispose() { h.v.Dispose() }

type numHandle struct{ v stored.Value[Num] }

func (h numHandle) get() ([]int, error) {
	n, err := h.v.GetErr()
	if err != nil {
		return nil, err
	}

	return []int{int(n)}, nil
}

func (h numHandle) set(elems []int) error {
	return catch(func() { h.v.Set(Num(first(elems))) })
}

func (h numHandle) add(delta int) error {
	return catch(func() { h.v.UpdateValue(func(n *Num) { n.Add(delta) }) })
}

func (h numHandle) within(f func()) error {
	return catch(func() { h.v.UpdateValue(func(*Num) { f() }) })
}

func (h numHandle) dispose() { h.v.Dispose() }

type arrayHandle struct{ v stored.Value[[model.ArrayLen]int] }

func (h arrayHandle) get() ([]int, error) {
	arr, err := h.v.GetErr()
	if err != nil {
		return nil, err
	}

	return arr[:], nil
}

func (h arrayHandle) set(elems []int) error {
	var arr [model.ArrayLen]int

	copy(arr[:], elems)

	return catch(func() { h.v.Set(arr) })
}

func (h arrayHandle) add(delta int) error {
	ok := h.v.TryUpdateValue(func(arr *[model.ArrayLen]int) {
		for i := range arr {
			arr[i] += delta
		}
	})
	if !ok {
		_, err := h.v.GetErr()
		return err
	}

	return nil
}

func (h arrayHandle) within(f func()) error {
	_, err := stored.UpdateErr(h.v, func(*[model.ArrayLen]int) bool {
		f()
		return true
	})

	return err
}

func (h arrayHandle) dispose() { h.v.Dispose() }

type viewHandle struct{ v stored.View[numeric] }

func (h viewHandle) get() ([]int, error) {
	n, err := stored.WithErr(h.v, numeric.Int)
	if err != nil {
		return nil, err
	}

	return []int{n}, nil
}

func (h viewHandle) set(elems []int) error {
	return catch(func() { h.v.Set(Num(first(elems))) })
}

// add reaches the pointer-receiver Add through the capability, which wraps
// a pointer to the stored Num.
func (h viewHandle) add(delta int) error {
	_, err := stored.UpdateErr(h.v, func(n numeric) bool {
		adder, ok := n.(interface{ Add(delta int) })
		if ok {
			adder.Add(delta)
		}

		return ok
	})

	return err
}

func (h viewHandle) within(f func()) error {
	return catch(func() { h.v.UpdateValue(func(numeric) { f() }) })
}

func (h viewHandle) dispose() { h.v.Dispose() }

func (h viewHandle) downcast() (realHandle, error) {
	v, err := stored.DowncastErr[Num](h.v)
	if err != nil {
		return nil, err
	}

	return numHandle{v}, nil
}

func (h viewHandle) refresh() (realHandle, error) {
	fresh, ok := h.v.Refresh()
	if !ok {
		_, err := h.get()
		return nil, err
	}

	return viewHandle{fresh}, nil
}

type sliceHandle struct{ s stored.Slice[int] }

func (h sliceHandle) get() ([]int, error) {
	return stored.WithErr(h.s, func(elems []int) []int { return append([]int(nil), elems...) })
}

func (h sliceHandle) set(elems []int) error {
	return catch(func() { h.s.Set(elems) })
}

func (h sliceHandle) add(delta int) error {
	_, err := stored.UpdateErr(h.s, func(elems []int) int {
		for i := range elems {
			elems[i] += delta
		}

		return len(elems)
	})

	return err
}

func (h sliceHandle) within(f func()) error {
	return catch(func() { h.s.UpdateValue(func([]int) { f() }) })
}

func (h sliceHandle) dispose() { h.s.Dispose() }

func (h sliceHandle) downcast() (realHandle, error) {
	v, err := stored.DowncastErr[[model.ArrayLen]int](h.s)
	if err != nil {
		return nil, err
	}

	return arrayHandle{v}, nil
}

func (h sliceHandle) refresh() (realHandle, error) {
	fresh, ok := h.s.Refresh()
	if !ok {
		_, err := h.get()
		return nil, err
	}

	return sliceHandle{fresh}, nil
}

// catch runs f and converts an *AccessError panic into an error. Other
// panics propagate.
func catch(f func()) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		var accessErr *stored.AccessError
		if e, ok := r.(error); ok && errors.As(e, &accessErr) {
			err = accessErr
			return
		}

		panic(r)
	}()

	f()

	return nil
}

func first(elems []int) int {
	if len(elems) == 0 {
		return 0
	}

	return elems[0]
}
