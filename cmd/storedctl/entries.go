package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/calvinalkan/slotarena/pkg/stored"
)

// text is the concrete type behind view handles.
type text string

func (t text) String() string { return string(t) }

// entry is a named handle in the session.
type entry interface {
	kind() string
	key() stored.Key
	get() (string, error)
	set(args []string) error
	inc(delta int) error
	dispose()
}

type valueEntry struct{ v stored.Value[int] }

func (valueEntry) kind() string      { return "value" }
func (e valueEntry) key() stored.Key { return e.v.Key() }
func (e valueEntry) dispose()        { e.v.Dispose() }

func (e valueEntry) get() (string, error) {
	n, err := e.v.GetErr()
	if err != nil {
		return "", err
	}

	return strconv.Itoa(n), nil
}

func (e valueEntry) set(args []string) error {
	if len(args) != 1 {
		return errUsage
	}

	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}

	if _, ok := e.v.TrySet(n); !ok {
		_, err := e.v.GetErr()
		return err
	}

	return nil
}

func (e valueEntry) inc(delta int) error {
	_, err := stored.UpdateErr(e.v, func(p *int) int {
		*p += delta
		return *p
	})

	return err
}

type viewEntry struct{ v stored.View[fmt.Stringer] }

func (viewEntry) kind() string      { return "view" }
func (e viewEntry) key() stored.Key { return e.v.Key() }
func (e viewEntry) dispose()        { e.v.Dispose() }

func (e viewEntry) get() (string, error) {
	return stored.WithErr(e.v, fmt.Stringer.String)
}

func (e viewEntry) set(args []string) error {
	if _, ok := e.v.TrySet(text(strings.Join(args, " "))); !ok {
		_, err := e.get()
		return err
	}

	return nil
}

func (viewEntry) inc(int) error { return errNotNumeric }

type textEntry struct{ v stored.Value[text] }

func (textEntry) kind() string      { return "text" }
func (e textEntry) key() stored.Key { return e.v.Key() }
func (e textEntry) dispose()        { e.v.Dispose() }

func (e textEntry) get() (string, error) {
	t, err := e.v.GetErr()
	return string(t), err
}

func (e textEntry) set(args []string) error {
	if _, ok := e.v.TrySet(text(strings.Join(args, " "))); !ok {
		_, err := e.v.GetErr()
		return err
	}

	return nil
}

func (textEntry) inc(int) error { return errNotNumeric }

type sliceEntry struct{ s stored.Slice[int] }

func (sliceEntry) kind() string      { return "slice" }
func (e sliceEntry) key() stored.Key { return e.s.Key() }
func (e sliceEntry) dispose()        { e.s.Dispose() }

func (e sliceEntry) get() (string, error) {
	elems, ok := e.s.TryGetOwned()
	if !ok {
		_, err := stored.WithErr(e.s, func([]int) struct{} { return struct{}{} })
		return "", err
	}

	return fmt.Sprint(elems), nil
}

func (e sliceEntry) set(args []string) error {
	elems, err := parseInts(args)
	if err != nil {
		return err
	}

	if _, ok := e.s.TrySet(elems); !ok {
		_, err := e.get()
		return err
	}

	return nil
}

func (e sliceEntry) inc(delta int) error {
	_, err := stored.UpdateErr(e.s, func(elems []int) int {
		for i := range elems {
			elems[i] += delta
		}

		return len(elems)
	})

	return err
}

type constEntry struct{ c stored.Const[string] }

func (constEntry) kind() string      { return "const" }
func (e constEntry) key() stored.Key { return e.c.Key() }
func (e constEntry) dispose()        { e.c.Dispose() }

func (e constEntry) get() (string, error) {
	return stored.WithErr(e.c, func(p *string) string { return *p })
}

func (constEntry) set([]string) error { return errReadOnly }
func (constEntry) inc(int) error      { return errReadOnly }

// arrayEntry is a slice downcast to a fixed-length array. elems exposes the
// array as a slice so one implementation serves every length.
type arrayEntry[A any] struct {
	v     stored.Value[A]
	elems func(*A) []int
}

func (arrayEntry[A]) kind() string      { return "array" }
func (e arrayEntry[A]) key() stored.Key { return e.v.Key() }
func (e arrayEntry[A]) dispose()        { e.v.Dispose() }

func (e arrayEntry[A]) get() (string, error) {
	return stored.WithErr(e.v, func(p *A) string { return fmt.Sprint(e.elems(p)) })
}

func (e arrayEntry[A]) set(args []string) error {
	vals, err := parseInts(args)
	if err != nil {
		return err
	}

	_, err = stored.UpdateErr(e.v, func(p *A) int { return copy(e.elems(p), vals) })

	return err
}

func (e arrayEntry[A]) inc(delta int) error {
	_, err := stored.UpdateErr(e.v, func(p *A) int {
		elems := e.elems(p)
		for i := range elems {
			elems[i] += delta
		}

		return len(elems)
	})

	return err
}

// downcastEntry re-types a view or slice entry. typ is "text" for views and
// "[N]int" with 1 <= N <= 4 for slices.
func downcastEntry(from entry, typ string) (entry, error) {
	switch src := from.(type) {
	case viewEntry:
		if typ != "text" {
			return nil, fmt.Errorf("%w: %s (views downcast to text)", errUnknownType, typ)
		}

		v, err := stored.DowncastErr[text](src.v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errDowncastFailed, err)
		}

		return textEntry{v}, nil
	case sliceEntry:
		return downcastSlice(src.s, typ)
	default:
		return nil, errNotErased
	}
}

func downcastSlice(s stored.Slice[int], typ string) (entry, error) {
	switch typ {
	case "[1]int":
		return downcastArray(s, func(p *[1]int) []int { return p[:] })
	case "[2]int":
		return downcastArray(s, func(p *[2]int) []int { return p[:] })
	case "[3]int":
		return downcastArray(s, func(p *[3]int) []int { return p[:] })
	case "[4]int":
		return downcastArray(s, func(p *[4]int) []int { return p[:] })
	default:
		return nil, fmt.Errorf("%w: %s (slices downcast to [1]int..[4]int)", errUnknownType, typ)
	}
}

func downcastArray[A any](s stored.Slice[int], elems func(*A) []int) (entry, error) {
	v, err := stored.DowncastErr[A](s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errDowncastFailed, err)
	}

	return arrayEntry[A]{v: v, elems: elems}, nil
}

func parseInts(args []string) ([]int, error) {
	out := make([]int, len(args))

	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}

		out[i] = n
	}

	return out, nil
}
