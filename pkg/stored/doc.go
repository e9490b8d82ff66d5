// Package stored keeps arbitrary values in a [Runtime] and hands out small,
// copyable handles to them.
//
// A handle is a weak reference plus a type claim: copying it never copies
// the value, comparing two handles compares the slot they name, and the
// value lives until its slot is disposed, not until the last handle is
// dropped. This makes handles convenient to capture in many closures at
// once, including values that cannot or should not be copied.
//
// # Basic Usage
//
//	rt := stored.NewRuntime(stored.Options{})
//	defer rt.Dispose()
//
//	counter := stored.New(rt, Counter{})
//	counter.UpdateValue(func(c *Counter) { c.N++ })
//	n := stored.With(counter, func(c *Counter) int { return c.N })
//
// # Handle Kinds
//
//   - [Value] holds a T.
//   - [View] holds any value and exposes it through a capability interface;
//     [Downcast] recovers the concrete type.
//   - [Slice] holds a fixed-length run of elements, stored as an array;
//     [Slice.GetOwned] copies them out.
//   - [Const] holds a read-only value and shares a pointer to it.
//
// # Scopes and Disposal
//
// Every constructor takes an [Owner]. The value's disposal [Token] is
// registered with the owner, and disposing the owner removes the slot:
//
//	page := rt.Root().Child()
//	title := stored.New(page, "home")
//	page.Dispose()
//	title.IsDisposed() // true
//
// External scope graphs can implement [Owner] and call [Token.Dispose]
// themselves.
//
// # Strict and Fallible Access
//
// Every operation comes in a strict shape that panics with an
// [*AccessError] (Get, Set, [With], [Update], [MustDowncast]) and a fallible
// shape that reports ok == false (TryGet, TrySet, [TryWith], [TryUpdate],
// [Downcast]). Use the fallible shape where disposal may legitimately race
// with access.
//
// # Aliasing
//
// Each slot allows any number of concurrent readers or exactly one writer.
// Overlap can only happen through reentrancy (a closure passed to Update
// that accesses the same slot again) and is always a programming error:
// it panics with [ErrAliasing] from both shapes.
//
// # Concurrency
//
// A Runtime and its handles are not safe for concurrent use. Confine a
// runtime to one goroutine or guard it externally.
package stored
