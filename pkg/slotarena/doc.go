// Package slotarena provides a generation-checked slot arena.
//
// An [Arena] owns a collection of payloads addressed by [SlotID]. A SlotID is
// an index plus a generation counter. Removing a payload bumps the
// generation stored at its index, so an old SlotID that names a reused index
// no longer matches and is reported as missing instead of aliasing the new
// payload.
//
// # Basic Usage
//
//	var a slotarena.Arena[string]
//
//	id := a.Insert("hello")
//	v, ok := a.Get(id)    // "hello", true
//	a.Remove(id)          // "hello", true
//	_, ok = a.Get(id)     // "", false
//
// # Concurrency
//
// Arena is not safe for concurrent use. Callers that share an arena between
// goroutines must provide their own locking.
package slotarena
