package stored

import (
	"slices"

	"go.uber.org/zap"

	"github.com/calvinalkan/slotarena/pkg/slotarena"
)

// Owner is the disposal boundary a value is registered with when stored.
//
// [*Scope] and [*Runtime] implement Owner. An external scope graph can
// implement it too: Register receives one [Token] per stored value, and the
// graph calls [Token.Dispose] on each when it tears the scope down. If the
// owner also has an IsDisposed() bool method, storing into a disposed owner
// fails with [ErrScopeDisposed].
type Owner interface {
	Runtime() *Runtime
	Register(tok Token)
}

// Token removes one slot when disposed. Tokens are small values; copying
// one is fine and disposing any copy is idempotent.
type Token struct {
	rt *Runtime
	id slotarena.SlotID
}

// Dispose removes the slot. It reports whether this call removed it;
// disposing an already removed slot is a no-op that returns false.
func (t Token) Dispose() bool {
	if t.rt == nil {
		return false
	}

	return t.rt.remove(t.id)
}

// Key returns the key of the slot the token disposes.
func (t Token) Key() Key {
	return handle(t).key()
}

// Scope is a node in a simple disposal tree. Disposing a scope disposes its
// children first, then every value registered with it, then runs its
// cleanup callbacks in reverse registration order.
type Scope struct {
	rt       *Runtime
	parent   *Scope
	children []*Scope
	tokens   []Token
	cleanups []func()
	disposed bool
}

func newScope(rt *Runtime, parent *Scope) *Scope {
	rt.scopes++
	return &Scope{rt: rt, parent: parent}
}

// Runtime returns the runtime the scope belongs to.
func (s *Scope) Runtime() *Runtime {
	return s.rt
}

// Child creates a scope that is disposed when s is disposed.
//
// Child panics with [ErrScopeDisposed] if s is already disposed.
func (s *Scope) Child() *Scope {
	if s.disposed {
		panic(&AccessError{Op: "child", Key: Key{Runtime: s.rt.id}, Err: ErrScopeDisposed})
	}

	c := newScope(s.rt, s)
	s.children = append(s.children, c)

	return c
}

// Parent returns the parent scope, or nil for the root.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Register appends tok to the scope's teardown list. Registering with a
// disposed scope disposes tok immediately.
func (s *Scope) Register(tok Token) {
	if s.disposed {
		tok.Dispose()
		return
	}

	s.tokens = append(s.tokens, tok)
}

// OnCleanup registers f to run when the scope is disposed. Registering with a
// disposed scope runs f immediately.
func (s *Scope) OnCleanup(f func()) {
	if s.disposed {
		f()
		return
	}

	s.cleanups = append(s.cleanups, f)
}

// Len returns the number of tokens registered with the scope.
func (s *Scope) Len() int {
	return len(s.tokens)
}

// IsDisposed reports whether Dispose has been called.
func (s *Scope) IsDisposed() bool {
	return s.disposed
}

// Dispose tears the scope down. Tokens whose slots were already disposed
// explicitly are skipped silently. Dispose is idempotent.
func (s *Scope) Dispose() {
	if s.disposed {
		return
	}

	s.disposed = true

	for _, child := range slices.Backward(s.children) {
		child.Dispose()
	}

	removed := 0

	for _, tok := range s.tokens {
		if tok.Dispose() {
			removed++
		}
	}

	for _, f := range slices.Backward(s.cleanups) {
		f()
	}

	if s.parent != nil && !s.parent.disposed {
		s.parent.children = slices.DeleteFunc(s.parent.children, func(c *Scope) bool { return c == s })
	}

	s.rt.scopes--
	s.rt.logger.Debug("scope disposed",
		zap.Int("tokens", len(s.tokens)),
		zap.Int("removed", removed),
		zap.Int("cleanups", len(s.cleanups)),
	)

	s.children = nil
	s.tokens = nil
	s.cleanups = nil
}
