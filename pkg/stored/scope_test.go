package stored_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/slotarena/pkg/stored"
)

func Test_Scope_Disposes_Only_Own_Values_When_Sibling_Disposed(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	a := rt.Root().Child()
	b := rt.Root().Child()

	va := stored.New(a, "a")
	vb := stored.New(b, "b")

	a.Dispose()

	assert.True(t, va.IsDisposed())
	assert.False(t, vb.IsDisposed())
	assert.Equal(t, "b", vb.Get())

	_, ok := va.TryGet()
	assert.False(t, ok)
}

func Test_Scope_Disposes_Descendants_When_Parent_Disposed(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	parent := rt.Root().Child()
	child := parent.Child()
	grandchild := child.Child()

	vp := stored.New(parent, 1)
	vc := stored.New(child, 2)
	vg := stored.New(grandchild, 3)
	outside := stored.New(rt, 4)

	require.Equal(t, 4, rt.Stats().Scopes)

	parent.Dispose()

	for name, v := range map[string]stored.Value[int]{"parent": vp, "child": vc, "grandchild": vg} {
		assert.True(t, v.IsDisposed(), name)
	}

	assert.True(t, child.IsDisposed())
	assert.True(t, grandchild.IsDisposed())
	assert.Equal(t, 4, outside.Get())
	assert.Equal(t, 1, rt.Stats().Scopes)
}

func Test_Scope_Runs_Teardown_In_Order(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	var events []string

	s := rt.Root().Child()
	s.OnCleanup(func() { events = append(events, "cleanup-1") })
	s.OnCleanup(func() { events = append(events, "cleanup-2") })

	c := s.Child()
	c.OnCleanup(func() { events = append(events, "child") })

	v := stored.New(s, 0)
	s.OnCleanup(func() {
		// Values are gone by the time cleanups run.
		events = append(events, "value-disposed="+boolString(v.IsDisposed()))
	})

	s.Dispose()

	want := []string{"child", "value-disposed=true", "cleanup-2", "cleanup-1"}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Fatalf("teardown order mismatch (-want +got):\n%s", diff)
	}

	s.Dispose()
	assert.Len(t, events, len(want), "second Dispose must be a no-op")
}

func Test_Scope_Skips_Values_Already_Disposed(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	s := rt.Root().Child()
	v := stored.New(s, 1)
	w := stored.New(s, 2)

	assert.Equal(t, 2, s.Len())

	v.Dispose()
	s.Dispose()

	assert.True(t, w.IsDisposed())
	assert.Equal(t, uint64(2), rt.Stats().Disposed, "each slot is counted once")
}

func Test_Scope_Rejects_New_Values_When_Disposed(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	s := rt.Root().Child()
	s.Dispose()

	_, err := stored.TryNew(s, 1)
	require.ErrorIs(t, err, stored.ErrScopeDisposed)

	accessErr := mustPanicAccess(t, func() { stored.New(s, 1) })
	require.ErrorIs(t, accessErr, stored.ErrScopeDisposed)

	accessErr = mustPanicAccess(t, func() { s.Child() })
	require.ErrorIs(t, accessErr, stored.ErrScopeDisposed)

	ran := false
	s.OnCleanup(func() { ran = true })
	assert.True(t, ran, "cleanup on a disposed scope runs immediately")

	assert.Equal(t, 0, rt.Stats().Live)
}

func Test_Token_Dispose_Is_Idempotent(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	owner := &listOwner{rt: rt}
	v := stored.New(owner, "x")

	require.Len(t, owner.tokens, 1)

	tok := owner.tokens[0]
	assert.Equal(t, v.Key(), tok.Key())

	assert.True(t, tok.Dispose())
	assert.False(t, tok.Dispose())
	assert.True(t, v.IsDisposed())

	var zero stored.Token
	assert.False(t, zero.Dispose())
}

func Test_Owner_Implemented_Externally_Controls_Lifetime(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	owner := &listOwner{rt: rt}

	a := stored.New(owner, 1)
	b := stored.NewSlice(owner, 'x', 'y')
	c := stored.NewView[hitter](owner, &tally{})

	assert.Len(t, owner.tokens, 3)
	assert.Equal(t, 0, rt.Root().Len(), "external owner values are not in the root scope")

	owner.teardown()

	assert.True(t, a.IsDisposed())
	assert.True(t, b.IsDisposed())
	assert.True(t, c.IsDisposed())

	_, err := stored.TryNew(owner, 2)
	require.ErrorIs(t, err, stored.ErrScopeDisposed)
}

func Test_Runtime_Dispose_Removes_Values_Of_External_Owners(t *testing.T) {
	t.Parallel()

	rt := stored.NewRuntime(stored.Options{})

	owner := &listOwner{rt: rt}
	v := stored.New(owner, 1)

	rt.Dispose()

	assert.True(t, v.IsDisposed())

	_, err := v.GetErr()
	require.ErrorIs(t, err, stored.ErrDisposed)

	owner.teardown()
	assert.Equal(t, uint64(1), rt.Stats().Disposed)
}

func Test_Store_Fails_When_Owner_Has_No_Runtime(t *testing.T) {
	t.Parallel()

	_, err := stored.TryNew(&listOwner{}, 1)
	require.ErrorIs(t, err, stored.ErrNoRuntime)

	_, err = stored.TryNew[int](nil, 1)
	require.ErrorIs(t, err, stored.ErrNoRuntime)
}

// listOwner is a minimal external scope graph node.
type listOwner struct {
	rt       *stored.Runtime
	tokens   []stored.Token
	disposed bool
}

func (o *listOwner) Runtime() *stored.Runtime { return o.rt }

func (o *listOwner) Register(tok stored.Token) { o.tokens = append(o.tokens, tok) }

func (o *listOwner) IsDisposed() bool { return o.disposed }

func (o *listOwner) teardown() {
	o.disposed = true

	for _, tok := range o.tokens {
		tok.Dispose()
	}

	o.tokens = nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}

	return "false"
}
