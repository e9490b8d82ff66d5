package stored_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/slotarena/pkg/stored"
)

func Test_View_Reads_Through_Capability(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	sv := stored.NewView[fmt.Stringer](rt, label("test"))

	got := stored.With(sv, func(s fmt.Stringer) string { return "this is a " + s.String() })
	assert.Equal(t, "this is a test", got)
}

func Test_Downcast_Aliases_Same_Slot_When_Type_Matches(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	broad := stored.NewView[fmt.Stringer](rt, label("a"))

	narrow, ok := stored.Downcast[label](broad)
	require.True(t, ok, "downcast to the concrete type must succeed")
	assert.Equal(t, broad.Key(), narrow.Key())

	narrow.UpdateValue(func(l *label) { *l = "b" })

	assert.Equal(t, "b", stored.With(broad, func(s fmt.Stringer) string { return s.String() }))
	assert.Equal(t, label("b"), narrow.Get())
}

func Test_Downcast_Returns_Empty_When_Type_Mismatches(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	sv := stored.NewView[fmt.Stringer](rt, label("test"))

	_, ok := stored.Downcast[string](sv)
	assert.False(t, ok, "underlying type string is not the concrete type label")

	_, ok = stored.Downcast[[]byte](sv)
	assert.False(t, ok)

	_, ok = stored.Downcast[fmt.Stringer](sv)
	assert.False(t, ok, "the capability interface is not the concrete type")

	_, err := stored.DowncastErr[[]byte](sv)
	require.ErrorIs(t, err, stored.ErrTypeMismatch)

	accessErr := mustPanicAccess(t, func() { stored.MustDowncast[[]byte](sv) })
	require.ErrorIs(t, accessErr, stored.ErrTypeMismatch)
	assert.Contains(t, accessErr.Error(), "downcasted to wrong type")

	assert.Equal(t, "test", stored.With(sv, func(s fmt.Stringer) string { return s.String() }),
		"failed downcasts must leave the payload untouched")
}

func Test_Downcast_Returns_Empty_When_Disposed_Or_Zero(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	sv := stored.NewView[fmt.Stringer](rt, label("x"))
	sv.Dispose()

	_, err := stored.DowncastErr[label](sv)
	require.ErrorIs(t, err, stored.ErrDisposed)

	var zero stored.View[fmt.Stringer]

	_, err = stored.DowncastErr[label](zero)
	require.ErrorIs(t, err, stored.ErrNoRuntime)
}

func Test_View_Mutates_Stored_Value_Through_Pointer_Methods(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	v := stored.NewView[hitter](rt, &tally{})

	assert.Equal(t, 1, stored.Update(v, hitter.Hit))
	assert.Equal(t, 2, stored.Update(v, hitter.Hit))

	concrete := stored.MustDowncast[*tally](v)
	assert.Equal(t, 2, concrete.Get().hits)
}

func Test_View_Mutates_Stored_Value_When_Pointer_Implements_Capability(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	// tally (not *tally) is stored; only *tally implements hitter, and the
	// view hands out a pointer to the stored tally.
	v, ok := stored.AsView[hitter](stored.New(rt, tally{}))
	require.True(t, ok)

	stored.Update(v, hitter.Hit)
	stored.Update(v, hitter.Hit)

	assert.Equal(t, 2, stored.MustDowncast[tally](v).Get().hits)
}

func Test_AsView_Fails_When_Type_Lacks_Capability(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	_, ok := stored.AsView[hitter](stored.New(rt, 5))
	assert.False(t, ok)

	gone := stored.New(rt, tally{})
	gone.Dispose()

	_, ok = stored.AsView[hitter](gone)
	assert.False(t, ok)
}

func Test_View_Set_Changes_Concrete_Type(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	sv := stored.NewView[fmt.Stringer](rt, label("a"))
	narrow := stored.MustDowncast[label](sv)

	sv.Set(fmt.Stringer(stringerFunc(func() string { return "func" })))

	assert.Equal(t, "func", stored.With(sv, func(s fmt.Stringer) string { return s.String() }))

	_, err := narrow.GetErr()
	require.ErrorIs(t, err, stored.ErrTypeMismatch, "old narrow handle must not misread the new payload")

	accessErr := mustPanicAccess(t, func() { narrow.Get() })
	require.ErrorIs(t, accessErr, stored.ErrTypeMismatch)
}

// Even when the replacement has the same concrete type, a view created for
// the old payload must not be downcast onto the new one.
func Test_Downcast_Rejects_Stale_View_When_Payload_Replaced(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	sv := stored.NewView[fmt.Stringer](rt, label("a"))
	before := sv

	sv.Set(label("b"))

	_, ok := stored.Downcast[label](before)
	assert.False(t, ok, "stale view identity must be rejected")

	fresh, ok := sv.Refresh()
	require.True(t, ok)

	narrow, ok := stored.Downcast[label](fresh)
	require.True(t, ok)
	assert.Equal(t, label("b"), narrow.Get())

	// Replacing through the narrow handle also invalidates the refreshed view.
	narrow.Set("c")

	_, ok = stored.Downcast[label](fresh)
	assert.False(t, ok)
}

func Test_View_Set_Panics_When_Value_Is_Nil(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	sv := stored.NewView[fmt.Stringer](rt, label("a"))

	accessErr := mustPanicAccess(t, func() { sv.Set(nil) })
	require.ErrorIs(t, accessErr, stored.ErrTypeMismatch)

	rejected, ok := sv.TrySet(nil)
	assert.False(t, ok)
	assert.Nil(t, rejected)

	accessErr = mustPanicAccess(t, func() { stored.NewView[fmt.Stringer](rt, nil) })
	require.ErrorIs(t, accessErr, stored.ErrTypeMismatch)
}

func Test_View_TrySet_Returns_Rejected_Value_When_Disposed(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	sv := stored.NewView[fmt.Stringer](rt, label("a"))
	sv.Dispose()

	rejected, ok := sv.TrySet(label("b"))
	assert.False(t, ok)
	assert.Equal(t, label("b"), rejected)
}

type stringerFunc func() string

func (f stringerFunc) String() string { return f() }
