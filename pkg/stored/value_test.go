package stored_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/slotarena/pkg/stored"
)

func Test_Value_Get_Returns_Stored_Value_When_Live(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	assert.Equal(t, 42, stored.New(rt, 42).Get())
	assert.Equal(t, "a", stored.New(rt, "a").Get())
	assert.Equal(t, []int{1, 2}, stored.New(rt, []int{1, 2}).Get())

	type pair struct {
		a string
		b int
	}

	p := stored.New(rt, pair{"x", 1})
	assert.Equal(t, pair{"x", 1}, stored.With(p, func(v *pair) pair { return *v }))
}

func Test_Value_Set_Replaces_Payload(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	v := stored.New(rt, 1)
	v.Set(5)

	assert.Equal(t, 5, v.Get())
}

func Test_Value_Counts_To_Three_When_Updated_Three_Times(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	c := stored.New(rt, counter{})
	for range 3 {
		c.UpdateValue(func(c *counter) { c.n++ })
	}

	assert.Equal(t, 3, stored.With(c, func(c *counter) int { return c.n }))
}

func Test_Value_Update_Returns_Closure_Result(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	data := stored.New(rt, counter{n: 1})

	got, ok := stored.TryUpdate(data, func(c *counter) int {
		c.n = 10
		return c.n * 2
	})
	require.True(t, ok)
	assert.Equal(t, 20, got)
	assert.Equal(t, counter{n: 10}, data.Get())
}

func Test_Value_Copies_Share_One_Slot(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	a := stored.New(rt, counter{})
	b := a

	incA := func() { a.UpdateValue(func(c *counter) { c.n++ }) }
	incB := func() { b.UpdateValue(func(c *counter) { c.n++ }) }

	incA()
	incB()

	assert.Equal(t, 2, a.Get().n)
	assert.True(t, a.Equal(b))
	assert.Equal(t, a, b)
}

func Test_Value_Calls_Stored_Closure_When_Payload_Is_A_Func(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	i := 0
	fn := stored.New(rt, func() int {
		i++
		return i
	})

	call := func(f *func() int) int { return (*f)() }

	assert.Equal(t, 1, stored.Update(fn, call))
	assert.Equal(t, 2, stored.Update(fn, call))
	assert.Equal(t, 3, stored.Update(fn, call))
}

func Test_Value_Default_Stores_Zero_Value(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	assert.Equal(t, counter{}, stored.Default[counter](rt).Get())
}

func Test_Value_Reports_Missing_From_Every_Operation_When_Disposed(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	v := stored.New(rt, counter{n: 1})
	v.Dispose()

	require.True(t, v.IsDisposed())

	_, ok := v.TryGet()
	assert.False(t, ok, "TryGet")
	assert.False(t, v.TryWithValue(func(*counter) {}), "TryWithValue")
	assert.False(t, v.TryUpdateValue(func(*counter) {}), "TryUpdateValue")

	_, ok = stored.TryWith(v, func(c *counter) int { return c.n })
	assert.False(t, ok, "TryWith")

	_, ok = stored.TryUpdate(v, func(c *counter) int { return c.n })
	assert.False(t, ok, "TryUpdate")

	_, err := v.GetErr()
	require.ErrorIs(t, err, stored.ErrDisposed)

	strict := map[string]func(){
		"Get":         func() { v.Get() },
		"Set":         func() { v.Set(counter{}) },
		"WithValue":   func() { v.WithValue(func(*counter) {}) },
		"UpdateValue": func() { v.UpdateValue(func(*counter) {}) },
		"With":        func() { stored.With(v, func(c *counter) int { return c.n }) },
		"Update":      func() { stored.Update(v, func(c *counter) int { return c.n }) },
	}

	for name, f := range strict {
		accessErr := mustPanicAccess(t, f)
		require.ErrorIs(t, accessErr, stored.ErrDisposed, name)
		assert.Contains(t, accessErr.Error(), "could not get stored value", name)
		assert.Equal(t, v.Key(), accessErr.Key, name)
	}
}

func Test_Value_TrySet_Returns_Rejected_Value_When_Disposed(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	v := stored.New(rt, []string{"kept"})
	v.Dispose()

	rejected, ok := v.TrySet([]string{"mine"})
	assert.False(t, ok)
	assert.Equal(t, []string{"mine"}, rejected, "caller must get its value back")

	live := stored.New(rt, 1)
	rejectedInt, ok := live.TrySet(2)
	assert.True(t, ok)
	assert.Zero(t, rejectedInt)
	assert.Equal(t, 2, live.Get())
}

func Test_Value_Dispose_Is_Idempotent(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	v := stored.New(rt, 1)
	v.Dispose()
	v.Dispose()

	assert.Equal(t, uint64(1), rt.Stats().Disposed)
}

func Test_Value_Reports_NoRuntime_When_Zero(t *testing.T) {
	t.Parallel()

	var v stored.Value[int]

	_, err := v.GetErr()
	require.ErrorIs(t, err, stored.ErrNoRuntime)
	assert.False(t, errors.Is(err, stored.ErrDisposed), "no runtime must be distinguishable from disposed")
	assert.True(t, v.IsDisposed())
	assert.Nil(t, v.Runtime())

	accessErr := mustPanicAccess(t, func() { v.Get() })
	require.ErrorIs(t, accessErr, stored.ErrNoRuntime)

	v.Dispose() // no-op, must not panic
}

func Test_Update_Panics_With_Aliasing_When_Reentered_On_Same_Slot(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	v := stored.New(rt, counter{})

	cases := map[string]func(){
		"update in update": func() {
			v.UpdateValue(func(*counter) { v.UpdateValue(func(*counter) {}) })
		},
		"with in update": func() {
			v.UpdateValue(func(*counter) { v.WithValue(func(*counter) {}) })
		},
		"update in with": func() {
			v.WithValue(func(*counter) { v.UpdateValue(func(*counter) {}) })
		},
		"set in with": func() {
			v.WithValue(func(*counter) { v.Set(counter{n: 9}) })
		},
		"fallible update in update": func() {
			v.UpdateValue(func(*counter) { v.TryUpdateValue(func(*counter) {}) })
		},
		"fallible set in update": func() {
			v.UpdateValue(func(*counter) { v.TrySet(counter{n: 9}) })
		},
	}

	for name, f := range cases {
		accessErr := mustPanicAccess(t, f)
		require.ErrorIs(t, accessErr, stored.ErrAliasing, name)
	}

	assert.Equal(t, counter{}, v.Get(), "violations must not have corrupted the payload")
	assert.Equal(t, uint64(len(cases)), rt.Stats().AliasingViolations)

	// Guards are released even though the closures panicked.
	v.UpdateValue(func(c *counter) { c.n = 1 })
	assert.Equal(t, 1, v.Get().n)
}

func Test_With_Allows_Nested_Readers_On_Same_Slot(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	v := stored.New(rt, counter{n: 3})

	got := stored.With(v, func(outer *counter) int {
		return stored.With(v, func(inner *counter) int { return outer.n + inner.n })
	})

	assert.Equal(t, 6, got)
}

func Test_Update_Allows_Access_To_Other_Slots(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	a := stored.New(rt, 1)
	b := stored.New(rt, 2)

	a.UpdateValue(func(x *int) {
		b.UpdateValue(func(y *int) { *x, *y = *y, *x })
	})

	assert.Equal(t, 2, a.Get())
	assert.Equal(t, 1, b.Get())
}

func Test_Value_Is_Usable_As_Map_Key(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	a := stored.New(rt, "a")
	b := stored.New(rt, "b")

	seen := map[stored.Value[string]]int{a: 1, b: 2}
	aCopy := a

	assert.Equal(t, 1, seen[aCopy])
	assert.Len(t, seen, 2)
}

func Test_Value_String_Names_Type_And_Slot(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t)

	v := stored.New(rt, 1)

	assert.Equal(t, "Value[int]("+v.Key().String()+")", v.String())
}
