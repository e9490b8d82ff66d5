package stored

// Reader is implemented by every handle type. A is what a reading closure
// receives: *T for [Value] and [Const], I for [View], []E for [Slice].
//
// Reader has unexported methods; only this package's handles implement it.
type Reader[A any] interface {
	read(op string, f func(A)) *AccessError
}

// Accessor is a [Reader] that also allows mutation.
type Accessor[A any] interface {
	Reader[A]
	write(op string, f func(A)) *AccessError
}

// With runs f under a read guard and returns its result.
//
// With panics with an [*AccessError] if the slot is gone or the access
// overlaps an in-progress write to the same slot.
func With[A, R any](h Reader[A], f func(A) R) R {
	r, err := WithErr(h, f)
	if err != nil {
		panic(err)
	}

	return r
}

// TryWith is like [With] but reports ok == false instead of panicking when
// the slot is gone. Aliasing violations still panic.
func TryWith[A, R any](h Reader[A], f func(A) R) (R, bool) {
	r, err := WithErr(h, f)
	return r, err == nil
}

// WithErr is like [With] but returns the failure as an [*AccessError].
// Aliasing violations still panic.
func WithErr[A, R any](h Reader[A], f func(A) R) (R, error) {
	var r R

	if err := h.read(opWith, func(a A) { r = f(a) }); err != nil {
		return r, err
	}

	return r, nil
}

// Update runs f under a write guard and returns its result.
//
// Update panics with an [*AccessError] if the slot is gone or any other
// access to the same slot is in progress, including a reentrant access from
// inside f.
func Update[A, R any](h Accessor[A], f func(A) R) R {
	r, err := UpdateErr(h, f)
	if err != nil {
		panic(err)
	}

	return r
}

// TryUpdate is like [Update] but reports ok == false instead of panicking
// when the slot is gone. Aliasing violations still panic.
func TryUpdate[A, R any](h Accessor[A], f func(A) R) (R, bool) {
	r, err := UpdateErr(h, f)
	return r, err == nil
}

// UpdateErr is like [Update] but returns the failure as an [*AccessError].
// Aliasing violations still panic.
func UpdateErr[A, R any](h Accessor[A], f func(A) R) (R, error) {
	var r R

	if err := h.write(opUpdate, func(a A) { r = f(a) }); err != nil {
		return r, err
	}

	return r, nil
}
