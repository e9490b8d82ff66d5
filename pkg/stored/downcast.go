package stored

// Downcaster is implemented by the handle types that erase their payload's
// concrete type: [View] and [Slice].
type Downcaster interface {
	downcastSource() (handle, identity)
}

// Downcast re-types h as a Value[U] sharing the same slot. It succeeds only
// if the live payload's concrete type is exactly U and the payload is still
// the one h was created for. Mutations through the result are visible through
// h and vice versa.
//
// Downcast never panics: a mismatch, a disposed slot or a zero handle all
// report ok == false.
func Downcast[U any](h Downcaster) (Value[U], bool) {
	v, err := downcast[U](h)
	return v, err == nil
}

// MustDowncast is like [Downcast] but panics with an [*AccessError] on
// failure. A type mismatch reads "downcasted to wrong type".
func MustDowncast[U any](h Downcaster) Value[U] {
	v, err := downcast[U](h)
	if err != nil {
		src, _ := h.downcastSource()
		src.must(err)
	}

	return v
}

// DowncastErr is like [Downcast] but returns the failure as an [*AccessError].
func DowncastErr[U any](h Downcaster) (Value[U], error) {
	v, err := downcast[U](h)
	if err != nil {
		return v, err
	}

	return v, nil
}

func downcast[U any](h Downcaster) (Value[U], *AccessError) {
	src, want := h.downcastSource()

	c, err := src.typedCell(opDowncast, TagFor[U]())
	if err != nil {
		return Value[U]{}, err
	}

	// The tag alone is not enough: the slot may have been refilled with a
	// new payload of the same type since h was created.
	if c.identity() != want {
		return Value[U]{}, src.fail(opDowncast, ErrTypeMismatch)
	}

	return Value[U]{h: src}, nil
}

// AsView re-types v as a View[I] over the same slot. It fails if the slot is
// gone or neither T nor *T implements I.
func AsView[I, T any](v Value[T]) (View[I], bool) {
	c, p, err := v.pointer(opAsView)
	if err != nil {
		return View[I]{}, false
	}

	if _, ok := capability[I](any(p)); !ok {
		return View[I]{}, false
	}

	return View[I]{h: v.h, id: c.identity()}, true
}
