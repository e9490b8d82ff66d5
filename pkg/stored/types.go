package stored

import (
	"reflect"
	"sync"
)

// TypeTag is a small process-wide identifier for a concrete Go type.
//
// Tags are assigned on first use and never reused. The zero TypeTag is never
// assigned and means "no type".
type TypeTag uint32

var typeTags struct {
	mu     sync.Mutex
	byType map[reflect.Type]TypeTag
	types  []reflect.Type // index = tag-1
}

// TagOf returns the tag for t, assigning one if t has not been seen before.
func TagOf(t reflect.Type) TypeTag {
	if t == nil {
		return 0
	}

	typeTags.mu.Lock()
	defer typeTags.mu.Unlock()

	if tag, ok := typeTags.byType[t]; ok {
		return tag
	}

	if typeTags.byType == nil {
		typeTags.byType = make(map[reflect.Type]TypeTag)
	}

	typeTags.types = append(typeTags.types, t)
	tag := TypeTag(len(typeTags.types)) //nolint:gosec // one tag per distinct type in the program

	typeTags.byType[t] = tag

	return tag
}

// TagFor returns the tag for T.
func TagFor[T any]() TypeTag {
	return TagOf(reflect.TypeFor[T]())
}

// Type returns the type tag was assigned to, or nil for unknown tags.
func (tag TypeTag) Type() reflect.Type {
	typeTags.mu.Lock()
	defer typeTags.mu.Unlock()

	if tag == 0 || int(tag) > len(typeTags.types) {
		return nil
	}

	return typeTags.types[tag-1]
}

func (tag TypeTag) String() string {
	t := tag.Type()
	if t == nil {
		return "<none>"
	}

	return t.String()
}
