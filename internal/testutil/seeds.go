package testutil

import "github.com/calvinalkan/slotarena/pkg/stored/model"

// Seed bundles a human-readable name with seed bytes.
//
// Curated seed sequences are hand-crafted to exercise specific scenarios that
// random fuzzing might take a long time to discover. Each seed is designed to
// produce a deterministic sequence of operations when fed to OpGenerator.
//
// Use RunBehaviorWithSeed to execute these:
//
//	testutil.RunBehaviorWithSeed(t, testutil.SeedScopeCascade(), cfg)
type Seed struct {
	Name string
	Data []byte
}

// CuratedSeeds returns all curated seeds with descriptive names.
func CuratedSeeds() []Seed {
	return []Seed{
		{Name: "value_lifecycle", Data: SeedValueLifecycle()},
		{Name: "scope_cascade", Data: SeedScopeCascade()},
		{Name: "view_downcast", Data: SeedViewDowncast()},
		{Name: "slice_resize", Data: SeedSliceResize()},
		{Name: "aliasing", Data: SeedAliasing()},
		{Name: "slot_reuse", Data: SeedSlotReuse()},
		{Name: "runtime_dispose", Data: SeedRuntimeDispose()},
	}
}

// defaultSeedConfig returns the config used for building curated seeds.
// This must match DefaultOpGenConfig() for seeds to work correctly.
func defaultSeedConfig() *OpGenConfig {
	cfg := DefaultOpGenConfig()

	return &cfg
}

// SeedValueLifecycle stores, updates, replaces and disposes a single value.
func SeedValueLifecycle() []byte {
	return NewSeedBuilder(defaultSeedConfig()).
		Store(model.RootScope, model.KindValue, 1).
		Add(0, 1).
		Add(0, 1).
		Set(0, 42).
		Get(0).
		Dispose(0).
		Get(0).
		Set(0, 7).
		Dispose(0).
		Bytes()
}

// SeedScopeCascade builds sibling and nested scopes and disposes the middle
// of the tree.
func SeedScopeCascade() []byte {
	return NewSeedBuilder(defaultSeedConfig()).
		NewScope(model.RootScope). // scope 1
		NewScope(model.RootScope). // scope 2
		NewScope(1).               // scope 3
		Store(1, model.KindValue, 10).
		Store(2, model.KindView, 20).
		Store(3, model.KindSlice, 1, 2, 3).
		DisposeScope(1).
		Get(0).
		Get(1).
		Get(2).
		Store(3, model.KindValue, 5).
		NewScope(3).
		DisposeScope(1).
		Bytes()
}

// SeedViewDowncast downcasts a view, mutates through both handles, then
// replaces the payload so the old view can no longer be downcast.
func SeedViewDowncast() []byte {
	return NewSeedBuilder(defaultSeedConfig()).
		Store(model.RootScope, model.KindView, 5).
		Downcast(0). // handle 1
		Add(1, 3).
		Get(0).
		Add(0, -2).
		Get(1).
		Set(0, 9).
		Downcast(0).
		Refresh(0).
		Downcast(0). // handle 2
		Get(2).
		Bytes()
}

// SeedSliceResize downcasts a slice to an array and changes its length.
func SeedSliceResize() []byte {
	return NewSeedBuilder(defaultSeedConfig()).
		Store(model.RootScope, model.KindSlice, 42, 43, 44).
		Downcast(0). // handle 1
		Add(1, 1).
		Get(0).
		Set(0, 1, 2).
		Get(1).
		Refresh(0).
		Downcast(0).
		Set(0, 7, 8, 9).
		Get(1).
		Refresh(0).
		Downcast(0). // handle 2
		Set(2, 1, 1, 1).
		Get(0).
		Bytes()
}

// SeedAliasing nests accesses to the same and to different slots.
func SeedAliasing() []byte {
	return NewSeedBuilder(defaultSeedConfig()).
		Store(model.RootScope, model.KindValue, 1).
		Store(model.RootScope, model.KindView, 2).
		Downcast(1). // handle 2
		Nested(0, 0).
		Nested(0, 1).
		Nested(1, 2).
		Nested(2, 1).
		Add(0, 1).
		Get(0).
		Bytes()
}

// SeedSlotReuse disposes a value and stores another one into the freed
// index; the stale handle must stay dead.
func SeedSlotReuse() []byte {
	return NewSeedBuilder(defaultSeedConfig()).
		Store(model.RootScope, model.KindValue, 1).
		Dispose(0).
		Store(model.RootScope, model.KindValue, 2).
		Get(0).
		Get(1).
		Set(0, 3).
		Get(1).
		Nested(0, 1).
		Bytes()
}

// SeedRuntimeDispose disposes the runtime with values in several scopes.
func SeedRuntimeDispose() []byte {
	return NewSeedBuilder(defaultSeedConfig()).
		NewScope(model.RootScope).
		Store(1, model.KindValue, 1).
		Store(model.RootScope, model.KindSlice, 1).
		DisposeRuntime().
		Get(0).
		Get(1).
		Store(model.RootScope, model.KindValue, 1).
		NewScope(1).
		DisposeScope(1).
		Bytes()
}
