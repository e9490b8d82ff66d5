package slotarena

// SetGenerationForTesting forces the generation stored at index so tests can
// exercise generation exhaustion without 2^32 removals.
func (a *Arena[V]) SetGenerationForTesting(index uint32, generation uint32) {
	a.entries[index].generation = generation
}
