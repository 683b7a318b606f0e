package ecs

// Each2 iterates over entities that have both component A and B.
// It iterates over the smaller set and checks the larger one.
func Each2[A, B any](sa *ComponentSet[A], sb *ComponentSet[B], fn func(EntityID, *A, *B)) {
	if sa.Len() <= sb.Len() {
		sa.Each(func(id EntityID, a *A) {
			if b, ok := sb.Get(id); ok {
				fn(id, a, b)
			}
		})
	} else {
		sb.Each(func(id EntityID, b *B) {
			if a, ok := sa.Get(id); ok {
				fn(id, a, b)
			}
		})
	}
}
