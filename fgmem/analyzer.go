package fgmem

// LifetimeInterval is a precomputed live range for a resource, expressed in
// execution-order task indices: the resource is written at BirthIndex and
// last read at DeathIndex.
type LifetimeInterval struct {
	BirthIndex int
	DeathIndex int
}

// Overlaps reports whether two live ranges intersect. Two resources may only
// share storage when their intervals do not overlap.
func (i LifetimeInterval) Overlaps(other LifetimeInterval) bool {
	return i.BirthIndex <= other.DeathIndex && other.BirthIndex <= i.DeathIndex
}

// LifetimeAnalyzer is an optional collaborator that supplies precomputed
// live ranges, usually produced by an offline pass over the compiled graph.
// The AliasingEngine works correctly without one: the Released state already
// guarantees that a candidate's online lifetime has ended before it can be
// matched. When an analyzer is present it is consulted as an additional
// filter, letting the engine refuse pairs whose precomputed ranges overlap.
type LifetimeAnalyzer interface {
	// Interval returns the precomputed live range for a resource, or
	// ok == false if the analyzer has no information about it. Unknown
	// resources fall back to online discovery and are not penalized.
	Interval(resource ResourceHandle) (interval LifetimeInterval, ok bool)
}
