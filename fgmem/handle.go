package fgmem

// ResourceHandle identifies a logical graph resource. Handles are minted and
// owned by the executor that drives this package; nothing here ever creates or
// destroys the backing object a handle refers to.
type ResourceHandle uint64

// NoResource is the nil handle. Operations that receive it are no-ops and
// lookups that fail return it.
const NoResource ResourceHandle = 0

// TaskID identifies a task (node) in the compiled graph.
type TaskID uint32

// NoTask is returned from producer lookups that find nothing.
const NoTask TaskID = 0

// LifetimeScope describes how long a resource must remain valid. Only
// LifetimeTransient and LifetimePerFrame resources ever participate in
// aliasing: persistent and imported resources are live for the whole session,
// so their backing storage can never be handed to anyone else.
type LifetimeScope uint32

const (
	// LifetimeTransient resources live only between their producing and last
	// consuming task within a single frame.
	LifetimeTransient LifetimeScope = iota
	// LifetimePerFrame resources live for exactly one full frame.
	LifetimePerFrame
	// LifetimePersistent resources survive across frames.
	LifetimePersistent
	// LifetimeImported resources are owned by an external system and merely
	// referenced by the graph.
	LifetimeImported
)

var lifetimeScopeMapping = map[LifetimeScope]string{
	LifetimeTransient:  "LifetimeTransient",
	LifetimePerFrame:   "LifetimePerFrame",
	LifetimePersistent: "LifetimePersistent",
	LifetimeImported:   "LifetimeImported",
}

func (s LifetimeScope) String() string {
	str, ok := lifetimeScopeMapping[s]
	if !ok {
		return "unknown"
	}
	return str
}

// CanAlias reports whether resources with this scope may share backing
// storage at all.
func (s LifetimeScope) CanAlias() bool {
	return s == LifetimeTransient || s == LifetimePerFrame
}

// ResourceLocation indicates which memory arena an allocation was placed in.
type ResourceLocation uint32

const (
	LocationStack ResourceLocation = iota
	LocationHeap
	LocationVRAM
)

var resourceLocationMapping = map[ResourceLocation]string{
	LocationStack: "Stack",
	LocationHeap:  "Heap",
	LocationVRAM:  "VRAM",
}

func (l ResourceLocation) String() string {
	str, ok := resourceLocationMapping[l]
	if !ok {
		return "unknown"
	}
	return str
}
