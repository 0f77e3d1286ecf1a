package fgmem

// NodeAllocationRecord accumulates one task's allocation activity within a
// single frame. Zero-byte allocations still bump the counts.
type NodeAllocationRecord struct {
	TaskID   TaskID
	TaskName string

	StackAllocations int
	HeapAllocations  int
	VRAMAllocations  int

	StackBytes int
	HeapBytes  int
	VRAMBytes  int

	AliasedAllocations    int
	BytesSavedViaAliasing int
}

func (r NodeAllocationRecord) TotalAllocations() int {
	return r.StackAllocations + r.HeapAllocations + r.VRAMAllocations
}

func (r NodeAllocationRecord) TotalBytes() int {
	return r.StackBytes + r.HeapBytes + r.VRAMBytes
}

// AliasingEfficiencyPercent is the share of this record's allocations that
// reused existing storage, clamped to [0, 100].
func (r NodeAllocationRecord) AliasingEfficiencyPercent() float32 {
	total := r.TotalAllocations()
	if total == 0 {
		return 0
	}
	percent := float32(r.AliasedAllocations) / float32(total) * 100
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

func (r *NodeAllocationRecord) add(other *NodeAllocationRecord) {
	r.StackAllocations += other.StackAllocations
	r.HeapAllocations += other.HeapAllocations
	r.VRAMAllocations += other.VRAMAllocations
	r.StackBytes += other.StackBytes
	r.HeapBytes += other.HeapBytes
	r.VRAMBytes += other.VRAMBytes
	r.AliasedAllocations += other.AliasedAllocations
	r.BytesSavedViaAliasing += other.BytesSavedViaAliasing
}

// FrameStats is the closed record of one profiled frame: per-task records
// sorted by total bytes descending, their aggregate, and the peak concurrent
// usage observed per location while the frame was open.
type FrameStats struct {
	FrameNumber uint64

	Nodes  []NodeAllocationRecord
	Totals NodeAllocationRecord

	PeakStackBytes int
	PeakHeapBytes  int
	PeakVRAMBytes  int
}
