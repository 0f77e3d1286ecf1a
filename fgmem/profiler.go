package fgmem

import "golang.org/x/exp/slices"

// Profiler accumulates per-task allocation records for the frame currently
// open between BeginFrame and EndFrame, then files the closed frame into a
// rolling window of the most recent FrameWindowSize frames. Like the other
// subsystems it is pure bookkeeping: it observes allocations and releases but
// owns no memory and is never consulted on the allocation path.
type Profiler struct {
	window  frameWindow
	current *frameBucket
}

// frameBucket is the mutable accumulator for the open frame. Byte totals per
// location are tracked as running concurrent usage so the bucket can record
// the frame's peak, not just its sum.
type frameBucket struct {
	frameNumber uint64
	nodes       map[TaskID]*NodeAllocationRecord

	curStack int
	curHeap  int
	curVRAM  int

	peakStack int
	peakHeap  int
	peakVRAM  int
}

func NewProfiler() *Profiler {
	return &Profiler{}
}

// BeginFrame opens an accumulation bucket for frameNumber. Calling BeginFrame
// while a frame is already open discards the open frame's records and starts
// fresh - the superseded frame never reaches the window.
func (p *Profiler) BeginFrame(frameNumber uint64) {
	p.current = &frameBucket{
		frameNumber: frameNumber,
		nodes:       map[TaskID]*NodeAllocationRecord{},
	}
}

// EndFrame closes the open frame and files its snapshot into the window,
// evicting whatever frame occupied its slot. EndFrame without a matching
// BeginFrame is a no-op.
func (p *Profiler) EndFrame() {
	if p.current == nil {
		return
	}
	p.window.insert(p.current.snapshot())
	p.current = nil
}

// RecordAllocation attributes one allocation to a task within the open frame.
// Outside an open frame it is a no-op. Zero-byte allocations still count; a
// wasAliased allocation additionally credits its bytes as saved.
func (p *Profiler) RecordAllocation(taskID TaskID, taskName string, location ResourceLocation, bytes int, wasAliased bool) {
	if p.current == nil {
		return
	}

	record := p.current.recordFor(taskID, taskName)
	switch location {
	case LocationStack:
		record.StackAllocations++
		record.StackBytes += bytes
		p.current.curStack += bytes
		if p.current.curStack > p.current.peakStack {
			p.current.peakStack = p.current.curStack
		}
	case LocationHeap:
		record.HeapAllocations++
		record.HeapBytes += bytes
		p.current.curHeap += bytes
		if p.current.curHeap > p.current.peakHeap {
			p.current.peakHeap = p.current.curHeap
		}
	case LocationVRAM:
		record.VRAMAllocations++
		record.VRAMBytes += bytes
		p.current.curVRAM += bytes
		if p.current.curVRAM > p.current.peakVRAM {
			p.current.peakVRAM = p.current.curVRAM
		}
	}

	if wasAliased {
		record.AliasedAllocations++
		record.BytesSavedViaAliasing += bytes
	}
}

// RecordRelease notes that a task released a resource's bytes at a location
// within the open frame, lowering the running concurrent usage that feeds the
// frame's peaks. The per-task record keeps its allocation totals - a release
// never subtracts from what the task allocated. A nil resource handle and
// calls outside an open frame are tolerated no-ops.
func (p *Profiler) RecordRelease(taskID TaskID, resource ResourceHandle, location ResourceLocation, bytes int) {
	if p.current == nil || resource == NoResource {
		return
	}

	switch location {
	case LocationStack:
		p.current.curStack -= bytes
		if p.current.curStack < 0 {
			p.current.curStack = 0
		}
	case LocationHeap:
		p.current.curHeap -= bytes
		if p.current.curHeap < 0 {
			p.current.curHeap = 0
		}
	case LocationVRAM:
		p.current.curVRAM -= bytes
		if p.current.curVRAM < 0 {
			p.current.curVRAM = 0
		}
	}
}

// GetNodeStats returns the closed record for one task in one frame. Frames
// outside the window, frames never recorded, and tasks with no activity all
// yield the zero-valued record.
func (p *Profiler) GetNodeStats(taskID TaskID, frameNumber uint64) NodeAllocationRecord {
	stats := p.window.lookup(frameNumber)
	if stats == nil {
		return NodeAllocationRecord{TaskID: taskID}
	}
	for i := range stats.Nodes {
		if stats.Nodes[i].TaskID == taskID {
			return stats.Nodes[i]
		}
	}
	return NodeAllocationRecord{TaskID: taskID}
}

// GetAllNodeStats returns every task's record for one closed frame, sorted by
// total bytes descending. A frame outside the window yields nil.
func (p *Profiler) GetAllNodeStats(frameNumber uint64) []NodeAllocationRecord {
	stats := p.window.lookup(frameNumber)
	if stats == nil {
		return nil
	}
	out := make([]NodeAllocationRecord, len(stats.Nodes))
	copy(out, stats.Nodes)
	return out
}

// GetFrameStats returns the closed snapshot for one frame. A frame outside
// the window yields a zero-valued snapshot carrying only the frame number.
func (p *Profiler) GetFrameStats(frameNumber uint64) FrameStats {
	stats := p.window.lookup(frameNumber)
	if stats == nil {
		return FrameStats{FrameNumber: frameNumber}
	}
	out := *stats
	out.Nodes = make([]NodeAllocationRecord, len(stats.Nodes))
	copy(out.Nodes, stats.Nodes)
	return out
}

// CurrentFrameStats snapshots the open frame without closing it. With no open
// frame it returns a zero-valued snapshot.
func (p *Profiler) CurrentFrameStats() FrameStats {
	if p.current == nil {
		return FrameStats{}
	}
	return *p.current.snapshot()
}

// Clear discards the open frame and every closed frame in the window.
func (p *Profiler) Clear() {
	p.window.clear()
	p.current = nil
}

func (b *frameBucket) recordFor(taskID TaskID, taskName string) *NodeAllocationRecord {
	record, ok := b.nodes[taskID]
	if !ok {
		record = &NodeAllocationRecord{TaskID: taskID, TaskName: taskName}
		b.nodes[taskID] = record
	}
	if record.TaskName == "" {
		record.TaskName = taskName
	}
	return record
}

func (b *frameBucket) snapshot() *FrameStats {
	stats := &FrameStats{
		FrameNumber:    b.frameNumber,
		Nodes:          make([]NodeAllocationRecord, 0, len(b.nodes)),
		PeakStackBytes: b.peakStack,
		PeakHeapBytes:  b.peakHeap,
		PeakVRAMBytes:  b.peakVRAM,
	}

	for _, record := range b.nodes {
		stats.Nodes = append(stats.Nodes, *record)
		stats.Totals.add(record)
	}
	slices.SortFunc(stats.Nodes, func(a, b NodeAllocationRecord) bool {
		if a.TotalBytes() != b.TotalBytes() {
			return a.TotalBytes() > b.TotalBytes()
		}
		return a.TaskID < b.TaskID
	})

	return stats
}
