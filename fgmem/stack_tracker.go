package fgmem

const (
	// MaxFrameStackBytes is the per-frame allowance for stack-located transient
	// allocations. TrackStackAllocation refuses anything that would exceed it.
	MaxFrameStackBytes = 64 * 1024
	// StackWarningBytes and StackCriticalBytes are the advisory thresholds
	// surfaced by OverWarning and OverCritical.
	StackWarningBytes  = 48 * 1024
	StackCriticalBytes = 56 * 1024
)

// StackTracker enforces the per-frame stack allowance. It keeps its own frame
// nesting state, separate from the Profiler's, so a mismatched begin/end here
// never corrupts profiling aggregates.
type StackTracker struct {
	frameOpen bool
	used      int
	peak      int
}

func NewStackTracker() *StackTracker {
	return &StackTracker{}
}

// BeginFrame resets the frame's stack usage. Beginning while a frame is
// already open discards the open frame's usage and starts fresh.
func (t *StackTracker) BeginFrame() {
	t.frameOpen = true
	t.used = 0
}

// EndFrame closes the frame and drops its usage. The peak is maintained by
// TrackStackAllocation as allocations land. EndFrame without a matching
// BeginFrame is a no-op.
func (t *StackTracker) EndFrame() {
	if !t.frameOpen {
		return
	}
	t.frameOpen = false
	t.used = 0
}

// TrackStackAllocation admits bytes against the frame allowance and reports
// whether the allocation fits. A refused allocation leaves usage untouched.
// Outside an open frame nothing is tracked and everything is admitted.
func (t *StackTracker) TrackStackAllocation(taskID TaskID, bytes int) bool {
	if !t.frameOpen {
		return true
	}
	if t.used+bytes > MaxFrameStackBytes {
		return false
	}
	t.used += bytes
	if t.used > t.peak {
		t.peak = t.used
	}
	return true
}

// UsedBytes is the stack usage of the open frame, zero when no frame is open.
func (t *StackTracker) UsedBytes() int {
	return t.used
}

// PeakBytes is the highest usage observed in any frame since the last Clear.
func (t *StackTracker) PeakBytes() int {
	return t.peak
}

func (t *StackTracker) OverWarning() bool {
	return t.used > StackWarningBytes
}

func (t *StackTracker) OverCritical() bool {
	return t.used > StackCriticalBytes
}

// Clear resets usage, peak, and nesting state.
func (t *StackTracker) Clear() {
	t.frameOpen = false
	t.used = 0
	t.peak = 0
}
