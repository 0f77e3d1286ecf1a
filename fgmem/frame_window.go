package fgmem

// FrameWindowSize is the number of most-recent frames the Profiler retains.
// Inserting frame N+FrameWindowSize evicts frame N.
const FrameWindowSize = 120

// frameWindow is a fixed-capacity ring keyed by frame number modulo the
// window size. Sequential frames evict exactly the frame one window behind;
// a lookup hit requires the stored frame number to match, so slots left over
// from evicted frames never answer for the wrong frame.
type frameWindow struct {
	slots [FrameWindowSize]*FrameStats
}

func (w *frameWindow) insert(stats *FrameStats) {
	w.slots[stats.FrameNumber%FrameWindowSize] = stats
}

func (w *frameWindow) lookup(frameNumber uint64) *FrameStats {
	stats := w.slots[frameNumber%FrameWindowSize]
	if stats == nil || stats.FrameNumber != frameNumber {
		return nil
	}
	return stats
}

func (w *frameWindow) clear() {
	for i := range w.slots {
		w.slots[i] = nil
	}
}
