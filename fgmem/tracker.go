package fgmem

import "github.com/dolthub/swiss"

// ProducerEdge records which task produced a resource and through which
// output slot. The zero value is the "unregistered" sentinel.
type ProducerEdge struct {
	Producer   TaskID
	OutputSlot int
}

// DependencyTracker maps each produced resource to its producing task for the
// currently compiled graph. The compiler registers producers once per
// produced resource; executors use the mapping to order cleanup. Consumer
// tracking and cycle detection are deliberately not here - the compiler
// guarantees an acyclic graph before anything reaches this subsystem.
type DependencyTracker struct {
	producers *swiss.Map[ResourceHandle, ProducerEdge]
}

func NewDependencyTracker() *DependencyTracker {
	return &DependencyTracker{
		producers: swiss.NewMap[ResourceHandle, ProducerEdge](64),
	}
}

// RegisterResourceProducer inserts or overwrites the producer mapping for
// handle. Re-registering a tracked handle updates its producer in place and
// never duplicates the entry. Nil handles or producers are ignored.
func (t *DependencyTracker) RegisterResourceProducer(handle ResourceHandle, producer TaskID, outputSlot int) {
	if handle == NoResource || producer == NoTask {
		return
	}
	t.producers.Put(handle, ProducerEdge{Producer: producer, OutputSlot: outputSlot})
}

// GetProducer returns the producer edge for handle. Unregistered or nil
// handles yield the zero edge and ok == false.
func (t *DependencyTracker) GetProducer(handle ResourceHandle) (ProducerEdge, bool) {
	if handle == NoResource {
		return ProducerEdge{}, false
	}
	return t.producers.Get(handle)
}

// TrackedResourceCount reports how many handles currently have a producer.
func (t *DependencyTracker) TrackedResourceCount() int {
	return t.producers.Count()
}

// Clear empties the tracker. Safe to call on an empty tracker.
func (t *DependencyTracker) Clear() {
	t.producers = swiss.NewMap[ResourceHandle, ProducerEdge](64)
}
