package fgmem

import (
	"github.com/Lint111/framealloc/fgmem/internal/utils"
	"github.com/dolthub/swiss"
	"github.com/pkg/errors"
	"golang.org/x/exp/slog"
)

// Pool is the façade the graph executor talks to each frame. It composes the
// dependency tracker, budget manager, aliasing engine, profiler, and stack
// tracker behind one entry point and serializes access to them with an
// internal mutex, unless created with PoolCreateExternallySynchronized.
//
// The Pool owns no physical memory. Allocate and Release move handles through
// the bookkeeping pipeline; creating and destroying the storage behind a
// handle is entirely the caller's job.
type Pool struct {
	logger *slog.Logger
	mutex  utils.OptionalRWMutex

	tracker  *DependencyTracker
	budgets  *BudgetManager
	engine   *AliasingEngine
	profiler *Profiler
	stack    *StackTracker

	// live records what Allocate charged per backing handle, so Release
	// unwinds exactly those bytes. An aliased request charges its own size,
	// not the candidate's, and the backing handle serves one live request at
	// a time.
	live *swiss.Map[ResourceHandle, liveCharge]

	frameNumber uint64
}

type liveCharge struct {
	bytes    int
	category BudgetCategory
}

// AllocationResult reports how an admitted request was satisfied.
type AllocationResult struct {
	// Resource is the handle now backing the request: the alias target when
	// Aliased, otherwise the requested handle itself.
	Resource ResourceHandle
	Aliased  bool
}

// Allocate runs one resource request through the admission, alias lookup, and
// recording pipeline. Refusals come back as errors with the pool unchanged,
// leaving the caller its fallback; the caller allocates fresh storage for
// resource only when the result is not aliased.
func (p *Pool) Allocate(task TaskID, taskName string, resource ResourceHandle, requirement MemoryRequirement, scope LifetimeScope, location ResourceLocation) (AllocationResult, error) {
	p.logger.Debug("Pool::Allocate")

	if resource == NoResource {
		return AllocationResult{}, errors.New("attempted to allocate for a nil resource handle")
	}
	if err := requirement.Validate(); err != nil {
		return AllocationResult{}, err
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	bytes := requirement.SizeBytes
	category := budgetCategoryForLocation(location)

	if !p.budgets.TryAllocate(category, bytes) {
		return AllocationResult{}, errors.Errorf("allocation of %d bytes refused by the strict %s budget", bytes, category)
	}
	if location == LocationStack && !p.stack.TrackStackAllocation(task, bytes) {
		return AllocationResult{}, errors.Errorf("allocation of %d bytes exceeds the per-frame stack allowance", bytes)
	}

	alias := p.engine.FindAliasFor(resource, requirement, scope, bytes)
	aliased := alias != NoResource

	backing := alias
	if !aliased {
		p.engine.RegisterForAliasing(resource, requirement, scope)
		backing = resource
	}

	p.budgets.RecordAllocation(category, bytes)
	p.live.Put(backing, liveCharge{bytes: bytes, category: category})
	p.profiler.RecordAllocation(task, taskName, location, bytes, aliased)

	return AllocationResult{Resource: backing, Aliased: aliased}, nil
}

// Release marks a resource's storage as reusable at the pool's current frame
// and unwinds its budget usage. An untracked or nil resource is a no-op.
func (p *Pool) Release(task TaskID, resource ResourceHandle, location ResourceLocation) {
	p.logger.Debug("Pool::Release")

	p.mutex.Lock()
	defer p.mutex.Unlock()

	_, ok := p.engine.Candidate(resource)
	if !ok {
		return
	}

	p.engine.MarkReleased(resource, p.frameNumber)

	// Unwind exactly what Allocate charged for this backing handle; the
	// candidate's own size may be larger when it served a smaller aliased
	// request.
	charge, charged := p.live.Get(resource)
	if charged {
		p.live.Delete(resource)
		p.budgets.RecordDeallocation(charge.category, charge.bytes)
		p.profiler.RecordRelease(task, resource, location, charge.bytes)
	}
}

// budgetCategoryForLocation maps an allocation's location onto the budget
// category that admits it. Stack and heap are host memory; VRAM is device.
func budgetCategoryForLocation(location ResourceLocation) BudgetCategory {
	if location == LocationVRAM {
		return BudgetDeviceMemory
	}
	return BudgetHostMemory
}

// RegisterResourceProducer forwards to the dependency tracker. The executor's
// compile pass calls this once per produced resource.
func (p *Pool) RegisterResourceProducer(handle ResourceHandle, producer TaskID, outputSlot int) {
	p.logger.Debug("Pool::RegisterResourceProducer")

	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.tracker.RegisterResourceProducer(handle, producer, outputSlot)
}

func (p *Pool) GetProducer(handle ResourceHandle) (ProducerEdge, bool) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.tracker.GetProducer(handle)
}

// EnableAliasing forwards to the engine.
func (p *Pool) EnableAliasing(enabled bool) {
	p.logger.Debug("Pool::EnableAliasing")

	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.engine.Enable(enabled)
}

// SetAliasingThreshold forwards to the engine.
func (p *Pool) SetAliasingThreshold(bytes int) {
	p.logger.Debug("Pool::SetAliasingThreshold")

	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.engine.SetAliasingThreshold(bytes)
}

// SetLifetimeAnalyzer attaches or detaches (nil) a precomputed-lifetime
// source. The pool behaves correctly without one, relying on release ordering
// alone.
func (p *Pool) SetLifetimeAnalyzer(analyzer LifetimeAnalyzer) {
	p.logger.Debug("Pool::SetLifetimeAnalyzer")

	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.engine.SetLifetimeAnalyzer(analyzer)
}

// GetAliasStats returns the engine's counters.
func (p *Pool) GetAliasStats() AliasStats {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.engine.GetStats()
}

// SetBudget forwards to the budget manager.
func (p *Pool) SetBudget(category BudgetCategory, entry BudgetEntry) {
	p.logger.Debug("Pool::SetBudget")

	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.budgets.SetBudget(category, entry)
}

// SetCustomBudget forwards to the budget manager's string categories.
func (p *Pool) SetCustomBudget(category string, entry BudgetEntry) {
	p.logger.Debug("Pool::SetCustomBudget")

	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.budgets.SetCustomBudget(category, entry)
}

// GetBudgetStats returns a usage snapshot for a category.
func (p *Pool) GetBudgetStats(category BudgetCategory) BudgetUsage {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.budgets.GetUsage(category)
}

// BeginFrameProfiling opens profiling for frameNumber and advances the frame
// stamp used by Release. A second begin without an end supersedes the first.
func (p *Pool) BeginFrameProfiling(frameNumber uint64) {
	p.logger.Debug("Pool::BeginFrameProfiling")

	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.frameNumber = frameNumber
	p.profiler.BeginFrame(frameNumber)
}

// EndFrameProfiling closes the open profiling frame and files it into the
// rolling window. Unmatched calls are no-ops.
func (p *Pool) EndFrameProfiling() {
	p.logger.Debug("Pool::EndFrameProfiling")

	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.profiler.EndFrame()
}

// BeginFrameStackTracking and EndFrameStackTracking bracket the per-frame
// stack allowance. The pair nests independently of the profiling pair, so a
// mismatch here never corrupts the profiling aggregates.
func (p *Pool) BeginFrameStackTracking() {
	p.logger.Debug("Pool::BeginFrameStackTracking")

	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.stack.BeginFrame()
}

func (p *Pool) EndFrameStackTracking() {
	p.logger.Debug("Pool::EndFrameStackTracking")

	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.stack.EndFrame()
}

// PruneReleased drops released alias candidates stamped before olderThanFrame
// and reports what was dropped, so the caller can free the storage behind
// them.
func (p *Pool) PruneReleased(olderThanFrame uint64) (removed int, removedBytes int) {
	p.logger.Debug("Pool::PruneReleased")

	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.engine.PruneReleased(olderThanFrame)
}

// Profiler exposes the profiler for stats queries and exports. The pool's
// mutex does not cover direct calls on it; with internal locking active,
// confine direct access to the thread driving the pool.
func (p *Pool) Profiler() *Profiler {
	return p.profiler
}

// DependencyTracker exposes the producer mapping.
func (p *Pool) DependencyTracker() *DependencyTracker {
	return p.tracker
}

// BudgetManager exposes the budget manager.
func (p *Pool) BudgetManager() *BudgetManager {
	return p.budgets
}

// AliasingEngine exposes the engine.
func (p *Pool) AliasingEngine() *AliasingEngine {
	return p.engine
}

// StackTracker exposes the per-frame stack tracker.
func (p *Pool) StackTracker() *StackTracker {
	return p.stack
}

// Clear resets every subsystem. Budget configuration, alias candidates,
// profiling history, and producer mappings are all dropped; the engine's
// enablement and threshold survive.
func (p *Pool) Clear() {
	p.logger.Debug("Pool::Clear")

	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.tracker.Clear()
	p.budgets.Clear()
	p.engine.Clear()
	p.profiler.Clear()
	p.stack.Clear()
	p.live = swiss.NewMap[ResourceHandle, liveCharge](64)
	p.frameNumber = 0
}
