package fgmem

import (
	"github.com/Lint111/framealloc/memutils"
	"github.com/dolthub/swiss"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// DefaultAliasingThreshold is the candidate size below which aliasing is not
// attempted when no explicit threshold is configured. Small resources are not
// worth the bookkeeping: the savings are negligible and the released pool
// stays smaller without them. It is equal to 1Mb.
const DefaultAliasingThreshold int = 1024 * 1024

// AliasStats is a monotonic set of counters describing how the engine has
// performed since the last Clear.
//
// TotalBytesSaved uses requested-size accounting: a successful match adds the
// requested size, not the candidate's size, so an 8Mb candidate serving a 3Mb
// request records 3Mb saved. This is the conservative convention - the slack
// between the two was never memory the caller would have allocated.
type AliasStats struct {
	TotalAliasAttempts uint64
	SuccessfulAliases  uint64
	TotalBytesSaved    int
}

// EfficiencyPercent is the share of alias attempts that succeeded, clamped
// to [0, 100].
func (s AliasStats) EfficiencyPercent() float32 {
	if s.TotalAliasAttempts == 0 {
		return 0
	}
	percent := float32(s.SuccessfulAliases) / float32(s.TotalAliasAttempts) * 100
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

// AliasingEngine decides, request by request, whether a new transient
// allocation can reuse the backing storage of an already-released one. It is
// bookkeeping only: handles pass through it but the physical allocations
// behind them are created and destroyed entirely by the caller.
//
// The engine assumes a single-writer discipline. Calls must be ordered by the
// caller: RegisterForAliasing before the matching MarkReleased, MarkReleased
// before any FindAlias expected to observe the candidate.
type AliasingEngine struct {
	enabled   bool
	threshold int
	analyzer  LifetimeAnalyzer

	// active holds InUse candidates keyed by handle. released is kept sorted
	// by (size, release frame, handle) so best-fit is a binary search for the
	// first sufficiently large entry followed by a forward scan.
	active   *swiss.Map[ResourceHandle, *AliasCandidate]
	released []*AliasCandidate

	stats AliasStats
}

// NewAliasingEngine creates an enabled engine with DefaultAliasingThreshold.
func NewAliasingEngine() *AliasingEngine {
	return &AliasingEngine{
		enabled:   true,
		threshold: DefaultAliasingThreshold,
		active:    swiss.NewMap[ResourceHandle, *AliasCandidate](64),
	}
}

// Enable turns matching on or off. A disabled engine still counts FindAlias
// attempts but never returns a candidate, and registration/release
// bookkeeping continues so that re-enabling picks up where it left off.
func (e *AliasingEngine) Enable(enabled bool) {
	e.enabled = enabled
}

func (e *AliasingEngine) Enabled() bool {
	return e.enabled
}

// SetAliasingThreshold changes the minimum candidate size for future FindAlias
// calls. Candidates already in the pool are unaffected until queried.
func (e *AliasingEngine) SetAliasingThreshold(bytes int) {
	e.threshold = bytes
}

func (e *AliasingEngine) AliasingThreshold() int {
	return e.threshold
}

// SetLifetimeAnalyzer attaches or detaches (nil) a precomputed-lifetime
// source. With no analyzer the engine relies purely on online discovery
// through MarkReleased.
func (e *AliasingEngine) SetLifetimeAnalyzer(analyzer LifetimeAnalyzer) {
	e.analyzer = analyzer
}

// RegisterForAliasing inserts an InUse candidate for the provided resource.
// A nil resource is silently ignored. Re-registering a tracked handle
// replaces its requirement and scope without duplicating it.
func (e *AliasingEngine) RegisterForAliasing(resource ResourceHandle, requirement MemoryRequirement, scope LifetimeScope) {
	if resource == NoResource {
		return
	}
	memutils.DebugCheckPow2(requirement.Alignment, "candidate alignment")

	e.removeReleased(resource)
	e.active.Put(resource, &AliasCandidate{
		Resource:    resource,
		Requirement: requirement,
		Scope:       scope,
		State:       CandidateInUse,
	})
	memutils.DebugValidate(e)
}

// MarkReleased transitions the candidate for resource to Released, stamped
// with frameNumber, making it discoverable by FindAlias. A nil or untracked
// resource is a no-op.
func (e *AliasingEngine) MarkReleased(resource ResourceHandle, frameNumber uint64) {
	if resource == NoResource {
		return
	}

	candidate, ok := e.active.Get(resource)
	if !ok {
		return
	}
	e.active.Delete(resource)

	candidate.State = CandidateReleased
	candidate.ReleasedAtFrame = frameNumber
	e.insertReleased(candidate)
	memutils.DebugValidate(e)
}

// FindAlias resolves an allocation request against the released pool and
// returns the best-fit candidate's handle, or NoResource when nothing
// qualifies. Every call counts as an attempt, whatever the outcome.
func (e *AliasingEngine) FindAlias(requirement MemoryRequirement, scope LifetimeScope, requestedSize int) ResourceHandle {
	return e.FindAliasFor(NoResource, requirement, scope, requestedSize)
}

// FindAliasFor is FindAlias with the requesting resource's handle attached,
// which lets a configured LifetimeAnalyzer veto candidates whose precomputed
// live range overlaps the requester's. Passing NoResource skips that check.
func (e *AliasingEngine) FindAliasFor(requester ResourceHandle, requirement MemoryRequirement, scope LifetimeScope, requestedSize int) ResourceHandle {
	e.stats.TotalAliasAttempts++

	if !e.enabled || requestedSize == 0 || !scope.CanAlias() {
		return NoResource
	}

	minSize := requestedSize
	if minSize < e.threshold {
		minSize = e.threshold
	}

	// First entry large enough; the pool is sorted by (size, release frame),
	// so a forward scan from here visits best fits first with oldest-release
	// tie-breaking built in.
	start, _ := slices.BinarySearchFunc(e.released, minSize, func(c *AliasCandidate, size int) int {
		return c.Requirement.SizeBytes - size
	})

	for i := start; i < len(e.released); i++ {
		candidate := e.released[i]

		if candidate.Scope != scope {
			continue
		}
		if candidate.Requirement.CompatibleTypeMask&requirement.CompatibleTypeMask == 0 {
			continue
		}
		if !alignmentSatisfies(candidate.Requirement.Alignment, requirement.Alignment) {
			continue
		}
		if e.overlapsPrecomputed(requester, candidate.Resource) {
			continue
		}

		e.released = slices.Delete(e.released, i, i+1)
		candidate.State = CandidateInUse
		candidate.ReleasedAtFrame = 0
		e.active.Put(candidate.Resource, candidate)

		e.stats.SuccessfulAliases++
		e.stats.TotalBytesSaved += requestedSize
		return candidate.Resource
	}

	return NoResource
}

// overlapsPrecomputed consults the analyzer, when one is attached and both
// live ranges are known. Unknown ranges fall back to online discovery and
// never disqualify a candidate.
func (e *AliasingEngine) overlapsPrecomputed(requester, candidate ResourceHandle) bool {
	if e.analyzer == nil || requester == NoResource {
		return false
	}

	requesterInterval, ok := e.analyzer.Interval(requester)
	if !ok {
		return false
	}
	candidateInterval, ok := e.analyzer.Interval(candidate)
	if !ok {
		return false
	}

	return requesterInterval.Overlaps(candidateInterval)
}

// PruneReleased drops Released candidates stamped before olderThanFrame and
// reports how many were removed and how many bytes of candidate storage they
// described. The caller remains responsible for actually freeing anything.
func (e *AliasingEngine) PruneReleased(olderThanFrame uint64) (removed int, removedBytes int) {
	kept := e.released[:0]
	for _, candidate := range e.released {
		if candidate.ReleasedAtFrame < olderThanFrame {
			removed++
			removedBytes += candidate.Requirement.SizeBytes
			continue
		}
		kept = append(kept, candidate)
	}
	for i := len(kept); i < len(e.released); i++ {
		e.released[i] = nil
	}
	e.released = kept
	return removed, removedBytes
}

// Candidate returns a snapshot of the tracked candidate for resource, if any.
func (e *AliasingEngine) Candidate(resource ResourceHandle) (AliasCandidate, bool) {
	if resource == NoResource {
		return AliasCandidate{}, false
	}
	if candidate, ok := e.active.Get(resource); ok {
		return *candidate, true
	}
	for _, candidate := range e.released {
		if candidate.Resource == resource {
			return *candidate, true
		}
	}
	return AliasCandidate{}, false
}

func (e *AliasingEngine) ActiveCount() int {
	return e.active.Count()
}

func (e *AliasingEngine) ReleasedCount() int {
	return len(e.released)
}

// GetStats returns a copy of the engine's counters.
func (e *AliasingEngine) GetStats() AliasStats {
	return e.stats
}

// Clear wipes all candidates and resets the statistics to zero. Enablement,
// threshold, and analyzer configuration survive.
func (e *AliasingEngine) Clear() {
	e.active = swiss.NewMap[ResourceHandle, *AliasCandidate](64)
	e.released = nil
	e.stats = AliasStats{}
}

func (e *AliasingEngine) Validate() error {
	var err error
	e.active.Iter(func(handle ResourceHandle, candidate *AliasCandidate) bool {
		if candidate.State != CandidateInUse {
			err = errors.Errorf("candidate %d in the active set has state %s", handle, candidate.State)
			return true
		}
		return false
	})
	if err != nil {
		return err
	}

	for i, candidate := range e.released {
		if candidate.State != CandidateReleased {
			return errors.Errorf("candidate %d in the released pool has state %s", candidate.Resource, candidate.State)
		}
		if i > 0 && releasedLess(candidate, e.released[i-1]) {
			return errors.Errorf("released pool order violated at index %d", i)
		}
	}
	return nil
}

func (e *AliasingEngine) insertReleased(candidate *AliasCandidate) {
	idx, _ := slices.BinarySearchFunc(e.released, candidate, func(a, b *AliasCandidate) int {
		if c := a.Requirement.SizeBytes - b.Requirement.SizeBytes; c != 0 {
			return c
		}
		if a.ReleasedAtFrame != b.ReleasedAtFrame {
			if a.ReleasedAtFrame < b.ReleasedAtFrame {
				return -1
			}
			return 1
		}
		if a.Resource != b.Resource {
			if a.Resource < b.Resource {
				return -1
			}
			return 1
		}
		return 0
	})
	e.released = slices.Insert(e.released, idx, candidate)
}

func (e *AliasingEngine) removeReleased(resource ResourceHandle) {
	for i, candidate := range e.released {
		if candidate.Resource == resource {
			e.released = slices.Delete(e.released, i, i+1)
			return
		}
	}
}

func releasedLess(a, b *AliasCandidate) bool {
	if a.Requirement.SizeBytes != b.Requirement.SizeBytes {
		return a.Requirement.SizeBytes < b.Requirement.SizeBytes
	}
	return a.ReleasedAtFrame < b.ReleasedAtFrame
}
