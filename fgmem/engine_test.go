package fgmem

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const testMB = 1024 * 1024

func testRequirement(sizeBytes int) MemoryRequirement {
	return MemoryRequirement{
		SizeBytes:          sizeBytes,
		Alignment:          256,
		CompatibleTypeMask: 0xffffffff,
	}
}

type fakeLifetimeAnalyzer struct {
	intervals map[ResourceHandle]LifetimeInterval
}

func (f *fakeLifetimeAnalyzer) Interval(resource ResourceHandle) (LifetimeInterval, bool) {
	interval, ok := f.intervals[resource]
	return interval, ok
}

func releasedCandidate(t *testing.T, engine *AliasingEngine, resource ResourceHandle, sizeBytes int, frame uint64) {
	engine.RegisterForAliasing(resource, testRequirement(sizeBytes), LifetimeTransient)
	engine.MarkReleased(resource, frame)

	candidate, ok := engine.Candidate(resource)
	require.True(t, ok)
	require.Equal(t, CandidateReleased, candidate.State)
}

func TestFindAliasBestFit(t *testing.T) {
	engine := NewAliasingEngine()
	releasedCandidate(t, engine, 1, 1*testMB, 1)
	releasedCandidate(t, engine, 2, 4*testMB, 1)
	releasedCandidate(t, engine, 3, 8*testMB, 1)

	match := engine.FindAlias(testRequirement(3*testMB), LifetimeTransient, 3*testMB)
	require.Equal(t, ResourceHandle(2), match)

	candidate, ok := engine.Candidate(2)
	require.True(t, ok)
	require.Equal(t, CandidateInUse, candidate.State)
}

func TestFindAliasTieBreakOldestRelease(t *testing.T) {
	engine := NewAliasingEngine()
	releasedCandidate(t, engine, 7, 4*testMB, 5)
	releasedCandidate(t, engine, 8, 4*testMB, 2)

	match := engine.FindAlias(testRequirement(3*testMB), LifetimeTransient, 3*testMB)
	require.Equal(t, ResourceHandle(8), match)
}

func TestFindAliasNeverUndersized(t *testing.T) {
	engine := NewAliasingEngine()
	releasedCandidate(t, engine, 1, 2*testMB, 1)

	match := engine.FindAlias(testRequirement(3*testMB), LifetimeTransient, 3*testMB)
	require.Equal(t, NoResource, match)
}

func TestFindAliasEmptyPool(t *testing.T) {
	engine := NewAliasingEngine()

	match := engine.FindAlias(testRequirement(testMB), LifetimeTransient, testMB)
	require.Equal(t, NoResource, match)

	stats := engine.GetStats()
	require.Equal(t, uint64(1), stats.TotalAliasAttempts)
	require.Equal(t, uint64(0), stats.SuccessfulAliases)
	require.Equal(t, 0, stats.TotalBytesSaved)
}

func TestFindAliasDisabledStillCounts(t *testing.T) {
	engine := NewAliasingEngine()
	releasedCandidate(t, engine, 1, 4*testMB, 1)

	engine.Enable(false)
	match := engine.FindAlias(testRequirement(4*testMB), LifetimeTransient, 4*testMB)
	require.Equal(t, NoResource, match)
	require.Equal(t, uint64(1), engine.GetStats().TotalAliasAttempts)

	engine.Enable(true)
	match = engine.FindAlias(testRequirement(4*testMB), LifetimeTransient, 4*testMB)
	require.Equal(t, ResourceHandle(1), match)
	require.Equal(t, uint64(2), engine.GetStats().TotalAliasAttempts)
}

func TestFindAliasThreshold(t *testing.T) {
	engine := NewAliasingEngine()
	engine.SetAliasingThreshold(5 * testMB)
	releasedCandidate(t, engine, 1, 1*testMB, 1)

	match := engine.FindAlias(testRequirement(1*testMB), LifetimeTransient, 1*testMB)
	require.Equal(t, NoResource, match)

	releasedCandidate(t, engine, 2, 8*testMB, 1)
	match = engine.FindAlias(testRequirement(1*testMB), LifetimeTransient, 1*testMB)
	require.Equal(t, ResourceHandle(2), match)
}

func TestFindAliasZeroSizeRequest(t *testing.T) {
	engine := NewAliasingEngine()
	releasedCandidate(t, engine, 1, 4*testMB, 1)

	match := engine.FindAlias(testRequirement(0), LifetimeTransient, 0)
	require.Equal(t, NoResource, match)
	require.Equal(t, uint64(1), engine.GetStats().TotalAliasAttempts)
}

func TestFindAliasScopeMismatch(t *testing.T) {
	engine := NewAliasingEngine()
	engine.RegisterForAliasing(1, testRequirement(4*testMB), LifetimePerFrame)
	engine.MarkReleased(1, 1)

	match := engine.FindAlias(testRequirement(4*testMB), LifetimeTransient, 4*testMB)
	require.Equal(t, NoResource, match)
}

func TestFindAliasPersistentScope(t *testing.T) {
	engine := NewAliasingEngine()

	match := engine.FindAlias(testRequirement(4*testMB), LifetimePersistent, 4*testMB)
	require.Equal(t, NoResource, match)
	require.Equal(t, uint64(1), engine.GetStats().TotalAliasAttempts)
}

func TestFindAliasTypeMaskMustIntersect(t *testing.T) {
	engine := NewAliasingEngine()
	engine.RegisterForAliasing(1, MemoryRequirement{
		SizeBytes:          4 * testMB,
		Alignment:          256,
		CompatibleTypeMask: 0x0f,
	}, LifetimeTransient)
	engine.MarkReleased(1, 1)

	request := MemoryRequirement{
		SizeBytes:          4 * testMB,
		Alignment:          256,
		CompatibleTypeMask: 0xf0,
	}
	require.Equal(t, NoResource, engine.FindAlias(request, LifetimeTransient, 4*testMB))

	request.CompatibleTypeMask = 0x01
	require.Equal(t, ResourceHandle(1), engine.FindAlias(request, LifetimeTransient, 4*testMB))
}

func TestFindAliasAlignment(t *testing.T) {
	engine := NewAliasingEngine()
	engine.RegisterForAliasing(1, MemoryRequirement{
		SizeBytes:          4 * testMB,
		Alignment:          16,
		CompatibleTypeMask: 0xffffffff,
	}, LifetimeTransient)
	engine.MarkReleased(1, 1)

	// A 16-byte-aligned candidate cannot serve a request needing 64
	request := MemoryRequirement{
		SizeBytes:          4 * testMB,
		Alignment:          64,
		CompatibleTypeMask: 0xffffffff,
	}
	require.Equal(t, NoResource, engine.FindAlias(request, LifetimeTransient, 4*testMB))

	engine.RegisterForAliasing(2, MemoryRequirement{
		SizeBytes:          4 * testMB,
		Alignment:          256,
		CompatibleTypeMask: 0xffffffff,
	}, LifetimeTransient)
	engine.MarkReleased(2, 1)
	require.Equal(t, ResourceHandle(2), engine.FindAlias(request, LifetimeTransient, 4*testMB))
}

func TestAliasRoundTrip(t *testing.T) {
	engine := NewAliasingEngine()
	engine.RegisterForAliasing(1, testRequirement(4*testMB), LifetimeTransient)
	engine.MarkReleased(1, 1)

	match := engine.FindAlias(testRequirement(3*testMB), LifetimeTransient, 3*testMB)
	require.Equal(t, ResourceHandle(1), match)

	stats := engine.GetStats()
	require.Equal(t, uint64(1), stats.SuccessfulAliases)
	require.Equal(t, 3*testMB, stats.TotalBytesSaved)

	// In use again- a second request can't take it until it is re-released
	require.Equal(t, NoResource, engine.FindAlias(testRequirement(3*testMB), LifetimeTransient, 3*testMB))

	engine.MarkReleased(1, 2)
	require.Equal(t, ResourceHandle(1), engine.FindAlias(testRequirement(3*testMB), LifetimeTransient, 3*testMB))
}

func TestReRegisterReplacesCandidate(t *testing.T) {
	engine := NewAliasingEngine()
	engine.RegisterForAliasing(1, testRequirement(4*testMB), LifetimeTransient)
	engine.RegisterForAliasing(1, testRequirement(8*testMB), LifetimeTransient)

	require.Equal(t, 1, engine.ActiveCount())
	candidate, ok := engine.Candidate(1)
	require.True(t, ok)
	require.Equal(t, 8*testMB, candidate.Requirement.SizeBytes)
}

func TestRegisterNilResourceIgnored(t *testing.T) {
	engine := NewAliasingEngine()
	engine.RegisterForAliasing(NoResource, testRequirement(4*testMB), LifetimeTransient)
	require.Equal(t, 0, engine.ActiveCount())

	engine.MarkReleased(NoResource, 1)
	engine.MarkReleased(99, 1)
	require.Equal(t, 0, engine.ReleasedCount())
}

func TestClearResetsEverything(t *testing.T) {
	engine := NewAliasingEngine()
	engine.SetAliasingThreshold(2 * testMB)
	releasedCandidate(t, engine, 1, 4*testMB, 1)
	require.Equal(t, ResourceHandle(1), engine.FindAlias(testRequirement(4*testMB), LifetimeTransient, 4*testMB))

	engine.Clear()

	stats := engine.GetStats()
	require.Equal(t, uint64(0), stats.TotalAliasAttempts)
	require.Equal(t, uint64(0), stats.SuccessfulAliases)
	require.Equal(t, 0, stats.TotalBytesSaved)

	_, ok := engine.Candidate(1)
	require.False(t, ok)
	require.Equal(t, 0, engine.ActiveCount())
	require.Equal(t, 0, engine.ReleasedCount())

	// Configuration survives
	require.True(t, engine.Enabled())
	require.Equal(t, 2*testMB, engine.AliasingThreshold())
}

func TestPruneReleased(t *testing.T) {
	engine := NewAliasingEngine()
	releasedCandidate(t, engine, 1, 2*testMB, 1)
	releasedCandidate(t, engine, 2, 4*testMB, 2)
	releasedCandidate(t, engine, 3, 8*testMB, 10)

	removed, removedBytes := engine.PruneReleased(5)
	require.Equal(t, 2, removed)
	require.Equal(t, 6*testMB, removedBytes)
	require.Equal(t, 1, engine.ReleasedCount())

	require.Equal(t, ResourceHandle(3), engine.FindAlias(testRequirement(2*testMB), LifetimeTransient, 2*testMB))
}

func TestLifetimeAnalyzerVeto(t *testing.T) {
	engine := NewAliasingEngine()
	engine.SetLifetimeAnalyzer(&fakeLifetimeAnalyzer{
		intervals: map[ResourceHandle]LifetimeInterval{
			1: {BirthIndex: 0, DeathIndex: 5},
			2: {BirthIndex: 3, DeathIndex: 8},
			3: {BirthIndex: 6, DeathIndex: 9},
		},
	})

	releasedCandidate(t, engine, 1, 4*testMB, 1)

	// Overlapping precomputed ranges veto the candidate
	require.Equal(t, NoResource, engine.FindAliasFor(2, testRequirement(4*testMB), LifetimeTransient, 4*testMB))

	// Disjoint ranges allow it
	require.Equal(t, ResourceHandle(1), engine.FindAliasFor(3, testRequirement(4*testMB), LifetimeTransient, 4*testMB))
}

func TestLifetimeAnalyzerUnknownIntervalFallsBack(t *testing.T) {
	engine := NewAliasingEngine()
	engine.SetLifetimeAnalyzer(&fakeLifetimeAnalyzer{intervals: map[ResourceHandle]LifetimeInterval{}})

	releasedCandidate(t, engine, 1, 4*testMB, 1)
	require.Equal(t, ResourceHandle(1), engine.FindAliasFor(2, testRequirement(4*testMB), LifetimeTransient, 4*testMB))
}

func TestEngineValidate(t *testing.T) {
	engine := NewAliasingEngine()
	releasedCandidate(t, engine, 1, 2*testMB, 3)
	releasedCandidate(t, engine, 2, 4*testMB, 1)
	engine.RegisterForAliasing(3, testRequirement(8*testMB), LifetimeTransient)

	require.NoError(t, engine.Validate())
}

func TestEfficiencyPercentBounds(t *testing.T) {
	require.Equal(t, float32(0), AliasStats{}.EfficiencyPercent())
	require.Equal(t, float32(50), AliasStats{TotalAliasAttempts: 2, SuccessfulAliases: 1}.EfficiencyPercent())
	require.Equal(t, float32(100), AliasStats{TotalAliasAttempts: 3, SuccessfulAliases: 3}.EfficiencyPercent())
}
