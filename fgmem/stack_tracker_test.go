package fgmem

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStackTrackerAllowance(t *testing.T) {
	tracker := NewStackTracker()
	tracker.BeginFrame()

	require.True(t, tracker.TrackStackAllocation(1, 40*1024))
	require.False(t, tracker.OverWarning())

	require.True(t, tracker.TrackStackAllocation(1, 10*1024))
	require.True(t, tracker.OverWarning())
	require.False(t, tracker.OverCritical())

	require.True(t, tracker.TrackStackAllocation(1, 8*1024))
	require.True(t, tracker.OverCritical())

	// 58KB used- another 8KB would cross the 64KB allowance
	require.False(t, tracker.TrackStackAllocation(1, 8*1024))
	require.Equal(t, 58*1024, tracker.UsedBytes())
}

func TestStackTrackerFrameReset(t *testing.T) {
	tracker := NewStackTracker()
	tracker.BeginFrame()
	require.True(t, tracker.TrackStackAllocation(1, 60*1024))
	tracker.EndFrame()

	tracker.BeginFrame()
	require.Equal(t, 0, tracker.UsedBytes())
	require.True(t, tracker.TrackStackAllocation(1, 60*1024))
	require.Equal(t, 60*1024, tracker.PeakBytes())
}

func TestStackTrackerMismatchTolerated(t *testing.T) {
	tracker := NewStackTracker()

	tracker.EndFrame()
	require.True(t, tracker.TrackStackAllocation(1, 1024*1024))
	require.Equal(t, 0, tracker.UsedBytes())

	// Double begin restarts the frame
	tracker.BeginFrame()
	require.True(t, tracker.TrackStackAllocation(1, 30*1024))
	tracker.BeginFrame()
	require.Equal(t, 0, tracker.UsedBytes())
}

func TestStackTrackerClear(t *testing.T) {
	tracker := NewStackTracker()
	tracker.BeginFrame()
	require.True(t, tracker.TrackStackAllocation(1, 30*1024))

	tracker.Clear()
	require.Equal(t, 0, tracker.UsedBytes())
	require.Equal(t, 0, tracker.PeakBytes())
}
