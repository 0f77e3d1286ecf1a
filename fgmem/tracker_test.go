package fgmem

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrackerRegisterAndLookup(t *testing.T) {
	tracker := NewDependencyTracker()
	tracker.RegisterResourceProducer(1, 10, 0)
	tracker.RegisterResourceProducer(2, 10, 1)

	edge, ok := tracker.GetProducer(1)
	require.True(t, ok)
	require.Equal(t, TaskID(10), edge.Producer)
	require.Equal(t, 0, edge.OutputSlot)

	require.Equal(t, 2, tracker.TrackedResourceCount())
}

func TestTrackerReRegisterOverwrites(t *testing.T) {
	tracker := NewDependencyTracker()
	tracker.RegisterResourceProducer(1, 10, 0)
	tracker.RegisterResourceProducer(1, 20, 3)

	edge, ok := tracker.GetProducer(1)
	require.True(t, ok)
	require.Equal(t, TaskID(20), edge.Producer)
	require.Equal(t, 3, edge.OutputSlot)
	require.Equal(t, 1, tracker.TrackedResourceCount())
}

func TestTrackerNilInputsIgnored(t *testing.T) {
	tracker := NewDependencyTracker()
	tracker.RegisterResourceProducer(NoResource, 10, 0)
	tracker.RegisterResourceProducer(1, NoTask, 0)
	require.Equal(t, 0, tracker.TrackedResourceCount())

	edge, ok := tracker.GetProducer(NoResource)
	require.False(t, ok)
	require.Equal(t, ProducerEdge{}, edge)

	edge, ok = tracker.GetProducer(42)
	require.False(t, ok)
	require.Equal(t, ProducerEdge{}, edge)
}

func TestTrackerClearIdempotent(t *testing.T) {
	tracker := NewDependencyTracker()
	tracker.Clear()

	tracker.RegisterResourceProducer(1, 10, 0)
	tracker.Clear()
	require.Equal(t, 0, tracker.TrackedResourceCount())

	_, ok := tracker.GetProducer(1)
	require.False(t, ok)
}
