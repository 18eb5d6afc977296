package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextHopReadsCursor(t *testing.T) {
	h := RoutingHeader{Hops: []NodeID{1, 2, 3}, HopIndex: 1}
	assert.Equal(t, NodeID(2), h.NextHop())

	h = h.Advanced()
	assert.Equal(t, NodeID(3), h.NextHop())
	assert.True(t, h.IsLastHop())
}

func TestReversedDropsUntraveledSuffix(t *testing.T) {
	// Packet traveled 1 -> 2 -> 3 with destination 5 still ahead. The reply
	// path must not contain the untraveled 4, 5.
	h := RoutingHeader{Hops: []NodeID{1, 2, 3, 4, 5}, HopIndex: 2}
	back := h.Reversed()
	assert.Equal(t, []NodeID{3, 2, 1}, back.Hops)
	assert.Equal(t, 1, back.HopIndex)
	assert.Equal(t, NodeID(2), back.NextHop())
}

func TestReversedCursorAtLastIndex(t *testing.T) {
	h := RoutingHeader{Hops: []NodeID{7, 8, 9}, HopIndex: 2}
	back := h.Reversed()
	assert.Equal(t, []NodeID{9, 8, 7}, back.Hops)
	assert.Equal(t, 1, back.HopIndex)
}

func TestReversedTwoHop(t *testing.T) {
	h := RoutingHeader{Hops: []NodeID{1, 2}, HopIndex: 1}
	back := h.Reversed()
	assert.Equal(t, []NodeID{2, 1}, back.Hops)
	assert.Equal(t, 1, back.HopIndex)
}

func TestReversedSingleHop(t *testing.T) {
	h := RoutingHeader{Hops: []NodeID{4}, HopIndex: 0}
	back := h.Reversed()
	assert.Equal(t, []NodeID{4}, back.Hops)
	assert.Equal(t, 1, back.HopIndex)
}

func TestReversedRoundTrip(t *testing.T) {
	// Reversing a fully traveled path twice restores an equivalent
	// forward-traversable route.
	for _, hops := range [][]NodeID{{1, 2}, {1, 2, 3, 4}} {
		h := RoutingHeader{Hops: hops, HopIndex: len(hops) - 1}
		again := h.Reversed()
		again.HopIndex = len(again.Hops) - 1
		restored := again.Reversed()
		assert.Equal(t, hops, restored.Hops)
		assert.Equal(t, 1, restored.HopIndex)
	}
}

func TestReversedDoesNotAliasOriginal(t *testing.T) {
	h := RoutingHeader{Hops: []NodeID{1, 2, 3}, HopIndex: 2}
	back := h.Reversed()
	back.Hops[0] = 99
	require.Equal(t, []NodeID{1, 2, 3}, h.Hops)
}

func TestPathTraceIDs(t *testing.T) {
	trace := PathTrace{{1, TypeClient}, {2, TypeDrone}, {3, TypeServer}}
	assert.Equal(t, []NodeID{1, 2, 3}, trace.IDs())
}

func TestFloodRequestWithHopCopiesTrace(t *testing.T) {
	req := FloodRequest{
		FloodID:   7,
		Initiator: 1,
		PathTrace: PathTrace{{1, TypeClient}},
	}
	ext := req.WithHop(2, TypeDrone)
	require.Len(t, ext.PathTrace, 2)
	assert.Equal(t, PathEntry{2, TypeDrone}, ext.PathTrace[1])
	// original must be untouched
	assert.Len(t, req.PathTrace, 1)

	// two extensions off the same request must not clobber each other
	other := req.WithHop(3, TypeDrone)
	assert.Equal(t, PathEntry{2, TypeDrone}, ext.PathTrace[1])
	assert.Equal(t, PathEntry{3, TypeDrone}, other.PathTrace[1])
}
