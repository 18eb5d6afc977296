package protocol

import "fmt"

// RoutingHeader is the source route of a packet: the full hop sequence
// computed by the sender plus a cursor marking the current node's position.
// Intermediate nodes consume it, they never rewrite it except through
// Reversed.
type RoutingHeader struct {
	Hops     []NodeID
	HopIndex int
}

// NextHop returns the hop under the cursor. The caller must have positioned
// the cursor on the hop the packet is to be delivered to; advancing the
// cursor is the sender's job, not this type's.
func (h RoutingHeader) NextHop() NodeID {
	return h.Hops[h.HopIndex]
}

// Advanced returns a copy of the header with the cursor moved one hop
// forward. The hop slice is shared: forwarding never mutates it.
func (h RoutingHeader) Advanced() RoutingHeader {
	return RoutingHeader{Hops: h.Hops, HopIndex: h.HopIndex + 1}
}

// IsLastHop reports whether the cursor sits on the final hop of the route.
func (h RoutingHeader) IsLastHop() bool {
	return h.HopIndex == len(h.Hops)-1
}

// Reversed turns the header of a packet that reached the current position
// into the header of a reply addressed back toward its origin. Hops beyond
// the cursor are discarded (the untraveled suffix is never part of a reply
// path), the traveled prefix is reversed, and the cursor lands on index 1:
// position 0 of the reversed route is the replying node itself. A
// single-hop route reverses to itself under the same rule.
func (h RoutingHeader) Reversed() RoutingHeader {
	back := make([]NodeID, h.HopIndex+1)
	copy(back, h.Hops[:h.HopIndex+1])
	for i, j := 0, len(back)-1; i < j; i, j = i+1, j-1 {
		back[i], back[j] = back[j], back[i]
	}
	return RoutingHeader{Hops: back, HopIndex: 1}
}

func (h RoutingHeader) String() string {
	return fmt.Sprintf("%v@%d", h.Hops, h.HopIndex)
}
