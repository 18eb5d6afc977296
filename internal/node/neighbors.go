package node

import "dronenet-simulation/internal/protocol"

// NeighborTable maps a neighbor id to the send side of its inbound channel.
// It is owned exclusively by one node and only ever touched from that
// node's goroutine, so it carries no lock.
type NeighborTable struct {
	senders map[protocol.NodeID]chan<- protocol.Packet
}

func NewNeighborTable() *NeighborTable {
	return &NeighborTable{senders: make(map[protocol.NodeID]chan<- protocol.Packet)}
}

// Add inserts or overwrites the channel for id.
func (t *NeighborTable) Add(id protocol.NodeID, ch chan<- protocol.Packet) {
	t.senders[id] = ch
}

// Remove deletes the entry for id and reports whether it existed. Topology
// edits race with in-flight traffic, so a missing entry is not a failure.
func (t *NeighborTable) Remove(id protocol.NodeID) bool {
	if _, ok := t.senders[id]; !ok {
		return false
	}
	delete(t.senders, id)
	return true
}

// Get returns the channel for id.
func (t *NeighborTable) Get(id protocol.NodeID) (chan<- protocol.Packet, bool) {
	ch, ok := t.senders[id]
	return ch, ok
}

// Len returns the number of neighbors.
func (t *NeighborTable) Len() int {
	return len(t.senders)
}

// Snapshot returns a copy of the table for iteration while the original may
// be edited by command handling.
func (t *NeighborTable) Snapshot() map[protocol.NodeID]chan<- protocol.Packet {
	out := make(map[protocol.NodeID]chan<- protocol.Packet, len(t.senders))
	for id, ch := range t.senders {
		out[id] = ch
	}
	return out
}
