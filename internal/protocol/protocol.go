// Package protocol defines the packet vocabulary shared by every node of the
// simulated network: drones, clients and servers all exchange the same
// source-routed packets over in-process channels.
package protocol

// NodeID identifies a node within one simulated network instance.
type NodeID uint8

// NodeType classifies a node so that topology-discovery consumers can tell
// what kind of node a flood visited.
type NodeType uint8

const (
	TypeDrone NodeType = iota
	TypeClient
	TypeServer
)

func (t NodeType) String() string {
	switch t {
	case TypeDrone:
		return "DRONE"
	case TypeClient:
		return "CLIENT"
	case TypeServer:
		return "SERVER"
	}
	return "UNKNOWN"
}

// PacketKind tags the payload variant carried by a Packet.
type PacketKind uint8

const (
	KindFragment PacketKind = iota
	KindAck
	KindNack
	KindFloodRequest
	KindFloodResponse
)

func (k PacketKind) String() string {
	switch k {
	case KindFragment:
		return "FRAGMENT"
	case KindAck:
		return "ACK"
	case KindNack:
		return "NACK"
	case KindFloodRequest:
		return "FLOOD_REQUEST"
	case KindFloodResponse:
		return "FLOOD_RESPONSE"
	}
	return "UNKNOWN"
}

// Payload is the closed set of packet payload variants.
type Payload interface {
	Kind() PacketKind
}

// Packet is the envelope moved between nodes. The session id correlates
// related packets, e.g. the fragments of one message and their acks.
type Packet struct {
	Header  RoutingHeader
	Session uint64
	Payload Payload
}

// FragmentSize is the fixed capacity of one message fragment.
const FragmentSize = 128

// Fragment carries one slice of a fragmented message. Data holds at most
// FragmentSize bytes.
type Fragment struct {
	Index uint64
	Total uint64
	Data  []byte
}

func (Fragment) Kind() PacketKind { return KindFragment }

// Ack acknowledges receipt of a single fragment.
type Ack struct {
	FragmentIndex uint64
}

func (Ack) Kind() PacketKind { return KindAck }

// NackKind is the closed taxonomy of forwarding-failure reasons.
type NackKind uint8

const (
	NackErrorInRouting NackKind = iota
	NackDestinationIsDrone
	NackDropped
	NackUnexpectedRecipient
)

func (k NackKind) String() string {
	switch k {
	case NackErrorInRouting:
		return "ERROR_IN_ROUTING"
	case NackDestinationIsDrone:
		return "DESTINATION_IS_DRONE"
	case NackDropped:
		return "DROPPED"
	case NackUnexpectedRecipient:
		return "UNEXPECTED_RECIPIENT"
	}
	return "UNKNOWN"
}

// Nack reports a forwarding failure back to the sender of a fragment.
// Problem names the node the failure relates to for the routing-error and
// unexpected-recipient kinds; it is zero otherwise.
type Nack struct {
	FragmentIndex uint64
	NackKind      NackKind
	Problem       NodeID
}

func (Nack) Kind() PacketKind { return KindNack }

// PathEntry is one visited node within a flood's path trace.
type PathEntry struct {
	ID   NodeID
	Type NodeType
}

// PathTrace records every node a flood request has visited, in order.
type PathTrace []PathEntry

// IDs returns the visited node ids in visitation order.
func (t PathTrace) IDs() []NodeID {
	ids := make([]NodeID, len(t))
	for i, e := range t {
		ids[i] = e.ID
	}
	return ids
}

// FloodRequest is the network-discovery probe. The trace grows by one entry
// at every node it visits.
type FloodRequest struct {
	FloodID   uint64
	Initiator NodeID
	PathTrace PathTrace
}

func (FloodRequest) Kind() PacketKind { return KindFloodRequest }

// WithHop returns a copy of the request whose trace is extended by one
// entry. The receiver's trace is left untouched so that fan-out copies do
// not alias each other.
func (r FloodRequest) WithHop(id NodeID, t NodeType) FloodRequest {
	trace := make(PathTrace, len(r.PathTrace), len(r.PathTrace)+1)
	copy(trace, r.PathTrace)
	r.PathTrace = append(trace, PathEntry{ID: id, Type: t})
	return r
}

// FloodResponse carries the complete trace of one terminated flood branch
// back toward the initiator.
type FloodResponse struct {
	FloodID   uint64
	PathTrace PathTrace
}

func (FloodResponse) Kind() PacketKind { return KindFloodResponse }

// FloodKey deduplicates flood requests per node. The initiator is part of
// the key so that concurrent floods from different initiators that reuse a
// flood id never collide.
type FloodKey struct {
	Initiator NodeID
	FloodID   uint64
}
