package protocol

import "fmt"

// BuildAck builds the acknowledgement for a received fragment packet: same
// session, same fragment index, routing direction reversed so the ack
// travels back along the traveled prefix.
//
// Calling this with a non-fragment packet is a contract violation by the
// caller (the packet must already have been classified) and panics.
func BuildAck(p Packet) Packet {
	frag, ok := p.Payload.(Fragment)
	if !ok {
		panic(fmt.Sprintf("protocol: ack built from %s packet", p.Payload.Kind()))
	}
	return Packet{
		Header:  p.Header.Reversed(),
		Session: p.Session,
		Payload: Ack{FragmentIndex: frag.Index},
	}
}

// BuildNack builds the negative acknowledgement for a fragment packet that
// could not be delivered. Same contract as BuildAck: a non-fragment input
// is a programming error and panics. Problem carries the node id the
// failure relates to where the kind calls for one.
func BuildNack(p Packet, kind NackKind, problem NodeID) Packet {
	frag, ok := p.Payload.(Fragment)
	if !ok {
		panic(fmt.Sprintf("protocol: nack built from %s packet", p.Payload.Kind()))
	}
	return Packet{
		Header:  p.Header.Reversed(),
		Session: p.Session,
		Payload: Nack{FragmentIndex: frag.Index, NackKind: kind, Problem: problem},
	}
}
