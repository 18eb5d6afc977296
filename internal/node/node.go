// Package node implements the protocol shared by every participant of the
// simulated network: packet dispatch, forwarding along a source route,
// ack/nack construction and the network-discovery flood, plus the concrete
// drone, client and server node kinds built on top of it.
package node

import (
	"errors"
	"math/rand"

	"dronenet-simulation/internal/controller"
	"dronenet-simulation/internal/logging"
	"dronenet-simulation/internal/protocol"
)

// NetworkNode is the contract a concrete node kind implements to plug into
// the shared protocol. All methods are called from the node's own goroutine
// only.
type NetworkNode interface {
	// ID returns the node's fixed identifier.
	ID() protocol.NodeID

	// Crashing reports whether the node is set to exhibit crashing
	// behavior. Normal nodes return false.
	Crashing() bool

	// SeenFloods returns the node's flood dedup set.
	SeenFloods() map[protocol.FloodKey]struct{}

	// Neighbors returns the node's outbound channel table.
	Neighbors() *NeighborTable

	// Random returns the node's random source, used for session ids.
	Random() *rand.Rand

	// PacketIn returns the node's inbound packet channel.
	PacketIn() <-chan protocol.Packet

	// Events returns the shared simulation event channel.
	Events() chan<- controller.Event

	// HandleRoutedPacket processes anything that is not a flood request.
	// The return value reports whether the node should stop its loop.
	HandleRoutedPacket(pkt protocol.Packet) bool

	// HandleCommand applies a runtime reconfiguration.
	HandleCommand(cmd controller.Command)
}

var errChannelClosed = errors.New("receiver gone")
var errChannelFull = errors.New("channel full")

// deliver sends pkt without blocking. The simulated link is assumed
// always-up once registered; a closed or saturated channel is the failure
// signal for a torn-down receiver.
func deliver(ch chan<- protocol.Packet, pkt protocol.Packet) (err error) {
	defer func() {
		if recover() != nil {
			err = errChannelClosed
		}
	}()
	select {
	case ch <- pkt:
		return nil
	default:
		return errChannelFull
	}
}

// Core is the shared protocol behavior composed into every node kind.
type Core struct {
	log *logging.Logger
}

func NewCore(log *logging.Logger) *Core {
	return &Core{log: log}
}

// HandlePacket dispatches one inbound packet: flood requests go to the
// flood controller, everything else to the node's own handler. The return
// value reports whether the node should stop its loop.
func (c *Core) HandlePacket(n NetworkNode, pkt protocol.Packet, nodeType protocol.NodeType) bool {
	if req, ok := pkt.Payload.(protocol.FloodRequest); ok {
		if n.Crashing() {
			return true
		}
		c.handleFloodRequest(n, pkt, req, nodeType)
		return false
	}
	return n.HandleRoutedPacket(pkt)
}

// Forward delivers pkt to the neighbor under its header cursor. The cursor
// must already point at the hop to deliver to; advancing it is the caller's
// job. A missing neighbor drops the packet with a status line and no error:
// the protocol fails silently and reports through diagnostics. The
// PacketSent event is emitted best-effort before the send.
func (c *Core) Forward(n NetworkNode, pkt protocol.Packet) {
	nextHop := pkt.Header.NextHop()

	ch, ok := n.Neighbors().Get(nextHop)
	if !ok {
		c.log.Status(n.ID(), "no channel found for next hop %d", nextHop)
		return
	}

	c.emit(n, controller.PacketSent(n.ID(), pkt))
	if err := deliver(ch, pkt); err != nil {
		c.log.Error(n.ID(), "failed to forward packet to %d: %v", nextHop, err)
	}
}

// handleFloodRequest runs the per-node flood state machine: extend the
// trace, then either answer (already seen, or dead end) or record and
// re-broadcast to every neighbor except the one the request came from.
func (c *Core) handleFloodRequest(n NetworkNode, pkt protocol.Packet, req protocol.FloodRequest, nodeType protocol.NodeType) {
	// The trace is never empty from the initiator's first hop onward.
	whoSentMeThis := req.PathTrace[len(req.PathTrace)-1].ID

	extended := req.WithHop(n.ID(), nodeType)

	key := protocol.FloodKey{Initiator: req.Initiator, FloodID: req.FloodID}
	_, alreadySeen := n.SeenFloods()[key]
	// With a single neighbor the request must have come from it; there is
	// nobody left to forward to.
	deadEnd := n.Neighbors().Len() == 1

	if alreadySeen || deadEnd {
		c.Forward(n, c.buildFloodResponse(n, extended))
		return
	}

	n.SeenFloods()[key] = struct{}{}
	c.Broadcast(n, protocol.Packet{
		Header:  pkt.Header,
		Session: pkt.Session,
		Payload: extended,
	}, whoSentMeThis)
}

// buildFloodResponse turns a terminated flood branch into the response
// addressed one hop back toward the predecessor. The reply route is the
// reversed trace, not the inbound header: a flood request's header never
// describes the path it actually took. The session id comes from the node's
// random source so unrelated floods can never share one.
func (c *Core) buildFloodResponse(n NetworkNode, req protocol.FloodRequest) protocol.Packet {
	routeBack := req.PathTrace.IDs()
	for i, j := 0, len(routeBack)-1; i < j; i, j = i+1, j-1 {
		routeBack[i], routeBack[j] = routeBack[j], routeBack[i]
	}
	return protocol.Packet{
		Header:  protocol.RoutingHeader{Hops: routeBack, HopIndex: 1},
		Session: n.Random().Uint64(),
		Payload: protocol.FloodResponse{FloodID: req.FloodID, PathTrace: req.PathTrace},
	}
}

// Broadcast fans pkt out to every neighbor except exclude. Each copy gets
// its own direct route [self, neighbor] with the cursor on the neighbor: a
// flood does not know its eventual path, so every copy is single-hop
// addressed. Delivery is best effort per neighbor.
func (c *Core) Broadcast(n NetworkNode, pkt protocol.Packet, exclude protocol.NodeID) {
	for id, ch := range n.Neighbors().Snapshot() {
		if id == exclude {
			continue
		}
		fanout := pkt
		fanout.Header = protocol.RoutingHeader{
			Hops:     []protocol.NodeID{n.ID(), id},
			HopIndex: 1,
		}
		c.emit(n, controller.PacketSent(n.ID(), fanout))
		if err := deliver(ch, fanout); err != nil {
			c.log.Error(n.ID(), "failed to send packet to %d: %v", id, err)
		}
	}
}

// AddChannel registers (or replaces) the outbound channel for a neighbor.
func (c *Core) AddChannel(n NetworkNode, id protocol.NodeID, ch chan<- protocol.Packet) {
	n.Neighbors().Add(id, ch)
}

// RemoveChannel drops the outbound channel for a neighbor. Removing an
// unknown neighbor only produces a diagnostic; topology edits are expected
// to race with in-flight traffic.
func (c *Core) RemoveChannel(n NetworkNode, id protocol.NodeID) {
	if !n.Neighbors().Remove(id) {
		c.log.Error(n.ID(), "node %d has no neighbor %d", n.ID(), id)
	}
}

// emit pushes an event onto the simulation channel best-effort. A failure
// to emit never blocks or aborts packet delivery.
func (c *Core) emit(n NetworkNode, ev controller.Event) {
	select {
	case n.Events() <- ev:
	default:
		c.log.Error(n.ID(), "failed to send %s event: channel full", ev.Type)
	}
}
