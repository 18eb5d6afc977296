package node

import (
	"dronenet-simulation/internal/controller"
	"dronenet-simulation/internal/logging"
	"dronenet-simulation/internal/protocol"
)

// Client originates traffic: it discovers the topology through floods,
// computes source routes from the returned path traces, fragments outgoing
// messages and reassembles incoming ones.
type Client struct {
	base

	asm        *assembler
	floodCount uint64

	// routes maps every discovered node to the traveled path from this
	// client to it, self included at index 0.
	routes     map[protocol.NodeID][]protocol.NodeID
	knownTypes map[protocol.NodeID]protocol.NodeType

	// Inbox keeps every fully reassembled message, oldest first.
	Inbox []controller.Message
}

func NewClient(id protocol.NodeID, seed int64, in chan protocol.Packet, events chan<- controller.Event, core *Core, log *logging.Logger) *Client {
	return &Client{
		base:       newBase(id, seed, in, events, core, log),
		asm:        newAssembler(),
		routes:     make(map[protocol.NodeID][]protocol.NodeID),
		knownTypes: make(map[protocol.NodeID]protocol.NodeType),
	}
}

// Run drives the client until it is stopped.
func (c *Client) Run() {
	c.runLoop(c, protocol.TypeClient)
}

func (c *Client) HandleRoutedPacket(pkt protocol.Packet) bool {
	switch p := pkt.Payload.(type) {
	case protocol.Fragment:
		c.core.Forward(c, protocol.BuildAck(pkt))
		if data, done := c.asm.add(pkt.Session, p); done {
			msg, err := controller.DecodeMessage(data)
			if err != nil {
				c.log.Error(c.id, "undecodable message in session %d: %v", pkt.Session, err)
				return false
			}
			c.log.Status(c.id, "received %s from %d", msg.Kind, msg.Sender)
			c.Inbox = append(c.Inbox, msg)
		}
	case protocol.Ack:
		c.log.Status(c.id, "fragment %d of session %d acked", p.FragmentIndex, pkt.Session)
	case protocol.Nack:
		c.log.Error(c.id, "fragment %d of session %d failed: %s at node %d", p.FragmentIndex, pkt.Session, p.NackKind, p.Problem)
	case protocol.FloodResponse:
		c.learnRoutes(p.PathTrace)
	}
	return false
}

// learnRoutes records a path to every node on a returned trace. Every
// prefix of the trace is itself a traveled path from this client.
func (c *Client) learnRoutes(trace protocol.PathTrace) {
	ids := trace.IDs()
	if len(ids) == 0 || ids[0] != c.id {
		c.log.Error(c.id, "flood response trace does not start at this node: %v", ids)
		return
	}
	for i, entry := range trace {
		c.knownTypes[entry.ID] = entry.Type
		if _, ok := c.routes[entry.ID]; !ok || i < len(c.routes[entry.ID])-1 {
			route := make([]protocol.NodeID, i+1)
			copy(route, ids[:i+1])
			c.routes[entry.ID] = route
		}
	}
}

// StartFlood initiates a new network-discovery flood: the client marks its
// own flood as seen and fans the request out to every neighbor.
func (c *Client) StartFlood() {
	c.floodCount++
	req := protocol.FloodRequest{
		FloodID:   c.floodCount,
		Initiator: c.id,
		PathTrace: protocol.PathTrace{{ID: c.id, Type: protocol.TypeClient}},
	}
	c.seenFloods[protocol.FloodKey{Initiator: c.id, FloodID: c.floodCount}] = struct{}{}
	c.log.Status(c.id, "starting flood %d", c.floodCount)
	c.core.Broadcast(c, protocol.Packet{
		Session: c.rng.Uint64(),
		Payload: req,
	}, c.id)
}

// Send fragments msg and forwards it along a previously discovered route.
func (c *Client) Send(dest protocol.NodeID, msg controller.Message) {
	route, ok := c.routes[dest]
	if !ok || len(route) < 2 {
		// a route shorter than two hops can only be the self entry
		c.log.Error(c.id, "no known route to %d, flood first", dest)
		return
	}
	data, err := msg.Encode()
	if err != nil {
		c.log.Error(c.id, "failed to encode %s message: %v", msg.Kind, err)
		return
	}
	session := c.rng.Uint64()
	for _, frag := range fragmentData(data) {
		c.core.Forward(c, protocol.Packet{
			Header:  protocol.RoutingHeader{Hops: route, HopIndex: 1},
			Session: session,
			Payload: frag,
		})
	}
}

// KnownNodes returns the discovered topology as id -> type.
func (c *Client) KnownNodes() map[protocol.NodeID]protocol.NodeType {
	out := make(map[protocol.NodeID]protocol.NodeType, len(c.knownTypes))
	for id, t := range c.knownTypes {
		out[id] = t
	}
	return out
}

func (c *Client) HandleCommand(cmd controller.Command) {
	if c.handleCommonCommand(c, cmd) {
		return
	}
	switch cc := cmd.(type) {
	case controller.StartFlood:
		c.StartFlood()
	case controller.SendMessage:
		msg := cc.Message
		msg.Sender = c.id
		c.Send(cc.Dest, msg)
	default:
		c.log.Error(c.id, "unsupported command %T", cmd)
	}
}
