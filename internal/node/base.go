package node

import (
	"math/rand"

	"dronenet-simulation/internal/controller"
	"dronenet-simulation/internal/logging"
	"dronenet-simulation/internal/protocol"
)

// base carries the state every node kind owns and the accessor half of the
// NetworkNode contract. Concrete kinds embed it and add their own packet
// and command handling.
type base struct {
	id         protocol.NodeID
	crashing   bool
	seenFloods map[protocol.FloodKey]struct{}
	neighbors  *NeighborTable
	rng        *rand.Rand

	in       chan protocol.Packet
	commands chan controller.Command
	events   chan<- controller.Event
	quit     chan struct{}

	core *Core
	log  *logging.Logger
}

func newBase(id protocol.NodeID, seed int64, in chan protocol.Packet, events chan<- controller.Event, core *Core, log *logging.Logger) base {
	return base{
		id:         id,
		seenFloods: make(map[protocol.FloodKey]struct{}),
		neighbors:  NewNeighborTable(),
		rng:        rand.New(rand.NewSource(seed)),
		in:         in,
		commands:   make(chan controller.Command, 16),
		events:     events,
		quit:       make(chan struct{}),
		core:       core,
		log:        log,
	}
}

func (b *base) ID() protocol.NodeID                          { return b.id }
func (b *base) Crashing() bool                               { return b.crashing }
func (b *base) SeenFloods() map[protocol.FloodKey]struct{}   { return b.seenFloods }
func (b *base) Neighbors() *NeighborTable                    { return b.neighbors }
func (b *base) Random() *rand.Rand                           { return b.rng }
func (b *base) PacketIn() <-chan protocol.Packet             { return b.in }
func (b *base) Events() chan<- controller.Event              { return b.events }

// Commands returns the send side of the node's command channel; the
// simulation controller is its only producer.
func (b *base) Commands() chan<- controller.Command { return b.commands }

// Stop asks the node's loop to exit.
func (b *base) Stop() { close(b.quit) }

// runLoop drives the node: one goroutine draining the inbound packet and
// command channels until the dispatcher reports termination or Stop is
// called. n is the embedding node so dispatch reaches its handlers.
func (b *base) runLoop(n NetworkNode, nodeType protocol.NodeType) {
	b.log.Status(b.id, "%s started", nodeType)
	defer b.log.Status(b.id, "%s stopped", nodeType)

	for {
		select {
		case pkt := <-b.in:
			if b.core.HandlePacket(n, pkt, nodeType) {
				return
			}
		case cmd := <-b.commands:
			n.HandleCommand(cmd)
		case <-b.quit:
			return
		}
	}
}

// handleCommonCommand applies the commands every node kind supports and
// reports whether cmd was one of them.
func (b *base) handleCommonCommand(n NetworkNode, cmd controller.Command) bool {
	switch c := cmd.(type) {
	case controller.AddSender:
		b.core.AddChannel(n, c.ID, c.Ch)
	case controller.RemoveSender:
		b.core.RemoveChannel(n, c.ID)
	default:
		return false
	}
	return true
}
