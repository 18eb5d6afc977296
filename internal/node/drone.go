package node

import (
	"dronenet-simulation/internal/controller"
	"dronenet-simulation/internal/logging"
	"dronenet-simulation/internal/protocol"
)

// Drone is a pure packet relay. It never originates traffic; it validates
// the source route, advances the cursor and forwards, turning routing
// failures into nacks and dropping fragments with a configurable
// probability.
type Drone struct {
	base
	pdr float64
}

func NewDrone(id protocol.NodeID, pdr float64, seed int64, in chan protocol.Packet, events chan<- controller.Event, core *Core, log *logging.Logger) *Drone {
	return &Drone{base: newBase(id, seed, in, events, core, log), pdr: pdr}
}

// Run drives the drone until it crashes or is stopped.
func (d *Drone) Run() {
	d.runLoop(d, protocol.TypeDrone)
}

// HandleRoutedPacket relays one non-flood packet. Failure order follows the
// route checks: wrong recipient, route exhausted, unknown next hop, then
// the simulated drop.
func (d *Drone) HandleRoutedPacket(pkt protocol.Packet) bool {
	if pkt.Header.Hops[pkt.Header.HopIndex] != d.id {
		d.log.Error(d.id, "packet for hop %d arrived at wrong node", pkt.Header.Hops[pkt.Header.HopIndex])
		d.reportFailure(pkt, protocol.NackUnexpectedRecipient, d.id)
		return false
	}

	if d.crashing {
		d.reportFailure(pkt, protocol.NackErrorInRouting, d.id)
		return false
	}

	if pkt.Header.IsLastHop() {
		d.log.Error(d.id, "route of session %d terminates at a drone", pkt.Session)
		d.reportFailure(pkt, protocol.NackDestinationIsDrone, d.id)
		return false
	}

	advanced := pkt
	advanced.Header = pkt.Header.Advanced()
	next := advanced.Header.NextHop()

	if _, ok := d.neighbors.Get(next); !ok {
		d.reportFailure(pkt, protocol.NackErrorInRouting, next)
		return false
	}

	if _, isFragment := pkt.Payload.(protocol.Fragment); isFragment && d.rng.Float64() < d.pdr {
		d.log.Status(d.id, "dropping fragment of session %d", pkt.Session)
		d.core.emit(d, controller.PacketDropped(d.id, pkt))
		d.reportFailure(pkt, protocol.NackDropped, 0)
		return false
	}

	d.core.Forward(d, advanced)
	return false
}

// reportFailure answers a fragment with a nack routed back to its sender.
// Acks, nacks and flood responses must never be lost to the network, so
// when one of those cannot be relayed it is handed to the simulation
// controller instead.
func (d *Drone) reportFailure(pkt protocol.Packet, kind protocol.NackKind, problem protocol.NodeID) {
	if _, isFragment := pkt.Payload.(protocol.Fragment); isFragment {
		d.core.Forward(d, protocol.BuildNack(pkt, kind, problem))
		return
	}
	d.core.emit(d, controller.Shortcut(d.id, pkt))
}

// HandleCommand applies drone reconfiguration.
func (d *Drone) HandleCommand(cmd controller.Command) {
	if d.handleCommonCommand(d, cmd) {
		return
	}
	switch c := cmd.(type) {
	case controller.Crash:
		d.log.Status(d.id, "crashing")
		d.crashing = true
	case controller.SetPacketDropRate:
		d.pdr = c.Rate
	default:
		d.log.Error(d.id, "unsupported command %T", cmd)
	}
}
