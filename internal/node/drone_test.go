package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dronenet-simulation/internal/controller"
	"dronenet-simulation/internal/logging"
	"dronenet-simulation/internal/protocol"
)

func newTestDrone(id protocol.NodeID, pdr float64) (*Drone, chan controller.Event) {
	events := make(chan controller.Event, 32)
	in := make(chan protocol.Packet, 32)
	return NewDrone(id, pdr, int64(id), in, events, NewCore(logging.Discard()), logging.Discard()), events
}

func TestDroneForwardsFragmentWithAdvancedCursor(t *testing.T) {
	d, events := newTestDrone(2, 0)
	next := make(chan protocol.Packet, 1)
	d.neighbors.Add(3, next)
	d.neighbors.Add(1, make(chan protocol.Packet, 1))

	d.HandleRoutedPacket(fragPacket([]protocol.NodeID{1, 2, 3}, 1, 50))

	require.Len(t, next, 1)
	got := <-next
	assert.Equal(t, 2, got.Header.HopIndex)
	assert.Equal(t, []protocol.NodeID{1, 2, 3}, got.Header.Hops)

	ev := <-events
	assert.Equal(t, controller.EventPacketSent, ev.Type)
	assert.Equal(t, got, ev.Packet)
}

func TestDroneNacksUnexpectedRecipient(t *testing.T) {
	d, _ := newTestDrone(5, 0)
	back := make(chan protocol.Packet, 1)
	d.neighbors.Add(1, back)

	// route says hop 2 but the packet landed at node 5
	d.HandleRoutedPacket(fragPacket([]protocol.NodeID{1, 2, 3}, 1, 60))

	require.Len(t, back, 1)
	nack := (<-back).Payload.(protocol.Nack)
	assert.Equal(t, protocol.NackUnexpectedRecipient, nack.NackKind)
	assert.Equal(t, protocol.NodeID(5), nack.Problem)
}

func TestDroneNacksWhenRouteEndsAtDrone(t *testing.T) {
	d, _ := newTestDrone(3, 0)
	back := make(chan protocol.Packet, 1)
	d.neighbors.Add(2, back)

	d.HandleRoutedPacket(fragPacket([]protocol.NodeID{1, 2, 3}, 2, 61))

	require.Len(t, back, 1)
	nack := (<-back).Payload.(protocol.Nack)
	assert.Equal(t, protocol.NackDestinationIsDrone, nack.NackKind)
}

func TestDroneNacksUnknownNextHop(t *testing.T) {
	d, _ := newTestDrone(2, 0)
	back := make(chan protocol.Packet, 1)
	d.neighbors.Add(1, back)
	// no channel for node 3

	d.HandleRoutedPacket(fragPacket([]protocol.NodeID{1, 2, 3}, 1, 62))

	require.Len(t, back, 1)
	nack := (<-back).Payload.(protocol.Nack)
	assert.Equal(t, protocol.NackErrorInRouting, nack.NackKind)
	assert.Equal(t, protocol.NodeID(3), nack.Problem)
}

func TestDroneAlwaysDropsAtFullRate(t *testing.T) {
	d, events := newTestDrone(2, 1.0)
	next := make(chan protocol.Packet, 8)
	back := make(chan protocol.Packet, 8)
	d.neighbors.Add(3, next)
	d.neighbors.Add(1, back)

	for i := 0; i < 5; i++ {
		d.HandleRoutedPacket(fragPacket([]protocol.NodeID{1, 2, 3}, 1, uint64(70+i)))
	}

	assert.Empty(t, next, "pdr=1 must never forward a fragment")
	assert.Len(t, back, 5)
	for len(back) > 0 {
		nack := (<-back).Payload.(protocol.Nack)
		assert.Equal(t, protocol.NackDropped, nack.NackKind)
	}

	dropped := 0
	for len(events) > 0 {
		if (<-events).Type == controller.EventPacketDropped {
			dropped++
		}
	}
	assert.Equal(t, 5, dropped)
}

func TestDroneShortcutsUnroutableControlPackets(t *testing.T) {
	d, events := newTestDrone(2, 0)
	// no neighbors at all: the ack cannot continue
	pkt := protocol.Packet{
		Header:  protocol.RoutingHeader{Hops: []protocol.NodeID{3, 2, 1}, HopIndex: 1},
		Session: 80,
		Payload: protocol.Ack{FragmentIndex: 0},
	}
	d.HandleRoutedPacket(pkt)

	require.Len(t, events, 1)
	ev := <-events
	assert.Equal(t, controller.EventControllerShortcut, ev.Type)
	assert.Equal(t, pkt, ev.Packet)
}

func TestDroneCrashCommand(t *testing.T) {
	d, _ := newTestDrone(2, 0)
	back := make(chan protocol.Packet, 1)
	next := make(chan protocol.Packet, 1)
	d.neighbors.Add(1, back)
	d.neighbors.Add(3, next)

	d.HandleCommand(controller.Crash{})
	require.True(t, d.Crashing())

	d.HandleRoutedPacket(fragPacket([]protocol.NodeID{1, 2, 3}, 1, 90))
	assert.Empty(t, next)
	require.Len(t, back, 1)
	nack := (<-back).Payload.(protocol.Nack)
	assert.Equal(t, protocol.NackErrorInRouting, nack.NackKind)
}

func TestDroneTopologyCommands(t *testing.T) {
	d, _ := newTestDrone(2, 0)
	link := make(chan protocol.Packet, 1)

	d.HandleCommand(controller.AddSender{ID: 7, Ch: link})
	assert.Equal(t, 1, d.Neighbors().Len())

	d.HandleCommand(controller.RemoveSender{ID: 9})
	assert.Equal(t, 1, d.Neighbors().Len(), "removing an unknown neighbor changes nothing")

	d.HandleCommand(controller.RemoveSender{ID: 7})
	assert.Equal(t, 0, d.Neighbors().Len())
}
