// Package controller holds everything the nodes share with the simulation
// controller: observability events, runtime commands and the message
// vocabulary clients and servers exchange inside fragments.
package controller

import (
	"encoding/json"
	"time"

	"dronenet-simulation/internal/protocol"
)

type EventType string

const (
	// EventPacketSent is emitted just before every forward/broadcast send.
	EventPacketSent EventType = "PACKET_SENT"
	// EventPacketDropped is emitted when a drone deliberately drops a
	// fragment.
	EventPacketDropped EventType = "PACKET_DROPPED"
	// EventControllerShortcut hands a control packet that could not be
	// routed to the controller for out-of-band delivery.
	EventControllerShortcut EventType = "CONTROLLER_SHORTCUT"
)

// Event is what a node pushes onto the simulation event channel. It is a
// pure side channel: the protocol never reads events back.
type Event struct {
	Type      EventType
	NodeID    protocol.NodeID
	Packet    protocol.Packet
	Timestamp time.Time
}

// MarshalJSON flattens the packet into wire-friendly fields for the
// websocket and MQTT consumers; payload contents stay opaque.
func (e Event) MarshalJSON() ([]byte, error) {
	type wire struct {
		Type      EventType         `json:"type"`
		NodeID    protocol.NodeID   `json:"node_id"`
		Kind      string            `json:"packet_kind"`
		Session   uint64            `json:"session_id"`
		Hops      []protocol.NodeID `json:"hops"`
		HopIndex  int               `json:"hop_index"`
		Timestamp time.Time         `json:"timestamp"`
	}
	w := wire{
		Type:      e.Type,
		NodeID:    e.NodeID,
		Session:   e.Packet.Session,
		Hops:      e.Packet.Header.Hops,
		HopIndex:  e.Packet.Header.HopIndex,
		Timestamp: e.Timestamp,
	}
	if e.Packet.Payload != nil {
		w.Kind = e.Packet.Payload.Kind().String()
	}
	return json.Marshal(w)
}

// PacketSent builds the event emitted alongside a send. The packet is
// copied as-is: consumers must see exactly what went on the wire.
func PacketSent(node protocol.NodeID, pkt protocol.Packet) Event {
	return Event{Type: EventPacketSent, NodeID: node, Packet: pkt, Timestamp: time.Now()}
}

// PacketDropped builds the event for a deliberately dropped packet.
func PacketDropped(node protocol.NodeID, pkt protocol.Packet) Event {
	return Event{Type: EventPacketDropped, NodeID: node, Packet: pkt, Timestamp: time.Now()}
}

// Shortcut builds the event for a control packet handed to the controller.
func Shortcut(node protocol.NodeID, pkt protocol.Packet) Event {
	return Event{Type: EventControllerShortcut, NodeID: node, Packet: pkt, Timestamp: time.Now()}
}
