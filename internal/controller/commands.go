package controller

import "dronenet-simulation/internal/protocol"

// Command is the closed set of runtime reconfiguration requests a node can
// receive from the simulation controller while traffic is in flight.
type Command interface {
	isCommand()
}

// AddSender gives the node an outbound channel to a new neighbor.
type AddSender struct {
	ID protocol.NodeID
	Ch chan<- protocol.Packet
}

// RemoveSender drops the node's outbound channel to a neighbor. Removing an
// unknown neighbor is benign.
type RemoveSender struct {
	ID protocol.NodeID
}

// Crash switches a drone into crashing behavior.
type Crash struct{}

// SetPacketDropRate sets a drone's probability of dropping a fragment.
type SetPacketDropRate struct {
	Rate float64
}

// StartFlood asks a client to initiate a new network-discovery flood.
type StartFlood struct{}

// SendMessage asks a client to fragment and send a message to a server.
type SendMessage struct {
	Dest    protocol.NodeID
	Message Message
}

// SetServerType configures what kind of server a server node acts as.
type SetServerType struct {
	Type ServerType
}

func (AddSender) isCommand()         {}
func (RemoveSender) isCommand()      {}
func (Crash) isCommand()             {}
func (SetPacketDropRate) isCommand() {}
func (StartFlood) isCommand()        {}
func (SendMessage) isCommand()       {}
func (SetServerType) isCommand()     {}
