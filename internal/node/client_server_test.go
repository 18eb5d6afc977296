package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dronenet-simulation/internal/controller"
	"dronenet-simulation/internal/logging"
	"dronenet-simulation/internal/protocol"
)

type pumped struct {
	n  NetworkNode
	nt protocol.NodeType
}

// drain synchronously pumps packets between nodes until every inbound
// channel is quiet. Replaces the per-node goroutines for deterministic
// tests.
func drain(core *Core, nodes []pumped) {
	for {
		moved := false
		for _, e := range nodes {
			select {
			case pkt := <-e.n.PacketIn():
				core.HandlePacket(e.n, pkt, e.nt)
				moved = true
			default:
			}
		}
		if !moved {
			return
		}
	}
}

// line builds client(1) - drone(2) - server(3) and returns the pieces.
func line(t *testing.T, serverType controller.ServerType, files map[string]string) (*Client, *Drone, *Server, []pumped, *Core) {
	t.Helper()
	core := NewCore(logging.Discard())
	events := make(chan controller.Event, 256)

	clientIn := make(chan protocol.Packet, 64)
	droneIn := make(chan protocol.Packet, 64)
	serverIn := make(chan protocol.Packet, 64)

	client := NewClient(1, 1, clientIn, events, core, logging.Discard())
	drone := NewDrone(2, 0, 2, droneIn, events, core, logging.Discard())
	server := NewServer(3, serverType, files, 3, serverIn, events, core, logging.Discard())

	client.Neighbors().Add(2, droneIn)
	drone.Neighbors().Add(1, clientIn)
	drone.Neighbors().Add(3, serverIn)
	server.Neighbors().Add(2, droneIn)

	nodes := []pumped{
		{client, protocol.TypeClient},
		{drone, protocol.TypeDrone},
		{server, protocol.TypeServer},
	}
	return client, drone, server, nodes, core
}

func TestClientDiscoversTopologyThroughFlood(t *testing.T) {
	client, _, _, nodes, core := line(t, controller.ServerContent, nil)

	client.StartFlood()
	drain(core, nodes)

	known := client.KnownNodes()
	assert.Equal(t, protocol.TypeDrone, known[2])
	assert.Equal(t, protocol.TypeServer, known[3])
	assert.Equal(t, []protocol.NodeID{1, 2, 3}, client.routes[3])
	assert.Equal(t, []protocol.NodeID{1, 2}, client.routes[2])
}

func TestClientSendToSelfIsRejected(t *testing.T) {
	client, _, _, nodes, core := line(t, controller.ServerContent, nil)

	client.StartFlood()
	drain(core, nodes)

	// discovery stores the trivial self entry; sending to it must be
	// refused like any other missing route, not blow up the node
	require.Contains(t, client.routes, protocol.NodeID(1))
	assert.NotPanics(t, func() {
		client.HandleCommand(controller.SendMessage{
			Dest:    1,
			Message: controller.Message{Kind: controller.MsgFileListRequest},
		})
	})
	drain(core, nodes)
	assert.Empty(t, client.Inbox)
}

func TestFileRequestRoundTrip(t *testing.T) {
	client, _, _, nodes, core := line(t, controller.ServerContent, map[string]string{
		"readme.txt": "hello world",
	})

	client.StartFlood()
	drain(core, nodes)

	client.HandleCommand(controller.SendMessage{
		Dest:    3,
		Message: controller.Message{Kind: controller.MsgFileRequest, Filename: "readme.txt"},
	})
	drain(core, nodes)

	require.Len(t, client.Inbox, 1)
	got := client.Inbox[0]
	assert.Equal(t, controller.MsgFileFound, got.Kind)
	assert.Equal(t, protocol.NodeID(3), got.Sender)
	assert.Equal(t, "readme.txt", got.Filename)
	assert.Equal(t, "hello world", got.File)
}

func TestFileListAndMissingFile(t *testing.T) {
	client, _, _, nodes, core := line(t, controller.ServerContent, map[string]string{
		"a.txt": "a", "b.txt": "b",
	})

	client.StartFlood()
	drain(core, nodes)

	client.HandleCommand(controller.SendMessage{Dest: 3, Message: controller.Message{Kind: controller.MsgFileListRequest}})
	drain(core, nodes)

	require.Len(t, client.Inbox, 1)
	assert.Equal(t, controller.MsgFileListResponse, client.Inbox[0].Kind)
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, client.Inbox[0].Files)

	client.HandleCommand(controller.SendMessage{Dest: 3, Message: controller.Message{Kind: controller.MsgFileRequest, Filename: "ghost.txt"}})
	drain(core, nodes)

	require.Len(t, client.Inbox, 2)
	assert.Equal(t, controller.MsgError, client.Inbox[1].Kind)
}

func TestServerTypeRequest(t *testing.T) {
	client, _, _, nodes, core := line(t, controller.ServerCommunication, nil)

	client.StartFlood()
	drain(core, nodes)

	client.HandleCommand(controller.SendMessage{Dest: 3, Message: controller.Message{Kind: controller.MsgServerTypeRequest}})
	drain(core, nodes)

	require.Len(t, client.Inbox, 1)
	assert.Equal(t, controller.MsgServerTypeResponse, client.Inbox[0].Kind)
	assert.Equal(t, controller.ServerCommunication, client.Inbox[0].ServerType)
}

func TestChatRelayBetweenRegisteredClients(t *testing.T) {
	core := NewCore(logging.Discard())
	events := make(chan controller.Event, 256)

	aIn := make(chan protocol.Packet, 64)
	bIn := make(chan protocol.Packet, 64)
	droneIn := make(chan protocol.Packet, 64)
	serverIn := make(chan protocol.Packet, 64)

	clientA := NewClient(1, 1, aIn, events, core, logging.Discard())
	clientB := NewClient(4, 4, bIn, events, core, logging.Discard())
	drone := NewDrone(2, 0, 2, droneIn, events, core, logging.Discard())
	server := NewServer(3, controller.ServerCommunication, nil, 3, serverIn, events, core, logging.Discard())

	clientA.Neighbors().Add(2, droneIn)
	clientB.Neighbors().Add(2, droneIn)
	drone.Neighbors().Add(1, aIn)
	drone.Neighbors().Add(4, bIn)
	drone.Neighbors().Add(3, serverIn)
	server.Neighbors().Add(2, droneIn)

	nodes := []pumped{
		{clientA, protocol.TypeClient},
		{clientB, protocol.TypeClient},
		{drone, protocol.TypeDrone},
		{server, protocol.TypeServer},
	}

	clientA.StartFlood()
	drain(core, nodes)
	clientB.StartFlood()
	drain(core, nodes)

	clientA.HandleCommand(controller.SendMessage{Dest: 3, Message: controller.Message{Kind: controller.MsgRegister}})
	clientB.HandleCommand(controller.SendMessage{Dest: 3, Message: controller.Message{Kind: controller.MsgRegister}})
	drain(core, nodes)

	require.Len(t, clientA.Inbox, 1)
	assert.Equal(t, controller.MsgRegisterSuccess, clientA.Inbox[0].Kind)
	require.Len(t, clientB.Inbox, 1)
	assert.Equal(t, controller.MsgRegisterSuccess, clientB.Inbox[0].Kind)

	clientA.HandleCommand(controller.SendMessage{
		Dest:    3,
		Message: controller.Message{Kind: controller.MsgChat, Recipient: 4, Text: "hi"},
	})
	drain(core, nodes)

	require.Len(t, clientB.Inbox, 2)
	chat := clientB.Inbox[1]
	assert.Equal(t, controller.MsgChat, chat.Kind)
	assert.Equal(t, protocol.NodeID(1), chat.Sender)
	assert.Equal(t, "hi", chat.Text)
}
