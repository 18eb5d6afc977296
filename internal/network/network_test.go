package network

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dronenet-simulation/internal/controller"
	"dronenet-simulation/internal/logging"
	"dronenet-simulation/internal/protocol"
)

func linearConfig() *Config {
	return &Config{
		Drones: []DroneConfig{
			{ID: 2, Connected: []protocol.NodeID{1, 3}},
		},
		Clients: []ClientConfig{
			{ID: 1, Connected: []protocol.NodeID{2}},
		},
		Servers: []ServerConfig{
			{ID: 3, Connected: []protocol.NodeID{2}, Type: controller.ServerContent,
				Files: map[string]string{"notes.txt": "remember the milk"}},
		},
	}
}

func TestBuildWiresDeclaredAdjacency(t *testing.T) {
	net, err := Build(linearConfig(), 1, logging.Discard())
	require.NoError(t, err)

	drone, err := net.node(2)
	require.NoError(t, err)
	assert.Equal(t, 2, drone.Neighbors().Len())

	client, err := net.node(1)
	require.NoError(t, err)
	assert.Equal(t, 1, client.Neighbors().Len())

	assert.ElementsMatch(t, []protocol.NodeID{1}, net.ClientIDs())
	assert.ElementsMatch(t, []protocol.NodeID{2}, net.DroneIDs())
	assert.ElementsMatch(t, []protocol.NodeID{3}, net.ServerIDs())
}

func TestFloodAndFileFetchOverRunningNetwork(t *testing.T) {
	net, err := Build(linearConfig(), 42, logging.Discard())
	require.NoError(t, err)

	events := net.Bus().Subscribe()
	var sent int
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			if ev.Type == controller.EventPacketSent {
				sent++
			}
		}
	}()

	net.Start()

	require.NoError(t, net.Command(1, controller.StartFlood{}))
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, net.Command(1, controller.SendMessage{
		Dest:    3,
		Message: controller.Message{Kind: controller.MsgFileRequest, Filename: "notes.txt"},
	}))
	time.Sleep(200 * time.Millisecond)

	net.Stop()
	<-done

	client, ok := net.Client(1)
	require.True(t, ok)

	known := client.KnownNodes()
	assert.Equal(t, protocol.TypeDrone, known[2])
	assert.Equal(t, protocol.TypeServer, known[3])

	require.NotEmpty(t, client.Inbox)
	got := client.Inbox[len(client.Inbox)-1]
	assert.Equal(t, controller.MsgFileFound, got.Kind)
	assert.Equal(t, "remember the milk", got.File)

	assert.Greater(t, sent, 0, "a flood plus a fetch must emit PacketSent events")
}

func TestCommandUnknownNode(t *testing.T) {
	net, err := Build(linearConfig(), 1, logging.Discard())
	require.NoError(t, err)
	assert.Error(t, net.Command(99, controller.StartFlood{}))
}

func TestRuntimeLinkEdits(t *testing.T) {
	cfg := &Config{
		Drones: []DroneConfig{
			{ID: 2, Connected: []protocol.NodeID{1}},
			{ID: 4, Connected: []protocol.NodeID{1}},
		},
		Clients: []ClientConfig{
			{ID: 1, Connected: []protocol.NodeID{2, 4}},
		},
	}
	net, err := Build(cfg, 1, logging.Discard())
	require.NoError(t, err)

	net.Start()
	require.NoError(t, net.AddLink(2, 4))
	require.NoError(t, net.RemoveLink(1, 4))
	assert.Error(t, net.AddLink(1, 99))
	time.Sleep(50 * time.Millisecond)
	net.Stop()

	drone, err := net.node(2)
	require.NoError(t, err)
	assert.Equal(t, 2, drone.Neighbors().Len(), "drone 2 gained the link to 4")

	client, err := net.node(1)
	require.NoError(t, err)
	assert.Equal(t, 1, client.Neighbors().Len(), "client 1 lost the link to 4")
}
