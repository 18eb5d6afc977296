// Package network assembles a simulated drone network from a topology
// description: one goroutine per node, buffered channels for every link and
// a controller loop that drains the shared event channel.
package network

import (
	"fmt"
	"sync"

	"dronenet-simulation/internal/controller"
	"dronenet-simulation/internal/logging"
	"dronenet-simulation/internal/node"
	"dronenet-simulation/internal/protocol"
)

const (
	packetBuffer = 64
	eventBuffer  = 1024
)

// Network owns every node of one simulation instance plus the controller
// side: the event channel the nodes write to and the command channels the
// controller writes to.
type Network struct {
	log  *logging.Logger
	core *node.Core
	bus  *controller.Bus

	events chan controller.Event

	drones  map[protocol.NodeID]*node.Drone
	clients map[protocol.NodeID]*node.Client
	servers map[protocol.NodeID]*node.Server

	inbound  map[protocol.NodeID]chan protocol.Packet
	commands map[protocol.NodeID]chan<- controller.Command

	wg   sync.WaitGroup
	quit chan struct{}
}

// runner abstracts over the three node kinds for lifecycle handling.
type runner interface {
	Run()
	Stop()
	Commands() chan<- controller.Command
	Neighbors() *node.NeighborTable
}

// Build wires a Network from cfg. Channels are created per node and handed
// to every declared neighbor as send sides; each node's random source is
// seeded from the run seed plus its id so runs are reproducible.
func Build(cfg *Config, seed int64, log *logging.Logger) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n := &Network{
		log:      log,
		core:     node.NewCore(log),
		bus:      controller.NewBus(),
		events:   make(chan controller.Event, eventBuffer),
		drones:   make(map[protocol.NodeID]*node.Drone),
		clients:  make(map[protocol.NodeID]*node.Client),
		servers:  make(map[protocol.NodeID]*node.Server),
		inbound:  make(map[protocol.NodeID]chan protocol.Packet),
		commands: make(map[protocol.NodeID]chan<- controller.Command),
		quit:     make(chan struct{}),
	}

	for id := range cfg.edges() {
		n.inbound[id] = make(chan protocol.Packet, packetBuffer)
	}

	for _, dc := range cfg.Drones {
		d := node.NewDrone(dc.ID, dc.PDR, seed+int64(dc.ID), n.inbound[dc.ID], n.events, n.core, log)
		n.drones[dc.ID] = d
		n.commands[dc.ID] = d.Commands()
	}
	for _, cc := range cfg.Clients {
		c := node.NewClient(cc.ID, seed+int64(cc.ID), n.inbound[cc.ID], n.events, n.core, log)
		n.clients[cc.ID] = c
		n.commands[cc.ID] = c.Commands()
	}
	for _, sc := range cfg.Servers {
		t := sc.Type
		if t == "" {
			t = controller.ServerUndefined
		}
		s := node.NewServer(sc.ID, t, sc.Files, seed+int64(sc.ID), n.inbound[sc.ID], n.events, n.core, log)
		n.servers[sc.ID] = s
		n.commands[sc.ID] = s.Commands()
	}

	for id, connected := range cfg.edges() {
		r, err := n.node(id)
		if err != nil {
			return nil, err
		}
		for _, other := range connected {
			r.Neighbors().Add(other, n.inbound[other])
		}
	}

	return n, nil
}

func (n *Network) node(id protocol.NodeID) (runner, error) {
	if d, ok := n.drones[id]; ok {
		return d, nil
	}
	if c, ok := n.clients[id]; ok {
		return c, nil
	}
	if s, ok := n.servers[id]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("network: unknown node %d", id)
}

// Start launches one goroutine per node plus the controller loop.
func (n *Network) Start() {
	for id := range n.inbound {
		r, _ := n.node(id)
		n.wg.Add(1)
		go func(r runner) {
			defer n.wg.Done()
			r.Run()
		}(r)
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.controllerLoop()
	}()

	n.log.Infof("network started with %d drones, %d clients, %d servers",
		len(n.drones), len(n.clients), len(n.servers))
}

// controllerLoop drains the shared event channel: every event goes to the
// bus, and shortcut packets are delivered straight to their destination the
// way the real controller would.
func (n *Network) controllerLoop() {
	for {
		select {
		case ev := <-n.events:
			if ev.Type == controller.EventControllerShortcut {
				n.shortcut(ev)
			}
			n.bus.Publish(ev)
		case <-n.quit:
			return
		}
	}
}

// shortcut hands a stranded control packet to its final destination.
func (n *Network) shortcut(ev controller.Event) {
	hops := ev.Packet.Header.Hops
	if len(hops) == 0 {
		return
	}
	dest := hops[len(hops)-1]
	in, ok := n.inbound[dest]
	if !ok {
		n.log.Errorf("shortcut for unknown node %d", dest)
		return
	}
	pkt := ev.Packet
	pkt.Header = protocol.RoutingHeader{Hops: []protocol.NodeID{dest}, HopIndex: 0}
	select {
	case in <- pkt:
	default:
		n.log.Errorf("shortcut to node %d failed: channel full", dest)
	}
}

// Stop winds the simulation down: node loops first, then the controller.
func (n *Network) Stop() {
	for id := range n.inbound {
		if r, err := n.node(id); err == nil {
			r.Stop()
		}
	}
	close(n.quit)
	n.wg.Wait()
	n.bus.CloseAll()
}

// Command delivers a runtime command to one node.
func (n *Network) Command(id protocol.NodeID, cmd controller.Command) error {
	ch, ok := n.commands[id]
	if !ok {
		return fmt.Errorf("network: unknown node %d", id)
	}
	ch <- cmd
	return nil
}

// AddLink creates the channel pair for a new a<->b link at runtime.
func (n *Network) AddLink(a, b protocol.NodeID) error {
	inA, okA := n.inbound[a]
	inB, okB := n.inbound[b]
	if !okA || !okB {
		return fmt.Errorf("network: unknown node in link %d<->%d", a, b)
	}
	if err := n.Command(a, controller.AddSender{ID: b, Ch: inB}); err != nil {
		return err
	}
	return n.Command(b, controller.AddSender{ID: a, Ch: inA})
}

// RemoveLink tears an a<->b link down at runtime.
func (n *Network) RemoveLink(a, b protocol.NodeID) error {
	if err := n.Command(a, controller.RemoveSender{ID: b}); err != nil {
		return err
	}
	return n.Command(b, controller.RemoveSender{ID: a})
}

// Bus exposes the event bus for consumers (websocket stream, metrics).
func (n *Network) Bus() *controller.Bus { return n.bus }

// ClientIDs returns the ids of all clients, for traffic generation.
func (n *Network) ClientIDs() []protocol.NodeID {
	out := make([]protocol.NodeID, 0, len(n.clients))
	for id := range n.clients {
		out = append(out, id)
	}
	return out
}

// ServerIDs returns the ids of all servers.
func (n *Network) ServerIDs() []protocol.NodeID {
	out := make([]protocol.NodeID, 0, len(n.servers))
	for id := range n.servers {
		out = append(out, id)
	}
	return out
}

// DroneIDs returns the ids of all drones.
func (n *Network) DroneIDs() []protocol.NodeID {
	out := make([]protocol.NodeID, 0, len(n.drones))
	for id := range n.drones {
		out = append(out, id)
	}
	return out
}

// Client returns a client node by id. Only safe to inspect once the node
// goroutines have stopped.
func (n *Network) Client(id protocol.NodeID) (*node.Client, bool) {
	c, ok := n.clients[id]
	return c, ok
}
