// Package mqttbridge connects a running simulation to an MQTT broker:
// commands arrive as JSON on the command topic, controller events are
// republished on the event topic. Used to drive the simulator from
// external tooling without linking against it.
package mqttbridge

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"dronenet-simulation/internal/controller"
	"dronenet-simulation/internal/logging"
	"dronenet-simulation/internal/network"
	"dronenet-simulation/internal/protocol"
)

const (
	CommandTopic = "dronenet/command"
	EventTopic   = "dronenet/events"
)

// CommandPayload is the JSON body accepted on the command topic.
type CommandPayload struct {
	Command string          `json:"command"` // start_flood | crash | set_drop_rate | add_link | remove_link
	NodeID  protocol.NodeID `json:"node_id,omitempty"`
	Other   protocol.NodeID `json:"other,omitempty"`
	Rate    float64         `json:"rate,omitempty"`
}

// Bridge owns the broker connection and the republishing loop.
type Bridge struct {
	client mqtt.Client
	net    *network.Network
	log    *logging.Logger
	quit   chan struct{}
}

// New connects to the broker and subscribes to the command topic.
func New(broker, clientID string, net *network.Network, log *logging.Logger) (*Bridge, error) {
	opts := mqtt.NewClientOptions().AddBroker(broker).SetClientID(clientID)
	b := &Bridge{
		client: mqtt.NewClient(opts),
		net:    net,
		log:    log,
		quit:   make(chan struct{}),
	}
	if token := b.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	if token := b.client.Subscribe(CommandTopic, 1, b.onCommand); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt subscribe: %w", token.Error())
	}
	return b, nil
}

// Run republishes bus events until Close is called.
func (b *Bridge) Run(events <-chan controller.Event) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				b.log.Errorf("mqtt: encode event: %v", err)
				continue
			}
			b.client.Publish(EventTopic, 0, false, data)
		case <-b.quit:
			return
		}
	}
}

// onCommand decodes one command message and applies it to the network.
func (b *Bridge) onCommand(_ mqtt.Client, msg mqtt.Message) {
	var p CommandPayload
	if err := json.Unmarshal(msg.Payload(), &p); err != nil {
		b.log.Errorf("mqtt: bad command payload: %v", err)
		return
	}
	if err := b.Apply(p); err != nil {
		b.log.Errorf("mqtt: command %q failed: %v", p.Command, err)
	}
}

// Apply executes one decoded command.
func (b *Bridge) Apply(p CommandPayload) error {
	switch p.Command {
	case "start_flood":
		return b.net.Command(p.NodeID, controller.StartFlood{})
	case "crash":
		return b.net.Command(p.NodeID, controller.Crash{})
	case "set_drop_rate":
		return b.net.Command(p.NodeID, controller.SetPacketDropRate{Rate: p.Rate})
	case "add_link":
		return b.net.AddLink(p.NodeID, p.Other)
	case "remove_link":
		return b.net.RemoveLink(p.NodeID, p.Other)
	default:
		return fmt.Errorf("unknown command %q", p.Command)
	}
}

// Close disconnects from the broker.
func (b *Bridge) Close() {
	close(b.quit)
	b.client.Disconnect(250)
}
