package network

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"dronenet-simulation/internal/controller"
	"dronenet-simulation/internal/protocol"
)

// DroneConfig describes one drone of the topology.
type DroneConfig struct {
	ID        protocol.NodeID   `yaml:"id"`
	Connected []protocol.NodeID `yaml:"connected"`
	PDR       float64           `yaml:"pdr"`
}

// ClientConfig describes one client of the topology.
type ClientConfig struct {
	ID        protocol.NodeID   `yaml:"id"`
	Connected []protocol.NodeID `yaml:"connected"`
}

// ServerConfig describes one server of the topology.
type ServerConfig struct {
	ID        protocol.NodeID       `yaml:"id"`
	Connected []protocol.NodeID     `yaml:"connected"`
	Type      controller.ServerType `yaml:"type"`
	Files     map[string]string     `yaml:"files"`
}

// Config is the full topology description loaded from YAML.
type Config struct {
	Drones  []DroneConfig  `yaml:"drones"`
	Clients []ClientConfig `yaml:"clients"`
	Servers []ServerConfig `yaml:"servers"`
}

// LoadConfig reads and validates a topology file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse topology: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// edges collects every node's declared neighbor list.
func (c *Config) edges() map[protocol.NodeID][]protocol.NodeID {
	out := make(map[protocol.NodeID][]protocol.NodeID)
	for _, d := range c.Drones {
		out[d.ID] = d.Connected
	}
	for _, cl := range c.Clients {
		out[cl.ID] = cl.Connected
	}
	for _, s := range c.Servers {
		out[s.ID] = s.Connected
	}
	return out
}

// Validate rejects duplicate ids, references to unknown nodes and one-way
// links; every channel pair must exist in both directions.
func (c *Config) Validate() error {
	ids := make(map[protocol.NodeID]bool)
	total := len(c.Drones) + len(c.Clients) + len(c.Servers)
	for id := range c.edges() {
		ids[id] = true
	}
	if len(ids) != total {
		return fmt.Errorf("topology: duplicate node ids")
	}

	for id, connected := range c.edges() {
		for _, other := range connected {
			if other == id {
				return fmt.Errorf("topology: node %d connected to itself", id)
			}
			back, ok := c.edges()[other]
			if !ok {
				return fmt.Errorf("topology: node %d connected to unknown node %d", id, other)
			}
			if !contains(back, id) {
				return fmt.Errorf("topology: link %d->%d is one-way", id, other)
			}
		}
	}
	return nil
}

func contains(ids []protocol.NodeID, id protocol.NodeID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
