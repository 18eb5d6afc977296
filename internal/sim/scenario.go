package sim

import (
	"encoding/json"
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"dronenet-simulation/internal/logging"
	"dronenet-simulation/internal/network"
)

// Duration is a time.Duration that decodes from "2s"-style strings in both
// YAML and JSON scenario files.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type TrafficCfg struct {
	MsgPerMin float64            `yaml:"msg_per_min" json:"msg_per_min"`
	Mix       map[string]float64 `yaml:"mix" json:"mix"` // flood | server_type | file_list | register
}

type Scenario struct {
	Duration     Duration        `yaml:"duration" json:"duration"`
	Seed         int64           `yaml:"seed" json:"seed"`
	TopologyFile string          `yaml:"topology_file" json:"topology_file"`
	Topology     *network.Config `yaml:"topology" json:"topology"`
	StartupDelay Duration        `yaml:"startup_delay" json:"startup_delay"`
	Traffic      TrafficCfg      `yaml:"traffic" json:"traffic"`
	Logging      logging.Config  `yaml:"logging" json:"logging"`
	MetricsFile  string          `yaml:"metrics_file" json:"metrics_file"`
	ListenAddr   string          `yaml:"listen_addr" json:"listen_addr"`
	MQTTBroker   string          `yaml:"mqtt_broker" json:"mqtt_broker"`
}

func LoadScenario(path string) (*Scenario, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc := &Scenario{}
	if yaml.Unmarshal(f, sc) == nil {
		return sc, nil
	}
	// fallback JSON
	if err := json.Unmarshal(f, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

// Config resolves the topology, loading it from TopologyFile when the
// scenario does not embed one inline.
func (sc *Scenario) Config() (*network.Config, error) {
	if sc.Topology != nil {
		return sc.Topology, nil
	}
	if sc.TopologyFile == "" {
		return nil, errors.New("sim: scenario has neither topology nor topology_file")
	}
	return network.LoadConfig(sc.TopologyFile)
}
