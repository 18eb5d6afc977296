package metrics

import (
	"encoding/json"
	"os"
	"sync"

	"dronenet-simulation/internal/controller"
)

// Counters is the flushed result of one simulation run.
type Counters struct {
	PacketsSent    uint64            `json:"packets_sent"`
	PacketsDropped uint64            `json:"packets_dropped"`
	Shortcuts      uint64            `json:"controller_shortcuts"`
	SentByKind     map[string]uint64 `json:"sent_by_kind"`
}

// Collector accumulates counters from simulation events. Safe for use from
// the bus consumer goroutine plus a flushing main goroutine.
type Collector struct {
	mu sync.Mutex
	Counters
}

func NewCollector() *Collector {
	return &Collector{Counters: Counters{SentByKind: make(map[string]uint64)}}
}

// Observe folds one event into the counters.
func (c *Collector) Observe(ev controller.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch ev.Type {
	case controller.EventPacketSent:
		c.PacketsSent++
		if ev.Packet.Payload != nil {
			c.SentByKind[ev.Packet.Payload.Kind().String()]++
		}
	case controller.EventPacketDropped:
		c.PacketsDropped++
	case controller.EventControllerShortcut:
		c.Shortcuts++
	}
}

// Consume drains a bus subscription until it is closed.
func (c *Collector) Consume(events <-chan controller.Event) {
	for ev := range events {
		c.Observe(ev)
	}
}

// Snapshot returns a copy of the current counters.
func (c *Collector) Snapshot() Counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.Counters
	out.SentByKind = make(map[string]uint64, len(c.Counters.SentByKind))
	for k, v := range c.Counters.SentByKind {
		out.SentByKind[k] = v
	}
	return out
}

// Flush writes the counters to file as indented JSON.
func (c *Collector) Flush(file string) error {
	snap := c.Snapshot()
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}
