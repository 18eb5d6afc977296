package sim

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"dronenet-simulation/internal/controller"
	"dronenet-simulation/internal/logging"
	"dronenet-simulation/internal/metrics"
	"dronenet-simulation/internal/network"
	"dronenet-simulation/internal/protocol"
)

// Runner drives a built network through one scenario: it seeds discovery
// floods, generates client traffic according to the configured mix, and
// drains controller events into the metrics collector.
type Runner struct {
	ID uuid.UUID

	sc   *Scenario
	net  *network.Network
	coll *metrics.Collector
	log  *logging.Logger
	rng  *rand.Rand

	quit chan struct{}
}

func NewRunner(sc *Scenario, net *network.Network, coll *metrics.Collector, log *logging.Logger) *Runner {
	return &Runner{
		ID:   uuid.New(),
		sc:   sc,
		net:  net,
		coll: coll,
		log:  log,
		rng:  rand.New(rand.NewSource(sc.Seed)),
		quit: make(chan struct{}),
	}
}

// MetricsPath is where Flush writes this run's counters.
func (r *Runner) MetricsPath() string {
	if r.sc.MetricsFile != "" {
		return r.sc.MetricsFile
	}
	return fmt.Sprintf("results_%s.json", r.ID)
}

// Run starts the network, generates traffic until the scenario duration
// elapses or Stop is called, then shuts the network down. The caller owns
// flushing the collector afterwards.
func (r *Runner) Run() error {
	sub := r.net.Bus().Subscribe()
	go r.coll.Consume(sub)

	r.net.Start()
	r.log.Infof("run %s: network up, %d clients / %d servers / %d drones",
		r.ID, len(r.net.ClientIDs()), len(r.net.ServerIDs()), len(r.net.DroneIDs()))

	// Every client floods once up front so routes exist before traffic.
	for _, id := range r.net.ClientIDs() {
		if err := r.net.Command(id, controller.StartFlood{}); err != nil {
			return err
		}
	}

	if d := r.sc.StartupDelay.Std(); d > 0 {
		time.Sleep(d)
	}

	rate := r.sc.Traffic.MsgPerMin / 60.0
	if rate <= 0 {
		rate = 1
	}
	tick := time.NewTicker(time.Duration(float64(time.Second) / rate))
	defer tick.Stop()

	done := time.After(r.sc.Duration.Std())
	for {
		select {
		case <-done:
			r.net.Stop()
			return nil
		case <-r.quit:
			r.net.Stop()
			return nil
		case <-tick.C:
			r.emitTraffic()
		}
	}
}

// Stop ends the run early. Safe to call once.
func (r *Runner) Stop() { close(r.quit) }

func (r *Runner) emitTraffic() {
	clients := r.net.ClientIDs()
	if len(clients) == 0 {
		return
	}
	from := clients[r.rng.Intn(len(clients))]

	switch chooseTraffic(r.rng, r.sc.Traffic.Mix) {
	case "flood":
		r.command(from, controller.StartFlood{})
	case "server_type":
		if dest, ok := r.pickServer(); ok {
			r.command(from, controller.SendMessage{Dest: dest,
				Message: controller.Message{Kind: controller.MsgServerTypeRequest}})
		}
	case "file_list":
		if dest, ok := r.pickServer(); ok {
			r.command(from, controller.SendMessage{Dest: dest,
				Message: controller.Message{Kind: controller.MsgFileListRequest}})
		}
	case "register":
		if dest, ok := r.pickServer(); ok {
			r.command(from, controller.SendMessage{Dest: dest,
				Message: controller.Message{Kind: controller.MsgRegister}})
		}
	}
}

// pickServer chooses a destination server. The client drops the send with a
// diagnostic when discovery has not found a route to it yet, which is the
// point of the startup delay.
func (r *Runner) pickServer() (protocol.NodeID, bool) {
	servers := r.net.ServerIDs()
	if len(servers) == 0 {
		return 0, false
	}
	return servers[r.rng.Intn(len(servers))], true
}

func (r *Runner) command(id protocol.NodeID, cmd controller.Command) {
	if err := r.net.Command(id, cmd); err != nil {
		r.log.Errorf("run %s: command to node %d: %v", r.ID, id, err)
	}
}

func chooseTraffic(rng *rand.Rand, mix map[string]float64) string {
	if len(mix) == 0 {
		return "file_list"
	}
	p := rng.Float64()
	acc := 0.0
	for _, k := range []string{"flood", "server_type", "file_list", "register"} {
		acc += mix[k]
		if p <= acc {
			return k
		}
	}
	return "file_list"
}
