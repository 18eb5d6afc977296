package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"dronenet-simulation/internal/logging"
	"dronenet-simulation/internal/metrics"
	"dronenet-simulation/internal/network"
	"dronenet-simulation/internal/sim"
)

// batch runs the same scenario N times with varying seeds and writes one
// aggregate counters file, for drop-rate sweeps and regression comparisons.
func main() {
	scenarioPath := flag.String("scenario", "scenario.yaml", "YAML or JSON scenario description")
	runs := flag.Int("runs", 5, "number of repeated runs")
	out := flag.String("out", "batch_results.json", "aggregate output file")
	flag.Parse()

	sc, err := sim.LoadScenario(*scenarioPath)
	if err != nil {
		log.Fatalf("scenario: %v", err)
	}
	sc.ListenAddr = ""
	sc.MQTTBroker = ""

	agg := struct {
		Runs    int                `json:"runs"`
		PerRun  []metrics.Counters `json:"per_run"`
		Sent    uint64             `json:"total_packets_sent"`
		Dropped uint64             `json:"total_packets_dropped"`
	}{Runs: *runs}

	for i := 0; i < *runs; i++ {
		seed := sc.Seed + int64(i)
		cfg, err := sc.Config()
		if err != nil {
			log.Fatalf("topology: %v", err)
		}
		net, err := network.Build(cfg, seed, logging.Discard())
		if err != nil {
			log.Fatalf("network: %v", err)
		}

		runSc := *sc
		runSc.Seed = seed
		coll := metrics.NewCollector()
		runner := sim.NewRunner(&runSc, net, coll, logging.Discard())
		log.Printf("run %d/%d (%s, seed %d)", i+1, *runs, runner.ID, seed)
		if err := runner.Run(); err != nil {
			log.Fatalf("run %d: %v", i+1, err)
		}

		snap := coll.Snapshot()
		agg.PerRun = append(agg.PerRun, snap)
		agg.Sent += snap.PacketsSent
		agg.Dropped += snap.PacketsDropped
	}

	data, err := json.MarshalIndent(agg, "", "  ")
	if err != nil {
		log.Fatalf("encode results: %v", err)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		log.Fatalf("write results: %v", err)
	}
	fmt.Printf("%d runs complete, results in %s\n", *runs, *out)
}
