package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"dronenet-simulation/internal/logging"
	"dronenet-simulation/internal/metrics"
	"dronenet-simulation/internal/mqttbridge"
	"dronenet-simulation/internal/network"
	"dronenet-simulation/internal/server"
	"dronenet-simulation/internal/sim"
)

func main() {
	scenarioPath := flag.String("scenario", "scenario.yaml", "YAML or JSON scenario description")
	listen := flag.String("listen", "", "HTTP/WebSocket API address, overrides scenario")
	broker := flag.String("broker", "", "MQTT broker URL, overrides scenario")
	flag.Parse()

	sc, err := sim.LoadScenario(*scenarioPath)
	if err != nil {
		log.Fatalf("scenario: %v", err)
	}
	if *listen != "" {
		sc.ListenAddr = *listen
	}
	if *broker != "" {
		sc.MQTTBroker = *broker
	}

	lg, err := logging.New(sc.Logging)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer lg.Close()

	cfg, err := sc.Config()
	if err != nil {
		log.Fatalf("topology: %v", err)
	}
	net, err := network.Build(cfg, sc.Seed, lg)
	if err != nil {
		log.Fatalf("network: %v", err)
	}

	coll := metrics.NewCollector()
	runner := sim.NewRunner(sc, net, coll, lg)
	lg.Infof("starting run %s", runner.ID)

	if sc.ListenAddr != "" {
		go server.StartServer(sc.ListenAddr, net.Bus(), net)
	}
	if sc.MQTTBroker != "" {
		bridge, err := mqttbridge.New(sc.MQTTBroker, "dronenet-"+runner.ID.String(), net, lg)
		if err != nil {
			log.Fatalf("mqtt: %v", err)
		}
		defer bridge.Close()
		go bridge.Run(net.Bus().Subscribe())
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	runErr := make(chan error, 1)
	go func() { runErr <- runner.Run() }()

	select {
	case err := <-runErr:
		if err != nil {
			log.Printf("runner error: %v", err)
		}
	case s := <-sigCh:
		log.Printf("received signal %v: shutting down early", s)
		runner.Stop()
		if err := <-runErr; err != nil {
			log.Printf("runner stopped with error: %v", err)
		}
	}

	out := runner.MetricsPath()
	if err := coll.Flush(out); err != nil {
		log.Printf("flush metrics: %v", err)
	} else {
		log.Printf("run complete, stats written to %s", out)
	}
}
