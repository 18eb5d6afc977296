// Package server exposes the running simulation to a front end: a
// websocket stream of controller events plus a small REST surface for
// runtime commands.
package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"dronenet-simulation/internal/controller"
	"dronenet-simulation/internal/network"
	"dronenet-simulation/internal/protocol"
)

var upgrader = websocket.Upgrader{
	// Allow any origin; the simulator runs on a closed host.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsHandler upgrades the connection and pushes bus events to the client.
func wsHandler(bus *controller.Bus, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Upgrade error: %v", err)
		return
	}
	defer conn.Close()

	events := bus.Subscribe()
	for ev := range events {
		if err := conn.WriteJSON(ev); err != nil {
			log.Printf("Write error: %v", err)
			return
		}
	}
}

// NodePayload names a single node in a command body.
type NodePayload struct {
	NodeID protocol.NodeID `json:"node_id"`
}

// LinkPayload names both ends of a link in a command body.
type LinkPayload struct {
	A protocol.NodeID `json:"a"`
	B protocol.NodeID `json:"b"`
}

// DropRatePayload carries a drone's new packet drop rate.
type DropRatePayload struct {
	NodeID protocol.NodeID `json:"node_id"`
	Rate   float64         `json:"rate"`
}

func decode(w http.ResponseWriter, r *http.Request, into interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func commandResult(w http.ResponseWriter, err error, okMsg string) {
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Write([]byte(okMsg))
}

// StartFloodHandler asks a client node to begin a discovery flood.
func StartFloodHandler(net *network.Network) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p NodePayload
		if !decode(w, r, &p) {
			return
		}
		commandResult(w, net.Command(p.NodeID, controller.StartFlood{}), "Flood started")
	}
}

// CrashHandler switches a drone into crashing behavior.
func CrashHandler(net *network.Network) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p NodePayload
		if !decode(w, r, &p) {
			return
		}
		commandResult(w, net.Command(p.NodeID, controller.Crash{}), "Node crashing")
	}
}

// SetDropRateHandler updates a drone's packet drop rate.
func SetDropRateHandler(net *network.Network) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p DropRatePayload
		if !decode(w, r, &p) {
			return
		}
		commandResult(w, net.Command(p.NodeID, controller.SetPacketDropRate{Rate: p.Rate}), "Drop rate set")
	}
}

// AddLinkHandler wires a new link between two existing nodes.
func AddLinkHandler(net *network.Network) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p LinkPayload
		if !decode(w, r, &p) {
			return
		}
		commandResult(w, net.AddLink(p.A, p.B), "Link added")
	}
}

// RemoveLinkHandler tears a link down.
func RemoveLinkHandler(net *network.Network) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p LinkPayload
		if !decode(w, r, &p) {
			return
		}
		commandResult(w, net.RemoveLink(p.A, p.B), "Link removed")
	}
}

// Mux builds the HTTP routing table for the simulator API.
func Mux(bus *controller.Bus, net *network.Network) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		wsHandler(bus, w, r)
	})
	mux.HandleFunc("/nodeAPI/startFlood", StartFloodHandler(net))
	mux.HandleFunc("/nodeAPI/crash", CrashHandler(net))
	mux.HandleFunc("/nodeAPI/setDropRate", SetDropRateHandler(net))
	mux.HandleFunc("/nodeAPI/addLink", AddLinkHandler(net))
	mux.HandleFunc("/nodeAPI/removeLink", RemoveLinkHandler(net))
	return mux
}

// StartServer serves the API until the process exits.
func StartServer(addr string, bus *controller.Bus, net *network.Network) {
	log.Printf("Server started on %s", addr)
	log.Fatal(http.ListenAndServe(addr, Mux(bus, net)))
}
