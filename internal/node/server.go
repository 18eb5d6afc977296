package node

import (
	"dronenet-simulation/internal/controller"
	"dronenet-simulation/internal/logging"
	"dronenet-simulation/internal/protocol"
)

// Server answers client requests. A content server serves its file set; a
// communication server registers clients and relays chat between them.
type Server struct {
	base

	asm        *assembler
	serverType controller.ServerType

	// files is the content catalog, name -> body.
	files map[string]string

	// registered remembers, per registered client, the reply route learned
	// from its registration message.
	registered map[protocol.NodeID]protocol.RoutingHeader
}

func NewServer(id protocol.NodeID, serverType controller.ServerType, files map[string]string, seed int64, in chan protocol.Packet, events chan<- controller.Event, core *Core, log *logging.Logger) *Server {
	if files == nil {
		files = make(map[string]string)
	}
	return &Server{
		base:       newBase(id, seed, in, events, core, log),
		asm:        newAssembler(),
		serverType: serverType,
		files:      files,
		registered: make(map[protocol.NodeID]protocol.RoutingHeader),
	}
}

// Run drives the server until it is stopped.
func (s *Server) Run() {
	s.runLoop(s, protocol.TypeServer)
}

func (s *Server) HandleRoutedPacket(pkt protocol.Packet) bool {
	switch p := pkt.Payload.(type) {
	case protocol.Fragment:
		s.core.Forward(s, protocol.BuildAck(pkt))
		if data, done := s.asm.add(pkt.Session, p); done {
			msg, err := controller.DecodeMessage(data)
			if err != nil {
				s.log.Error(s.id, "undecodable message in session %d: %v", pkt.Session, err)
				return false
			}
			s.handleRequest(msg, pkt.Header.Reversed())
		}
	case protocol.Ack:
		// nothing to do, delivery bookkeeping is the client's concern
	case protocol.Nack:
		s.log.Error(s.id, "fragment %d of session %d failed: %s", p.FragmentIndex, pkt.Session, p.NackKind)
	case protocol.FloodResponse:
		// servers do not initiate floods; a stray response is harmless
		s.log.Status(s.id, "ignoring flood response for flood %d", p.FloodID)
	}
	return false
}

// handleRequest answers one reassembled client message. replyRoute is the
// reversed route of the request and addresses the requester.
func (s *Server) handleRequest(msg controller.Message, replyRoute protocol.RoutingHeader) {
	s.log.Status(s.id, "handling %s from %d", msg.Kind, msg.Sender)

	switch msg.Kind {
	case controller.MsgServerTypeRequest:
		s.reply(replyRoute, controller.Message{Kind: controller.MsgServerTypeResponse, Sender: s.id, ServerType: s.serverType})

	case controller.MsgFileListRequest:
		names := make([]string, 0, len(s.files))
		for name := range s.files {
			names = append(names, name)
		}
		s.reply(replyRoute, controller.Message{Kind: controller.MsgFileListResponse, Sender: s.id, Files: names})

	case controller.MsgFileRequest:
		body, ok := s.files[msg.Filename]
		if !ok {
			s.reply(replyRoute, controller.Message{Kind: controller.MsgError, Sender: s.id, Text: "no such file: " + msg.Filename})
			return
		}
		s.reply(replyRoute, controller.Message{Kind: controller.MsgFileFound, Sender: s.id, Filename: msg.Filename, File: body})

	case controller.MsgRegister:
		if s.serverType != controller.ServerCommunication {
			s.reply(replyRoute, controller.Message{Kind: controller.MsgError, Sender: s.id, Text: "not a communication server"})
			return
		}
		s.registered[msg.Sender] = replyRoute
		s.reply(replyRoute, controller.Message{Kind: controller.MsgRegisterSuccess, Sender: s.id})

	case controller.MsgClientListRequest:
		clients := make([]protocol.NodeID, 0, len(s.registered))
		for id := range s.registered {
			clients = append(clients, id)
		}
		s.reply(replyRoute, controller.Message{Kind: controller.MsgClientListResponse, Sender: s.id, Clients: clients})

	case controller.MsgChat:
		route, ok := s.registered[msg.Recipient]
		if !ok {
			s.reply(replyRoute, controller.Message{Kind: controller.MsgError, Sender: s.id, Text: "recipient not registered"})
			return
		}
		s.reply(route, msg)

	default:
		s.reply(replyRoute, controller.Message{Kind: controller.MsgError, Sender: s.id, Text: "unsupported request"})
	}
}

// reply fragments msg and forwards it along route under a fresh session.
func (s *Server) reply(route protocol.RoutingHeader, msg controller.Message) {
	data, err := msg.Encode()
	if err != nil {
		s.log.Error(s.id, "failed to encode %s message: %v", msg.Kind, err)
		return
	}
	session := s.rng.Uint64()
	for _, frag := range fragmentData(data) {
		s.core.Forward(s, protocol.Packet{
			Header:  route,
			Session: session,
			Payload: frag,
		})
	}
}

func (s *Server) HandleCommand(cmd controller.Command) {
	if s.handleCommonCommand(s, cmd) {
		return
	}
	switch sc := cmd.(type) {
	case controller.SetServerType:
		s.serverType = sc.Type
	default:
		s.log.Error(s.id, "unsupported command %T", cmd)
	}
}
