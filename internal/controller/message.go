package controller

import (
	"encoding/json"

	"dronenet-simulation/internal/protocol"
)

// ServerType tells clients what a server can do for them.
type ServerType string

const (
	ServerContent       ServerType = "CONTENT"
	ServerCommunication ServerType = "COMMUNICATION"
	ServerUndefined     ServerType = "UNDEFINED"
)

type MessageKind string

const (
	MsgServerTypeRequest  MessageKind = "SERVER_TYPE_REQUEST"
	MsgServerTypeResponse MessageKind = "SERVER_TYPE_RESPONSE"
	MsgFileListRequest    MessageKind = "FILE_LIST_REQUEST"
	MsgFileListResponse   MessageKind = "FILE_LIST_RESPONSE"
	MsgFileRequest        MessageKind = "FILE_REQUEST"
	MsgFileFound          MessageKind = "FILE_FOUND"
	MsgRegister           MessageKind = "REGISTER"
	MsgRegisterSuccess    MessageKind = "REGISTER_SUCCESS"
	MsgClientListRequest  MessageKind = "CLIENT_LIST_REQUEST"
	MsgClientListResponse MessageKind = "CLIENT_LIST_RESPONSE"
	MsgChat               MessageKind = "CHAT"
	MsgError              MessageKind = "ERROR"
)

// Message is the application-level vocabulary clients and servers exchange
// inside fragments. One struct covers all variants; unused fields stay at
// their zero value and are omitted from the encoding. The protocol core
// never looks inside it.
type Message struct {
	Kind       MessageKind       `json:"kind"`
	Sender     protocol.NodeID   `json:"sender"`
	ServerType ServerType        `json:"server_type,omitempty"`
	Files      []string          `json:"files,omitempty"`
	Filename   string            `json:"filename,omitempty"`
	File       string            `json:"file,omitempty"`
	Clients    []protocol.NodeID `json:"clients,omitempty"`
	Server     protocol.NodeID   `json:"server,omitempty"`
	Recipient  protocol.NodeID   `json:"recipient,omitempty"`
	Text       string            `json:"text,omitempty"`
}

// Encode serialises the message into the byte stream fragments carry.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeMessage rebuilds a message from reassembled fragment bytes.
func DecodeMessage(data []byte) (Message, error) {
	var m Message
	err := json.Unmarshal(data, &m)
	return m, err
}
