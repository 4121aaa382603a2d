package core

import "encoding/json"

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandHello registers the client's username with the presence registry.
	CommandHello CommandKind = iota
	// CommandJoinRoom subscribes the client to a room.
	CommandJoinRoom
	// CommandCreateGroup creates a private group room.
	CommandCreateGroup
	// CommandSendMessage delivers a chat message to room members.
	CommandSendMessage
	// CommandTyping relays a typing indicator to room members.
	CommandTyping
	// CommandStartCall initiates a voice/video call.
	CommandStartCall
	// CommandAcceptCall accepts a ringing call.
	CommandAcceptCall
	// CommandRejectCall rejects a ringing call.
	CommandRejectCall
	// CommandEndCall terminates a call.
	CommandEndCall
	// CommandSignal relays a WebRTC negotiation payload.
	CommandSignal
)

// SignalKind is the flavor of a relayed WebRTC payload.
type SignalKind int

const (
	SignalOffer SignalKind = iota
	SignalAnswer
	SignalICECandidate
)

// GroupRequest carries parameters for CommandCreateGroup.
type GroupRequest struct {
	Name    string
	Members []string
}

// CallRequest carries parameters for call-control commands.
type CallRequest struct {
	ID         string
	Kind       CallKind
	TargetType TargetType
	Target     string
}

// SignalRequest carries a relayed negotiation payload.
type SignalRequest struct {
	Kind    SignalKind
	CallID  string
	To      string
	Payload json.RawMessage
}

// Command represents an action requested by a client.
type Command struct {
	Kind    CommandKind
	User    string // CommandHello
	Room    string
	Typing  bool
	Message Message
	Group   GroupRequest
	Call    CallRequest
	Signal  SignalRequest
}
