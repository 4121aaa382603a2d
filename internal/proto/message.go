package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeHello       = "hello"
	InboundTypeJoinRoom    = "join_room"
	InboundTypeCreateGroup = "create_group"
	InboundTypeMsg         = "msg"
	InboundTypeTyping      = "typing"
	InboundTypeStartCall   = "start_call"
	InboundTypeAcceptCall  = "accept_call"
	InboundTypeRejectCall  = "reject_call"
	InboundTypeEndCall     = "end_call"
	InboundTypeOffer       = "webrtc_offer"
	InboundTypeAnswer      = "webrtc_answer"
	InboundTypeICE         = "webrtc_ice_candidate"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// HelloData is sent by the client to introduce itself. Token is optional;
// when present it must validate and the username inside it wins.
type HelloData struct {
	User     string `json:"user"`
	Token    string `json:"token,omitempty"`
	Protocol int    `json:"protocol,omitempty"`
}

// JoinRoomData requests to join a specific room.
type JoinRoomData struct {
	Room string `json:"room"`
}

// CreateGroupData requests a new private group.
type CreateGroupData struct {
	Name    string   `json:"name"`
	Members []string `json:"members,omitempty"`
}

// FileRef is an uploaded-file reference carried inside a message.
type FileRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// MsgData is a chat message from the client.
type MsgData struct {
	Room string   `json:"room"`
	Text string   `json:"text,omitempty"`
	File *FileRef `json:"file,omitempty"`
	Kind string   `json:"kind,omitempty"`
}

// TypingData is a typing indicator.
type TypingData struct {
	Room     string `json:"room"`
	IsTyping bool   `json:"is_typing"`
}

// StartCallData initiates a call against a user or a group room.
type StartCallData struct {
	Kind       string `json:"kind"` // voice | video
	TargetType string `json:"target_type"`
	Target     string `json:"target"`
}

// CallControlData addresses an existing call.
type CallControlData struct {
	CallID string `json:"call_id"`
}

// SignalData carries a WebRTC negotiation payload. To may be empty for group
// fan-out.
type SignalData struct {
	CallID  string          `json:"call_id"`
	To      string          `json:"to,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventMessage is a chat message delivered to room members.
type EventMessage struct {
	ID   string   `json:"id"`
	Room string   `json:"room"`
	User string   `json:"user"`
	Text string   `json:"text,omitempty"`
	File *FileRef `json:"file,omitempty"`
	Kind string   `json:"kind"`
	Seq  uint64   `json:"seq"`
	TS   int64    `json:"ts"`
}

// EventHistory delivers recent room messages on join.
type EventHistory struct {
	Room     string         `json:"room"`
	Messages []EventMessage `json:"messages"`
}

// EventOnlineUsers carries the current online user list.
type EventOnlineUsers struct {
	Users []string `json:"users"`
}

// EventUser announces a user coming online or going offline.
type EventUser struct {
	User string `json:"username"`
}

// GroupInfo describes a room/group for the client.
type GroupInfo struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Visibility string   `json:"visibility"`
	Creator    string   `json:"creator,omitempty"`
	Members    []string `json:"members"`
}

// EventUserGroups delivers the client's own group list.
type EventUserGroups struct {
	Groups []GroupInfo `json:"groups"`
}

// EventGroup announces group creation or membership changes.
type EventGroup struct {
	Room  string     `json:"room"`
	User  string     `json:"user,omitempty"`
	Group *GroupInfo `json:"group,omitempty"`
}

// EventTyping relays a typing indicator.
type EventTyping struct {
	Room     string `json:"room"`
	User     string `json:"username"`
	IsTyping bool   `json:"is_typing"`
}

// EventCall describes a call lifecycle notification.
type EventCall struct {
	CallID       string   `json:"call_id"`
	Kind         string   `json:"kind,omitempty"`
	Caller       string   `json:"caller,omitempty"`
	TargetType   string   `json:"target_type,omitempty"`
	Target       string   `json:"target,omitempty"`
	GroupName    string   `json:"group_name,omitempty"`
	AcceptedBy   string   `json:"accepted_by,omitempty"`
	RejectedBy   string   `json:"rejected_by,omitempty"`
	EndedBy      string   `json:"ended_by,omitempty"`
	Participants []string `json:"participants,omitempty"`
	Reason       string   `json:"reason,omitempty"`
}

// EventSignal delivers a relayed WebRTC payload.
type EventSignal struct {
	CallID  string          `json:"call_id"`
	From    string          `json:"from"`
	Payload json.RawMessage `json:"payload"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
