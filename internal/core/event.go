package core

import "encoding/json"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventRoomMessage notifies clients about a chat message in a room.
	EventRoomMessage EventKind = iota
	// EventHistory delivers recent messages to a client upon joining a room.
	EventHistory
	// EventOnlineUsers carries the full list of online usernames.
	EventOnlineUsers
	// EventUserJoined notifies clients that a user came online.
	EventUserJoined
	// EventUserLeft notifies clients that a user went offline.
	EventUserLeft
	// EventUserGroups delivers the client's own group list after hello.
	EventUserGroups
	// EventGroupCreated confirms group creation to the creator.
	EventGroupCreated
	// EventNewGroup announces a new group to everyone online.
	EventNewGroup
	// EventGroupJoined notifies room members that a user joined the room.
	EventGroupJoined
	// EventTyping relays a typing indicator within a room.
	EventTyping
	// EventError notifies a client about a domain error.
	EventError

	// Call events
	// EventCallStarted confirms to the caller that the call was created.
	EventCallStarted
	// EventCallIncoming notifies resolved receivers of an incoming call.
	EventCallIncoming
	// EventCallAccepted notifies participants that someone accepted.
	EventCallAccepted
	// EventCallRejected notifies the caller that a receiver rejected.
	EventCallRejected
	// EventCallEnded notifies participants that the call is over.
	EventCallEnded

	// WebRTC relay events
	EventSignalOffer
	EventSignalAnswer
	EventSignalICECandidate
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind     EventKind
	Room     string
	User     string
	Typing   bool
	Message  Message
	Messages []Message // EventHistory
	Users    []string  // EventOnlineUsers
	Groups   []RoomInfo
	Error    *CoreError
	Call     *CallEvent   // non-nil for call events
	Signal   *SignalEvent // non-nil for relay events
}

// CallEvent holds data specific to call lifecycle events.
type CallEvent struct {
	CallID       string
	Kind         CallKind
	Caller       string
	TargetType   TargetType
	Target       string
	GroupName    string // group calls only
	By           string // who accepted/rejected/ended
	Participants []string
	Reason       string
}

// SignalEvent holds a relayed WebRTC negotiation payload.
type SignalEvent struct {
	CallID  string
	From    string
	Payload json.RawMessage
}
