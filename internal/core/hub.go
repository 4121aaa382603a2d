package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// SnapshotStore persists appended messages best-effort. Failures are logged,
// never surfaced: durability across restarts is not a guarantee of the hub.
type SnapshotStore interface {
	SaveMessage(ctx context.Context, msg Message) error
}

type opKind int

const (
	opRegister opKind = iota
	opUnregister
	opCommand
)

type hubOp struct {
	kind   opKind
	client *Client
	cmd    *Command
}

// Hub is the single coordination point: it consumes client commands, drives
// the presence/membership/log/call registries, and fans events out. All
// command handling runs on the Run goroutine, so registry mutations never
// interleave a partial update.
type Hub struct {
	presence *Presence
	rooms    *Rooms
	msglog   *MessageLog
	calls    *CallManager
	relay    *Relay
	snap     SnapshotStore

	inbox        chan hubOp
	clients      map[*Client]struct{}
	historyLimit int
	log          zerolog.Logger
}

// NewHub wires the registries together. snap may be nil to disable the
// message snapshot.
func NewHub(presence *Presence, rooms *Rooms, msglog *MessageLog, calls *CallManager, relay *Relay, snap SnapshotStore, logger *zerolog.Logger) *Hub {
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	h := &Hub{
		presence:     presence,
		rooms:        rooms,
		msglog:       msglog,
		calls:        calls,
		relay:        relay,
		snap:         snap,
		inbox:        make(chan hubOp, 256),
		clients:      make(map[*Client]struct{}),
		historyLimit: 50,
		log:          l,
	}
	// Presence cascade: any path that takes a user offline also ends the
	// calls that user was in, so stale routes are never used.
	presence.Watch(func(username string, online bool) {
		if !online {
			calls.HandleDisconnect(username)
		}
	})
	return h
}

// RegisterClient attaches a connected client to the hub and starts pumping
// its commands. Presence registration happens later, on the hello command.
func (h *Hub) RegisterClient(c *Client) {
	h.inbox <- hubOp{kind: opRegister, client: c}
	go h.pump(c)
}

// UnregisterClient detaches a client, cascading presence and call cleanup.
func (h *Hub) UnregisterClient(c *Client) {
	h.inbox <- hubOp{kind: opUnregister, client: c}
}

func (h *Hub) pump(c *Client) {
	for cmd := range c.Commands {
		h.inbox <- hubOp{kind: opCommand, client: c, cmd: cmd}
	}
}

// Run processes hub operations until the context is canceled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				c.Close()
			}
			return
		case op := <-h.inbox:
			switch op.kind {
			case opRegister:
				h.clients[op.client] = struct{}{}
			case opUnregister:
				h.handleDisconnect(op.client)
			case opCommand:
				h.handleCommand(ctx, op.client, op.cmd)
			}
		}
	}
}

func (h *Hub) handleCommand(ctx context.Context, c *Client, cmd *Command) {
	if cmd.Kind != CommandHello && c.Name == "" {
		c.Send(&Event{Kind: EventError, Error: coreError(ErrCodeUnauthorized, "hello required")})
		return
	}

	switch cmd.Kind {
	case CommandHello:
		h.handleHello(c, cmd.User)
	case CommandJoinRoom:
		h.handleJoinRoom(c, cmd.Room)
	case CommandCreateGroup:
		h.handleCreateGroup(c, cmd.Group)
	case CommandSendMessage:
		h.handleMessage(ctx, c, cmd)
	case CommandTyping:
		h.broadcastRoom(cmd.Room, &Event{Kind: EventTyping, Room: cmd.Room, User: c.Name, Typing: cmd.Typing})
	case CommandStartCall:
		if _, err := h.calls.Start(c.Name, cmd.Call.Kind, cmd.Call.TargetType, cmd.Call.Target); err != nil {
			c.Send(&Event{Kind: EventError, Error: errorFor(err)})
		}
	case CommandAcceptCall:
		h.handleAccept(c, cmd.Call.ID)
	case CommandRejectCall:
		if err := h.calls.Reject(cmd.Call.ID, c.Name); err != nil {
			c.Send(&Event{Kind: EventError, Error: errorFor(err)})
		}
	case CommandEndCall:
		if err := h.calls.End(cmd.Call.ID, c.Name); err != nil {
			c.Send(&Event{Kind: EventError, Error: errorFor(err)})
		}
	case CommandSignal:
		h.handleSignal(c, cmd.Signal)
	default:
		c.Send(&Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, "unknown command")})
	}
}

func (h *Hub) handleHello(c *Client, username string) {
	if username == "" {
		c.Send(&Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, "username is required")})
		return
	}
	if c.Name != "" {
		c.Send(&Event{Kind: EventError, Error: coreError(ErrCodeConflict, "already introduced")})
		return
	}

	prev := h.presence.Register(username, c)
	if prev != nil {
		// Reconnect under the same username: run the full disconnect
		// cascade for the stale session before kicking it.
		h.calls.HandleDisconnect(username)
		prev.Close()
		h.log.Info().Str("user", username).Msg("replaced stale connection")
	}
	c.Name = username

	for _, seed := range h.rooms.Seeds() {
		if err := h.rooms.Join(username, seed); err != nil {
			h.log.Warn().Err(err).Str("room", seed).Msg("seed join failed")
		}
	}

	c.Send(&Event{Kind: EventUserGroups, User: username, Groups: h.rooms.GroupsFor(username)})
	h.broadcastAll(&Event{Kind: EventUserJoined, User: username})
	h.broadcastAll(&Event{Kind: EventOnlineUsers, Users: h.presence.Online()})
	h.log.Info().Str("user", username).Msg("user online")
}

func (h *Hub) handleJoinRoom(c *Client, roomID string) {
	if err := h.rooms.Join(c.Name, roomID); err != nil {
		c.Send(&Event{Kind: EventError, Error: errorFor(err)})
		return
	}
	h.broadcastRoom(roomID, &Event{Kind: EventGroupJoined, Room: roomID, User: c.Name})
	c.Send(&Event{Kind: EventHistory, Room: roomID, Messages: h.msglog.Recent(roomID, h.historyLimit)})
}

func (h *Hub) handleCreateGroup(c *Client, req GroupRequest) {
	if req.Name == "" {
		c.Send(&Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, "group name is required")})
		return
	}
	info := h.rooms.CreateGroup(c.Name, req.Name, req.Members)
	c.Send(&Event{Kind: EventGroupCreated, Room: info.ID, Groups: []RoomInfo{info}})
	h.broadcastAll(&Event{Kind: EventNewGroup, Room: info.ID, User: c.Name, Groups: []RoomInfo{info}})
	h.log.Info().Str("group", info.ID).Str("creator", c.Name).Msg("group created")
}

func (h *Hub) handleMessage(ctx context.Context, c *Client, cmd *Command) {
	msg, err := h.msglog.Append(cmd.Room, c.Name, cmd.Message.Text, cmd.Message.File, cmd.Message.Kind)
	if err != nil {
		c.Send(&Event{Kind: EventError, Error: errorFor(err)})
		return
	}

	if h.snap != nil {
		saveCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := h.snap.SaveMessage(saveCtx, msg); err != nil {
			h.log.Warn().Err(err).Str("room", msg.Room).Msg("message snapshot failed")
		}
		cancel()
	}

	h.broadcastRoom(msg.Room, &Event{Kind: EventRoomMessage, Room: msg.Room, Message: msg})
}

func (h *Hub) handleAccept(c *Client, callID string) {
	if err := h.calls.Accept(callID, c.Name); err != nil {
		c.Send(&Event{Kind: EventError, Error: errorFor(err)})
		return
	}
	// Late joiner in a group call gets the most recent offer, when one is
	// still cached.
	if payload, from, ok := h.relay.LastOffer(callID); ok && from != c.Name {
		c.Send(&Event{Kind: EventSignalOffer, Signal: &SignalEvent{CallID: callID, From: from, Payload: payload}})
	}
}

func (h *Hub) handleSignal(c *Client, req SignalRequest) {
	var err error
	switch req.Kind {
	case SignalOffer:
		err = h.relay.Offer(req.CallID, c.Name, req.To, req.Payload)
	case SignalAnswer:
		err = h.relay.Answer(req.CallID, c.Name, req.To, req.Payload)
	case SignalICECandidate:
		err = h.relay.ICECandidate(req.CallID, c.Name, req.To, req.Payload)
	default:
		err = ErrInvalidState
	}
	if err != nil {
		c.Send(&Event{Kind: EventError, Error: errorFor(err)})
	}
}

func (h *Hub) handleDisconnect(c *Client) {
	delete(h.clients, c)
	username, ok := h.presence.Unregister(c)
	if ok {
		// The presence watcher has already ended the user's calls.
		h.broadcastAll(&Event{Kind: EventUserLeft, User: username})
		h.broadcastAll(&Event{Kind: EventOnlineUsers, Users: h.presence.Online()})
		h.log.Info().Str("user", username).Msg("user offline")
	}
	c.Close()
}

// broadcastAll delivers an event to every online user.
func (h *Hub) broadcastAll(ev *Event) {
	for _, username := range h.presence.Online() {
		if client, ok := h.presence.Lookup(username); ok {
			client.Send(ev)
		}
	}
}

// broadcastRoom resolves the recipient set (room members intersected with
// online presence) before dispatch, then delivers best-effort. Returns the
// usernames actually delivered to.
func (h *Hub) broadcastRoom(roomID string, ev *Event) []string {
	members, err := h.rooms.Members(roomID)
	if err != nil {
		return nil
	}
	delivered := make([]string, 0, len(members))
	for _, username := range members {
		client, ok := h.presence.Lookup(username)
		if !ok {
			continue
		}
		if client.Send(ev) {
			delivered = append(delivered, username)
		}
	}
	return delivered
}
