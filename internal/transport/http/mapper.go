package http

import (
	"encoding/json"

	"github.com/noknowgram/server/internal/core"
	"github.com/noknowgram/server/internal/proto"
)

// inboundToCommand maps a wire envelope onto a core command. A non-nil
// proto.Error means the envelope was understood but invalid; a non-nil error
// means the envelope could not be decoded at all and the connection should
// drop.
func inboundToCommand(inbound proto.Inbound, validateToken func(string) (string, error)) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeHello:
		var hello proto.HelloData
		if err := json.Unmarshal(inbound.Data, &hello); err != nil {
			return nil, nil, err
		}
		user := hello.User
		if hello.Token != "" {
			tokenUser, err := validateToken(hello.Token)
			if err != nil {
				return nil, &proto.Error{Code: core.ErrCodeUnauthorized, Msg: "invalid token"}, nil
			}
			// The validated identity wins over whatever the client claims.
			user = tokenUser
		}
		if user == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "user is required"}, nil
		}
		return &core.Command{Kind: core.CommandHello, User: user}, nil, nil

	case proto.InboundTypeJoinRoom:
		var join proto.JoinRoomData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return nil, nil, err
		}
		if join.Room == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "room is required"}, nil
		}
		return &core.Command{Kind: core.CommandJoinRoom, Room: join.Room}, nil, nil

	case proto.InboundTypeCreateGroup:
		var group proto.CreateGroupData
		if err := json.Unmarshal(inbound.Data, &group); err != nil {
			return nil, nil, err
		}
		if group.Name == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "name is required"}, nil
		}
		return &core.Command{
			Kind:  core.CommandCreateGroup,
			Group: core.GroupRequest{Name: group.Name, Members: group.Members},
		}, nil, nil

	case proto.InboundTypeMsg:
		var msg proto.MsgData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, nil, err
		}
		if msg.Room == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "room is required"}, nil
		}
		kind := core.MessageKind(msg.Kind)
		if kind == "" {
			kind = core.MessageText
			if msg.File != nil {
				kind = core.MessageFile
			}
		}
		var file *core.FileRef
		if msg.File != nil {
			file = &core.FileRef{ID: msg.File.ID, Name: msg.File.Name, URL: msg.File.URL}
		}
		return &core.Command{
			Kind: core.CommandSendMessage,
			Room: msg.Room,
			Message: core.Message{
				Room: msg.Room,
				Text: msg.Text,
				File: file,
				Kind: kind,
			},
		}, nil, nil

	case proto.InboundTypeTyping:
		var typing proto.TypingData
		if err := json.Unmarshal(inbound.Data, &typing); err != nil {
			return nil, nil, err
		}
		if typing.Room == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "room is required"}, nil
		}
		return &core.Command{Kind: core.CommandTyping, Room: typing.Room, Typing: typing.IsTyping}, nil, nil

	case proto.InboundTypeStartCall:
		var start proto.StartCallData
		if err := json.Unmarshal(inbound.Data, &start); err != nil {
			return nil, nil, err
		}
		kind := core.CallKind(start.Kind)
		if kind == "" {
			kind = core.CallVoice
		}
		if kind != core.CallVoice && kind != core.CallVideo {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "unknown call kind"}, nil
		}
		targetType := core.TargetType(start.TargetType)
		if targetType == "" {
			targetType = core.TargetUser
		}
		if targetType != core.TargetUser && targetType != core.TargetGroup {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "unknown target type"}, nil
		}
		if start.Target == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "target is required"}, nil
		}
		return &core.Command{
			Kind: core.CommandStartCall,
			Call: core.CallRequest{Kind: kind, TargetType: targetType, Target: start.Target},
		}, nil, nil

	case proto.InboundTypeAcceptCall, proto.InboundTypeRejectCall, proto.InboundTypeEndCall:
		var ctl proto.CallControlData
		if err := json.Unmarshal(inbound.Data, &ctl); err != nil {
			return nil, nil, err
		}
		if ctl.CallID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "call_id is required"}, nil
		}
		kind := core.CommandAcceptCall
		switch inbound.Type {
		case proto.InboundTypeRejectCall:
			kind = core.CommandRejectCall
		case proto.InboundTypeEndCall:
			kind = core.CommandEndCall
		}
		return &core.Command{Kind: kind, Call: core.CallRequest{ID: ctl.CallID}}, nil, nil

	case proto.InboundTypeOffer, proto.InboundTypeAnswer, proto.InboundTypeICE:
		var sig proto.SignalData
		if err := json.Unmarshal(inbound.Data, &sig); err != nil {
			return nil, nil, err
		}
		if sig.CallID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "call_id is required"}, nil
		}
		kind := core.SignalOffer
		switch inbound.Type {
		case proto.InboundTypeAnswer:
			kind = core.SignalAnswer
		case proto.InboundTypeICE:
			kind = core.SignalICECandidate
		}
		return &core.Command{
			Kind:   core.CommandSignal,
			Signal: core.SignalRequest{Kind: kind, CallID: sig.CallID, To: sig.To, Payload: sig.Payload},
		}, nil, nil

	default:
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "unknown message type"}, nil
	}
}

func eventMessage(m core.Message) proto.EventMessage {
	var file *proto.FileRef
	if m.File != nil {
		file = &proto.FileRef{ID: m.File.ID, Name: m.File.Name, URL: m.File.URL}
	}
	return proto.EventMessage{
		ID:   m.ID,
		Room: m.Room,
		User: m.From,
		Text: m.Text,
		File: file,
		Kind: string(m.Kind),
		Seq:  m.Seq,
		TS:   m.CreatedAt.Unix(),
	}
}

func groupInfo(r core.RoomInfo) proto.GroupInfo {
	return proto.GroupInfo{
		ID:         r.ID,
		Name:       r.Name,
		Visibility: string(r.Visibility),
		Creator:    r.Creator,
		Members:    r.Members,
	}
}

func callEvent(c *core.CallEvent, kind core.EventKind) proto.EventCall {
	ev := proto.EventCall{
		CallID:       c.CallID,
		Kind:         string(c.Kind),
		Caller:       c.Caller,
		TargetType:   string(c.TargetType),
		Target:       c.Target,
		GroupName:    c.GroupName,
		Participants: c.Participants,
		Reason:       c.Reason,
	}
	switch kind {
	case core.EventCallAccepted:
		ev.AcceptedBy = c.By
	case core.EventCallRejected:
		ev.RejectedBy = c.By
	case core.EventCallEnded:
		ev.EndedBy = c.By
	}
	return ev
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	outEvent := func(name string, data any) proto.Outbound {
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: name, Data: data}
	}

	switch event.Kind {
	case core.EventRoomMessage:
		return outEvent("new_message", eventMessage(event.Message))
	case core.EventHistory:
		messages := make([]proto.EventMessage, 0, len(event.Messages))
		for _, msg := range event.Messages {
			messages = append(messages, eventMessage(msg))
		}
		return outEvent("history", proto.EventHistory{Room: event.Room, Messages: messages})
	case core.EventOnlineUsers:
		return outEvent("online_users", proto.EventOnlineUsers{Users: event.Users})
	case core.EventUserJoined:
		return outEvent("user_joined", proto.EventUser{User: event.User})
	case core.EventUserLeft:
		return outEvent("user_left", proto.EventUser{User: event.User})
	case core.EventUserGroups:
		groups := make([]proto.GroupInfo, 0, len(event.Groups))
		for _, g := range event.Groups {
			groups = append(groups, groupInfo(g))
		}
		return outEvent("user_groups", proto.EventUserGroups{Groups: groups})
	case core.EventGroupCreated, core.EventNewGroup, core.EventGroupJoined:
		name := map[core.EventKind]string{
			core.EventGroupCreated: "group_created",
			core.EventNewGroup:     "new_group",
			core.EventGroupJoined:  "group_joined",
		}[event.Kind]
		data := proto.EventGroup{Room: event.Room, User: event.User}
		if len(event.Groups) > 0 {
			g := groupInfo(event.Groups[0])
			data.Group = &g
		}
		return outEvent(name, data)
	case core.EventTyping:
		return outEvent("user_typing", proto.EventTyping{Room: event.Room, User: event.User, IsTyping: event.Typing})
	case core.EventCallStarted, core.EventCallIncoming, core.EventCallAccepted, core.EventCallRejected, core.EventCallEnded:
		name := map[core.EventKind]string{
			core.EventCallStarted:  "call_started",
			core.EventCallIncoming: "incoming_call",
			core.EventCallAccepted: "call_accepted",
			core.EventCallRejected: "call_rejected",
			core.EventCallEnded:    "call_ended",
		}[event.Kind]
		if event.Call == nil {
			return proto.Outbound{Type: proto.OutboundTypeEvent, Event: name}
		}
		return outEvent(name, callEvent(event.Call, event.Kind))
	case core.EventSignalOffer, core.EventSignalAnswer, core.EventSignalICECandidate:
		name := map[core.EventKind]string{
			core.EventSignalOffer:        "webrtc_offer",
			core.EventSignalAnswer:       "webrtc_answer",
			core.EventSignalICECandidate: "webrtc_ice_candidate",
		}[event.Kind]
		if event.Signal == nil {
			return proto.Outbound{Type: proto.OutboundTypeEvent, Event: name}
		}
		return outEvent(name, proto.EventSignal{
			CallID:  event.Signal.CallID,
			From:    event.Signal.From,
			Payload: event.Signal.Payload,
		})
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}
