package http

import (
	"encoding/json"

	"github.com/vovakirdan/studychat-server/internal/core"
	"github.com/vovakirdan/studychat-server/internal/proto"
	"github.com/vovakirdan/studychat-server/internal/store"
)

const (
	errCodeBadRequest   = "bad_request"
	errCodeUnknownEvent = "unknown_event"
	errCodeRateLimited  = "rate_limited"
)

func inboundToCommand(in proto.Envelope) (*core.Command, *proto.Error) {
	switch in.Event {
	case proto.EventChatMessage:
		var text string
		if err := json.Unmarshal(in.Data, &text); err != nil {
			return nil, &proto.Error{Code: errCodeBadRequest, Msg: "chat-message payload must be a string"}
		}
		return &core.Command{Kind: core.CommandSendMessage, Text: text}, nil
	default:
		return nil, &proto.Error{Code: errCodeUnknownEvent, Msg: "unknown event " + in.Event}
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventUsername:
		return proto.Outbound{Event: proto.EventYourUsername, Data: event.User}
	case core.EventHistory:
		return proto.Outbound{Event: proto.EventChatHistory, Data: messagesToProto(event.Messages)}
	case core.EventMessage:
		return proto.Outbound{Event: proto.EventChatMessage, Data: messageToProto(event.Message)}
	case core.EventOnlineUsers:
		users := event.Users
		if users == nil {
			users = []string{}
		}
		return proto.Outbound{Event: proto.EventOnlineUsers, Data: users}
	default:
		return proto.Outbound{Event: proto.EventError, Data: proto.Error{Code: "unknown", Msg: "unknown event"}}
	}
}

func messageToProto(msg store.Message) proto.Message {
	out := proto.Message{
		ID:        msg.ID,
		User:      msg.User,
		Text:      msg.Text,
		CreatedAt: msg.CreatedAt.UTC(),
	}
	if msg.File != nil {
		out.File = &proto.File{Name: msg.File.Name, Path: msg.File.Path}
	}
	return out
}

func messagesToProto(msgs []store.Message) []proto.Message {
	out := make([]proto.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageToProto(m))
	}
	return out
}
