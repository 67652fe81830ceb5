package proto

import (
	"encoding/json"
	"time"
)

// Envelope frames every WebSocket message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

const (
	// EventYourUsername carries the display name assigned to this connection (string).
	EventYourUsername = "your-username"
	// EventChatHistory carries the ordered transcript ([]Message).
	EventChatHistory = "chat-history"
	// EventChatMessage carries one new message server->client, raw text client->server.
	EventChatMessage = "chat-message"
	// EventOnlineUsers carries the roster ([]string).
	EventOnlineUsers = "online-users"
	// EventError reports a rejected inbound frame.
	EventError = "error"
)

// Message is the persisted message wire shape.
type Message struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Text      *string   `json:"text"`
	File      *File     `json:"file"`
	CreatedAt time.Time `json:"createdAt"`
}

// File describes an attachment.
type File struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
