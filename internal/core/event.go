package core

import "github.com/vovakirdan/studychat-server/internal/store"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventUsername tells a client which display name it was assigned.
	EventUsername EventKind = iota
	// EventHistory delivers the stored transcript to a newly connected client.
	EventHistory
	// EventMessage notifies clients about a newly persisted chat message.
	EventMessage
	// EventOnlineUsers carries the current roster.
	EventOnlineUsers
)

func (k EventKind) String() string {
	switch k {
	case EventUsername:
		return "username"
	case EventHistory:
		return "history"
	case EventMessage:
		return "message"
	case EventOnlineUsers:
		return "online_users"
	default:
		return "unknown"
	}
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind     EventKind
	User     string          // EventUsername
	Message  store.Message   // EventMessage
	Messages []store.Message // EventHistory
	Users    []string        // EventOnlineUsers
}
