package core

const (
	// AssistantName authors simulated assistant replies.
	AssistantName = "AI Assistant"
	// SystemName is reserved for server notices.
	SystemName = "System"
)
