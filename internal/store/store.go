package store

import (
	"context"
	"time"
)

// Attachment describes a file stored next to a chat message.
type Attachment struct {
	Name string // original file name as uploaded
	Path string // public path the file is served from, e.g. /uploads/pdf-123.pdf
}

// Message represents a persisted chat message.
// Messages are immutable once appended.
type Message struct {
	ID        string
	User      string
	Text      *string // nil when the message carries only an attachment
	File      *Attachment
	CreatedAt time.Time
}

// MessageStore handles message persistence for the single global room.
type MessageStore interface {
	// Append persists a message and returns the stored record.
	// The caller assigns ID and CreatedAt; adapters never reorder or rewrite them.
	Append(ctx context.Context, msg Message) (Message, error)

	// ListAll returns every stored message sorted by creation time ascending.
	ListAll(ctx context.Context) ([]Message, error)

	// Close releases the underlying connection.
	Close() error
}

// Error is returned by adapters when a read or write fails.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return "store " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap returns err as a *Error for the given operation, or nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// TextPtr returns a pointer to s, or nil when s is empty.
func TextPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
