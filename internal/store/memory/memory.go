package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/vovakirdan/studychat-server/internal/store"
)

var errClosed = errors.New("store closed")

// Store keeps messages in a process-local slice. History is lost on restart.
type Store struct {
	mu       sync.RWMutex
	messages []store.Message
	closed   bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{}
}

// Append adds a message to the end of the history.
func (s *Store) Append(_ context.Context, msg store.Message) (store.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.Message{}, store.Wrap("append", errClosed)
	}
	s.messages = append(s.messages, msg)
	return msg, nil
}

// ListAll returns a copy of the history in append order.
func (s *Store) ListAll(_ context.Context) ([]store.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, store.Wrap("list", errClosed)
	}
	out := make([]store.Message, len(s.messages))
	copy(out, s.messages)
	return out, nil
}

// Close marks the store as closed; later calls fail.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
