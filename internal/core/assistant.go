package core

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/studychat-server/internal/store"
)

const (
	// DefaultAssistantDelay is how long the simulated assistant "thinks" before replying.
	DefaultAssistantDelay = 1500 * time.Millisecond
	// DefaultAssistantTrigger is the prefix that addresses the assistant.
	DefaultAssistantTrigger = "@ai"
)

// ResponderConfig configures the simulated assistant.
type ResponderConfig struct {
	Delay   time.Duration
	Trigger string
}

// ReplyFunc receives a finished assistant reply text.
type ReplyFunc func(text string)

// Responder schedules delayed replies to messages that start with the trigger.
// Every pending reply is a timer owned by the responder; Stop cancels them all.
type Responder struct {
	delay   time.Duration
	trigger string
	log     *zerolog.Logger

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]*time.Timer
	stopped bool
}

// NewResponder builds a responder. Zero config fields fall back to defaults.
func NewResponder(cfg ResponderConfig, logger *zerolog.Logger) *Responder {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultAssistantDelay
	}
	if cfg.Trigger == "" {
		cfg.Trigger = DefaultAssistantTrigger
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Responder{
		delay:   cfg.Delay,
		trigger: strings.ToLower(cfg.Trigger),
		log:     logger,
		pending: make(map[uint64]*time.Timer),
	}
}

// Query extracts the question following the trigger token.
// ok is false when text does not address the assistant.
func (r *Responder) Query(text string) (query string, ok bool) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < len(r.trigger) || !strings.EqualFold(trimmed[:len(r.trigger)], r.trigger) {
		return "", false
	}
	return strings.TrimSpace(trimmed[len(r.trigger):]), true
}

// Reply renders the assistant answer for author and query.
func Reply(author, query string) string {
	return fmt.Sprintf("Hello, %s. You asked about \"%s\". I am a simulated assistant.", author, query)
}

// MaybeRespond schedules a reply to msg when it addresses the assistant.
// Messages authored by the assistant itself never trigger a reply.
func (r *Responder) MaybeRespond(msg store.Message, deliver ReplyFunc) bool {
	if msg.Text == nil || msg.User == AssistantName {
		return false
	}
	query, ok := r.Query(*msg.Text)
	if !ok {
		return false
	}
	text := Reply(msg.User, query)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return false
	}

	id := r.nextID
	r.nextID++
	r.pending[id] = time.AfterFunc(r.delay, func() {
		r.mu.Lock()
		_, live := r.pending[id]
		delete(r.pending, id)
		r.mu.Unlock()
		if !live {
			return
		}
		deliver(text)
	})

	r.log.Debug().Str("user", msg.User).Str("query", query).Msg("assistant reply scheduled")
	return true
}

// Pending returns the number of replies waiting on their timer.
func (r *Responder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Stop cancels every pending reply. Later calls to MaybeRespond are ignored.
func (r *Responder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopped = true
	for id, t := range r.pending {
		t.Stop()
		delete(r.pending, id)
	}
}
