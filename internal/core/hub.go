package core

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/studychat-server/internal/store"
	"github.com/vovakirdan/studychat-server/internal/store/memory"
)

// HubConfig tunes identity assignment and the assistant.
type HubConfig struct {
	PoolSize      int
	FallbackRange int
	Assistant     ResponderConfig
	// Clock overrides time.Now for message timestamps.
	Clock func() time.Time
}

type origin int

const (
	originUser origin = iota
	originUpload
	originAssistant
)

type clientCommand struct {
	client *Client
	cmd    *Command
}

type uploadRequest struct {
	user  string
	text  string
	file  store.Attachment
	reply chan uploadResult
}

type uploadResult struct {
	msg store.Message
	err error
}

// writeJob is either an append or a history read for a connecting client.
type writeJob struct {
	msg    store.Message
	origin origin
	reply  chan uploadResult
	// history is set for reads; msg is unused then.
	history *Client
}

func (j writeJob) respond(msg store.Message, err error) {
	if j.reply != nil {
		j.reply <- uploadResult{msg: msg, err: err}
	}
}

type writeResult struct {
	job      writeJob
	msg      store.Message
	messages []store.Message
	err      error
}

// Hub is the single broadcasting authority. All presence and ordering state is
// mutated on the Run goroutine; persistence runs on one writer goroutine fed in
// FIFO order, so broadcast order always equals append order.
type Hub struct {
	store     store.MessageStore
	allocator *Allocator
	presence  *Registry
	assistant *Responder
	log       *zerolog.Logger

	clock func() time.Time
	last  time.Time

	register   chan *Client
	unregister chan *Client
	commands   chan clientCommand
	uploads    chan uploadRequest
	replies    chan string
	jobs       chan writeJob
	results    chan writeResult
	queue      []writeJob
	done       chan struct{}
}

// NewHub creates a hub backed by st. A nil store falls back to an in-memory history.
func NewHub(st store.MessageStore, cfg HubConfig, logger *zerolog.Logger) *Hub {
	if st == nil {
		st = memory.New()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	allocator := NewAllocator(cfg.PoolSize, cfg.FallbackRange)
	return &Hub{
		store:      st,
		allocator:  allocator,
		presence:   NewRegistry(allocator),
		assistant:  NewResponder(cfg.Assistant, logger),
		log:        logger,
		clock:      clock,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		commands:   make(chan clientCommand),
		uploads:    make(chan uploadRequest),
		replies:    make(chan string, 16),
		jobs:       make(chan writeJob),
		results:    make(chan writeResult),
		done:       make(chan struct{}),
	}
}

// Presence exposes the registry for read-only snapshots.
func (h *Hub) Presence() *Registry {
	return h.presence
}

// Allocator exposes the identity pool.
func (h *Hub) Allocator() *Allocator {
	return h.allocator
}

// Assistant exposes the responder.
func (h *Hub) Assistant() *Responder {
	return h.assistant
}

// Done is closed after Run returns.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Run processes hub events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.runWriter(ctx)
	}()

	defer func() {
		h.assistant.Stop()
		for _, c := range h.presence.Clients() {
			h.drop(c)
		}
		<-writerDone
		close(h.done)
		h.log.Info().Msg("hub stopped")
	}()

	for {
		var (
			jobs chan writeJob
			next writeJob
		)
		if len(h.queue) > 0 {
			jobs = h.jobs
			next = h.queue[0]
		}

		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.handleRegister(c)
		case c := <-h.unregister:
			h.handleUnregister(c)
		case cc := <-h.commands:
			h.handleCommand(cc.client, cc.cmd)
		case req := <-h.uploads:
			h.handleUpload(req)
		case text := <-h.replies:
			h.enqueue(writeJob{msg: h.newMessage(AssistantName, &text, nil), origin: originAssistant})
		case res := <-h.results:
			h.handleResult(res)
		case jobs <- next:
			h.queue = h.queue[1:]
		}
	}
}

// RegisterClient adds a client to the hub and starts forwarding its commands.
func (h *Hub) RegisterClient(c *Client) error {
	select {
	case h.register <- c:
	case <-h.done:
		return ErrHubClosed
	}
	go h.pump(c)
	return nil
}

// UnregisterClient removes a client from the hub.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// PublishAttachment persists and broadcasts a message with a stored file.
// It returns once the message is durable and broadcast, or with the store error.
func (h *Hub) PublishAttachment(ctx context.Context, user, text string, file store.Attachment) (store.Message, error) {
	req := uploadRequest{user: user, text: text, file: file, reply: make(chan uploadResult, 1)}
	select {
	case h.uploads <- req:
	case <-h.done:
		return store.Message{}, ErrHubClosed
	case <-ctx.Done():
		return store.Message{}, ctx.Err()
	}

	select {
	case res := <-req.reply:
		return res.msg, res.err
	case <-h.done:
		return store.Message{}, ErrHubClosed
	case <-ctx.Done():
		return store.Message{}, ctx.Err()
	}
}

func (h *Hub) pump(c *Client) {
	for {
		select {
		case cmd := <-c.Commands:
			if cmd == nil {
				continue
			}
			select {
			case h.commands <- clientCommand{client: c, cmd: cmd}:
			case <-c.closed:
				return
			case <-h.done:
				return
			}
		case <-c.closed:
			return
		case <-h.done:
			return
		}
	}
}

func (h *Hub) handleRegister(c *Client) {
	slot := h.allocator.Allocate()
	if !h.allocator.InPool(slot) {
		h.log.Warn().Err(ErrPoolExhausted).Int("slot", slot).Msg("using fallback identity")
	}
	c.Slot = slot
	c.Name = DisplayName(slot)
	c.state = StateConnecting
	h.presence.Register(c)

	h.log.Info().Str("conn_id", c.ID).Str("user", c.Name).Msg("client connected")
	h.enqueue(writeJob{history: c})
}

func (h *Hub) handleUnregister(c *Client) {
	if !h.drop(c) {
		return
	}
	h.log.Info().Str("conn_id", c.ID).Str("user", c.Name).Msg("client disconnected")
	h.broadcastPresence()
}

// drop unregisters c and closes its channels. Only called from Run.
func (h *Hub) drop(c *Client) bool {
	if _, ok := h.presence.Unregister(c.ID); !ok {
		return false
	}
	c.state = StateDisconnected
	close(c.closed)
	close(c.Events)
	return true
}

func (h *Hub) handleCommand(c *Client, cmd *Command) {
	switch cmd.Kind {
	case CommandSendMessage:
		sender, ok := h.presence.Lookup(c.ID)
		if !ok {
			h.log.Debug().Err(ErrPresenceMiss).Str("conn_id", c.ID).Msg("dropping inbound message")
			return
		}
		if strings.TrimSpace(cmd.Text) == "" {
			return
		}
		text := cmd.Text
		h.enqueue(writeJob{msg: h.newMessage(sender.Name, &text, nil), origin: originUser})
	default:
		h.log.Debug().Int("kind", int(cmd.Kind)).Str("conn_id", c.ID).Msg("unknown command")
	}
}

func (h *Hub) handleUpload(req uploadRequest) {
	file := req.file
	msg := h.newMessage(req.user, store.TextPtr(req.text), &file)
	h.enqueue(writeJob{msg: msg, origin: originUpload, reply: req.reply})
}

func (h *Hub) handleResult(res writeResult) {
	if c := res.job.history; c != nil {
		h.activate(c, res)
		return
	}

	if res.err != nil {
		h.log.Error().Err(res.err).Str("user", res.job.msg.User).Str("message_id", res.job.msg.ID).Msg("failed to persist message")
		res.job.respond(store.Message{}, res.err)
		return
	}

	if res.job.origin == originUser {
		h.assistant.MaybeRespond(res.msg, h.deliverReply)
	}
	h.broadcastMessage(res.msg)
	res.job.respond(res.msg, nil)
}

// activate finishes CONNECTING: history, then the username, then the roster to everyone.
func (h *Hub) activate(c *Client, res writeResult) {
	if _, ok := h.presence.Lookup(c.ID); !ok {
		return
	}
	history := res.messages
	if res.err != nil {
		h.log.Error().Err(res.err).Str("conn_id", c.ID).Msg("failed to load history")
		history = []store.Message{}
	}
	c.send(&Event{Kind: EventHistory, Messages: history})
	c.send(&Event{Kind: EventUsername, User: c.Name})
	c.state = StateActive
	h.broadcastPresence()
}

func (h *Hub) deliverReply(text string) {
	select {
	case h.replies <- text:
	case <-h.done:
	}
}

func (h *Hub) broadcastMessage(msg store.Message) {
	h.broadcast(&Event{Kind: EventMessage, Message: msg})
}

func (h *Hub) broadcastPresence() {
	h.broadcast(&Event{Kind: EventOnlineUsers, Users: h.presence.Names()})
}

// broadcast fans ev out to every active client. Connecting clients are skipped:
// their pending history read already covers earlier messages, and activation
// sends them a fresh roster.
func (h *Hub) broadcast(ev *Event) {
	for _, c := range h.presence.Clients() {
		if c.state != StateActive {
			continue
		}
		if !c.send(ev) {
			h.log.Warn().Str("conn_id", c.ID).Stringer("event", ev.Kind).Msg("client buffer full, event dropped")
		}
	}
}

func (h *Hub) enqueue(job writeJob) {
	h.queue = append(h.queue, job)
}

// newMessage stamps a message with the authority clock. Timestamps never go backwards.
func (h *Hub) newMessage(user string, text *string, file *store.Attachment) store.Message {
	now := h.clock()
	if now.Before(h.last) {
		now = h.last
	}
	h.last = now
	return store.Message{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		User:      user,
		Text:      text,
		File:      file,
		CreatedAt: now,
	}
}

func (h *Hub) runWriter(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-h.jobs:
			res := h.execute(ctx, job)
			select {
			case h.results <- res:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (h *Hub) execute(ctx context.Context, job writeJob) writeResult {
	if job.history != nil {
		messages, err := h.store.ListAll(ctx)
		return writeResult{job: job, messages: messages, err: err}
	}
	msg, err := h.store.Append(ctx, job.msg)
	return writeResult{job: job, msg: msg, err: err}
}
