package core

// State is the lifecycle stage of a connection.
type State int

const (
	// StateConnecting covers identity assignment and history replay.
	StateConnecting State = iota
	// StateActive clients receive chat broadcasts.
	StateActive
	// StateDisconnected is terminal.
	StateDisconnected
)

// Client is a chat participant as seen by the core layer.
// Name and Slot are assigned by the hub on registration.
type Client struct {
	ID       string
	Name     string
	Slot     int
	Commands chan *Command
	Events   chan *Event

	state  State
	closed chan struct{}
}

// NewClient constructs a client with initialized channels.
func NewClient(id string) *Client {
	return &Client{
		ID:       id,
		Commands: make(chan *Command, 16),
		Events:   make(chan *Event, 64),
		closed:   make(chan struct{}),
	}
}

// Done is closed once the hub has dropped the client.
func (c *Client) Done() <-chan struct{} {
	return c.closed
}

func (c *Client) send(ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	default:
		// Drop if slow consumer.
		return false
	}
}
