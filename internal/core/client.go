package core

import "sync"

// Client is a live connection as seen by the core layer. The transport owns
// the underlying socket; the core only ever pushes events into the buffered
// Events channel.
type Client struct {
	ID       string
	Name     string
	Commands chan *Command
	Events   chan *Event

	mu     sync.Mutex
	closed bool
}

// NewClient constructs a client with initialized channels. Name stays empty
// until the client introduces itself with a hello command.
func NewClient(id, name string) *Client {
	return &Client{
		ID:       id,
		Name:     name,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 32),
	}
}

// Send delivers an event without blocking. Returns false when the client is
// closed or its buffer is full; slow consumers lose events rather than stall
// the sender.
func (c *Client) Send(ev *Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}

// Close shuts the Events channel. Idempotent. The transport write loop exits
// when Events is closed, which tears the connection down.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Events)
}
