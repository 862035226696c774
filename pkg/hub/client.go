package hub

import (
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// A refined 478-point landmark frame is about 30KB of JSON.
	maxMessageSize = 256 * 1024
)

// Handler receives every message a client sends, on that client's read goroutine.
type Handler func(c *Client, data []byte)

// Client is one websocket connection attached to a hub.
type Client struct {
	id      string
	hub     *Hub
	conn    *websocket.Conn
	handler Handler

	mu     sync.Mutex
	send   chan Message
	closed bool
}

// NewClient registers a connection with h. handler may be nil for connections that
// only receive broadcasts.
func NewClient(h *Hub, conn *websocket.Conn, handler Handler) *Client {
	c := &Client{
		id:      uuid.NewString(),
		hub:     h,
		conn:    conn,
		handler: handler,
		send:    make(chan Message, queueSize),
	}
	h.join(c)
	return c
}

// ID identifies the connection in logs.
func (c *Client) ID() string {
	return c.id
}

// Send queues msg for this client only. It never blocks and reports false once the
// client is closed or its queue is full.
func (c *Client) Send(msg Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Run serves the connection until the peer goes away or the hub closes the client.
// Call it from the websocket handler; it blocks.
func (c *Client) Run() {
	go c.write()
	c.read()
}

func (c *Client) read() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	extend := func() { c.conn.SetReadDeadline(time.Now().Add(pongWait)) }
	c.conn.SetReadLimit(maxMessageSize)
	extend()
	c.conn.SetPongHandler(func(string) error {
		extend()
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		extend()
		if c.handler != nil {
			c.handler(c, data)
		}
	}
}

// write is the only goroutine that writes to the connection.
func (c *Client) write() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		var (
			kind int
			data []byte
		)
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			kind, data = websocket.TextMessage, msg.Data
		case <-ping.C:
			kind = websocket.PingMessage
		}

		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(kind, data); err != nil {
			return
		}
	}
}
