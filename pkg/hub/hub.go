package hub

import (
	"context"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-tryon/internal/log"
)

// queueSize bounds both the hub's broadcast queue and every client's send queue.
const queueSize = 256

// Hub fans messages out to the websocket clients of one endpoint. All membership
// changes happen on the Run goroutine.
type Hub struct {
	name   string
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}

	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{} // closed once Run has returned

	// OnConnect runs on the hub goroutine once a client is registered, before it can
	// receive any broadcast.
	OnConnect func(c *Client)
}

// New creates a hub; name tags its log lines.
func New(name string) *Hub {
	return &Hub{
		name:       name,
		logger:     log.With("hub", name),
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan Message, queueSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c, "client disconnected")
		case msg := <-h.broadcast:
			h.fanout(msg)
		}
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("client connected", "client", c.id, "total", n)
	if h.OnConnect != nil {
		h.OnConnect(c)
	}
}

func (h *Hub) remove(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	c.close()
	if ok {
		h.logger.Info(reason, "client", c.id, "remaining", n)
	}
}

// fanout queues msg for every client. A client whose queue is full is disconnected
// rather than allowed to stall the others.
func (h *Hub) fanout(msg Message) {
	h.mu.RLock()
	var slow []*Client
	for c := range h.clients {
		if !c.Send(msg) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.remove(c, "dropped slow client")
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	for c := range h.clients {
		c.close()
	}
	clear(h.clients)
	h.mu.Unlock()
	close(h.done)
}

// join registers c, or closes it straight away when the hub has shut down.
func (h *Hub) join(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.close()
	}
}

// leave unregisters c. After shutdown there is nothing left to do.
func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues msg for every client. It never blocks; when the queue is full the
// message is dropped.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast queue full, dropping message")
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
