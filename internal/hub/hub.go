package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"fleetdash/internal/logger"
)

// Event types pushed to clients.
const (
	EventConnected    = "connected"
	EventStatsUpdate  = "stats_update"
	EventPingUpdate   = "ping_update"
	EventAlert        = "alert"
	EventStatusChange = "status_change"
	EventPong         = "pong"
)

// Event is the envelope for every outbound frame.
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent stamps an envelope with the current time.
func NewEvent(eventType string, data interface{}) Event {
	return Event{Type: eventType, Data: data, Timestamp: time.Now()}
}

// Conn is the subset of *websocket.Conn the hub needs. Tests attach
// in-memory fakes.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

const (
	sendBuffer = 32
	writeWait  = 10 * time.Second
)

type client struct {
	id            string
	conn          Conn
	send          chan []byte
	alive         atomic.Bool
	subscriptions map[string]struct{} // host ids, owned by the hub goroutine
}

// wants reports whether the client should receive events for hostID.
// An empty subscription set means every host.
func (c *client) wants(hostID string) bool {
	if len(c.subscriptions) == 0 {
		return true
	}
	_, ok := c.subscriptions[hostID]
	return ok
}

type control struct {
	client   *client
	action   string
	serverID string
}

// inbound is the shape of client-to-server messages: subscribe and
// unsubscribe with a serverId, and ping. Anything else is ignored.
type inbound struct {
	Action   string `json:"action"`
	ServerID string `json:"serverId,omitempty"`
}

// delivery carries one outbound event. Filtered deliveries only reach
// clients subscribed to the host.
type delivery struct {
	event    Event
	hostID   string
	filtered bool
}

// Hub fans events out to WebSocket clients. A single goroutine owns
// the client set and every subscription set; all mutation flows
// through channels, so there is no lock around the hot path.
type Hub struct {
	register   chan *client
	unregister chan *client
	deliveries chan delivery
	controls   chan control
	done       chan struct{}

	heartbeat time.Duration
	count     atomic.Int64
	log       logger.Logger
}

func New(heartbeat time.Duration, log logger.Logger) *Hub {
	if log == nil {
		log = logger.Noop()
	}
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		deliveries: make(chan delivery, 64),
		controls:   make(chan control, 64),
		done:       make(chan struct{}),
		heartbeat:  heartbeat,
		log:        log,
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int { return int(h.count.Load()) }

// Broadcast queues an event for delivery to every client. Safe from
// any goroutine.
func (h *Hub) Broadcast(event Event) {
	select {
	case h.deliveries <- delivery{event: event}:
	case <-h.done:
	}
}

// SendToSubscribers queues an event for clients subscribed to hostID.
// Clients with no subscriptions receive everything.
func (h *Hub) SendToSubscribers(hostID string, event Event) {
	select {
	case h.deliveries <- delivery{event: event, hostID: hostID, filtered: true}:
	case <-h.done:
	}
}

// Run owns the client set until ctx is cancelled. Exactly one Run per
// hub.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	clients := make(map[*client]struct{})

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	remove := func(c *client) {
		if _, ok := clients[c]; !ok {
			return
		}
		delete(clients, c)
		close(c.send)
		c.conn.Close()
		h.count.Store(int64(len(clients)))
		h.log.Debug("ws client %s disconnected (%d connected)", c.id, len(clients))
	}

	for {
		select {
		case <-ctx.Done():
			for c := range clients {
				remove(c)
			}
			return

		case c := <-h.register:
			clients[c] = struct{}{}
			h.count.Store(int64(len(clients)))
			h.log.Debug("ws client %s connected (%d connected)", c.id, len(clients))
			c.enqueue(NewEvent(EventConnected, gin.H{"clientId": c.id}))

		case c := <-h.unregister:
			remove(c)

		case d := <-h.deliveries:
			payload, err := json.Marshal(d.event)
			if err != nil {
				h.log.Error("ws marshal %s event: %v", d.event.Type, err)
				continue
			}
			for c := range clients {
				if d.filtered && !c.wants(d.hostID) {
					continue
				}
				select {
				case c.send <- payload:
				default:
					// Slow consumer; drop it rather than stall the hub.
					remove(c)
				}
			}

		case ctl := <-h.controls:
			c := ctl.client
			if _, ok := clients[c]; !ok {
				continue
			}
			switch ctl.action {
			case "subscribe":
				if c.subscriptions == nil {
					c.subscriptions = make(map[string]struct{})
				}
				c.subscriptions[ctl.serverID] = struct{}{}
			case "unsubscribe":
				delete(c.subscriptions, ctl.serverID)
			case "ping":
				c.enqueue(NewEvent(EventPong, nil))
			}

		case <-ticker.C:
			for c := range clients {
				if !c.alive.Swap(false) {
					h.log.Debug("ws client %s missed heartbeat", c.id)
					remove(c)
					continue
				}
				deadline := time.Now().Add(writeWait)
				if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					h.log.Debug("ws ping to client %s: %v", c.id, err)
					remove(c)
				}
			}
		}
	}
}

// enqueue marshals and queues one event for a single client.
func (c *client) enqueue(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// Serve attaches a connection to the hub and blocks until it closes.
// The caller's goroutine becomes the read pump.
func (h *Hub) Serve(conn Conn) {
	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	c.alive.Store(true)
	conn.SetPongHandler(func(string) error {
		c.alive.Store(true)
		return nil
	})

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	go c.writePump(h)
	c.readPump(h)
}

func (h *Hub) drop(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (c *client) writePump(h *Hub) {
	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.drop(c)
			return
		}
	}
}

func (c *client) readPump(h *Hub) {
	defer h.drop(c)
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("ws read: %v", err)
			}
			return
		}
		c.alive.Store(true)

		var msg inbound
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.log.Debug("ws client %s sent malformed message: %v", c.id, err)
			continue
		}
		switch msg.Action {
		case "subscribe", "unsubscribe", "ping":
			select {
			case h.controls <- control{client: c, action: msg.Action, serverID: msg.ServerID}:
			case <-h.done:
				return
			}
		default:
			h.log.Debug("ws client %s sent unknown action %q", c.id, msg.Action)
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Handler upgrades HTTP requests and serves them on the hub.
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.log.Error("ws upgrade: %v", err)
			return
		}
		h.Serve(conn)
	}
}
