package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192 // 8KB max message size from client
)

// EventType distinguishes the two things a running session ever pushes to a
// subscriber: a per-clock state snapshot, and a one-off execution event
// (halt, run complete).
type EventType string

const (
	// EventTypeState is a per-clock snapshot (pc_if/pc_id, registers, pipeline latches).
	EventTypeState EventType = "state"
	// EventTypeExecution is a discrete execution event: halted or run_complete.
	EventTypeExecution EventType = "event"
)

// SessionEvent is one message pushed to a WebSocket subscriber about a
// single emulator session.
type SessionEvent struct {
	Type      EventType              `json:"type"`
	SessionID string                 `json:"sessionId"`
	Data      map[string]interface{} `json:"data"`
}

// EventSubscription is one client's filter: which session, which event types.
type EventSubscription struct {
	SessionID  string
	EventTypes map[EventType]bool
	Channel    chan SessionEvent
}

// Broadcaster fans session events out to every subscribed WebSocket client.
// handlers.go calls BroadcastState/BroadcastExecutionEvent once per clock (or
// once per halt/run-complete); run() delivers each event to every
// subscription whose session ID and event type filter match.
type Broadcaster struct {
	mu            sync.RWMutex
	subscriptions map[*EventSubscription]bool
	broadcast     chan SessionEvent
	register      chan *EventSubscription
	unregister    chan *EventSubscription
	done          chan struct{}
}

// NewBroadcaster creates and starts a new event broadcaster.
func NewBroadcaster() *Broadcaster {
	b := &Broadcaster{
		subscriptions: make(map[*EventSubscription]bool),
		broadcast:     make(chan SessionEvent, 256),
		register:      make(chan *EventSubscription),
		unregister:    make(chan *EventSubscription),
		done:          make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broadcaster) run() {
	for {
		select {
		case sub := <-b.register:
			b.mu.Lock()
			b.subscriptions[sub] = true
			b.mu.Unlock()

		case sub := <-b.unregister:
			b.mu.Lock()
			if b.subscriptions[sub] {
				delete(b.subscriptions, sub)
				close(sub.Channel)
			}
			b.mu.Unlock()

		case event := <-b.broadcast:
			b.mu.RLock()
			for sub := range b.subscriptions {
				if sub.SessionID != "" && sub.SessionID != event.SessionID {
					continue
				}
				if len(sub.EventTypes) > 0 && !sub.EventTypes[event.Type] {
					continue
				}

				select {
				case sub.Channel <- event:
				default:
					// client is too slow, drop this event rather than stall the broadcaster
				}
			}
			b.mu.RUnlock()

		case <-b.done:
			b.mu.Lock()
			for sub := range b.subscriptions {
				close(sub.Channel)
			}
			b.subscriptions = make(map[*EventSubscription]bool)
			b.mu.Unlock()
			return
		}
	}
}

// Subscribe registers a new subscription. sessionID empty means all sessions;
// eventTypes empty means all event types.
func (b *Broadcaster) Subscribe(sessionID string, eventTypes []EventType) *EventSubscription {
	eventTypeMap := make(map[EventType]bool)
	for _, et := range eventTypes {
		eventTypeMap[et] = true
	}

	sub := &EventSubscription{
		SessionID:  sessionID,
		EventTypes: eventTypeMap,
		Channel:    make(chan SessionEvent, 64),
	}

	b.register <- sub
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(sub *EventSubscription) {
	b.unregister <- sub
}

func (b *Broadcaster) broadcastEvent(event SessionEvent) {
	select {
	case b.broadcast <- event:
	default:
		// broadcast channel is full, drop the event
	}
}

// BroadcastState pushes a per-clock state snapshot for sessionID.
func (b *Broadcaster) BroadcastState(sessionID string, data map[string]interface{}) {
	b.broadcastEvent(SessionEvent{
		Type:      EventTypeState,
		SessionID: sessionID,
		Data:      data,
	})
}

// BroadcastExecutionEvent pushes a discrete execution event for sessionID,
// e.g. "halted" or "run_complete", with eventName folded into Data["event"].
func (b *Broadcaster) BroadcastExecutionEvent(sessionID string, eventName string, details map[string]interface{}) {
	data := make(map[string]interface{})
	data["event"] = eventName
	for k, v := range details {
		data[k] = v
	}

	b.broadcastEvent(SessionEvent{
		Type:      EventTypeExecution,
		SessionID: sessionID,
		Data:      data,
	})
}

// Close shuts down the broadcaster and closes all subscriptions.
func (b *Broadcaster) Close() {
	close(b.done)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for development; production deployments should
		// restrict this to known hosts.
		return true
	},
}

// sessionSubscriber is one connected WebSocket client, forwarding the
// Broadcaster's session events out over the wire.
type sessionSubscriber struct {
	conn         *websocket.Conn
	send         chan SessionEvent
	subscription *EventSubscription
	broadcaster  *Broadcaster
	mu           sync.Mutex
}

// subscribeRequest is a client's request to start (or replace) a subscription.
type subscribeRequest struct {
	Type       string   `json:"type"` // must be "subscribe"
	SessionID  string   `json:"sessionId"`
	EventTypes []string `json:"events"`
}

// handleWebSocket upgrades the connection and starts the client's read/write pumps.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &sessionSubscriber{
		conn:        conn,
		send:        make(chan SessionEvent, 256),
		broadcaster: s.broadcaster,
	}

	go client.writePump()
	go client.readPump()
}

// readPump reads subscribe requests from the client until the connection closes.
func (c *sessionSubscriber) readPump() {
	defer func() {
		c.cleanup()
		if err := c.conn.Close(); err != nil {
			log.Printf("WebSocket close error: %v", err)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("SetReadDeadline error: %v", err)
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var req subscribeRequest
		if err := json.Unmarshal(message, &req); err != nil {
			log.Printf("Failed to parse subscription request: %v", err)
			continue
		}

		if req.Type == "subscribe" {
			c.handleSubscribe(req)
		}
	}
}

// writePump delivers queued session events to the client, pinging to keep the connection alive.
func (c *sessionSubscriber) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil {
			log.Printf("WebSocket close error: %v", err)
		}
	}()

	for {
		select {
		case event, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Printf("SetWriteDeadline error: %v", err)
				return
			}
			if !ok {
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					log.Printf("WriteMessage error: %v", err)
				}
				return
			}

			if err := c.conn.WriteJSON(event); err != nil {
				log.Printf("WriteJSON error: %v", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Printf("SetWriteDeadline error: %v", err)
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleSubscribe replaces any existing subscription with one matching req,
// and starts forwarding events from it to the client's send channel.
func (c *sessionSubscriber) handleSubscribe(req subscribeRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.subscription != nil {
		c.broadcaster.Unsubscribe(c.subscription)
	}

	eventTypes := make([]EventType, 0, len(req.EventTypes))
	for _, et := range req.EventTypes {
		eventTypes = append(eventTypes, EventType(et))
	}

	c.subscription = c.broadcaster.Subscribe(req.SessionID, eventTypes)

	go c.forwardEvents()
}

func (c *sessionSubscriber) forwardEvents() {
	if c.subscription == nil {
		return
	}

	for event := range c.subscription.Channel {
		select {
		case c.send <- event:
		default:
			// client is too slow, drop this event
		}
	}
}

func (c *sessionSubscriber) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.subscription != nil {
		c.broadcaster.Unsubscribe(c.subscription)
		c.subscription = nil
	}
}
