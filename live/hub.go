package live

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ashtongoh/korii-pos-sys/utils"
)

// Watched tables.
const (
	TableOrders          = "orders"
	TablePaymentSessions = "payment_sessions"
)

// Websocket event names.
const (
	EventOrderUpdate   = "order_update"
	EventPaymentUpdate = "payment_update"
)

// Event is one change-feed notification: a row in a watched table was
// inserted, updated or deleted. SessionID is set only for payment session
// rows; Status carries the row's status after the change (empty on delete).
type Event struct {
	Table     string `json:"table"`
	Action    string `json:"action"`
	RecordID  uint   `json:"record_id"`
	SessionID string `json:"session_id,omitempty"`
	Status    string `json:"status,omitempty"`
}

// Message is the envelope sent to websocket clients.
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type subscription struct {
	table string
	// key filters payment session events by session id; empty matches all.
	key string
	ch  chan Event
}

// Hub fans change-feed events out to in-process subscribers (the payment
// watcher, the queue synchronizer) and to connected staff websockets.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]string // conn -> role
	subs    map[int]*subscription
	nextSub int
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]string),
		subs:    make(map[int]*subscription),
	}
}

// RegisterClient adds a staff websocket connection with its role.
func (h *Hub) RegisterClient(conn *websocket.Conn, role string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = role
}

// UnregisterClient drops a connection and closes it.
func (h *Hub) UnregisterClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
	conn.Close()
}

// Subscribe returns a channel of events for one table, optionally filtered
// by session id (payment sessions only; pass "" for all rows). The returned
// cancel func must be called exactly once; after it returns no further
// events are delivered.
func (h *Hub) Subscribe(table, key string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextSub
	h.nextSub++
	sub := &subscription{table: table, key: key, ch: make(chan Event, 16)}
	h.subs[id] = sub

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if s, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(s.ch)
		}
	}
	return sub.ch, cancel
}

// Publish delivers an event to every matching subscriber and broadcasts it
// to staff websockets. Subscriber channels are buffered; a full channel
// drops the event rather than blocking the monitor — the periodic full
// refresh is the correctness backstop for missed events.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs {
		if sub.table != ev.Table {
			continue
		}
		if sub.key != "" && sub.key != ev.SessionID {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			utils.ErrorLogger.Printf("live: dropping %s %s event for slow subscriber", ev.Table, ev.Action)
		}
	}

	event := EventOrderUpdate
	if ev.Table == TablePaymentSessions {
		event = EventPaymentUpdate
	}
	h.broadcastLocked(Message{Event: event, Data: ev})
}

// Broadcast sends an arbitrary message to all staff websockets.
func (h *Hub) Broadcast(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcastLocked(msg)
}

func (h *Hub) broadcastLocked(msg Message) {
	if len(h.clients) == 0 {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Printf("live: marshal broadcast: %v", err)
		return
	}
	for conn, role := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.ErrorLogger.Printf("live: send to %s client: %v", role, err)
		}
	}
}
