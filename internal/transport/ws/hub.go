package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	MsgSnapshot  MessageType = "snapshot"
	MsgTick      MessageType = "tick"
	MsgExpired   MessageType = "expired"
	MsgSubmitted MessageType = "submitted"
	MsgClosed    MessageType = "closed"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub manages WebSocket connections watching module views
type Hub struct {
	// View -> connections; a learner may watch from several tabs
	conns map[string]map[*Connection]bool

	mu sync.RWMutex

	// Channels for coordination
	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
	quit       chan struct{}
	stopOnce   sync.Once
}

// Connection represents a WebSocket connection
type Connection struct {
	ViewID  string
	Learner string
	Send    chan []byte
	Hub     *Hub
}

// BroadcastMessage is a message to broadcast. Disconnect closes the
// view's connections after everything queued before it was sent.
type BroadcastMessage struct {
	ViewID     string
	Message    *Message
	Disconnect bool
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		conns:      make(map[string]map[*Connection]bool),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
		quit:       make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.conns[conn.ViewID] == nil {
				h.conns[conn.ViewID] = make(map[*Connection]bool)
			}
			h.conns[conn.ViewID][conn] = true
			h.mu.Unlock()
			log.Printf("Learner %s watching view %s", conn.Learner, conn.ViewID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.conns[conn.ViewID]; ok && conns[conn] {
				delete(conns, conn)
				if len(conns) == 0 {
					delete(h.conns, conn.ViewID)
				}
				close(conn.Send)
				log.Printf("Learner %s stopped watching view %s", conn.Learner, conn.ViewID)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			if msg.Disconnect {
				h.closeView(msg.ViewID)
				continue
			}
			data, _ := json.Marshal(msg.Message)
			h.mu.RLock()
			for conn := range h.conns[msg.ViewID] {
				select {
				case conn.Send <- data:
				default:
					// Drop message if buffer full
				}
			}
			h.mu.RUnlock()

		case <-h.quit:
			h.mu.Lock()
			for _, conns := range h.conns {
				for conn := range conns {
					close(conn.Send)
				}
			}
			h.conns = make(map[string]map[*Connection]bool)
			h.mu.Unlock()
			return
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.quit:
		close(conn.Send)
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.quit:
	}
}

// BroadcastToView sends a message to every connection watching viewID (implements service.Broadcaster)
func (h *Hub) BroadcastToView(viewID string, msgType string, payload interface{}) {
	data, _ := json.Marshal(payload)
	select {
	case h.broadcast <- &BroadcastMessage{
		ViewID: viewID,
		Message: &Message{
			Type:    MessageType(msgType),
			Payload: data,
		},
	}:
	case <-h.quit:
	}
}

// DisconnectView closes every connection watching viewID (implements service.Broadcaster)
func (h *Hub) DisconnectView(viewID string) {
	select {
	case h.broadcast <- &BroadcastMessage{ViewID: viewID, Disconnect: true}:
	case <-h.quit:
	}
}

func (h *Hub) closeView(viewID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns[viewID] {
		close(conn.Send)
	}
	delete(h.conns, viewID)
}

// Watchers returns the number of connections watching viewID
func (h *Hub) Watchers(viewID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[viewID])
}

// Stop closes all connections and ends the hub goroutine
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}
