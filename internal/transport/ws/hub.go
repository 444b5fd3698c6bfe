package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	MsgPipelineEvent MessageType = "pipeline_event"
	MsgError         MessageType = "error"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans pipeline events out to the connections watching each run
type Hub struct {
	// runID -> connections
	conns map[string]map[*Connection]struct{}

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage

	logger *slog.Logger
}

// Connection represents a WebSocket connection
type Connection struct {
	RunID string
	Send  chan []byte
	Hub   *Hub
}

// BroadcastMessage is a message for every connection of a run. Close ends
// the run's connections after earlier messages are queued.
type BroadcastMessage struct {
	RunID   string
	Message *Message
	Close   bool
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		conns:      make(map[string]map[*Connection]struct{}),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
		logger:     slog.Default().With("component", "ws"),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.conns[conn.RunID] == nil {
				h.conns[conn.RunID] = make(map[*Connection]struct{})
			}
			h.conns[conn.RunID][conn] = struct{}{}
			h.mu.Unlock()
			h.logger.Info("client attached", "run_id", conn.RunID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if set, ok := h.conns[conn.RunID]; ok {
				if _, ok := set[conn]; ok {
					delete(set, conn)
					close(conn.Send)
					h.logger.Info("client detached", "run_id", conn.RunID)
				}
				if len(set) == 0 {
					delete(h.conns, conn.RunID)
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			set := h.conns[msg.RunID]
			if msg.Close {
				for conn := range set {
					close(conn.Send)
				}
				delete(h.conns, msg.RunID)
				h.mu.Unlock()
				continue
			}
			data, _ := json.Marshal(msg.Message)
			for conn := range set {
				select {
				case conn.Send <- data:
				default:
					h.logger.Warn("dropping message for slow client", "run_id", msg.RunID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// Broadcast sends payload to every connection of a run
func (h *Hub) Broadcast(runID string, msgType MessageType, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &BroadcastMessage{
		RunID: runID,
		Message: &Message{
			Type:    msgType,
			Payload: data,
		},
	}
}

// CloseRun disconnects every connection of a run once queued messages are sent
func (h *Hub) CloseRun(runID string) {
	h.broadcast <- &BroadcastMessage{RunID: runID, Close: true}
}

// Watchers returns the number of connections attached to a run
func (h *Hub) Watchers(runID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[runID])
}
