package relay

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
)

// Conn is the write side of a client connection. *websocket.Conn satisfies
// it; tests substitute a recorder.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client represents a connected WebSocket client. RoomID is empty until the
// client completes a join.
type Client struct {
	ID     string
	RoomID string
	Conn   Conn
}

// WireEvent is the frame sent to clients: a named event plus its payload.
type WireEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type frame struct {
	clientID string // non-empty for a direct send to one client
	roomID   string
	event    string
	data     any
}

// Hub routes events to the connections currently joined to a room. Delivery
// is fire-and-forget: no acknowledgment, no retry, no buffering for absent
// members, and a failed write never fails the whole broadcast. All conn
// writes happen on the run loop goroutine.
type Hub struct {
	clients    map[string]*Client
	rooms      map[string]map[string]bool // roomID -> set of clientIDs
	register   chan *Client
	unregister chan *Client
	send       chan *frame
	done       chan struct{}
	mu         sync.RWMutex
	logger     types.Logger
}

// NewHub creates a new Hub.
func NewHub(logger types.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		send:       make(chan *frame, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the hub's main loop. It accepts a context for graceful shutdown.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Hub shutting down")
			h.closeAllClients()
			close(h.done)
			return
		case client := <-h.register:
			h.handleRegister(client)
		case client := <-h.unregister:
			h.handleUnregister(client)
		case f := <-h.send:
			h.handleSend(f)
		}
	}
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		_ = client.Conn.Close()
	}
	h.clients = make(map[string]*Client)
	h.rooms = make(map[string]map[string]bool)
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	h.logger.Debug("Client registered", "clientID", client.ID)
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	if client.RoomID != "" && h.rooms[client.RoomID] != nil {
		delete(h.rooms[client.RoomID], client.ID)
		if len(h.rooms[client.RoomID]) == 0 {
			delete(h.rooms, client.RoomID)
		}
	}
	h.logger.Debug("Client unregistered", "clientID", client.ID)
}

func (h *Hub) handleSend(f *frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(WireEvent{Event: f.event, Data: f.data})
	if err != nil {
		h.logger.Error("Failed to marshal wire event", "event", f.event, "error", err)
		return
	}

	if f.clientID != "" {
		if client, ok := h.clients[f.clientID]; ok {
			h.writeToClient(client, data)
		}
		return
	}

	for clientID := range h.rooms[f.roomID] {
		if client, ok := h.clients[clientID]; ok {
			h.writeToClient(client, data)
		}
	}
}

func (h *Hub) writeToClient(client *Client, data []byte) {
	if err := client.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
		// The client may have disconnected between enumeration and write;
		// skip it, the broadcast continues.
		h.logger.Debug("Dropped write to client", "clientID", client.ID, "error", err)
	}
}

// Register adds a client to the hub. A no-op once the hub has stopped, so
// session goroutines racing shutdown never block on a drained channel.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister removes a client from the hub and its room. A no-op once the
// hub has stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast delivers a named event to every client currently in roomID.
func (h *Hub) Broadcast(roomID, event string, data any) {
	select {
	case h.send <- &frame{roomID: roomID, event: event, data: data}:
	case <-h.done:
	}
}

// Send delivers a named event to a single client. Used for join and upload
// acknowledgments so that all conn writes stay on the run loop.
func (h *Hub) Send(clientID, event string, data any) {
	select {
	case h.send <- &frame{clientID: clientID, event: event, data: data}:
	case <-h.done:
	}
}

// JoinRoom places a registered client into roomID. A client is in at most
// one room; joining moves it out of any previous one.
func (h *Hub) JoinRoom(clientID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[clientID]
	if !ok {
		return
	}

	if client.RoomID != "" && h.rooms[client.RoomID] != nil {
		delete(h.rooms[client.RoomID], clientID)
		if len(h.rooms[client.RoomID]) == 0 {
			delete(h.rooms, client.RoomID)
		}
	}

	client.RoomID = roomID
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]bool)
	}
	h.rooms[roomID][clientID] = true
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomClientCount returns the number of clients in a room.
func (h *Hub) RoomClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
