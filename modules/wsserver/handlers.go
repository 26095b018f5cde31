package wsserver

import (
	"encoding/json"
	"errors"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	domain "github.com/example/chat-relay-demo/domain/chat"
	"github.com/example/chat-relay-demo/modules/relay"
	"github.com/example/chat-relay-demo/modules/roster"
)

// Acknowledgment event names and upload result strings.
const (
	AckJoinResult   = "join result"
	AckUploadResult = "upload result"

	uploadSuccessMsg = "File upload successful"
	uploadFailedMsg  = "File upload failed"
)

// ClientMessage is a frame received from a client.
type ClientMessage struct {
	Type    string          `json:"type"` // "join", "message", "upload"
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinPayload is the payload of a join frame.
type JoinPayload struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

// MessagePayload is the payload of a chat message frame.
type MessagePayload struct {
	Text string `json:"text"`
}

// UploadPayload is the payload of an upload frame. FileData arrives
// base64-encoded in the JSON frame.
type UploadPayload struct {
	FileName string `json:"file_name"`
	FileData []byte `json:"file_data"`
}

// JoinAck is the acknowledgment sent in reply to a join frame.
type JoinAck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// joinAck maps a join outcome to the acknowledgment payload.
func joinAck(err error) JoinAck {
	switch {
	case err == nil:
		return JoinAck{Status: "success"}
	case errors.Is(err, roster.ErrUsernameTaken):
		return JoinAck{Status: "error", Message: "Username already taken"}
	default:
		return JoinAck{Status: "error", Message: err.Error()}
	}
}

// rosterService is the slice of the roster module the session loop needs.
type rosterService interface {
	Join(connID, roomID, userID string) error
	PostMessage(connID, text string) error
	Binding(connID string) (domain.Binding, bool)
	Snapshot(roomID string) []string
	Disconnect(connID string) (binding domain.Binding, emptied, bound bool)
}

// uploadStore persists uploads and tears down room storage areas.
type uploadStore interface {
	Receive(roomID, userID, fileName string, data []byte) (*domain.StoredFile, error)
	PurgeRoom(roomID string)
}

// wire delivers frames to clients through the hub's run loop.
type wire interface {
	Register(client *relay.Client)
	Unregister(client *relay.Client)
	Send(clientID, event string, data any)
}

// Handlers runs the per-connection session loop.
type Handlers struct {
	roster    rosterService
	uploads   uploadStore
	hub       wire
	maxUpload int64
	logger    types.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(roster rosterService, uploads uploadStore, hub wire, maxUpload int64, logger types.Logger) *Handlers {
	return &Handlers{
		roster:    roster,
		uploads:   uploads,
		hub:       hub,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

// HandleWebSocket runs one client session: register with the hub, dispatch
// frames until the connection closes, then run the disconnect flow.
func (h *Handlers) HandleWebSocket(c *websocket.Conn) {
	connID := uuid.New().String()
	client := &relay.Client{ID: connID, Conn: c}

	c.SetReadLimit(h.maxUpload)
	h.hub.Register(client)
	defer h.disconnect(client)

	h.logger.Info("Client connected", "connID", connID)

	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket read error", "connID", connID, "error", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			h.hub.Send(connID, "error", "invalid message format")
			continue
		}

		h.handleMessage(connID, msg)
	}

	h.logger.Info("Client disconnected", "connID", connID)
}

// disconnect runs the run-to-completion disconnect task: remove the
// connection from the hub, atomically unbind it, remove its membership and,
// when the room emptied, tear down the room's storage area.
func (h *Handlers) disconnect(client *relay.Client) {
	h.hub.Unregister(client)

	binding, emptied, bound := h.roster.Disconnect(client.ID)
	// A new member may reclaim the room id between the leave and this point;
	// purge only while the room is still unoccupied.
	if bound && emptied && h.roster.Snapshot(binding.RoomID) == nil {
		h.uploads.PurgeRoom(binding.RoomID)
	}

	_ = client.Conn.Close()
}

func (h *Handlers) handleMessage(connID string, msg ClientMessage) {
	switch msg.Type {
	case "join":
		h.handleJoin(connID, msg.Payload)
	case "message":
		h.handleChatMessage(connID, msg.Payload)
	case "upload":
		h.handleUpload(connID, msg.Payload)
	default:
		h.hub.Send(connID, "error", "unknown message type: "+msg.Type)
	}
}

func (h *Handlers) handleJoin(connID string, payload json.RawMessage) {
	var req JoinPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		h.hub.Send(connID, "error", "invalid join payload")
		return
	}
	if req.RoomID == "" || req.UserID == "" {
		h.hub.Send(connID, AckJoinResult, JoinAck{Status: "error", Message: "room_id and user_id are required"})
		return
	}

	err := h.roster.Join(connID, req.RoomID, req.UserID)
	h.hub.Send(connID, AckJoinResult, joinAck(err))
}

func (h *Handlers) handleChatMessage(connID string, payload json.RawMessage) {
	var req MessagePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		h.hub.Send(connID, "error", "invalid message payload")
		return
	}
	if req.Text == "" {
		return
	}

	if err := h.roster.PostMessage(connID, req.Text); err != nil {
		h.hub.Send(connID, "error", "not in a room")
	}
}

func (h *Handlers) handleUpload(connID string, payload json.RawMessage) {
	var req UploadPayload
	if err := json.Unmarshal(payload, &req); err != nil || req.FileName == "" || len(req.FileData) == 0 {
		h.hub.Send(connID, AckUploadResult, uploadFailedMsg)
		return
	}

	binding, ok := h.roster.Binding(connID)
	if !ok {
		h.hub.Send(connID, AckUploadResult, uploadFailedMsg)
		return
	}

	if _, err := h.uploads.Receive(binding.RoomID, binding.UserID, req.FileName, req.FileData); err != nil {
		h.logger.Error("Upload failed",
			"connID", connID,
			"roomID", binding.RoomID,
			"fileName", req.FileName,
			"error", err)
		h.hub.Send(connID, AckUploadResult, uploadFailedMsg)
		return
	}

	h.hub.Send(connID, AckUploadResult, uploadSuccessMsg)
}
