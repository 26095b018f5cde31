package relay

import (
	"context"
	"fmt"

	"github.com/example/chat-relay-demo/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// Wire event names sent to clients.
const (
	EventNotifications = "notifications"
	EventUpdateUsers   = "update users"
	EventChatMessage   = "chat message"
	EventFileUpload    = "file upload"
)

// FileUploadPayload is the payload of a "file upload" wire event.
type FileUploadPayload struct {
	UserID   string `json:"userId"`
	FileName string `json:"fileName"`
	FileURL  string `json:"fileUrl"`
}

// Module consumes roster and upload events and fans them out to the
// WebSocket clients joined to the affected room.
type Module struct {
	hub       *Hub
	cancelHub context.CancelFunc
	logger    types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new relay module.
func NewModule(logger types.Logger) *Module {
	return &Module{
		hub:    NewHub(logger),
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "relay"
}

// Start launches the hub loop.
func (m *Module) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelHub = cancel
	go m.hub.Run(ctx)
	m.logger.Info("Relay module started")
	return nil
}

// Stop shuts down the hub and waits for it to drain.
func (m *Module) Stop(_ context.Context) error {
	if m.cancelHub != nil {
		m.cancelHub()
		m.hub.Wait()
	}
	m.logger.Info("Relay module stopped")
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
		},
	}
}

// Hub returns the WebSocket hub for the transport module to use.
func (m *Module) Hub() *Hub {
	return m.hub
}

// RegisterEventConsumers registers event handlers.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.UserJoinedV1, m.handleUserJoined, m,
	); err != nil {
		return fmt.Errorf("failed to register UserJoined consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.UserLeftV1, m.handleUserLeft, m,
	); err != nil {
		return fmt.Errorf("failed to register UserLeft consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessagePostedV1, m.handleMessagePosted, m,
	); err != nil {
		return fmt.Errorf("failed to register MessagePosted consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.FileStoredV1, m.handleFileStored, m,
	); err != nil {
		return fmt.Errorf("failed to register FileStored consumer: %w", err)
	}

	m.logger.Info("Registered event consumers: UserJoined, UserLeft, MessagePosted, FileStored")
	return nil
}

// handleUserJoined moves the joining connection into the room, then
// announces the arrival and the fresh roster. Placing the hub join here,
// before the broadcasts, ensures the joiner sees its own roster update.
func (m *Module) handleUserJoined(_ context.Context, event events.UserJoinedEvent, _ *mono.Msg) error {
	m.hub.JoinRoom(event.ConnID, event.RoomID)
	m.hub.Broadcast(event.RoomID, EventNotifications, event.UserID+" has joined the room")
	m.hub.Broadcast(event.RoomID, EventUpdateUsers, event.Members)
	return nil
}

func (m *Module) handleUserLeft(_ context.Context, event events.UserLeftEvent, _ *mono.Msg) error {
	m.hub.Broadcast(event.RoomID, EventNotifications, event.UserID+" has left the room")
	m.hub.Broadcast(event.RoomID, EventUpdateUsers, event.Members)
	return nil
}

func (m *Module) handleMessagePosted(_ context.Context, event events.MessagePostedEvent, _ *mono.Msg) error {
	m.hub.Broadcast(event.RoomID, EventChatMessage, fmt.Sprintf("%s: %s", event.UserID, event.Text))
	return nil
}

func (m *Module) handleFileStored(_ context.Context, event events.FileStoredEvent, _ *mono.Msg) error {
	m.hub.Broadcast(event.RoomID, EventFileUpload, FileUploadPayload{
		UserID:   event.UserID,
		FileName: event.StoredName,
		FileURL:  event.FileURL,
	})
	return nil
}
