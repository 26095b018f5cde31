package uploads

import (
	"context"
	"fmt"
	"os"
	"time"

	domain "github.com/example/chat-relay-demo/domain/chat"
	"github.com/example/chat-relay-demo/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// Module coordinates upload persistence and room storage teardown. It
// publishes a FileStored event after each successful write so the relay
// module can announce the file to the room.
type Module struct {
	service  *Service
	root     string
	eventBus mono.EventBus
	logger   types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new uploads module rooted at the given directory.
func NewModule(root string, logger types.Logger) *Module {
	return &Module{
		root:   root,
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "uploads"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.FileStoredV1.ToBase(),
	}
}

// Start ensures the uploads root exists and initializes the service.
func (m *Module) Start(_ context.Context) error {
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return fmt.Errorf("failed to create uploads root: %w", err)
	}
	m.service = NewService(m.root)
	m.logger.Info("Uploads module started", "root", m.root)
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Uploads module stopped")
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	_, err := os.Stat(m.root)
	return mono.HealthStatus{
		Healthy: err == nil,
		Message: "operational",
		Details: map[string]any{
			"root": m.root,
		},
	}
}

// Service returns the upload service instance.
func (m *Module) Service() *Service {
	return m.service
}

// Receive persists an upload for the given room and announces it. The
// returned StoredFile carries the generated name and public URL.
func (m *Module) Receive(roomID, userID, fileName string, data []byte) (*domain.StoredFile, error) {
	stored, err := m.service.Store(roomID, userID, fileName, data)
	if err != nil {
		return nil, err
	}

	event := events.FileStoredEvent{
		RoomID:     roomID,
		UserID:     userID,
		StoredName: stored.Name,
		FileURL:    stored.URL,
		Timestamp:  time.Now(),
	}
	if err := events.FileStoredV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish FileStored event", "error", err)
	}

	m.logger.Info("File stored",
		"roomID", roomID,
		"userID", userID,
		"name", stored.Name,
		"size", stored.Size)
	return stored, nil
}

// PurgeRoom removes the room's storage area. Failure is logged and leaves
// orphaned storage behind; it never blocks the disconnect flow.
func (m *Module) PurgeRoom(roomID string) {
	if err := m.service.PurgeRoom(roomID); err != nil {
		m.logger.Error("Failed to remove room storage area", "roomID", roomID, "error", err)
		return
	}
	m.logger.Info("Room storage area removed", "roomID", roomID)
}
