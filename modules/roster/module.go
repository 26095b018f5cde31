package roster

import (
	"context"
	"time"

	domain "github.com/example/chat-relay-demo/domain/chat"
	"github.com/example/chat-relay-demo/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// Module owns room membership and connection bindings. It emits presence
// and message events on the EventBus; the relay module consumes them and
// fans them out to connected clients.
type Module struct {
	directory *Directory
	registry  *Registry
	eventBus  mono.EventBus
	logger    types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new roster module.
func NewModule(logger types.Logger) *Module {
	return &Module{
		directory: NewDirectory(),
		registry:  NewRegistry(),
		logger:    logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "roster"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.UserJoinedV1.ToBase(),
		events.UserLeftV1.ToBase(),
		events.MessagePostedV1.ToBase(),
	}
}

// Start initializes the module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Roster module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Roster module stopped",
		"rooms", m.directory.RoomCount(),
		"bindings", m.registry.Count())
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"rooms":    m.directory.RoomCount(),
			"bindings": m.registry.Count(),
		},
	}
}

// Join admits connID into roomID under userID. The membership check-and-
// insert is atomic with respect to concurrent joins to the same room; on
// success the connection is bound and a UserJoined event carrying the new
// roster snapshot is published.
func (m *Module) Join(connID, roomID, userID string) error {
	if err := m.directory.Join(roomID, userID); err != nil {
		return err
	}

	if err := m.registry.Bind(connID, roomID, userID); err != nil {
		// The connection joined before; undo the membership we just added.
		m.directory.Leave(roomID, userID)
		return err
	}

	event := events.UserJoinedEvent{
		ConnID:    connID,
		RoomID:    roomID,
		UserID:    userID,
		Members:   m.directory.Snapshot(roomID),
		Timestamp: time.Now(),
	}
	if err := events.UserJoinedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish UserJoined event", "error", err)
	}

	m.logger.Info("User joined room", "userID", userID, "roomID", roomID)
	return nil
}

// PostMessage publishes a chat message from the identity bound to connID.
// Returns ErrNotJoined if the connection never completed a join.
func (m *Module) PostMessage(connID, text string) error {
	binding, ok := m.registry.Lookup(connID)
	if !ok {
		return ErrNotJoined
	}

	event := events.MessagePostedEvent{
		RoomID:    binding.RoomID,
		UserID:    binding.UserID,
		Text:      text,
		Timestamp: time.Now(),
	}
	if err := events.MessagePostedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish MessagePosted event", "error", err)
	}
	return nil
}

// Binding returns the identity bound to connID, if any.
func (m *Module) Binding(connID string) (domain.Binding, bool) {
	return m.registry.Lookup(connID)
}

// Snapshot returns the current roster of roomID in join order.
func (m *Module) Snapshot(roomID string) []string {
	return m.directory.Snapshot(roomID)
}

// Disconnect unbinds connID and removes its membership. When the departing
// user was not the last member, a UserLeft event with the remaining roster
// is published. emptied reports whether the room was deleted, so the caller
// can tear down its storage area; bound is false if the connection never
// joined.
func (m *Module) Disconnect(connID string) (binding domain.Binding, emptied, bound bool) {
	binding, bound = m.registry.Unbind(connID)
	if !bound {
		return domain.Binding{}, false, false
	}

	remaining, emptied := m.directory.Leave(binding.RoomID, binding.UserID)
	if !emptied {
		event := events.UserLeftEvent{
			RoomID:    binding.RoomID,
			UserID:    binding.UserID,
			Members:   remaining,
			Timestamp: time.Now(),
		}
		if err := events.UserLeftV1.Publish(m.eventBus, event, nil); err != nil {
			m.logger.Warn("Failed to publish UserLeft event", "error", err)
		}
	}

	m.logger.Info("User left room",
		"userID", binding.UserID,
		"roomID", binding.RoomID,
		"roomEmptied", emptied)
	return binding, emptied, true
}
