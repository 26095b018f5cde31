package wsserver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/chat-relay-demo/modules/relay"
	"github.com/example/chat-relay-demo/modules/roster"
	"github.com/example/chat-relay-demo/modules/uploads"
)

// Module implements the WebSocket server module using Fiber framework. It
// serves the chat page, the WebSocket endpoint and the static upload files.
type Module struct {
	app       *fiber.App
	handlers  *Handlers
	addr      string
	viewsDir  string
	maxUpload int64

	roster  *roster.Module
	uploads *uploads.Module
	hub     *relay.Hub

	logger types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new WebSocket server module.
func NewModule(addr, viewsDir string, maxUpload int64, moduleLogger types.Logger) *Module {
	return &Module{
		addr:      addr,
		viewsDir:  viewsDir,
		maxUpload: maxUpload,
		logger:    moduleLogger,
	}
}

// SetRoster injects the roster module.
func (m *Module) SetRoster(rosterModule *roster.Module) {
	m.roster = rosterModule
}

// SetUploads injects the uploads module.
func (m *Module) SetUploads(uploadsModule *uploads.Module) {
	m.uploads = uploadsModule
}

// SetHub injects the relay hub used for all outbound client writes.
func (m *Module) SetHub(hub *relay.Hub) {
	m.hub = hub
}

// Name returns the module name.
func (m *Module) Name() string {
	return "ws-server"
}

// Start initializes and starts the WebSocket server.
func (m *Module) Start(ctx context.Context) error {
	if m.roster == nil || m.uploads == nil || m.hub == nil {
		return fmt.Errorf("ws-server module is missing dependencies")
	}

	// Create Fiber app with custom config
	m.app = fiber.New(fiber.Config{
		AppName:               "Chat Relay Demo",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
		BodyLimit:             int(m.maxUpload),
	})

	// Add middleware
	m.app.Use(recover.New())
	m.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
	}))

	// CORS configuration
	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	m.app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))

	// Create handlers
	m.handlers = NewHandlers(m.roster, m.uploads, m.hub, m.maxUpload, m.logger)

	// Register routes
	m.registerRoutes()

	// Start server in goroutine with startup error detection
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(m.addr); err != nil {
			errCh <- err
		}
	}()

	// Wait briefly to catch immediate startup errors
	select {
	case err := <-errCh:
		return fmt.Errorf("WebSocket server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
		// Server started successfully
	}

	m.logger.Info("WebSocket server started", "addr", m.addr)
	return nil
}

// Stop gracefully shuts down the WebSocket server.
func (m *Module) Stop(ctx context.Context) error {
	if m.app != nil {
		if err := m.app.ShutdownWithContext(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}
	m.logger.Info("WebSocket server stopped")
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"addr": m.addr,
		},
	}
}

// registerRoutes sets up all HTTP and WebSocket routes.
func (m *Module) registerRoutes() {
	// Liveness probe, also the keepalive ping target
	m.app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})

	// Static assets and stored uploads
	m.app.Static("/", m.viewsDir)
	m.app.Static("/uploads", m.uploads.Service().Root())

	// WebSocket upgrade middleware
	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket endpoint
	m.app.Get("/ws", websocket.New(m.handlers.HandleWebSocket))

	// Deep link into a room; the page reads room and user from the path
	m.app.Get("/:roomId/:userId", func(c *fiber.Ctx) error {
		return c.SendFile(filepath.Join(m.viewsDir, "home.html"))
	})
}

// errorHandler handles errors globally.
func (m *Module) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	m.logger.Error("HTTP error", "code", code, "message", message, "error", err)

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}
