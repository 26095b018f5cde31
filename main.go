package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	keepalivemod "github.com/example/chat-relay-demo/modules/keepalive"
	relaymod "github.com/example/chat-relay-demo/modules/relay"
	rostermod "github.com/example/chat-relay-demo/modules/roster"
	uploadsmod "github.com/example/chat-relay-demo/modules/uploads"
	wsservermod "github.com/example/chat-relay-demo/modules/wsserver"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration from environment
	port := getEnv("PORT", "3010")
	uploadsDir := getEnv("UPLOADS_DIR", "./uploads")
	viewsDir := getEnv("VIEWS_DIR", "./views")
	maxUploadSize := getEnvInt64("MAX_UPLOAD_SIZE", 100*1024*1024) // 100MB default
	pingURL := getEnv("PING_URL", "")
	pingIntervalMin := getEnvInt("PING_INTERVAL_MIN", 10)

	log.Println("=== Chat Relay Demo ===")
	log.Printf("Port: %s", port)
	log.Printf("Uploads Dir: %s", uploadsDir)
	log.Printf("Max Upload Size: %d bytes", maxUploadSize)

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create mono application: %v", err)
	}

	// Create modules
	rosterModule := rostermod.NewModule(app.Logger())
	uploadsModule := uploadsmod.NewModule(uploadsDir, app.Logger())
	relayModule := relaymod.NewModule(app.Logger())
	wsServerModule := wsservermod.NewModule(":"+port, viewsDir, maxUploadSize, app.Logger())
	keepaliveModule := keepalivemod.NewModule(pingURL, time.Duration(pingIntervalMin)*time.Minute, app.Logger())

	// Wire up dependencies
	wsServerModule.SetRoster(rosterModule)
	wsServerModule.SetUploads(uploadsModule)
	wsServerModule.SetHub(relayModule.Hub())

	// Register modules; registration order is startup order
	app.Register(rosterModule)
	app.Register(uploadsModule)
	app.Register(relayModule)
	app.Register(wsServerModule)
	app.Register(keepaliveModule)

	// Start the application
	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}

	log.Println("=== Application Started ===")
	log.Printf("Chat available at http://localhost:%s", port)
	log.Println("Endpoints:")
	log.Println("  GET /ping                - Liveness check")
	log.Println("  GET /ws                  - WebSocket endpoint")
	log.Println("  GET /:roomId/:userId     - Join a room")
	log.Println("  GET /uploads/:roomId/:f  - Download a shared file")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown")

	// Setup graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	// Wait for shutdown signal
	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

// getEnv returns environment variable value or default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns environment variable as int or default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvInt64 returns environment variable as int64 or default.
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
