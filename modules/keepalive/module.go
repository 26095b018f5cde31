package keepalive

import (
	"context"
	"net/http"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// Module periodically pings the server's own public URL so that free-tier
// hosts do not idle the instance out. When no URL is configured the module
// stays dormant.
type Module struct {
	url      string
	interval time.Duration
	client   *http.Client
	cancel   context.CancelFunc
	done     chan struct{}
	logger   types.Logger
}

// Compile-time interface check
var _ mono.Module = (*Module)(nil)

// NewModule creates a new keepalive module. An empty url disables pinging.
func NewModule(url string, interval time.Duration, moduleLogger types.Logger) *Module {
	return &Module{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   moduleLogger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "keepalive"
}

// Start launches the ping loop, or does nothing when no URL is configured.
func (m *Module) Start(_ context.Context) error {
	if m.url == "" {
		m.logger.Info("Keepalive disabled, no ping URL configured")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.run(ctx)

	m.logger.Info("Keepalive started", "url", m.url, "interval", m.interval)
	return nil
}

// Stop cancels the ping loop and waits for it to exit.
func (m *Module) Stop(_ context.Context) error {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}
	m.logger.Info("Keepalive stopped")
	return nil
}

func (m *Module) run(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.ping(ctx)
		}
	}
}

func (m *Module) ping(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		m.logger.Warn("Keepalive request build failed", "error", err)
		return
	}

	resp, err := m.client.Do(req)
	if err != nil {
		m.logger.Warn("Keepalive ping failed", "url", m.url, "error", err)
		return
	}
	defer resp.Body.Close()

	m.logger.Debug("Keepalive ping", "url", m.url, "status", resp.StatusCode)
}
