package broadcast

import (
	"context"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/collab-editor-demo/modules/collab"
)

// BroadcastModule hosts the WebSocket fan-out hub.
type BroadcastModule struct {
	hub    *Hub
	logger types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*BroadcastModule)(nil)
var _ mono.HealthCheckableModule = (*BroadcastModule)(nil)

// NewModule creates a new BroadcastModule over the given registry.
func NewModule(registry *collab.Registry, logger types.Logger) *BroadcastModule {
	return &BroadcastModule{
		hub:    NewHub(registry, logger),
		logger: logger,
	}
}

// Name returns the module name.
func (m *BroadcastModule) Name() string {
	return "broadcast"
}

// Start initializes the module.
func (m *BroadcastModule) Start(_ context.Context) error {
	m.logger.Info("Broadcast module started")
	return nil
}

// Stop closes all attached connections.
func (m *BroadcastModule) Stop(_ context.Context) error {
	count := m.hub.ClientCount()
	m.hub.CloseAll()
	m.logger.Info("Broadcast module stopped", "disconnectedClients", count)
	return nil
}

// Health returns the health status.
func (m *BroadcastModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
		},
	}
}

// Hub returns the fan-out hub for the collab service and the API module.
func (m *BroadcastModule) Hub() *Hub {
	return m.hub
}
