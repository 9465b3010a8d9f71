package collab

import (
	"context"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/collab-editor-demo/events"
)

// Module owns the connection registry and the protocol service.
type Module struct {
	registry *Registry
	service  *Service
	logger   types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the collab module.
func NewModule(logger types.Logger) *Module {
	registry := NewRegistry()
	return &Module{
		registry: registry,
		service:  NewService(registry, logger),
		logger:   logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "collab"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.service.SetEventBus(bus)
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.SessionJoinedV1.ToBase(),
		events.SessionLeftV1.ToBase(),
	}
}

// SetSender injects the broadcast hub into the service. Called from main
// because the hub lives in its own module and is not exposed via the
// ServiceContainer.
func (m *Module) SetSender(sender Sender) {
	m.service.SetSender(sender)
}

// Start validates the wiring.
func (m *Module) Start(_ context.Context) error {
	if m.service.sender == nil {
		return fmt.Errorf("broadcast sender dependency not set")
	}
	m.logger.Info("Collab module started")
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Collab module stopped")
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"registered_sessions": m.registry.Count(),
		},
	}
}

// Registry returns the connection registry for the broadcast hub.
func (m *Module) Registry() *Registry {
	return m.registry
}

// Service returns the protocol service for the API module.
func (m *Module) Service() *Service {
	return m.service
}
