package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"

	domain "github.com/example/collab-editor-demo/domain/collab"
	"github.com/example/collab-editor-demo/events"
)

// Module consumes session events into a per-room activity feed and serves the
// feed over a request/reply service.
type Module struct {
	feed   *Feed
	logger types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
)

// NewModule creates a new activity module.
func NewModule(logger types.Logger) *Module {
	return &Module{
		feed:   NewFeed(defaultMaxEntries),
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "activity"
}

// Start initializes the module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Activity module started")
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Activity module stopped")
	return nil
}

// RegisterEventConsumers subscribes to session join and leave events.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.SessionJoinedV1, m.handleSessionJoined, m,
	); err != nil {
		return fmt.Errorf("failed to register SessionJoined consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.SessionLeftV1, m.handleSessionLeft, m,
	); err != nil {
		return fmt.Errorf("failed to register SessionLeft consumer: %w", err)
	}

	m.logger.Info("Registered activity event consumers", "events", "SessionJoined, SessionLeft")
	return nil
}

// RegisterServices registers the feed request/reply service.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceFeed,
		json.Unmarshal,
		json.Marshal,
		m.handleFeed,
	); err != nil {
		return fmt.Errorf("failed to register feed service: %w", err)
	}
	return nil
}

func (m *Module) handleSessionJoined(_ context.Context, event events.SessionEvent, _ *mono.Msg) error {
	m.feed.Add(m.entry(domain.ActivityJoin, event))
	return nil
}

func (m *Module) handleSessionLeft(_ context.Context, event events.SessionEvent, _ *mono.Msg) error {
	m.feed.Add(m.entry(domain.ActivityLeave, event))
	return nil
}

func (m *Module) handleFeed(_ context.Context, req FeedRequest, _ *mono.Msg) (FeedResponse, error) {
	return FeedResponse{
		RoomID:  req.RoomID,
		Entries: m.feed.Room(req.RoomID, req.Limit),
	}, nil
}

func (m *Module) entry(kind domain.ActivityKind, event events.SessionEvent) domain.ActivityEntry {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return domain.ActivityEntry{
		RoomID:    event.RoomID,
		Kind:      kind,
		SocketID:  event.SocketID,
		Username:  event.Username,
		Timestamp: ts,
	}
}

// FeedStore returns the underlying feed.
func (m *Module) FeedStore() *Feed {
	return m.feed
}
