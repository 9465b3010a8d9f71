package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	domain "github.com/example/collab-editor-demo/domain/collab"
)

// Port is the read interface other modules use to query the feed.
type Port interface {
	Feed(ctx context.Context, roomID string, limit int) ([]domain.ActivityEntry, error)
}

// Adapter implements Port over the module's service container.
type Adapter struct {
	container mono.ServiceContainer
}

// NewAdapter creates an Adapter.
func NewAdapter(container mono.ServiceContainer) Port {
	if container == nil {
		panic("activity: ServiceContainer is nil")
	}
	return &Adapter{container: container}
}

// Feed returns the most recent activity entries for a room.
func (a *Adapter) Feed(ctx context.Context, roomID string, limit int) ([]domain.ActivityEntry, error) {
	req := FeedRequest{RoomID: roomID, Limit: limit}
	var resp FeedResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceFeed,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to read activity feed: %w", err)
	}
	return resp.Entries, nil
}
