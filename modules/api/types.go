package api

import (
	domain "github.com/example/collab-editor-demo/domain/collab"
	"github.com/example/collab-editor-demo/wire"
)

// CreateRoomResponse is the API response for a freshly minted room id.
type CreateRoomResponse struct {
	RoomID string `json:"roomId"`
}

// RoomResponse is the API response for a room's current membership.
type RoomResponse struct {
	RoomID  string        `json:"roomId"`
	Clients []wire.Client `json:"clients"`
	Count   int           `json:"count"`
}

// ActivityResponse is the API response for a room's join/leave feed.
type ActivityResponse struct {
	RoomID  string                 `json:"roomId"`
	Entries []domain.ActivityEntry `json:"entries"`
	Total   int                    `json:"total"`
}

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}
