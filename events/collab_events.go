package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// SessionEvent describes a session entering or leaving a room.
type SessionEvent struct {
	RoomID    string    `json:"room_id"`
	SocketID  string    `json:"socket_id"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

// Event definitions for the collab domain.
var (
	// SessionJoinedV1 is published after a join has been processed and the
	// joined multicast has been sent.
	SessionJoinedV1 = helper.EventDefinition[SessionEvent](
		"collab",
		"SessionJoined",
		"v1",
	)

	// SessionLeftV1 is published after a disconnect has been processed.
	SessionLeftV1 = helper.EventDefinition[SessionEvent](
		"collab",
		"SessionLeft",
		"v1",
	)
)
