package collab

import "time"

// ActivityKind classifies a room activity entry.
type ActivityKind string

const (
	ActivityJoin  ActivityKind = "join"
	ActivityLeave ActivityKind = "leave"
)

// ActivityEntry is one line of a room's join/leave feed.
type ActivityEntry struct {
	RoomID    string       `json:"room_id"`
	Kind      ActivityKind `json:"kind"`
	SocketID  string       `json:"socket_id"`
	Username  string       `json:"username"`
	Timestamp time.Time    `json:"timestamp"`
}
