package activity

import (
	"sync"

	domain "github.com/example/collab-editor-demo/domain/collab"
)

// ServiceFeed is the request/reply service name for reading a room's feed.
const ServiceFeed = "feed"

// defaultMaxEntries bounds the per-room feed.
const defaultMaxEntries = 100

// FeedRequest asks for the most recent activity entries of a room.
type FeedRequest struct {
	RoomID string `json:"room_id"`
	Limit  int    `json:"limit,omitempty"`
}

// FeedResponse carries a room's activity entries, oldest first.
type FeedResponse struct {
	RoomID  string                 `json:"room_id"`
	Entries []domain.ActivityEntry `json:"entries"`
}

// Feed is a bounded in-memory join/leave log per room.
type Feed struct {
	mu         sync.RWMutex
	entries    map[string][]domain.ActivityEntry
	maxEntries int
}

// NewFeed creates a feed keeping at most maxEntries entries per room.
func NewFeed(maxEntries int) *Feed {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &Feed{
		entries:    make(map[string][]domain.ActivityEntry),
		maxEntries: maxEntries,
	}
}

// Add appends an entry to its room's log, trimming the oldest entries beyond
// the bound.
func (f *Feed) Add(entry domain.ActivityEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries := append(f.entries[entry.RoomID], entry)
	if len(entries) > f.maxEntries {
		entries = entries[len(entries)-f.maxEntries:]
	}
	f.entries[entry.RoomID] = entries
}

// Room returns up to limit of the most recent entries for a room, oldest
// first. limit <= 0 returns everything retained.
func (f *Feed) Room(roomID string, limit int) []domain.ActivityEntry {
	f.mu.RLock()
	defer f.mu.RUnlock()

	entries := f.entries[roomID]
	if limit <= 0 || limit > len(entries) {
		limit = len(entries)
	}
	result := make([]domain.ActivityEntry, limit)
	copy(result, entries[len(entries)-limit:])
	return result
}
