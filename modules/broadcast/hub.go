package broadcast

import (
	"sync"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"

	"github.com/example/collab-editor-demo/modules/collab"
	"github.com/example/collab-editor-demo/wire"
)

// Conn is the transport writer the hub needs from a connection. Satisfied by
// *websocket.Conn; tests substitute an in-memory implementation.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// socket pairs a connection with its write lock. The websocket allows at most
// one concurrent writer per connection, and handler goroutines for different
// senders fan out to the same targets, so every write goes through here.
type socket struct {
	conn    Conn
	writeMu sync.Mutex
}

func (s *socket) write(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub owns the room membership index and fans wire events out to live
// connections. Membership is explicit: rooms maps a room to its member set and
// memberRoom maps a socket back to the single room it is in.
type Hub struct {
	registry   *collab.Registry
	clients    map[string]*socket
	rooms      map[string]map[string]bool
	memberRoom map[string]string
	logger     types.Logger
	mu         sync.RWMutex
}

// NewHub creates a hub over the given registry. The registry is injected so
// member lists can carry display names and so tests own their registry.
func NewHub(registry *collab.Registry, logger types.Logger) *Hub {
	return &Hub{
		registry:   registry,
		clients:    make(map[string]*socket),
		rooms:      make(map[string]map[string]bool),
		memberRoom: make(map[string]string),
		logger:     logger,
	}
}

// Attach makes a connection addressable for unicast. It does not place the
// socket in any room; that happens on join.
func (h *Hub) Attach(socketID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[socketID] = &socket{conn: conn}
	h.logger.Debug("Socket attached", "socketID", socketID)
}

// Detach removes the connection from the hub and from its room, if any.
func (h *Hub) Detach(socketID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, socketID)
	h.removeFromRoomLocked(socketID)
	h.logger.Debug("Socket detached", "socketID", socketID)
}

// JoinRoom subscribes the socket to a room. Joining a room the socket is
// already in is a no-op; joining a different room moves it, since a socket
// belongs to at most one room.
func (h *Hub) JoinRoom(socketID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.memberRoom[socketID]; ok {
		if current == roomID {
			return
		}
		h.removeFromRoomLocked(socketID)
	}

	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]bool)
	}
	h.rooms[roomID][socketID] = true
	h.memberRoom[socketID] = roomID
}

// Members returns the current membership of a room, joined with the registry
// for display names. Iteration order is not significant.
func (h *Hub) Members(roomID string) []wire.Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	memberIDs, ok := h.rooms[roomID]
	if !ok {
		return nil
	}
	members := make([]wire.Client, 0, len(memberIDs))
	for socketID := range memberIDs {
		username, _ := h.registry.Lookup(socketID)
		members = append(members, wire.Client{
			SocketID: socketID,
			Username: username,
		})
	}
	return members
}

// RoomOf returns the room the socket is currently in.
func (h *Hub) RoomOf(socketID string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	roomID, ok := h.memberRoom[socketID]
	return roomID, ok
}

// BroadcastExcept delivers a framed message to every member of the room other
// than the sender. A room holding only the sender is a no-op. Targets are
// collected under the index lock and written outside it, each under its own
// write lock.
func (h *Hub) BroadcastExcept(roomID, senderID string, data []byte) {
	h.mu.RLock()
	targets := make([]*socket, 0, len(h.rooms[roomID]))
	for socketID := range h.rooms[roomID] {
		if socketID == senderID {
			continue
		}
		if sock, ok := h.clients[socketID]; ok {
			targets = append(targets, sock)
		}
	}
	h.mu.RUnlock()

	for _, sock := range targets {
		if err := sock.write(data); err != nil {
			h.logger.Debug("Failed to write to socket", "roomID", roomID, "error", err)
		}
	}
}

// Unicast delivers a framed message to exactly one socket. Delivery to a dead
// or unknown socket is silently dropped; the sender is never notified.
func (h *Hub) Unicast(socketID string, data []byte) {
	h.mu.RLock()
	sock, ok := h.clients[socketID]
	h.mu.RUnlock()

	if !ok {
		h.logger.Debug("Dropping message to unknown socket", "socketID", socketID)
		return
	}
	if err := sock.write(data); err != nil {
		h.logger.Debug("Failed to write to socket", "socketID", socketID, "error", err)
	}
}

// LeaveAll removes the socket from its room and reports which room it was in.
func (h *Hub) LeaveAll(socketID string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	roomID, ok := h.memberRoom[socketID]
	if !ok {
		return "", false
	}
	h.removeFromRoomLocked(socketID)
	return roomID, true
}

// ClientCount returns the number of attached connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomClientCount returns the number of members in a room.
func (h *Hub) RoomClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// CloseAll closes every attached connection and resets the index. Used on
// shutdown. Close may run concurrently with writes; the transport permits
// that.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sock := range h.clients {
		_ = sock.conn.Close()
	}
	h.clients = make(map[string]*socket)
	h.rooms = make(map[string]map[string]bool)
	h.memberRoom = make(map[string]string)
}

func (h *Hub) removeFromRoomLocked(socketID string) {
	roomID, ok := h.memberRoom[socketID]
	if !ok {
		return
	}
	delete(h.rooms[roomID], socketID)
	if len(h.rooms[roomID]) == 0 {
		delete(h.rooms, roomID)
	}
	delete(h.memberRoom, socketID)
}
