package api

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/collab-editor-demo/wire"
)

const defaultActivityLimit = 50

// handleWebSocket owns one connection: it mints the socket id, attaches the
// connection for unicast and runs the read loop until the transport drops.
func (m *APIModule) handleWebSocket(c *websocket.Conn) {
	socketID := uuid.New().String()
	m.hub.Attach(socketID, c)

	defer func() {
		m.service.HandleDisconnect(socketID)
		m.hub.Detach(socketID)
		_ = c.Close()
	}()

	m.logger.Info("WebSocket connected", "socketID", socketID)

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.logger.Error("WebSocket error", "socketID", socketID, "error", err)
			}
			break
		}
		m.handleFrame(socketID, raw)
	}

	m.logger.Info("WebSocket disconnected", "socketID", socketID)
}

// handleFrame decodes and dispatches one inbound frame. Malformed frames are
// answered with an error envelope and otherwise ignored; they never take the
// connection down.
func (m *APIModule) handleFrame(socketID string, raw []byte) {
	env, err := wire.Decode(raw)
	if err != nil {
		m.sendError(socketID, "invalid message format")
		return
	}
	m.dispatch(socketID, env)
}

// dispatch routes one inbound envelope to the protocol service.
func (m *APIModule) dispatch(socketID string, env wire.Envelope) {
	switch env.Event {
	case wire.EventJoin:
		var p wire.JoinPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			m.sendError(socketID, "invalid join payload")
			return
		}
		if err := m.service.HandleJoin(socketID, p); err != nil {
			m.sendError(socketID, err.Error())
		}
	case wire.EventCodeChange:
		var p wire.CodeChangePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			m.sendError(socketID, "invalid code-change payload")
			return
		}
		if err := m.service.HandleCodeChange(socketID, p); err != nil {
			m.sendError(socketID, err.Error())
		}
	case wire.EventSyncCode:
		var p wire.SyncCodePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			m.sendError(socketID, "invalid sync-code payload")
			return
		}
		if err := m.service.HandleSyncCode(socketID, p); err != nil {
			m.sendError(socketID, err.Error())
		}
	default:
		m.sendError(socketID, "unknown event: "+env.Event)
	}
}

// sendError pushes an error envelope back at the offending sender. Delivery
// goes through the hub so it shares the connection's write lock with room
// fan-out running on other goroutines.
func (m *APIModule) sendError(socketID, message string) {
	data, err := wire.Encode(wire.EventError, wire.ErrorPayload{Message: message})
	if err != nil {
		m.logger.Error("Failed to encode error event", "error", err)
		return
	}
	m.hub.Unicast(socketID, data)
}

// REST handlers

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"module":            "api",
			"connected_clients": m.hub.ClientCount(),
		},
	})
}

// createRoom handles POST /api/v1/rooms. It mints a fresh room id; the room
// itself only comes to exist once a socket joins it.
func (m *APIModule) createRoom(c *fiber.Ctx) error {
	return c.Status(fiber.StatusCreated).JSON(CreateRoomResponse{
		RoomID: m.newRoomID(),
	})
}

// getRoom handles GET /api/v1/rooms/:id.
func (m *APIModule) getRoom(c *fiber.Ctx) error {
	roomID := c.Params("id")

	clients := m.hub.Members(roomID)
	if len(clients) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Room has no members",
		})
	}

	return c.JSON(RoomResponse{
		RoomID:  roomID,
		Clients: clients,
		Count:   len(clients),
	})
}

// getActivity handles GET /api/v1/rooms/:id/activity.
func (m *APIModule) getActivity(c *fiber.Ctx) error {
	roomID := c.Params("id")

	limit := defaultActivityLimit
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}

	entries, err := m.activity.Feed(c.UserContext(), roomID, limit)
	if err != nil {
		m.logger.Error("Failed to read activity feed", "roomID", roomID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "feed_failed",
			Message: "Failed to read activity feed",
		})
	}

	return c.JSON(ActivityResponse{
		RoomID:  roomID,
		Entries: entries,
		Total:   len(entries),
	})
}
