package collab

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/collab-editor-demo/events"
	"github.com/example/collab-editor-demo/wire"
)

// Validation errors for inbound protocol payloads.
var (
	ErrRoomIDRequired   = errors.New("roomId is required")
	ErrUsernameRequired = errors.New("username is required")
	ErrTargetRequired   = errors.New("target socketId is required")
	ErrNotInRoom        = errors.New("socket is not in a room")
)

// Sender is the fan-out surface the service drives. The broadcast hub
// implements it.
type Sender interface {
	JoinRoom(socketID, roomID string)
	Members(roomID string) []wire.Client
	RoomOf(socketID string) (string, bool)
	BroadcastExcept(roomID, senderID string, data []byte)
	Unicast(socketID string, data []byte)
	LeaveAll(socketID string) (string, bool)
}

// Service implements the relay protocol: it binds sockets to names and rooms
// and fans wire events out. It never stores or inspects document content.
type Service struct {
	registry *Registry
	sender   Sender
	eventBus mono.EventBus
	logger   types.Logger
}

// NewService creates a protocol service over the given registry. The sender is
// injected later, once the broadcast hub exists.
func NewService(registry *Registry, logger types.Logger) *Service {
	return &Service{
		registry: registry,
		logger:   logger,
	}
}

// SetSender injects the fan-out implementation.
func (s *Service) SetSender(sender Sender) {
	s.sender = sender
}

// SetEventBus injects the event bus. Publishing is skipped when no bus is set,
// which keeps unit tests free of event-bus plumbing.
func (s *Service) SetEventBus(bus mono.EventBus) {
	s.eventBus = bus
}

// HandleJoin registers the socket's display name, subscribes it to the room
// and multicasts the identical joined payload, member list included, to every
// member of the room. The joiner receives its own join confirmation.
func (s *Service) HandleJoin(socketID string, p wire.JoinPayload) error {
	if p.RoomID == "" {
		return ErrRoomIDRequired
	}
	if p.Username == "" {
		return ErrUsernameRequired
	}

	s.registry.Register(socketID, p.Username)
	s.sender.JoinRoom(socketID, p.RoomID)

	members := s.sender.Members(p.RoomID)
	data, err := wire.Encode(wire.EventJoined, wire.JoinedPayload{
		Clients:  members,
		Username: p.Username,
		SocketID: socketID,
	})
	if err != nil {
		return fmt.Errorf("encode joined event: %w", err)
	}
	for _, member := range members {
		s.sender.Unicast(member.SocketID, data)
	}

	if s.eventBus != nil {
		if err := events.SessionJoinedV1.Publish(s.eventBus, s.sessionEvent(p.RoomID, socketID, p.Username), nil); err != nil {
			s.logger.Warn("Failed to publish SessionJoined event", "error", err)
		}
	}
	s.logger.Info("Session joined room",
		"socketID", socketID, "roomID", p.RoomID, "username", p.Username)
	return nil
}

// HandleCodeChange relays the document text to every other member of the
// sender's room. The roomId field is optional on the wire; when absent the
// sender's current room is used.
func (s *Service) HandleCodeChange(socketID string, p wire.CodeChangePayload) error {
	roomID := p.RoomID
	if roomID == "" {
		current, ok := s.sender.RoomOf(socketID)
		if !ok {
			return ErrNotInRoom
		}
		roomID = current
	}

	data, err := wire.Encode(wire.EventCodeChange, wire.CodeChangePayload{Code: p.Code})
	if err != nil {
		return fmt.Errorf("encode code-change event: %w", err)
	}
	s.sender.BroadcastExcept(roomID, socketID, data)
	return nil
}

// HandleSyncCode forwards the sender's current text at a single target socket
// as a code-change. The target is the new joiner; delivery to a dead target is
// silently dropped.
func (s *Service) HandleSyncCode(socketID string, p wire.SyncCodePayload) error {
	if p.SocketID == "" {
		return ErrTargetRequired
	}

	data, err := wire.Encode(wire.EventCodeChange, wire.CodeChangePayload{Code: p.Code})
	if err != nil {
		return fmt.Errorf("encode sync event: %w", err)
	}
	s.sender.Unicast(p.SocketID, data)
	return nil
}

// HandleDisconnect notifies the remaining members of the departing socket's
// room, then removes the socket from the registry and the membership index.
func (s *Service) HandleDisconnect(socketID string) {
	username, registered := s.registry.Lookup(socketID)

	if roomID, ok := s.sender.RoomOf(socketID); ok {
		data, err := wire.Encode(wire.EventDisconnected, wire.DisconnectedPayload{
			SocketID: socketID,
			Username: username,
		})
		if err != nil {
			s.logger.Error("Failed to encode disconnected event", "error", err)
		} else {
			s.sender.BroadcastExcept(roomID, socketID, data)
		}
		if s.eventBus != nil {
			if err := events.SessionLeftV1.Publish(s.eventBus, s.sessionEvent(roomID, socketID, username), nil); err != nil {
				s.logger.Warn("Failed to publish SessionLeft event", "error", err)
			}
		}
	}

	s.registry.Unregister(socketID)
	s.sender.LeaveAll(socketID)

	if registered {
		s.logger.Info("Session disconnected", "socketID", socketID, "username", username)
	}
}

func (s *Service) sessionEvent(roomID, socketID, username string) events.SessionEvent {
	return events.SessionEvent{
		RoomID:    roomID,
		SocketID:  socketID,
		Username:  username,
		Timestamp: time.Now(),
	}
}
