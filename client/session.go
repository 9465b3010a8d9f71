// Package client implements the editor-side session controller: it owns one
// websocket connection for the lifetime of a room view, joins the room, relays
// local edits out and applies remote edits to the text surface.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/example/collab-editor-demo/wire"
)

// State is the session lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateJoined
	StateLeaving
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	case StateLeaving:
		return "leaving"
	default:
		return "disconnected"
	}
}

// Join preconditions are client responsibilities; a session with a missing
// room or username never dials.
var (
	ErrRoomRequired     = errors.New("room id is required")
	ErrUsernameRequired = errors.New("username is required")
	ErrNotConnected     = errors.New("session is not connected")
)

// Config configures a Session.
type Config struct {
	// ServerURL is the websocket endpoint, e.g. ws://localhost:5001/ws.
	ServerURL string
	RoomID    string
	Username  string
	Surface   Surface
	Notifier  Notifier
}

// Session is the client-side controller for one room view.
type Session struct {
	cfg Config

	writeMu sync.Mutex

	mu       sync.Mutex
	conn     *websocket.Conn
	group    *errgroup.Group
	state    State
	socketID string
	code     string
	members  map[string]string // socketID -> username
}

// New validates the configuration and creates a disconnected session. The
// surrounding view must redirect away instead of connecting when the room or
// username is missing.
func New(cfg Config) (*Session, error) {
	if cfg.RoomID == "" {
		return nil, ErrRoomRequired
	}
	if cfg.Username == "" {
		return nil, ErrUsernameRequired
	}
	if cfg.Surface == nil {
		cfg.Surface = SurfaceFunc(func(string) {})
	}
	if cfg.Notifier == nil {
		cfg.Notifier = NotifierFunc(func(Kind, string) {})
	}
	return &Session{
		cfg:     cfg,
		members: make(map[string]string),
	}, nil
}

// Connect dials the server, emits the join request and starts the read loop.
// Membership is confirmed asynchronously: the session reaches StateJoined when
// its own joined event arrives.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateDisconnected {
		s.mu.Unlock()
		return fmt.Errorf("connect from state %s", s.state)
	}
	s.state = StateConnecting
	s.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.cfg.ServerURL, nil)
	if err != nil {
		s.fail("Connection failed, try again later.")
		return fmt.Errorf("dial %s: %w", s.cfg.ServerURL, err)
	}

	group := new(errgroup.Group)
	s.mu.Lock()
	s.conn = conn
	s.group = group
	s.mu.Unlock()

	if err := s.send(wire.EventJoin, wire.JoinPayload{
		RoomID:   s.cfg.RoomID,
		Username: s.cfg.Username,
	}); err != nil {
		_ = conn.Close()
		s.fail("Connection failed, try again later.")
		return fmt.Errorf("send join: %w", err)
	}

	group.Go(s.readLoop)
	return nil
}

// LocalChange records a local edit and relays it to the room. Called by the
// surface binding on every local change.
func (s *Session) LocalChange(code string) error {
	s.mu.Lock()
	s.code = code
	joined := s.state == StateJoined
	s.mu.Unlock()

	if !joined {
		return ErrNotConnected
	}
	return s.send(wire.EventCodeChange, wire.CodeChangePayload{
		RoomID: s.cfg.RoomID,
		Code:   code,
	})
}

// Close leaves the room by closing the connection and waits until the read
// loop has released every handler, so no callbacks fire after Close returns.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return nil
	}
	s.state = StateLeaving
	conn := s.conn
	group := s.group
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	var err error
	if group != nil {
		err = group.Wait()
	}

	s.mu.Lock()
	s.state = StateDisconnected
	s.mu.Unlock()
	return err
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SocketID returns the server-assigned socket id, empty until joined.
func (s *Session) SocketID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.socketID
}

// Code returns the latest text the session has seen.
func (s *Session) Code() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code
}

// Members returns a snapshot of the current membership view.
func (s *Session) Members() []wire.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := make([]wire.Client, 0, len(s.members))
	for socketID, username := range s.members {
		members = append(members, wire.Client{SocketID: socketID, Username: username})
	}
	return members
}

func (s *Session) readLoop() error {
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			leaving := s.state == StateLeaving
			s.state = StateDisconnected
			s.mu.Unlock()
			if leaving {
				return nil
			}
			s.cfg.Notifier.Signal(KindError, "Connection lost, try again later.")
			return err
		}

		env, err := wire.Decode(raw)
		if err != nil {
			continue
		}
		s.handle(env)
	}
}

func (s *Session) handle(env wire.Envelope) {
	switch env.Event {
	case wire.EventJoined:
		var p wire.JoinedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		s.handleJoined(p)
	case wire.EventCodeChange:
		var p wire.CodeChangePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		s.handleCodeChange(p)
	case wire.EventDisconnected:
		var p wire.DisconnectedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		s.handleDisconnected(p)
	case wire.EventError:
		var p wire.ErrorPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		s.cfg.Notifier.Signal(KindError, p.Message)
	}
}

// handleJoined processes a joined multicast. Per-room ordering guarantees the
// session's own confirmation is the first joined event it sees.
func (s *Session) handleJoined(p wire.JoinedPayload) {
	s.mu.Lock()
	own := s.state == StateConnecting
	if own {
		s.state = StateJoined
		s.socketID = p.SocketID
	}
	s.members = make(map[string]string, len(p.Clients))
	for _, c := range p.Clients {
		s.members[c.SocketID] = c.Username
	}
	code := s.code
	s.mu.Unlock()

	if own {
		s.cfg.Notifier.Signal(KindSuccess, fmt.Sprintf("You joined as %s", p.Username))
		return
	}

	s.cfg.Notifier.Signal(KindSuccess, fmt.Sprintf("%s joined the room", p.Username))

	// Push the current text at the new joiner. A session holding nothing has
	// nothing to sync.
	if code != "" {
		if err := s.send(wire.EventSyncCode, wire.SyncCodePayload{
			SocketID: p.SocketID,
			Code:     code,
		}); err != nil {
			s.cfg.Notifier.Signal(KindError, "Failed to sync code with new member")
		}
	}
}

// handleCodeChange applies a remote edit by full replacement, but only when
// the text actually differs; applying an identical copy would re-trigger the
// local-change notification and echo the edit back into the room.
func (s *Session) handleCodeChange(p wire.CodeChangePayload) {
	s.mu.Lock()
	changed := p.Code != s.code
	if changed {
		s.code = p.Code
	}
	s.mu.Unlock()

	if changed {
		s.cfg.Surface.Apply(p.Code)
	}
}

func (s *Session) handleDisconnected(p wire.DisconnectedPayload) {
	s.mu.Lock()
	delete(s.members, p.SocketID)
	s.mu.Unlock()

	s.cfg.Notifier.Signal(KindInfo, fmt.Sprintf("%s left the room", p.Username))
}

func (s *Session) send(event string, payload any) error {
	data, err := wire.Encode(event, payload)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Session) fail(message string) {
	s.mu.Lock()
	s.state = StateDisconnected
	s.mu.Unlock()
	s.cfg.Notifier.Signal(KindError, message)
}
