package collab_test

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/collab-editor-demo/modules/broadcast"
	"github.com/example/collab-editor-demo/modules/collab"
	"github.com/example/collab-editor-demo/wire"
)

// mockLogger implements types.Logger for testing.
type mockLogger struct{}

func (m *mockLogger) Debug(msg string, args ...any)         {}
func (m *mockLogger) Info(msg string, args ...any)          {}
func (m *mockLogger) Warn(msg string, args ...any)          {}
func (m *mockLogger) Error(msg string, args ...any)         {}
func (m *mockLogger) With(args ...any) types.Logger         { return m }
func (m *mockLogger) WithError(err error) types.Logger      { return m }
func (m *mockLogger) WithModule(module string) types.Logger { return m }

// fakeConn records every envelope written to one socket.
type fakeConn struct {
	mu        sync.Mutex
	envelopes []wire.Envelope
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	env, err := wire.Decode(data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.envelopes = append(c.envelopes, env)
	return nil
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) received(event string) []wire.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []wire.Envelope
	for _, env := range c.envelopes {
		if env.Event == event {
			out = append(out, env)
		}
	}
	return out
}

// rig wires a registry, a real hub and the service, with fake connections.
type rig struct {
	registry *collab.Registry
	hub      *broadcast.Hub
	service  *collab.Service
	conns    map[string]*fakeConn
}

func newRig() *rig {
	logger := &mockLogger{}
	registry := collab.NewRegistry()
	hub := broadcast.NewHub(registry, logger)
	service := collab.NewService(registry, logger)
	service.SetSender(hub)
	return &rig{
		registry: registry,
		hub:      hub,
		service:  service,
		conns:    make(map[string]*fakeConn),
	}
}

func (r *rig) connect(socketID string) *fakeConn {
	conn := &fakeConn{}
	r.conns[socketID] = conn
	r.hub.Attach(socketID, conn)
	return conn
}

func (r *rig) join(t *testing.T, socketID, roomID, username string) {
	t.Helper()
	require.NoError(t, r.service.HandleJoin(socketID, wire.JoinPayload{
		RoomID:   roomID,
		Username: username,
	}))
}

func memberSet(members []wire.Client) map[string]string {
	set := make(map[string]string, len(members))
	for _, m := range members {
		set[m.SocketID] = m.Username
	}
	return set
}

func decodeJoined(t *testing.T, env wire.Envelope) wire.JoinedPayload {
	t.Helper()
	var p wire.JoinedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	return p
}

func decodeCodeChange(t *testing.T, env wire.Envelope) wire.CodeChangePayload {
	t.Helper()
	var p wire.CodeChangePayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	return p
}

func TestHandleJoin_RejectsMissingFields(t *testing.T) {
	r := newRig()
	r.connect("s1")

	err := r.service.HandleJoin("s1", wire.JoinPayload{Username: "alice"})
	assert.ErrorIs(t, err, collab.ErrRoomIDRequired)

	err = r.service.HandleJoin("s1", wire.JoinPayload{RoomID: "abc123"})
	assert.ErrorIs(t, err, collab.ErrUsernameRequired)

	// Nothing was registered or subscribed.
	_, ok := r.registry.Lookup("s1")
	assert.False(t, ok)
	assert.Empty(t, r.hub.Members("abc123"))
}

func TestHandleJoin_MulticastsIdenticalMemberList(t *testing.T) {
	r := newRig()
	connX := r.connect("x")
	connY := r.connect("y")

	r.join(t, "x", "abc123", "X")
	r.join(t, "y", "abc123", "Y")

	// Both members receive Y's join with the same fully enumerated list.
	joinedAtX := connX.received(wire.EventJoined)
	joinedAtY := connY.received(wire.EventJoined)
	require.Len(t, joinedAtX, 2) // own join + Y's join
	require.Len(t, joinedAtY, 1)

	lastAtX := decodeJoined(t, joinedAtX[1])
	atY := decodeJoined(t, joinedAtY[0])

	assert.Equal(t, "y", lastAtX.SocketID)
	assert.Equal(t, "Y", lastAtX.Username)
	assert.Equal(t, memberSet(lastAtX.Clients), memberSet(atY.Clients))
	assert.Equal(t, map[string]string{"x": "X", "y": "Y"}, memberSet(atY.Clients))
}

func TestHandleJoin_Idempotent(t *testing.T) {
	r := newRig()
	r.connect("x")

	r.join(t, "x", "abc123", "X")
	r.join(t, "x", "abc123", "X")

	members := r.hub.Members("abc123")
	assert.Len(t, members, 1)
}

func TestMembership_TracksJoinsAndDisconnects(t *testing.T) {
	r := newRig()
	r.connect("a")
	r.connect("b")
	r.connect("c")

	r.join(t, "a", "room-1", "A")
	r.join(t, "b", "room-1", "B")
	r.join(t, "c", "room-1", "C")
	assert.Equal(t, map[string]string{"a": "A", "b": "B", "c": "C"}, memberSet(r.hub.Members("room-1")))

	r.service.HandleDisconnect("b")
	assert.Equal(t, map[string]string{"a": "A", "c": "C"}, memberSet(r.hub.Members("room-1")))

	_, ok := r.registry.Lookup("b")
	assert.False(t, ok)
}

func TestHandleCodeChange_SkipsSender(t *testing.T) {
	r := newRig()
	connX := r.connect("x")
	connY := r.connect("y")
	r.join(t, "x", "abc123", "X")
	r.join(t, "y", "abc123", "Y")

	require.NoError(t, r.service.HandleCodeChange("x", wire.CodeChangePayload{
		RoomID: "abc123",
		Code:   "let x=2;",
	}))

	changes := connY.received(wire.EventCodeChange)
	require.Len(t, changes, 1)
	assert.Equal(t, "let x=2;", decodeCodeChange(t, changes[0]).Code)

	assert.Empty(t, connX.received(wire.EventCodeChange))
}

func TestHandleCodeChange_FallsBackToCurrentRoom(t *testing.T) {
	r := newRig()
	r.connect("x")
	connY := r.connect("y")
	r.join(t, "x", "abc123", "X")
	r.join(t, "y", "abc123", "Y")

	require.NoError(t, r.service.HandleCodeChange("x", wire.CodeChangePayload{Code: "a"}))
	assert.Len(t, connY.received(wire.EventCodeChange), 1)

	err := r.service.HandleCodeChange("ghost", wire.CodeChangePayload{Code: "a"})
	assert.ErrorIs(t, err, collab.ErrNotInRoom)
}

func TestHandleSyncCode_UnicastsToTargetOnly(t *testing.T) {
	r := newRig()
	connX := r.connect("x")
	connY := r.connect("y")
	connZ := r.connect("z")
	r.join(t, "x", "abc123", "X")
	r.join(t, "y", "abc123", "Y")
	r.join(t, "z", "abc123", "Z")

	// X pushes its text at the new joiner Y.
	require.NoError(t, r.service.HandleSyncCode("x", wire.SyncCodePayload{
		SocketID: "y",
		Code:     "let x=1;",
	}))

	changes := connY.received(wire.EventCodeChange)
	require.Len(t, changes, 1)
	assert.Equal(t, "let x=1;", decodeCodeChange(t, changes[0]).Code)

	assert.Empty(t, connX.received(wire.EventCodeChange))
	assert.Empty(t, connZ.received(wire.EventCodeChange))
}

func TestHandleSyncCode_DeadTargetIsSilentlyDropped(t *testing.T) {
	r := newRig()
	r.connect("x")
	r.join(t, "x", "abc123", "X")

	// Fire-and-forget: no error, nothing delivered anywhere.
	require.NoError(t, r.service.HandleSyncCode("x", wire.SyncCodePayload{
		SocketID: "gone",
		Code:     "text",
	}))
}

func TestHandleDisconnect_NotifiesRemainingMembersOnce(t *testing.T) {
	r := newRig()
	connX := r.connect("x")
	connY := r.connect("y")
	r.join(t, "x", "abc123", "X")
	r.join(t, "y", "abc123", "Y")

	r.service.HandleDisconnect("y")
	r.hub.Detach("y")

	left := connX.received(wire.EventDisconnected)
	require.Len(t, left, 1)
	var p wire.DisconnectedPayload
	require.NoError(t, json.Unmarshal(left[0].Payload, &p))
	assert.Equal(t, "y", p.SocketID)
	assert.Equal(t, "Y", p.Username)

	// The departing socket does not hear its own departure.
	assert.Empty(t, connY.received(wire.EventDisconnected))

	assert.Equal(t, map[string]string{"x": "X"}, memberSet(r.hub.Members("abc123")))
}

func TestHandleDisconnect_UnjoinedSocketIsNoOp(t *testing.T) {
	r := newRig()
	connX := r.connect("x")
	r.join(t, "x", "abc123", "X")

	// A socket that connected but never joined produces no fan-out.
	r.connect("lurker")
	r.service.HandleDisconnect("lurker")

	assert.Empty(t, connX.received(wire.EventDisconnected))
}

func TestScenario_JoinSyncEditDisconnect(t *testing.T) {
	r := newRig()
	connX := r.connect("x")
	connY := r.connect("y")

	r.join(t, "x", "abc123", "X")
	r.join(t, "y", "abc123", "Y")

	// Y appears exactly once in the joined payload delivered to both.
	for _, conn := range []*fakeConn{connX, connY} {
		joins := conn.received(wire.EventJoined)
		p := decodeJoined(t, joins[len(joins)-1])
		seen := 0
		for _, c := range p.Clients {
			if c.SocketID == "y" {
				seen++
			}
		}
		assert.Equal(t, 1, seen)
	}

	// X pushes its earlier text at Y; Y receives it verbatim, once.
	require.NoError(t, r.service.HandleSyncCode("x", wire.SyncCodePayload{SocketID: "y", Code: "let x=1;"}))
	syncs := connY.received(wire.EventCodeChange)
	require.Len(t, syncs, 1)
	assert.Equal(t, "let x=1;", decodeCodeChange(t, syncs[0]).Code)

	// X edits; Y sees it, X hears nothing back.
	require.NoError(t, r.service.HandleCodeChange("x", wire.CodeChangePayload{RoomID: "abc123", Code: "let x=2;"}))
	edits := connY.received(wire.EventCodeChange)
	require.Len(t, edits, 2)
	assert.Equal(t, "let x=2;", decodeCodeChange(t, edits[1]).Code)
	assert.Empty(t, connX.received(wire.EventCodeChange))

	// Y disconnects; X gets exactly one notification and remains alone.
	r.service.HandleDisconnect("y")
	r.hub.Detach("y")
	require.Len(t, connX.received(wire.EventDisconnected), 1)
	assert.Equal(t, map[string]string{"x": "X"}, memberSet(r.hub.Members("abc123")))
}
