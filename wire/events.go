// Package wire defines the JSON protocol spoken between the editor client and
// the relay server. Event names and payload field names are the contract the
// browser client relies on; do not rename them.
package wire

import "encoding/json"

// Event names.
const (
	EventJoin         = "join"
	EventJoined       = "joined"
	EventCodeChange   = "code-change"
	EventSyncCode     = "sync-code"
	EventDisconnected = "disconnected"
	EventError        = "error"
)

// Envelope frames every message on the socket.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client identifies one room member as seen on the wire.
type Client struct {
	SocketID string `json:"socketId"`
	Username string `json:"username"`
}

// JoinPayload is sent by a client to enter a room.
type JoinPayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

// JoinedPayload is multicast to every room member, the joiner included, so the
// joiner can initialize its own membership view.
type JoinedPayload struct {
	Clients  []Client `json:"clients"`
	Username string   `json:"username"`
	SocketID string   `json:"socketId"`
}

// CodeChangePayload carries the full document text. RoomID is only set on the
// client-to-server leg; the relayed copy carries the code alone.
type CodeChangePayload struct {
	RoomID string `json:"roomId,omitempty"`
	Code   string `json:"code"`
}

// SyncCodePayload pushes the sender's current text at a single target socket.
// The target is the new joiner; the text originates from a member that already
// holds a copy.
type SyncCodePayload struct {
	SocketID string `json:"socketId"`
	Code     string `json:"code"`
}

// DisconnectedPayload is broadcast to the remaining members of a room when a
// connection drops.
type DisconnectedPayload struct {
	SocketID string `json:"socketId"`
	Username string `json:"username"`
}

// ErrorPayload reports a rejected or malformed request back to its sender.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Encode marshals an event and its payload into a framed message.
func Encode(event string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Payload: raw})
}

// Decode unmarshals a framed message into an envelope.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}
