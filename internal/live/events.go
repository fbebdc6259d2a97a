package live

import "encoding/json"

// Client -> server events.
const (
	EventJoin           = "join"
	EventLocationUpdate = "locationUpdate"
	EventChatMessage    = "chatMessage"
)

// Server -> client events.
const (
	EventCurrentUsers        = "currentUsers"
	EventUserJoined          = "userJoined"
	EventLocationReceived    = "locationReceived"
	EventChatMessageReceived = "chatMessageReceived"
	EventUserDisconnected    = "userDisconnected"
	EventTrackingUpdate      = "trackingUpdate"
	EventError               = "error"
)

// Envelope is the wire format in both directions: a named event with a
// JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// OutEvent is an outbound event before marshaling.
type OutEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type JoinPayload struct {
	Username string `json:"username"`
}

type LocationPayload struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type ChatPayload struct {
	Message string `json:"message"`
}
