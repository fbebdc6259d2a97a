package models

import "time"

// LiveUser is the presence record for one connected viewer. The record is
// created on join, mutated only by events from its own connection, and
// removed on disconnect.
type LiveUser struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	Avatar    string   `json:"avatar"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// ChatMessage is transient: delivered to everyone currently connected,
// never persisted.
type ChatMessage struct {
	User      LiveUser  `json:"user"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
