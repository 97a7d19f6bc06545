// Package memory holds conversation records and the namespaced managers that
// store and retrieve them.
package memory

import (
	"strings"
	"time"
)

// Well-known namespaces.
const (
	NamespaceMessages     = "messages"
	NamespaceDescriptions = "descriptions"
)

// Content is the payload of a message: text plus the action the author chose.
type Content struct {
	Text   string `json:"content"`
	Action string `json:"action,omitempty"`
}

// Valid reports whether the content carries text or an action tag.
func (c Content) Valid() bool {
	return strings.TrimSpace(c.Text) != "" || strings.TrimSpace(c.Action) != ""
}

// Message is an inbound message as received from a sender.
type Message struct {
	UserID  string   `json:"userId"`
	RoomID  string   `json:"room_id"`
	UserIDs []string `json:"userIds,omitempty"`
	Content Content  `json:"content"`
}

// Memory is a stored record in one namespace.
type Memory struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	RoomID    string    `json:"room_id"`
	UserIDs   []string  `json:"user_ids,omitempty"`
	Content   Content   `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Query selects memories from a namespace. Empty fields do not filter.
// Count keeps only the newest Count records; zero keeps all.
type Query struct {
	RoomID string
	UserID string
	Count  int
}
