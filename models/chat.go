package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one turn of a conversation as exchanged over the API.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ChatEntry is a persisted conversation turn.
type ChatEntry struct {
	ID             uuid.UUID `json:"id"`
	UserID         string    `json:"user_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewChatEntry creates a ChatEntry for the given turn.
func NewChatEntry(userID string, conversationID uuid.UUID, role, content string) *ChatEntry {
	return &ChatEntry{
		ID:             uuid.New(),
		UserID:         userID,
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now(),
	}
}

// SnapshotBuild is an audit record of one snapshot refresh attempt.
type SnapshotBuild struct {
	ID             uuid.UUID  `json:"id"`
	SnapshotID     *uuid.UUID `json:"snapshot_id,omitempty"`
	Status         string     `json:"status"` // "completed" or "failed"
	SymbolsTracked int        `json:"symbols_tracked"`
	SymbolsLoaded  int        `json:"symbols_loaded"`
	ErrorMessage   *string    `json:"error_message,omitempty"`
	DurationMs     int64      `json:"duration_ms"`
	StartedAt      time.Time  `json:"started_at"`
}
