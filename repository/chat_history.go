package repository

import (
	"context"
	"fmt"

	"stock-scout/models"
	"stock-scout/observability"

	"github.com/google/uuid"
)

// AppendChatEntry persists one conversation turn
func (r *Repository) AppendChatEntry(ctx context.Context, entry *models.ChatEntry) error {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()

	_, err := r.db.Exec(ctx, `
		INSERT INTO chat_history (id, user_id, conversation_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.UserID, entry.ConversationID, entry.Role, entry.Content, entry.CreatedAt)

	timer.ObserveDB("insert", "chat_history")
	if err != nil {
		metrics.RecordDBError("insert", "chat_history")
		return fmt.Errorf("failed to append chat entry: %w", err)
	}

	return nil
}

// GetConversation returns a conversation's turns in time order
func (r *Repository) GetConversation(ctx context.Context, userID string, conversationID uuid.UUID, limit int) ([]models.ChatEntry, error) {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()

	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, conversation_id, role, content, created_at
		FROM chat_history
		WHERE user_id = $1 AND conversation_id = $2
		ORDER BY created_at ASC
		LIMIT $3
	`, userID, conversationID, limit)

	timer.ObserveDB("select", "chat_history")
	if err != nil {
		metrics.RecordDBError("select", "chat_history")
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}
	defer rows.Close()

	var entries []models.ChatEntry
	for rows.Next() {
		var e models.ChatEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.ConversationID, &e.Role, &e.Content, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// GetRecentConversations returns a user's distinct conversation ids, newest first
func (r *Repository) GetRecentConversations(ctx context.Context, userID string, limit int) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		SELECT conversation_id, MAX(created_at) AS last_activity
		FROM chat_history
		WHERE user_id = $1
		GROUP BY conversation_id
		ORDER BY last_activity DESC
		LIMIT $2
	`, userID, limit)

	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		var lastActivity interface{}
		if err := rows.Scan(&id, &lastActivity); err != nil {
			return nil, fmt.Errorf("failed to scan conversation id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
