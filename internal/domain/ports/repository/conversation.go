package repository

import (
	"context"

	"conversation-store/internal/domain/model"
)

// -----------------------------
// Conversations
// -----------------------------

// ConversationRepository loads and saves the whole conversation collection.
//
// Load must return an empty collection (not an error) when nothing was
// stored yet or when the stored data is corrupt. An error means the backend
// itself could not be reached.
//
// Save replaces whatever was stored before with the full collection.
type ConversationRepository interface {
	Load(ctx context.Context) ([]*model.Conversation, error)
	Save(ctx context.Context, conversations []*model.Conversation) error
}
