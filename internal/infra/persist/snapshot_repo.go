// Package persist turns the conversation collection into a single JSON blob
// stored under one key of a repository.KVStore.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"conversation-store/internal/domain"
	"conversation-store/internal/domain/model"
	"conversation-store/internal/domain/ports/repository"
	"conversation-store/internal/infra/metrics"
)

var _ repository.ConversationRepository = (*SnapshotRepository)(nil)

// Stored format. Field names and role values are part of the durable contract;
// timestamps are Unix milliseconds.
type storedMessage struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

type storedConversation struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Timestamp int64           `json:"timestamp"`
	Messages  []storedMessage `json:"messages"`
}

// SnapshotRepository reads and writes the whole collection under key.
type SnapshotRepository struct {
	kv  repository.KVStore
	key string
	log *zerolog.Logger
}

func NewSnapshotRepository(kv repository.KVStore, key string, logger *zerolog.Logger) *SnapshotRepository {
	l := logger.With().Str("component", "SnapshotRepository").Str("key", key).Logger()
	return &SnapshotRepository{kv: kv, key: key, log: &l}
}

// Load never surfaces a parse error: corrupt data is logged and discarded as a
// whole.
func (r *SnapshotRepository) Load(ctx context.Context) ([]*model.Conversation, error) {
	raw, err := r.kv.Get(ctx, r.key)
	if errors.Is(err, domain.ErrNotFound) {
		metrics.IncPersistLoad("empty")
		return []*model.Conversation{}, nil
	}
	if err != nil {
		metrics.IncPersistLoad("error")
		return nil, fmt.Errorf("load %s: %w", r.key, err)
	}

	convs, err := Decode([]byte(raw))
	if err != nil {
		metrics.IncPersistLoad("corrupt")
		r.log.Error().Err(err).Int("bytes", len(raw)).Msg("failed to parse stored conversations; starting empty")
		return []*model.Conversation{}, nil
	}
	metrics.IncPersistLoad("ok")
	r.log.Debug().Int("conversations", len(convs)).Msg("conversations loaded")
	return convs, nil
}

func (r *SnapshotRepository) Save(ctx context.Context, conversations []*model.Conversation) error {
	b, err := Encode(conversations)
	if err != nil {
		metrics.IncPersistSave("error")
		return err
	}
	if err := r.kv.Set(ctx, r.key, string(b)); err != nil {
		metrics.IncPersistSave("error")
		return fmt.Errorf("save %s: %w", r.key, err)
	}
	metrics.IncPersistSave("ok")
	metrics.ObserveSaveBytes(len(b))
	return nil
}

// Encode serializes conversations in the stored format.
func Encode(conversations []*model.Conversation) ([]byte, error) {
	out := make([]storedConversation, 0, len(conversations))
	for _, c := range conversations {
		sc := storedConversation{
			ID:        c.ID,
			Title:     c.Title,
			Timestamp: c.Timestamp.UnixMilli(),
			Messages:  make([]storedMessage, 0, len(c.Messages)),
		}
		for _, m := range c.Messages {
			sc.Messages = append(sc.Messages, storedMessage{
				ID:        m.ID,
				Role:      string(m.Role),
				Content:   m.Content,
				Timestamp: m.Timestamp.UnixMilli(),
			})
		}
		out = append(out, sc)
	}
	return json.Marshal(out)
}

// Decode parses and validates a stored blob. Any violation rejects the blob
// entirely; a nil result is never returned alongside a nil error.
func Decode(b []byte) ([]*model.Conversation, error) {
	var stored []storedConversation
	if err := json.Unmarshal(b, &stored); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptState, err)
	}

	out := make([]*model.Conversation, 0, len(stored))
	for i, sc := range stored {
		if sc.ID == "" {
			return nil, fmt.Errorf("%w: conversation %d has no id", domain.ErrCorruptState, i)
		}
		c := &model.Conversation{
			ID:        sc.ID,
			Title:     sc.Title,
			Timestamp: fromMillis(sc.Timestamp),
			Messages:  make([]model.Message, 0, len(sc.Messages)),
		}
		for j, sm := range sc.Messages {
			if sm.ID == "" {
				return nil, fmt.Errorf("%w: conversation %s message %d has no id", domain.ErrCorruptState, sc.ID, j)
			}
			role, err := model.ParseRole(sm.Role)
			if err != nil {
				return nil, fmt.Errorf("%w: conversation %s message %s: %v", domain.ErrCorruptState, sc.ID, sm.ID, err)
			}
			c.Messages = append(c.Messages, model.Message{
				ID:        sm.ID,
				Role:      role,
				Content:   sm.Content,
				Timestamp: fromMillis(sm.Timestamp),
			})
		}
		out = append(out, c)
	}
	return out, nil
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
