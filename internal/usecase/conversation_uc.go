// File: internal/usecase/conversation_uc.go
package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"conversation-store/internal/domain/model"
	"conversation-store/internal/domain/ports/repository"
	"conversation-store/internal/infra/metrics"
)

// Compile-time check
var _ ConversationUseCase = (*conversationStore)(nil)

// saveTimeout bounds a single write of the collection.
const saveTimeout = 10 * time.Second

// IDGenerator hands out unique ids together with their creation instant.
type IDGenerator interface {
	Next() (string, time.Time)
}

// ConversationUseCase is the in-memory conversation collection plus the
// current-conversation pointer. Operations that reference a missing
// conversation are silent no-ops.
type ConversationUseCase interface {
	Create(ctx context.Context) *model.Conversation
	Append(ctx context.Context, conversationID string, in model.MessageInput) (model.Message, bool)
	Delete(ctx context.Context, conversationID string) bool
	Select(ctx context.Context, conversationID string) bool
	Current(ctx context.Context) (*model.Conversation, bool)
	CurrentID() string
	Get(ctx context.Context, conversationID string) (*model.Conversation, bool)
	List(ctx context.Context) []*model.Conversation
	OnDelete(fn func(conversationID string))
}

type conversationStore struct {
	mu            sync.Mutex
	conversations []*model.Conversation // newest first
	currentID     string

	repo repository.ConversationRepository
	ids  IDGenerator
	log  *zerolog.Logger

	listenersMu sync.RWMutex
	onDelete    []func(string)
}

// NewConversationStore seeds the store from repo. Load runs exactly once,
// before the store is returned, so no mutation can precede it.
func NewConversationStore(ctx context.Context, repo repository.ConversationRepository, ids IDGenerator, logger *zerolog.Logger) (*conversationStore, error) {
	l := logger.With().Str("component", "ConversationStore").Logger()
	loaded, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load conversations: %w", err)
	}
	if loaded == nil {
		loaded = []*model.Conversation{}
	}
	s := &conversationStore{
		conversations: loaded,
		repo:          repo,
		ids:           ids,
		log:           &l,
	}
	metrics.SetConversations(len(loaded))
	l.Info().Int("conversations", len(loaded)).Msg("conversation store ready")
	return s, nil
}

func (s *conversationStore) Create(ctx context.Context) *model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, now := s.ids.Next()
	c := model.NewConversation(id, now)
	s.conversations = append([]*model.Conversation{c}, s.conversations...)
	s.currentID = c.ID

	s.persistLocked(ctx)
	metrics.IncStoreOp("create", "ok")
	metrics.SetConversations(len(s.conversations))
	s.log.Debug().Str("conversation_id", c.ID).Msg("conversation created")
	return c.Clone()
}

func (s *conversationStore) Append(ctx context.Context, conversationID string, in model.MessageInput) (model.Message, bool) {
	if !in.Role.Valid() {
		s.log.Warn().Str("conversation_id", conversationID).Str("role", string(in.Role)).Msg("append rejected: invalid role")
		metrics.IncStoreOp("append", "noop")
		return model.Message{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.findLocked(conversationID)
	if c == nil {
		// The target may have been deleted while a reply was in flight.
		s.log.Debug().Str("conversation_id", conversationID).Msg("append skipped: conversation not found")
		metrics.IncStoreOp("append", "noop")
		return model.Message{}, false
	}

	id, now := s.ids.Next()
	msg := model.Message{
		ID:        id,
		Role:      in.Role,
		Content:   in.Content,
		Timestamp: now,
	}
	c.AddMessage(msg)

	s.persistLocked(ctx)
	metrics.IncStoreOp("append", "ok")
	metrics.IncMessageAppended(string(msg.Role))
	return msg, true
}

func (s *conversationStore) Delete(ctx context.Context, conversationID string) bool {
	s.mu.Lock()
	idx := s.indexLocked(conversationID)
	if idx < 0 {
		s.mu.Unlock()
		metrics.IncStoreOp("delete", "noop")
		return false
	}
	s.conversations = append(s.conversations[:idx:idx], s.conversations[idx+1:]...)
	if s.currentID == conversationID {
		s.currentID = ""
	}
	s.persistLocked(ctx)
	n := len(s.conversations)
	s.mu.Unlock()

	metrics.IncStoreOp("delete", "ok")
	metrics.SetConversations(n)
	s.log.Debug().Str("conversation_id", conversationID).Msg("conversation deleted")

	s.listenersMu.RLock()
	listeners := append([]func(string){}, s.onDelete...)
	s.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(conversationID)
	}
	return true
}

// Select changes focus only; it is not part of durable state and never saves.
func (s *conversationStore) Select(ctx context.Context, conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findLocked(conversationID) == nil {
		metrics.IncStoreOp("select", "noop")
		return false
	}
	s.currentID = conversationID
	metrics.IncStoreOp("select", "ok")
	return true
}

func (s *conversationStore) Current(ctx context.Context) (*model.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentID == "" {
		return nil, false
	}
	c := s.findLocked(s.currentID)
	if c == nil {
		return nil, false
	}
	return c.Clone(), true
}

func (s *conversationStore) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentID
}

func (s *conversationStore) Get(ctx context.Context, conversationID string) (*model.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.findLocked(conversationID)
	if c == nil {
		return nil, false
	}
	return c.Clone(), true
}

func (s *conversationStore) List(ctx context.Context) []*model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *conversationStore) OnDelete(fn func(conversationID string)) {
	if fn == nil {
		return
	}
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.onDelete = append(s.onDelete, fn)
}

// --- internal ---

func (s *conversationStore) indexLocked(id string) int {
	for i, c := range s.conversations {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s *conversationStore) findLocked(id string) *model.Conversation {
	if i := s.indexLocked(id); i >= 0 {
		return s.conversations[i]
	}
	return nil
}

func (s *conversationStore) snapshotLocked() []*model.Conversation {
	out := make([]*model.Conversation, len(s.conversations))
	for i, c := range s.conversations {
		out[i] = c.Clone()
	}
	return out
}

// persistLocked hands a full copy of the collection to the repository while
// the store lock is held, so snapshots reach it in mutation order. The save
// outlives the caller's context: an applied mutation is always written.
// Failures are logged; the in-memory state stays authoritative.
func (s *conversationStore) persistLocked(ctx context.Context) {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	if err := s.repo.Save(saveCtx, s.snapshotLocked()); err != nil {
		s.log.Error().Err(err).Int("conversations", len(s.conversations)).Msg("failed to persist conversations")
	}
}
