// File: internal/usecase/chat_uc.go
package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"conversation-store/internal/domain"
	"conversation-store/internal/domain/model"
	"conversation-store/internal/domain/ports/adapter"
	"conversation-store/internal/infra/logging"
	"conversation-store/internal/infra/metrics"
)

// Compile-time check
var _ ChatUseCase = (*chatUC)(nil)

const (
	uploadSucceededFormat = "File \"%s\" uploaded successfully!"
	uploadFailedFormat    = "File \"%s\" upload failed."
)

// SendResult describes where a sent message landed.
type SendResult struct {
	ConversationID string
	Message        model.Message
	Created        bool // a new conversation was started for this message
}

// ChatUseCase is what UI-level collaborators call.
type ChatUseCase interface {
	SendMessage(ctx context.Context, text string) (SendResult, error)
	UploadFile(ctx context.Context, filename string, data []byte) error
}

type chatUC struct {
	store    ConversationUseCase
	replies  *ReplyScheduler
	uploader adapter.Uploader
	log      *zerolog.Logger
	devMode  bool
}

func NewChatUseCase(store ConversationUseCase, replies *ReplyScheduler, uploader adapter.Uploader, logger *zerolog.Logger, devMode bool) *chatUC {
	l := logger.With().Str("component", "ChatUC").Logger()
	return &chatUC{store: store, replies: replies, uploader: uploader, log: &l, devMode: devMode}
}

// SendMessage appends a user message to the current conversation (starting
// one when none is selected) and schedules the assistant reply for that same
// conversation, whatever happens to the selection afterwards.
func (c *chatUC) SendMessage(ctx context.Context, text string) (SendResult, error) {
	defer logging.TraceDuration(c.log, "ChatUC.SendMessage")()

	text = strings.TrimSpace(text)
	if text == "" {
		return SendResult{}, domain.ErrInvalidArgument
	}

	var res SendResult
	for attempt := 0; attempt < 2; attempt++ {
		convID := c.store.CurrentID()
		created := false
		if convID == "" {
			convID = c.store.Create(ctx).ID
			created = true
		}
		msg, ok := c.store.Append(ctx, convID, model.MessageInput{Role: model.RoleUser, Content: text})
		if ok {
			res = SendResult{ConversationID: convID, Message: msg, Created: created}
			break
		}
		// The selected conversation vanished between reading the pointer and
		// appending; the retry starts a fresh one.
	}
	if res.ConversationID == "" {
		return SendResult{}, fmt.Errorf("send message: %w", domain.ErrNotFound)
	}

	c.log.Debug().
		Str("conversation_id", res.ConversationID).
		Str("content", logging.Redact(text, c.devMode)).
		Msg("user message appended")

	if c.replies != nil {
		c.replies.Schedule(adapter.ReplyRequest{
			ConversationID: res.ConversationID,
			Text:           text,
			History:        c.history(ctx, res.ConversationID),
		})
	}
	return res, nil
}

// UploadFile sends the file to the uploader and reports the result as a
// status message in the conversation that was current when the upload began.
func (c *chatUC) UploadFile(ctx context.Context, filename string, data []byte) error {
	defer logging.TraceDuration(c.log, "ChatUC.UploadFile")()

	convID := c.store.CurrentID()

	if c.uploader == nil {
		metrics.IncUpload("failed")
		c.appendStatus(ctx, convID, fmt.Sprintf(uploadFailedFormat, filename))
		return fmt.Errorf("%w: no uploader configured", domain.ErrUploadFailed)
	}

	res, err := c.uploader.Upload(ctx, filename, data)
	if err != nil {
		metrics.IncUpload("failed")
		c.log.Warn().Err(err).Str("file", filename).Msg("upload failed")
		c.appendStatus(ctx, convID, fmt.Sprintf(uploadFailedFormat, filename))
		return fmt.Errorf("%w: %s: %v", domain.ErrUploadFailed, filename, err)
	}

	metrics.IncUpload("ok")
	c.log.Info().Str("file", filename).Int("status", res.StatusCode).Int("bytes", len(data)).Msg("file uploaded")
	c.appendStatus(ctx, convID, fmt.Sprintf(uploadSucceededFormat, filename))
	return nil
}

func (c *chatUC) appendStatus(ctx context.Context, convID, text string) {
	if convID == "" {
		return
	}
	c.store.Append(ctx, convID, model.MessageInput{Role: model.RoleUser, Content: text})
}

func (c *chatUC) history(ctx context.Context, convID string) []adapter.Message {
	conv, ok := c.store.Get(ctx, convID)
	if !ok {
		return nil
	}
	out := make([]adapter.Message, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		out = append(out, adapter.Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}
