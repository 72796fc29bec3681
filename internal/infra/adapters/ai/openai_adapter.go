package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"conversation-store/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.Responder = (*OpenAIResponder)(nil)

// OpenAIResponder produces replies with the Chat Completions API. Any
// OpenAI-compatible gateway works when baseURL is set.
type OpenAIResponder struct {
	client  openai.Client
	model   string
	trimmer *HistoryTrimmer
}

func NewOpenAIResponder(apiKey, baseURL, model string, trimmer *HistoryTrimmer) (*OpenAIResponder, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(1)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIResponder{
		client:  openai.NewClient(opts...),
		model:   model,
		trimmer: trimmer,
	}, nil
}

func (o *OpenAIResponder) Name() string { return "openai" }

func (o *OpenAIResponder) Reply(ctx context.Context, req adapter.ReplyRequest) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: toOpenAIMessages(messagesFor(req, o.trimmer)),
	})
	if err != nil {
		return "", err
	}
	for _, c := range resp.Choices {
		if c.Message.Content != "" {
			return c.Message.Content, nil
		}
	}
	return "", errors.New("no choice content")
}

func toOpenAIMessages(msgs []adapter.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch strings.ToLower(m.Role) {
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
