package ai

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"conversation-store/internal/domain/ports/adapter"
)

var _ adapter.Responder = (*GeminiResponder)(nil)

type GeminiResponder struct {
	client  *genai.Client
	model   string
	trimmer *HistoryTrimmer
}

// NewGeminiResponder creates a Gemini responder using the official SDK.
func NewGeminiResponder(ctx context.Context, apiKey, baseURL, model string, trimmer *HistoryTrimmer) (*GeminiResponder, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiResponder{client: c, model: model, trimmer: trimmer}, nil
}

func (g *GeminiResponder) Name() string { return "gemini" }

func (g *GeminiResponder) Reply(ctx context.Context, req adapter.ReplyRequest) (string, error) {
	msgs := messagesFor(req, g.trimmer)
	last := msgs[len(msgs)-1]

	chat, err := g.client.Chats.Create(ctx, g.model, nil, toGenAIHistory(msgs[:len(msgs)-1]))
	if err != nil {
		return "", err
	}
	resp, err := chat.SendMessage(ctx, genai.Part{Text: last.Content})
	if err != nil {
		return "", err
	}
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		var b strings.Builder
		for _, p := range resp.Candidates[0].Content.Parts {
			if p != nil {
				b.WriteString(p.Text)
			}
		}
		if b.Len() > 0 {
			return b.String(), nil
		}
	}
	return "", errors.New("gemini: empty response")
}

func toGenAIHistory(msgs []adapter.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.RoleUser
		if strings.ToLower(m.Role) == "assistant" {
			role = genai.RoleModel
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return out
}
