package adapter

import "context"

// Message represents a chat message handed to a responder as context.
type Message struct {
	Role    string `json:"role"` // "user", "assistant"
	Content string `json:"content"`
}

// ReplyRequest carries the user message a reply is wanted for. History holds
// the conversation so far, ending with the same user message; responders that
// only care about the latest text can ignore it.
type ReplyRequest struct {
	ConversationID string
	Text           string
	History        []Message
}

// Responder is the port for whatever produces assistant replies.
type Responder interface {
	Name() string
	// Reply returns only the assistant text. The store does not validate or
	// transform it.
	Reply(ctx context.Context, req ReplyRequest) (string, error)
}

// TokenCounter estimates the number of tokens a text costs a given model.
type TokenCounter interface {
	Count(model, text string) int
}
