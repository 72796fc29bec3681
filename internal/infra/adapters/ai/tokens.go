package ai

import (
	"errors"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"conversation-store/internal/domain/ports/adapter"
)

var _ adapter.TokenCounter = (*TiktokenCounter)(nil)

const fallbackEncoding = "cl100k_base"

var errNoEncoding = errors.New("no token encoding available")

// TiktokenCounter counts tokens with the BPE encoding of the requested model.
// Encodings are loaded lazily and cached; when none can be loaded the count
// falls back to roughly four bytes per token.
type TiktokenCounter struct {
	mu    sync.Mutex
	cache map[string]*tiktoken.Tiktoken
	load  func(model string) (*tiktoken.Tiktoken, error)
}

func NewTiktokenCounter() *TiktokenCounter {
	return NewTiktokenCounterWithLoader(loadEncoding)
}

// NewTiktokenCounterWithLoader uses load to obtain encodings; a nil load
// always falls back to the approximation.
func NewTiktokenCounterWithLoader(load func(model string) (*tiktoken.Tiktoken, error)) *TiktokenCounter {
	if load == nil {
		load = func(string) (*tiktoken.Tiktoken, error) { return nil, errNoEncoding }
	}
	return &TiktokenCounter{
		cache: map[string]*tiktoken.Tiktoken{},
		load:  load,
	}
}

func (c *TiktokenCounter) Count(model, text string) int {
	if text == "" {
		return 0
	}
	if enc := c.encoding(model); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return approxTokens(text)
}

func (c *TiktokenCounter) encoding(model string) *tiktoken.Tiktoken {
	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.cache[model]; ok {
		return enc
	}
	enc, err := c.load(model)
	if err != nil {
		enc = nil
	}
	// Failures are cached too so a missing encoding is not retried per call.
	c.cache[model] = enc
	return enc
}

func loadEncoding(model string) (*tiktoken.Tiktoken, error) {
	if enc, err := tiktoken.EncodingForModel(model); err == nil {
		return enc, nil
	}
	return tiktoken.GetEncoding(fallbackEncoding)
}

func approxTokens(text string) int {
	n := (len(text) + 3) / 4
	if n == 0 {
		return 1
	}
	return n
}

// HistoryTrimmer keeps a conversation history inside a model's context budget
// by dropping the oldest messages. The newest message is always kept.
type HistoryTrimmer struct {
	counter   adapter.TokenCounter
	model     string
	maxTokens int
}

func NewHistoryTrimmer(counter adapter.TokenCounter, model string, maxTokens int) *HistoryTrimmer {
	return &HistoryTrimmer{counter: counter, model: model, maxTokens: maxTokens}
}

func (t *HistoryTrimmer) Trim(history []adapter.Message) []adapter.Message {
	if t == nil || t.counter == nil || t.maxTokens <= 0 || len(history) <= 1 {
		return history
	}
	total := 0
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		total += t.counter.Count(t.model, history[i].Content)
		if total > t.maxTokens && i < len(history)-1 {
			break
		}
		start = i
	}
	return history[start:]
}

// messagesFor returns the history to send for req, ending with the user text.
func messagesFor(req adapter.ReplyRequest, trimmer *HistoryTrimmer) []adapter.Message {
	msgs := req.History
	if n := len(msgs); n == 0 || msgs[n-1].Role != "user" || msgs[n-1].Content != req.Text {
		msgs = append(append([]adapter.Message{}, msgs...), adapter.Message{Role: "user", Content: req.Text})
	}
	return trimmer.Trim(msgs)
}
