package ai

import (
	"context"

	"conversation-store/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.Responder = (*limitedResponder)(nil)

type limitedResponder struct {
	inner adapter.Responder
	sem   chan struct{}
}

// NewLimitedResponder caps the number of in-flight Reply calls. A caller
// waiting for a slot gives up when its context ends.
func NewLimitedResponder(inner adapter.Responder, maxConcurrent int) adapter.Responder {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedResponder{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedResponder) Name() string { return l.inner.Name() }

func (l *limitedResponder) Reply(ctx context.Context, req adapter.ReplyRequest) (string, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Reply(ctx, req)
}
