package ai

import (
	"context"
	"fmt"

	"conversation-store/internal/domain/ports/adapter"
)

var _ adapter.Responder = (*SimulatedResponder)(nil)

// SimulatedResponder answers every message with a canned echo. It stands in
// for a real provider in development; the reply delay is applied by the
// scheduler, not here.
type SimulatedResponder struct{}

func NewSimulatedResponder() *SimulatedResponder {
	return &SimulatedResponder{}
}

func (s *SimulatedResponder) Name() string { return "simulated" }

func (s *SimulatedResponder) Reply(ctx context.Context, req adapter.ReplyRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("I received your message: \"%s\". This is a simulated response.", req.Text), nil
}
