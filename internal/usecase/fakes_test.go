//go:build !integration

package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"conversation-store/internal/domain/model"
	"conversation-store/internal/domain/ports/adapter"
	"conversation-store/internal/infra/worker"
)

// ---- Fakes ----

type memRepo struct {
	mu      sync.Mutex
	initial []*model.Conversation
	loadErr error
	saveErr error
	loads   int
	saves   [][]*model.Conversation
}

func (r *memRepo) Load(ctx context.Context) ([]*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads++
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return r.initial, nil
}

func (r *memRepo) Save(ctx context.Context, c []*model.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, c)
	return r.saveErr
}

func (r *memRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saves)
}

func (r *memRepo) last() []*model.Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.saves) == 0 {
		return nil
	}
	return r.saves[len(r.saves)-1]
}

type seqIDs struct {
	mu sync.Mutex
	n  int
	at time.Time
}

func newSeqIDs() *seqIDs {
	return &seqIDs{at: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (g *seqIDs) Next() (string, time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%04d", g.n), g.at.Add(time.Duration(g.n) * time.Millisecond)
}

type funcResponder struct {
	name string
	fn   func(ctx context.Context, req adapter.ReplyRequest) (string, error)
}

func (f *funcResponder) Name() string { return f.name }
func (f *funcResponder) Reply(ctx context.Context, req adapter.ReplyRequest) (string, error) {
	return f.fn(ctx, req)
}

func echoResponder() *funcResponder {
	return &funcResponder{name: "echo", fn: func(ctx context.Context, req adapter.ReplyRequest) (string, error) {
		return "echo: " + req.Text, nil
	}}
}

// blockingResponder signals started and then waits for its context.
func blockingResponder(started chan<- struct{}) *funcResponder {
	return &funcResponder{name: "blocking", fn: func(ctx context.Context, req adapter.ReplyRequest) (string, error) {
		started <- struct{}{}
		<-ctx.Done()
		return "", ctx.Err()
	}}
}

type goRunner struct{}

func (goRunner) SubmitWait(ctx context.Context, task worker.Task) error {
	go func() { _ = task(context.Background()) }()
	return nil
}

type fullRunner struct{}

func (fullRunner) SubmitWait(ctx context.Context, task worker.Task) error {
	return worker.ErrQueueFull
}

type fakeUploader struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (u *fakeUploader) Upload(ctx context.Context, filename string, data []byte) (adapter.UploadResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, filename)
	if u.err != nil {
		return adapter.UploadResult{}, u.err
	}
	return adapter.UploadResult{StatusCode: 200, Body: []byte(`{"summary":"ok"}`)}, nil
}

var errBoom = errors.New("boom")

// outcomeSink collects ReplyOutcomes for assertions.
type outcomeSink chan ReplyOutcome

func (s outcomeSink) next(timeout time.Duration) (ReplyOutcome, bool) {
	select {
	case o := <-s:
		return o, true
	case <-time.After(timeout):
		return ReplyOutcome{}, false
	}
}
