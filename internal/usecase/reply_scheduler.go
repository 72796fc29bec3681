package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"conversation-store/internal/domain"
	"conversation-store/internal/domain/model"
	"conversation-store/internal/domain/ports/adapter"
	"conversation-store/internal/infra/metrics"
	"conversation-store/internal/infra/worker"
)

// TaskRunner runs deferred work; *worker.Pool satisfies it. SubmitWait
// blocks until the task is queued or ctx ends.
type TaskRunner interface {
	SubmitWait(ctx context.Context, task worker.Task) error
}

// ReplyOutcome reports how one deferred reply ended. Err is nil on success,
// otherwise it matches one of domain.ErrReplyCanceled, domain.ErrResponderTimeout,
// domain.ErrResponderBusy, or wraps the responder's own error.
type ReplyOutcome struct {
	ConversationID string
	Message        model.Message
	Err            error
}

type ReplyConfig struct {
	Delay   time.Duration // wait before asking the responder, outside the pool
	Timeout time.Duration // upper bound on a responder call and on waiting for a worker
}

// ReplyScheduler binds assistant replies to the conversation they were
// requested for. Deleting that conversation cancels its pending replies.
type ReplyScheduler struct {
	store     ConversationUseCase
	responder adapter.Responder
	runner    TaskRunner
	cfg       ReplyConfig
	log       *zerolog.Logger

	base   context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	seq     uint64
	pending map[string]map[uint64]context.CancelFunc
	wg      sync.WaitGroup

	listenerMu sync.RWMutex
	listener   func(ReplyOutcome)
}

func NewReplyScheduler(store ConversationUseCase, responder adapter.Responder, runner TaskRunner, cfg ReplyConfig, logger *zerolog.Logger) *ReplyScheduler {
	l := logger.With().Str("component", "ReplyScheduler").Str("responder", responder.Name()).Logger()
	base, cancel := context.WithCancel(context.Background())
	s := &ReplyScheduler{
		store:     store,
		responder: responder,
		runner:    runner,
		cfg:       cfg,
		log:       &l,
		base:      base,
		cancel:    cancel,
		pending:   map[string]map[uint64]context.CancelFunc{},
	}
	store.OnDelete(s.CancelConversation)
	return s
}

// OnOutcome registers fn to receive every ReplyOutcome.
func (s *ReplyScheduler) OnOutcome(fn func(ReplyOutcome)) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.listener = fn
}

// Schedule queues a reply for req.ConversationID. The delay elapses before
// the reply takes a worker, so a burst of messages does not pin the pool.
func (s *ReplyScheduler) Schedule(req adapter.ReplyRequest) {
	ctx, cancel := context.WithCancel(s.base)
	id := s.track(req.ConversationID, cancel)

	s.wg.Add(1)
	var once sync.Once
	finish := func(out ReplyOutcome) {
		once.Do(func() {
			s.untrack(req.ConversationID, id)
			s.report(out)
			cancel()
			s.wg.Done()
		})
	}
	canceled := func(reason any) {
		finish(ReplyOutcome{ConversationID: req.ConversationID, Err: fmt.Errorf("%w: %v", domain.ErrReplyCanceled, reason)})
	}

	task := func(poolCtx context.Context) error {
		if poolCtx.Err() != nil {
			canceled("worker stopped")
			return poolCtx.Err()
		}
		out := s.run(ctx, req)
		finish(out)
		return out.Err
	}

	go func() {
		if s.cfg.Delay > 0 {
			t := time.NewTimer(s.cfg.Delay)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				canceled(ctx.Err())
				return
			}
		}

		waitCtx := ctx
		if s.cfg.Timeout > 0 {
			var stop context.CancelFunc
			waitCtx, stop = context.WithTimeout(ctx, s.cfg.Timeout)
			defer stop()
		}
		if err := s.runner.SubmitWait(waitCtx, task); err != nil {
			switch {
			case ctx.Err() != nil:
				canceled(ctx.Err())
			case errors.Is(err, worker.ErrPoolStopped):
				canceled(err)
			default:
				finish(ReplyOutcome{ConversationID: req.ConversationID, Err: fmt.Errorf("%w: %v", domain.ErrResponderBusy, err)})
			}
		}
	}()
}

// CancelConversation cancels every pending reply bound to conversationID.
func (s *ReplyScheduler) CancelConversation(conversationID string) {
	s.mu.Lock()
	cancels := s.pending[conversationID]
	delete(s.pending, conversationID)
	s.mu.Unlock()

	for _, c := range cancels {
		c()
	}
	if len(cancels) > 0 {
		s.log.Debug().Str("conversation_id", conversationID).Int("replies", len(cancels)).Msg("pending replies canceled")
	}
}

// Pending returns how many replies are still outstanding for conversationID.
func (s *ReplyScheduler) Pending(conversationID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending[conversationID])
}

// Wait blocks until every scheduled reply has reported its outcome.
func (s *ReplyScheduler) Wait() {
	s.wg.Wait()
}

// Close cancels all outstanding replies.
func (s *ReplyScheduler) Close() {
	s.cancel()
}

// --- internal ---

func (s *ReplyScheduler) run(ctx context.Context, req adapter.ReplyRequest) ReplyOutcome {
	out := ReplyOutcome{ConversationID: req.ConversationID}
	if ctx.Err() != nil {
		out.Err = fmt.Errorf("%w: %v", domain.ErrReplyCanceled, ctx.Err())
		return out
	}

	callCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := s.responder.Reply(callCtx, req)
	metrics.ObserveResponder(s.responder.Name(), time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			out.Err = fmt.Errorf("%w: %v", domain.ErrReplyCanceled, ctx.Err())
		case errors.Is(callCtx.Err(), context.DeadlineExceeded):
			out.Err = fmt.Errorf("%w after %s", domain.ErrResponderTimeout, s.cfg.Timeout)
		default:
			out.Err = fmt.Errorf("responder %s: %w", s.responder.Name(), err)
		}
		return out
	}
	if ctx.Err() != nil {
		out.Err = fmt.Errorf("%w: %v", domain.ErrReplyCanceled, ctx.Err())
		return out
	}

	msg, ok := s.store.Append(context.WithoutCancel(ctx), req.ConversationID, model.MessageInput{Role: model.RoleAssistant, Content: reply})
	if !ok {
		out.Err = fmt.Errorf("%w: conversation no longer exists", domain.ErrReplyCanceled)
		return out
	}
	out.Message = msg
	return out
}

func (s *ReplyScheduler) report(out ReplyOutcome) {
	l := s.log.With().Str("conversation_id", out.ConversationID).Logger()
	switch {
	case out.Err == nil:
		metrics.IncReplyTask("ok")
		l.Debug().Str("message_id", out.Message.ID).Msg("reply appended")
	case errors.Is(out.Err, domain.ErrReplyCanceled):
		metrics.IncReplyTask("canceled")
		l.Debug().Err(out.Err).Msg("reply canceled")
	case errors.Is(out.Err, domain.ErrResponderTimeout):
		metrics.IncReplyTask("timeout")
		l.Warn().Err(out.Err).Msg("reply timed out")
	case errors.Is(out.Err, domain.ErrResponderBusy):
		metrics.IncReplyTask("busy")
		l.Warn().Err(out.Err).Msg("reply dropped")
	default:
		metrics.IncReplyTask("error")
		l.Error().Err(out.Err).Msg("reply failed")
	}

	s.listenerMu.RLock()
	fn := s.listener
	s.listenerMu.RUnlock()
	if fn != nil {
		fn(out)
	}
}

func (s *ReplyScheduler) track(conversationID string, cancel context.CancelFunc) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	m := s.pending[conversationID]
	if m == nil {
		m = map[uint64]context.CancelFunc{}
		s.pending[conversationID] = m
	}
	m[s.seq] = cancel
	return s.seq
}

func (s *ReplyScheduler) untrack(conversationID string, id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.pending[conversationID]
	if m == nil {
		return
	}
	delete(m, id)
	if len(m) == 0 {
		delete(s.pending, conversationID)
	}
}
