package persist

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"conversation-store/internal/domain/model"
	"conversation-store/internal/domain/ports/repository"
	"conversation-store/internal/infra/metrics"
)

var _ repository.ConversationRepository = (*WriteBehind)(nil)

// WriteBehind coalesces saves: Save only records the latest snapshot and a
// background goroutine writes it to the inner repository once delay has
// passed without being superseded. The last snapshot handed to Save is always
// written eventually, at the latest by Close.
type WriteBehind struct {
	inner repository.ConversationRepository
	delay time.Duration
	log   *zerolog.Logger

	mu      sync.Mutex
	saveMu  sync.Mutex // serializes writes so a stale snapshot never lands last
	pending []*model.Conversation
	dirty   bool
	closed  bool

	kick chan struct{}
	done chan struct{}
	wg   sync.WaitGroup

	writeTimeout time.Duration
}

func NewWriteBehind(inner repository.ConversationRepository, delay time.Duration, logger *zerolog.Logger) *WriteBehind {
	l := logger.With().Str("component", "WriteBehind").Logger()
	w := &WriteBehind{
		inner:        inner,
		delay:        delay,
		log:          &l,
		kick:         make(chan struct{}, 1),
		done:         make(chan struct{}),
		writeTimeout: 10 * time.Second,
	}
	w.wg.Add(1)
	go w.run()
	return w
}

func (w *WriteBehind) Load(ctx context.Context) ([]*model.Conversation, error) {
	return w.inner.Load(ctx)
}

// Save never blocks on the backend. After Close it writes synchronously.
func (w *WriteBehind) Save(ctx context.Context, conversations []*model.Conversation) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		// Anything still pending is older than this snapshot.
		w.saveMu.Lock()
		defer w.saveMu.Unlock()
		w.mu.Lock()
		w.pending, w.dirty = nil, false
		w.mu.Unlock()
		return w.inner.Save(ctx, conversations)
	}
	if w.dirty {
		metrics.IncPersistSave("coalesced")
	}
	w.pending = conversations
	w.dirty = true
	w.mu.Unlock()

	select {
	case w.kick <- struct{}{}:
	default:
	}
	return nil
}

// Flush writes the pending snapshot now, if any.
func (w *WriteBehind) Flush(ctx context.Context) error {
	w.saveMu.Lock()
	defer w.saveMu.Unlock()

	w.mu.Lock()
	snap, dirty := w.pending, w.dirty
	w.pending, w.dirty = nil, false
	w.mu.Unlock()
	if !dirty {
		return nil
	}
	return w.inner.Save(ctx, snap)
}

// Close stops the background writer and flushes what is pending.
func (w *WriteBehind) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.done)
	finished := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-ctx.Done():
		return ctx.Err()
	}
	return w.Flush(ctx)
}

func (w *WriteBehind) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case <-w.kick:
		}

		if w.delay > 0 {
			t := time.NewTimer(w.delay)
			select {
			case <-t.C:
			case <-w.done:
				t.Stop()
				return
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), w.writeTimeout)
		if err := w.Flush(ctx); err != nil {
			w.log.Error().Err(err).Msg("background save failed")
		}
		cancel()
	}
}
