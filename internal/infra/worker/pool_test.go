//go:build !integration

package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func nopLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

func noop(ctx context.Context) error { return nil }

func TestPoolRunsTasks(t *testing.T) {
	p := NewPool(2, nopLogger())
	p.Start(context.Background())
	defer p.Stop()

	var ran int32
	done := make(chan struct{}, 3)
	for i := 0; i < 3; i++ {
		if err := p.SubmitWait(context.Background(), func(ctx context.Context) error {
			atomic.AddInt32(&ran, 1)
			done <- struct{}{}
			return nil
		}); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("task did not run")
		}
	}
	if atomic.LoadInt32(&ran) != 3 {
		t.Errorf("expected 3 runs, got %d", ran)
	}
}

func TestPoolRejectsWhenFull(t *testing.T) {
	p := NewPool(1, nopLogger()) // not started: nothing drains the queue
	defer p.Stop()

	for i := 0; i < 4; i++ {
		if err := p.SubmitWait(context.Background(), noop); err != nil {
			t.Fatalf("submit %d should fit the queue: %v", i, err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.SubmitWait(ctx, noop); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestPoolSubmitWaitBlocksUntilSlotFrees(t *testing.T) {
	p := NewPool(1, nopLogger())
	release := make(chan struct{})
	started := make(chan struct{})
	p.Start(context.Background())
	defer p.Stop()

	ctx := context.Background()
	if err := p.SubmitWait(ctx, func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-started
	for i := 0; i < 4; i++ {
		if err := p.SubmitWait(ctx, noop); err != nil {
			t.Fatalf("fill %d: %v", i, err)
		}
	}

	errc := make(chan error, 1)
	go func() { errc <- p.SubmitWait(ctx, noop) }()
	select {
	case err := <-errc:
		t.Fatalf("SubmitWait returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("SubmitWait: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("SubmitWait never got a slot")
	}
}

func TestPoolStopCancelsQueuedTasks(t *testing.T) {
	p := NewPool(1, nopLogger())

	var canceled int32
	for i := 0; i < 3; i++ {
		_ = p.SubmitWait(context.Background(), func(ctx context.Context) error {
			if ctx.Err() != nil {
				atomic.AddInt32(&canceled, 1)
			}
			return ctx.Err()
		})
	}
	p.Stop()

	if got := atomic.LoadInt32(&canceled); got != 3 {
		t.Errorf("expected 3 queued tasks to see a canceled context, got %d", got)
	}
	if err := p.SubmitWait(context.Background(), noop); !errors.Is(err, ErrPoolStopped) {
		t.Errorf("expected ErrPoolStopped after stop, got %v", err)
	}
}

func TestPoolEveryAcceptedTaskRunsAcrossStop(t *testing.T) {
	for round := 0; round < 50; round++ {
		p := NewPool(2, nopLogger())
		p.Start(context.Background())

		var accepted, ran int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 4; j++ {
					err := p.SubmitWait(context.Background(), func(ctx context.Context) error {
						atomic.AddInt32(&ran, 1)
						return nil
					})
					if err == nil {
						atomic.AddInt32(&accepted, 1)
					}
				}
			}()
		}
		p.Stop()
		wg.Wait()

		if a, r := atomic.LoadInt32(&accepted), atomic.LoadInt32(&ran); a != r {
			t.Fatalf("round %d: %d tasks accepted but %d ran", round, a, r)
		}
	}
}

func TestPoolRejectsNilTask(t *testing.T) {
	p := NewPool(1, nopLogger())
	if err := p.SubmitWait(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil task")
	}
}
