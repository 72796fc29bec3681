// Package idgen hands out unique, time-ordered identifiers and the
// millisecond timestamps they are derived from.
package idgen

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Clock returns the current instant.
type Clock func() time.Time

// Generator produces monotonic ULIDs and non-decreasing millisecond
// timestamps. It is safe for concurrent use.
type Generator struct {
	mu      sync.Mutex
	clock   Clock
	entropy *ulid.MonotonicEntropy
	last    time.Time
}

// New returns a Generator reading time from clock (time.Now when nil).
func New(clock Clock) *Generator {
	return NewWithEntropy(clock, rand.Reader)
}

// NewWithEntropy is New with a caller-supplied randomness source.
func NewWithEntropy(clock Clock, r io.Reader) *Generator {
	if clock == nil {
		clock = time.Now
	}
	return &Generator{
		clock:   clock,
		entropy: ulid.Monotonic(r, 0),
	}
}

// Now returns the current time at millisecond resolution, never earlier than
// any value returned before.
func (g *Generator) Now() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tick()
}

// Next returns a fresh id together with the timestamp it encodes.
func (g *Generator) Next() (string, time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := g.tick()
	for {
		id, err := ulid.New(ulid.Timestamp(ts), g.entropy)
		if err == nil {
			return id.String(), ts
		}
		if !errors.Is(err, ulid.ErrMonotonicOverflow) {
			// The entropy source is broken; no id can be made.
			panic(fmt.Errorf("idgen: %w", err))
		}
		// Entropy overflow inside one millisecond: move to the next one.
		ts = ts.Add(time.Millisecond)
		g.last = ts
	}
}

func (g *Generator) tick() time.Time {
	now := g.clock().UTC().Truncate(time.Millisecond)
	if now.Before(g.last) {
		now = g.last
	}
	g.last = now
	return now
}
