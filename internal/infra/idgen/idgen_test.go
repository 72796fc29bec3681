//go:build !integration

package idgen

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func TestNextIsUniqueWithinOneMillisecond(t *testing.T) {
	g := New(fixedClock(time.UnixMilli(1_700_000_000_000)))

	seen := make(map[string]struct{}, 10_000)
	prev := ""
	for i := 0; i < 10_000; i++ {
		id, _ := g.Next()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %s after %d calls", id, i)
		}
		seen[id] = struct{}{}
		if prev != "" && id <= prev {
			t.Fatalf("ids not increasing: %s then %s", prev, id)
		}
		prev = id
	}
}

func TestNowNeverGoesBackwards(t *testing.T) {
	times := []time.Time{
		time.UnixMilli(2000),
		time.UnixMilli(1000), // clock stepped back
		time.UnixMilli(3000),
	}
	i := 0
	g := New(func() time.Time {
		tt := times[i]
		i++
		return tt
	})

	a := g.Now()
	b := g.Now()
	c := g.Now()
	if b.Before(a) {
		t.Errorf("expected %v not before %v", b, a)
	}
	if !c.Equal(time.UnixMilli(3000)) {
		t.Errorf("expected clock to resume at 3000ms, got %v", c.UnixMilli())
	}
}

func TestNowIsMillisecondResolution(t *testing.T) {
	g := New(fixedClock(time.Unix(10, 123_456_789)))
	got := g.Now()
	if got.Nanosecond() != 123_000_000 {
		t.Errorf("expected truncation to ms, got %d ns", got.Nanosecond())
	}
}

func TestNextTimestampMatchesNow(t *testing.T) {
	g := New(fixedClock(time.UnixMilli(5000)))
	_, ts := g.Next()
	if ts.UnixMilli() != 5000 {
		t.Errorf("expected 5000, got %d", ts.UnixMilli())
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("entropy unavailable") }

func TestNextPanicsOnBrokenEntropy(t *testing.T) {
	g := NewWithEntropy(fixedClock(time.UnixMilli(1_700_000_000_000)), errReader{})

	defer func() {
		if recover() == nil {
			t.Fatal("expected Next to panic when entropy cannot be read")
		}
	}()
	g.Next()
}

func TestNextMovesToNextMillisecondOnOverflow(t *testing.T) {
	base := time.UnixMilli(1_700_000_000_000).UTC()
	// Saturated entropy overflows on the second id within one millisecond.
	maxed := bytes.NewReader(bytes.Repeat([]byte{0xff}, 1024))
	g := NewWithEntropy(fixedClock(base), maxed)

	first, ts1 := g.Next()
	second, ts2 := g.Next()
	if !ts1.Equal(base) {
		t.Fatalf("first timestamp = %v, want %v", ts1, base)
	}
	if !ts2.Equal(base.Add(time.Millisecond)) {
		t.Fatalf("second timestamp = %v, want %v", ts2, base.Add(time.Millisecond))
	}
	if second <= first {
		t.Fatalf("ids not increasing: %s then %s", first, second)
	}
}
