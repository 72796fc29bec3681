//go:build !integration

package model

import (
	"errors"
	"strings"
	"testing"
	"time"

	"conversation-store/internal/domain"
)

// --- Title Derivation Tests ---

func TestDeriveTitle(t *testing.T) {
	t.Run("short content is kept as is", func(t *testing.T) {
		got := DeriveTitle("Hello there, how are you today?")
		if got != "Hello there, how are you today?" {
			t.Errorf("expected title unchanged, but got %q", got)
		}
	})

	t.Run("exactly fifty characters is not marked", func(t *testing.T) {
		in := strings.Repeat("a", 50)
		if got := DeriveTitle(in); got != in {
			t.Errorf("expected %q, but got %q", in, got)
		}
	})

	t.Run("long content is cut and marked", func(t *testing.T) {
		in := strings.Repeat("b", 51)
		want := strings.Repeat("b", 50) + "..."
		if got := DeriveTitle(in); got != want {
			t.Errorf("expected %q, but got %q", want, got)
		}
	})

	t.Run("multi-byte characters are counted once", func(t *testing.T) {
		in := strings.Repeat("ж", 60)
		want := strings.Repeat("ж", 50) + "..."
		if got := DeriveTitle(in); got != want {
			t.Errorf("expected %q, but got %q", want, got)
		}
	})
}

// --- Conversation Model Tests ---

func TestConversationAddMessage(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	t.Run("first user message names the conversation", func(t *testing.T) {
		c := NewConversation("c1", now)
		if c.Title != DefaultTitle {
			t.Fatalf("expected default title, but got %q", c.Title)
		}
		c.AddMessage(Message{ID: "m1", Role: RoleUser, Content: "hi", Timestamp: now})
		if c.Title != "hi" {
			t.Errorf("expected title 'hi', but got %q", c.Title)
		}
	})

	t.Run("first assistant message keeps the default title", func(t *testing.T) {
		c := NewConversation("c1", now)
		c.AddMessage(Message{ID: "m1", Role: RoleAssistant, Content: "welcome", Timestamp: now})
		if c.Title != DefaultTitle {
			t.Errorf("expected default title, but got %q", c.Title)
		}
		c.AddMessage(Message{ID: "m2", Role: RoleUser, Content: "late", Timestamp: now})
		if c.Title != DefaultTitle {
			t.Errorf("expected title to stay default after non-empty append, but got %q", c.Title)
		}
	})

	t.Run("title is set only once", func(t *testing.T) {
		c := NewConversation("c1", now)
		c.AddMessage(Message{ID: "m1", Role: RoleUser, Content: "first", Timestamp: now})
		c.AddMessage(Message{ID: "m2", Role: RoleUser, Content: "second", Timestamp: now})
		if c.Title != "first" {
			t.Errorf("expected title 'first', but got %q", c.Title)
		}
		if len(c.Messages) != 2 {
			t.Errorf("expected 2 messages, but got %d", len(c.Messages))
		}
	})
}

func TestConversationClone(t *testing.T) {
	c := NewConversation("c1", time.Now())
	c.AddMessage(Message{ID: "m1", Role: RoleUser, Content: "hi"})

	cp := c.Clone()
	cp.Messages[0].Content = "changed"
	cp.Messages = append(cp.Messages, Message{ID: "m2"})

	if c.Messages[0].Content != "hi" {
		t.Errorf("clone shares message storage with original")
	}
	if len(c.Messages) != 1 {
		t.Errorf("expected original to keep 1 message, but got %d", len(c.Messages))
	}
}

func TestParseRole(t *testing.T) {
	for _, s := range []string{"user", "assistant"} {
		r, err := ParseRole(s)
		if err != nil {
			t.Fatalf("expected %q to parse, but got: %v", s, err)
		}
		if string(r) != s {
			t.Errorf("expected %q, but got %q", s, r)
		}
	}

	for _, s := range []string{"", "system", "User", "tool"} {
		_, err := ParseRole(s)
		if !errors.Is(err, domain.ErrInvalidRole) {
			t.Errorf("expected ErrInvalidRole for %q, but got %v", s, err)
		}
	}
}
