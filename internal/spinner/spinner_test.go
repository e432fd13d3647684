package spinner

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func TestSleepWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, "Waiting")

	if s.tty {
		t.Fatal("a buffer is never a terminal")
	}
	if err := s.Sleep(context.Background(), 5*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected silent sleep, got %q", buf.String())
	}
}

func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(&bytes.Buffer{}, "Waiting")
	if err := s.Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestModelCountdown(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := start
	m := newModel("Waiting for 2 active run(s)", 10*time.Second, func() time.Time { return now })

	if view := m.View(); !strings.Contains(view, "Waiting for 2 active run(s) (next check in 10s)") {
		t.Errorf("unexpected initial view %q", view)
	}

	now = start.Add(4 * time.Second)
	if view := m.View(); !strings.Contains(view, "next check in 6s") {
		t.Errorf("unexpected view after 4s %q", view)
	}

	now = start.Add(time.Minute)
	if view := m.View(); !strings.Contains(view, "next check in 0s") {
		t.Errorf("expected countdown clamped at 0s, got %q", view)
	}
}

func TestModelQuitsWhenDone(t *testing.T) {
	m := newModel("Waiting", time.Second, time.Now)

	updated, cmd := m.Update(doneMsg{})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("expected tea.QuitMsg, got %T", cmd())
	}
	if view := updated.View(); view != "" {
		t.Errorf("expected empty view once done, got %q", view)
	}
}
