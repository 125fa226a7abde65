package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"organ-quiz-service/internal/cache"
	"organ-quiz-service/internal/models"
	"organ-quiz-service/internal/store"
)

type stubGenerator struct{}

func (stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "/static/" + prompt + ".png", nil
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Load([]models.QuestionRecord{
		{Prompt: "Q1", Choices: []string{"A", "B"}, CorrectChoice: 0, ImagePrompt: "p1"},
		{Prompt: "Q2", Choices: []string{"A", "B"}, CorrectChoice: 1, ImagePrompt: "p2"},
	})
	if err != nil {
		t.Fatalf("Failed to load store: %v", err)
	}
	return s
}

func TestCreateAndGet(t *testing.T) {
	r := New()
	images := cache.New(stubGenerator{})
	st := testStore(t)

	first := r.Create(st, images)
	second := r.Create(st, images)

	if first.ID == "" || second.ID == "" {
		t.Fatal("Expected non-empty session ids")
	}
	if first.ID == second.ID {
		t.Fatalf("Expected unique session ids, both were %q", first.ID)
	}

	got, err := r.Get(first.ID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != first {
		t.Error("Expected Get to return the registered session")
	}
}

func TestGetUnknownSession(t *testing.T) {
	r := New()
	if _, err := r.Get("no-such-session"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestSweepRemovesIdleSessions(t *testing.T) {
	r := New()
	images := cache.New(stubGenerator{})
	st := testStore(t)

	now := time.Now()
	r.now = func() time.Time { return now }

	idle := r.Create(st, images)
	active := r.Create(st, images)

	// The active session is touched after the clock advances; the idle
	// one keeps its old timestamp.
	now = now.Add(10 * time.Minute)
	r.Touch(active.ID)

	if removed := r.Sweep(5 * time.Minute); removed != 1 {
		t.Fatalf("Expected 1 swept session, got %d", removed)
	}

	if _, err := r.Get(idle.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected idle session to be gone, got %v", err)
	}
	if _, err := r.Get(active.ID); err != nil {
		t.Errorf("Expected active session to survive, got %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("Expected 1 live session, got %d", r.Len())
	}
}

func TestSweepKeepsFreshSessions(t *testing.T) {
	r := New()
	s := r.Create(testStore(t), cache.New(stubGenerator{}))

	if removed := r.Sweep(time.Hour); removed != 0 {
		t.Fatalf("Expected nothing swept, got %d", removed)
	}
	if _, err := r.Get(s.ID); err != nil {
		t.Errorf("Expected session to survive, got %v", err)
	}
}

func TestGetRefreshesIdleTimer(t *testing.T) {
	r := New()
	images := cache.New(stubGenerator{})

	now := time.Now()
	r.now = func() time.Time { return now }

	s := r.Create(testStore(t), images)

	now = now.Add(10 * time.Minute)
	if _, err := r.Get(s.ID); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// The Get above refreshed the timestamp, so a sweep right after
	// removes nothing.
	if removed := r.Sweep(5 * time.Minute); removed != 0 {
		t.Errorf("Expected touched session to survive, swept %d", removed)
	}
}
