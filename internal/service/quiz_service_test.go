package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"organ-quiz-service/internal/cache"
	"organ-quiz-service/internal/models"
	"organ-quiz-service/internal/registry"
	"organ-quiz-service/internal/store"
)

type countingGenerator struct {
	mu      sync.Mutex
	prompts map[string]int
}

func newCountingGenerator() *countingGenerator {
	return &countingGenerator{prompts: make(map[string]int)}
}

func (g *countingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts[prompt]++
	return "/static/" + prompt + ".png", nil
}

func testRecords(n int) []models.QuestionRecord {
	records := make([]models.QuestionRecord, n)
	for i := range records {
		records[i] = models.QuestionRecord{
			Prompt:        "Q",
			Choices:       []string{"A", "B"},
			CorrectChoice: i % 2,
			ImagePrompt:   "prompt-" + string(rune('a'+i)),
		}
	}
	return records
}

func newTestQuiz(t *testing.T, n int) (*Quiz, *countingGenerator) {
	t.Helper()
	st, err := store.Load(testRecords(n))
	if err != nil {
		t.Fatalf("Failed to load store: %v", err)
	}
	gen := newCountingGenerator()
	return NewQuiz(store.NewHolder(st), cache.New(gen), registry.New()), gen
}

func TestSessionRoundTrip(t *testing.T) {
	quiz, _ := newTestQuiz(t, 2)

	s := quiz.CreateSession()

	rec, img, err := quiz.CurrentQuestion(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if rec.ID != 0 || img == "" {
		t.Errorf("Unexpected first question %+v with image %q", rec, img)
	}

	if _, err := quiz.SubmitAnswer(s.ID, 0); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := quiz.SubmitAnswer(s.ID, 1); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	correct, total, completed, err := quiz.Score(s.ID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if correct != 2 || total != 2 || !completed {
		t.Errorf("Expected (2, 2, completed), got (%d, %d, %v)", correct, total, completed)
	}
}

func TestUnknownSessionID(t *testing.T) {
	quiz, _ := newTestQuiz(t, 2)

	if _, _, err := quiz.CurrentQuestion(context.Background(), "nope"); !errors.Is(err, registry.ErrSessionNotFound) {
		t.Errorf("CurrentQuestion: expected ErrSessionNotFound, got %v", err)
	}
	if _, err := quiz.SubmitAnswer("nope", 0); !errors.Is(err, registry.ErrSessionNotFound) {
		t.Errorf("SubmitAnswer: expected ErrSessionNotFound, got %v", err)
	}
	if _, _, _, err := quiz.Score("nope"); !errors.Is(err, registry.ErrSessionNotFound) {
		t.Errorf("Score: expected ErrSessionNotFound, got %v", err)
	}
}

func TestPrefetchWarmsEveryQuestionOnce(t *testing.T) {
	quiz, gen := newTestQuiz(t, 5)

	if err := quiz.PrefetchImages(context.Background(), 2); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	gen.mu.Lock()
	defer gen.mu.Unlock()
	if len(gen.prompts) != 5 {
		t.Fatalf("Expected 5 distinct prompts generated, got %d", len(gen.prompts))
	}
	for prompt, calls := range gen.prompts {
		if calls != 1 {
			t.Errorf("Prompt %q generated %d times, expected once", prompt, calls)
		}
	}
}

func TestPrefetchedImagesServeFromCache(t *testing.T) {
	quiz, gen := newTestQuiz(t, 3)

	if err := quiz.PrefetchImages(context.Background(), 3); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	s := quiz.CreateSession()
	if _, _, err := quiz.CurrentQuestion(context.Background(), s.ID); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	gen.mu.Lock()
	defer gen.mu.Unlock()
	total := 0
	for _, calls := range gen.prompts {
		total += calls
	}
	if total != 3 {
		t.Errorf("Expected no calls beyond the prefetch, got %d total", total)
	}
}

func TestSessionsKeepStoreSnapshotAcrossSwap(t *testing.T) {
	quiz, _ := newTestQuiz(t, 4)

	s := quiz.CreateSession()

	smaller, err := store.Load(testRecords(2))
	if err != nil {
		t.Fatalf("Failed to load store: %v", err)
	}
	quiz.Questions.Swap(smaller)

	if s.Len() != 4 {
		t.Errorf("Expected in-flight session to keep 4 questions, got %d", s.Len())
	}
	if quiz.CreateSession().Len() != 2 {
		t.Error("Expected new sessions to use the swapped store")
	}
}
