package session

import (
	"context"
	"errors"
	"sync"

	"organ-quiz-service/internal/cache"
	"organ-quiz-service/internal/models"
	"organ-quiz-service/internal/store"
)

var (
	// ErrSessionCompleted means the session already walked past its last
	// question; it is read-only from then on.
	ErrSessionCompleted = errors.New("session already completed")

	// ErrInvalidChoice means the submitted choice index is outside the
	// current question's choice range.
	ErrInvalidChoice = errors.New("choice index out of range")

	// ErrDuplicateAnswer means the current question already has a
	// recorded answer.
	ErrDuplicateAnswer = errors.New("question already answered")
)

// Session status values.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Result reports the outcome of one answer submission.
type Result struct {
	Correct       bool `json:"correct"`
	CorrectChoice int  `json:"correct_choice"`
	Completed     bool `json:"completed"`
}

// Session is one user's traversal of a quiz: current position, recorded
// answers, and the derived score. It advances strictly forward. The
// session holds the store it was created with, so a quiz reload never
// changes its question set mid-run.
//
// A per-session mutex serializes all transitions; callers never need
// external locking, and unrelated sessions never contend.
type Session struct {
	ID string

	mu      sync.Mutex
	store   *store.Store
	images  *cache.Cache
	current int
	answers map[int]int
}

// New creates a session positioned at the first question.
func New(id string, st *store.Store, images *cache.Cache) *Session {
	return &Session{
		ID:      id,
		store:   st,
		images:  images,
		answers: make(map[int]int, st.Len()),
	}
}

// CurrentQuestion returns the record at the session's position together
// with its image handle. It may block while the image is generated. On an
// image generation failure the record is still returned so the caller can
// show the question; the session itself is unchanged and a later call
// retries the image.
func (s *Session) CurrentQuestion(ctx context.Context) (models.QuestionRecord, string, error) {
	s.mu.Lock()
	if s.current >= s.store.Len() {
		s.mu.Unlock()
		return models.QuestionRecord{}, "", ErrSessionCompleted
	}
	rec, err := s.store.Get(s.current)
	s.mu.Unlock()
	if err != nil {
		return models.QuestionRecord{}, "", err
	}

	// Resolved outside the lock: a slow generation must not freeze
	// answer submission bookkeeping or other readers of this session.
	handle, err := s.images.GetOrGenerate(ctx, rec.ImagePrompt)
	if err != nil {
		return rec, "", err
	}
	return rec, handle, nil
}

// SubmitAnswer records choice for the current question and advances the
// session. Submitting the final answer completes the session. Usage errors
// leave the position and recorded answers untouched.
func (s *Session) SubmitAnswer(choice int) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current >= s.store.Len() {
		return nil, ErrSessionCompleted
	}
	rec, err := s.store.Get(s.current)
	if err != nil {
		return nil, err
	}
	if choice < 0 || choice >= len(rec.Choices) {
		return nil, ErrInvalidChoice
	}
	if _, answered := s.answers[rec.ID]; answered {
		return nil, ErrDuplicateAnswer
	}

	s.answers[rec.ID] = choice
	s.current++

	return &Result{
		Correct:       choice == rec.CorrectChoice,
		CorrectChoice: rec.CorrectChoice,
		Completed:     s.current == s.store.Len(),
	}, nil
}

// Score recomputes the running score from the recorded answers. Valid in
// any state; total is the quiz length.
func (s *Session) Score() (correct, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, choice := range s.answers {
		rec, err := s.store.Get(id)
		if err == nil && choice == rec.CorrectChoice {
			correct++
		}
	}
	return correct, s.store.Len()
}

// Status reports whether the session is still active.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current >= s.store.Len() {
		return StatusCompleted
	}
	return StatusActive
}

// Index returns the session's current question position.
func (s *Session) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Len returns the number of questions in this session's quiz.
func (s *Session) Len() int {
	return s.store.Len()
}
