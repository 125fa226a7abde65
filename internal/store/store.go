package store

import (
	"errors"
	"fmt"
	"sync/atomic"

	"organ-quiz-service/internal/models"
)

var (
	// ErrMalformedQuizData means the parsed quiz records are unusable and
	// the quiz must not be served.
	ErrMalformedQuizData = errors.New("malformed quiz data")

	// ErrIndexOutOfRange means a question index outside [0, Len()) was
	// requested.
	ErrIndexOutOfRange = errors.New("question index out of range")
)

// Store holds the question list of one loaded quiz. It is immutable after
// Load; reloading a quiz builds a new Store and swaps it into the Holder.
type Store struct {
	records []models.QuestionRecord
}

// Load validates parsed question records and builds an immutable store.
// Record IDs are normalized to the record's position in the list.
func Load(records []models.QuestionRecord) (*Store, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: quiz has no questions", ErrMalformedQuizData)
	}

	owned := make([]models.QuestionRecord, len(records))
	copy(owned, records)
	for i := range owned {
		r := &owned[i]
		if r.Prompt == "" {
			return nil, fmt.Errorf("%w: question %d has an empty prompt", ErrMalformedQuizData, i)
		}
		if len(r.Choices) < 2 {
			return nil, fmt.Errorf("%w: question %d has %d choices, need at least 2", ErrMalformedQuizData, i, len(r.Choices))
		}
		if r.CorrectChoice < 0 || r.CorrectChoice >= len(r.Choices) {
			return nil, fmt.Errorf("%w: question %d correct choice %d outside %d choices", ErrMalformedQuizData, i, r.CorrectChoice, len(r.Choices))
		}
		r.ID = i
	}
	return &Store{records: owned}, nil
}

// Get returns the question at index i.
func (s *Store) Get(i int) (models.QuestionRecord, error) {
	if i < 0 || i >= len(s.records) {
		return models.QuestionRecord{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(s.records))
	}
	return s.records[i], nil
}

// Len returns the number of questions in the quiz.
func (s *Store) Len() int {
	return len(s.records)
}

// Holder publishes the current store and allows it to be replaced
// atomically. Sessions snapshot the store at creation time, so a swap never
// changes the question set of a quiz already in progress.
type Holder struct {
	current atomic.Pointer[Store]
}

func NewHolder(s *Store) *Holder {
	h := &Holder{}
	h.current.Store(s)
	return h
}

// Current returns the store new sessions should use.
func (h *Holder) Current() *Store {
	return h.current.Load()
}

// Swap installs a freshly loaded store.
func (h *Holder) Swap(s *Store) {
	h.current.Store(s)
}
