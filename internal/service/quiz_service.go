package service

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"organ-quiz-service/internal/cache"
	"organ-quiz-service/internal/models"
	"organ-quiz-service/internal/registry"
	"organ-quiz-service/internal/session"
	"organ-quiz-service/internal/store"
)

// Quiz wires the question store, the image cache, and the session registry
// into the operations the HTTP layer consumes.
type Quiz struct {
	Questions *store.Holder
	Images    *cache.Cache
	Sessions  *registry.Registry
}

func NewQuiz(questions *store.Holder, images *cache.Cache, sessions *registry.Registry) *Quiz {
	return &Quiz{
		Questions: questions,
		Images:    images,
		Sessions:  sessions,
	}
}

// CreateSession starts a session over the current question set.
func (q *Quiz) CreateSession() *session.Session {
	return q.Sessions.Create(q.Questions.Current(), q.Images)
}

// CurrentQuestion resolves the session and returns its current question
// and image handle. May block while the image is generated.
func (q *Quiz) CurrentQuestion(ctx context.Context, sessionID string) (models.QuestionRecord, string, error) {
	s, err := q.Sessions.Get(sessionID)
	if err != nil {
		return models.QuestionRecord{}, "", err
	}
	return s.CurrentQuestion(ctx)
}

// SubmitAnswer records an answer for the session's current question.
func (q *Quiz) SubmitAnswer(sessionID string, choice int) (*session.Result, error) {
	s, err := q.Sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return s.SubmitAnswer(choice)
}

// Score returns the session's running score.
func (q *Quiz) Score(sessionID string) (correct, total int, completed bool, err error) {
	s, err := q.Sessions.Get(sessionID)
	if err != nil {
		return 0, 0, false, err
	}
	correct, total = s.Score()
	return correct, total, s.Status() == session.StatusCompleted, nil
}

// PrefetchImages warms the image cache for every question in the current
// quiz, at most limit generations in flight at once. Individual failures
// are logged and left as retryable cache entries; the first user request
// for that question tries again.
func (q *Quiz) PrefetchImages(ctx context.Context, limit int64) error {
	st := q.Questions.Current()
	sem := semaphore.NewWeighted(limit)

	var g errgroup.Group
	for i := 0; i < st.Len(); i++ {
		rec, err := st.Get(i)
		if err != nil {
			return err
		}
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			if _, err := q.Images.GetOrGenerate(ctx, rec.ImagePrompt); err != nil {
				log.Printf("prefetch: image for question %d: %v", rec.ID, err)
			}
			return nil
		})
	}
	return g.Wait()
}
