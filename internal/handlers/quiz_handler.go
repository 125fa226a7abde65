package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"organ-quiz-service/internal/event"
	"organ-quiz-service/internal/imagegen"
	"organ-quiz-service/internal/registry"
	"organ-quiz-service/internal/service"
	"organ-quiz-service/internal/session"
)

// QuizHandler maps the HTTP surface 1:1 onto the quiz session operations.
type QuizHandler struct {
	Service   *service.Quiz
	Publisher *event.Publisher
}

func NewQuizHandler(s *service.Quiz, p *event.Publisher) *QuizHandler {
	return &QuizHandler{Service: s, Publisher: p}
}

// CreateSession starts a new quiz session.
func (h *QuizHandler) CreateSession(c *gin.Context) {
	s := h.Service.CreateSession()

	h.publish(event.SessionCreated, gin.H{"session_id": s.ID})

	c.JSON(http.StatusCreated, gin.H{
		"session_id":      s.ID,
		"total_questions": s.Len(),
	})
}

// GetCurrentQuestion returns the session's current question and its image
// URL. On an image generation failure the question is still returned so
// the client can render text while retrying the image.
func (h *QuizHandler) GetCurrentQuestion(c *gin.Context) {
	id := c.Param("id")
	rec, imageURL, err := h.Service.CurrentQuestion(c.Request.Context(), id)

	var genErr *imagegen.Error
	switch {
	case err == nil:
	case errors.Is(err, registry.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	case errors.Is(err, session.ErrSessionCompleted):
		c.JSON(http.StatusGone, gin.H{"error": "quiz already completed"})
		return
	case errors.As(err, &genErr):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":    "image generation failed",
			"kind":     string(genErr.Kind),
			"question": rec,
		})
		return
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.publish(event.QuestionServed, gin.H{"session_id": id, "question_id": rec.ID})

	c.JSON(http.StatusOK, gin.H{
		"question":  rec,
		"image_url": imageURL,
	})
}

// SubmitAnswer records an answer for the session's current question and
// advances it.
func (h *QuizHandler) SubmitAnswer(c *gin.Context) {
	id := c.Param("id")

	// Pointer so a choice of 0 passes the required binding.
	var req struct {
		Choice *int `json:"choice" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"choice\": <int>}"})
		return
	}

	result, err := h.Service.SubmitAnswer(id, *req.Choice)
	switch {
	case err == nil:
	case errors.Is(err, registry.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	case errors.Is(err, session.ErrSessionCompleted):
		c.JSON(http.StatusGone, gin.H{"error": "quiz already completed"})
		return
	case errors.Is(err, session.ErrInvalidChoice):
		c.JSON(http.StatusBadRequest, gin.H{"error": "choice index out of range"})
		return
	case errors.Is(err, session.ErrDuplicateAnswer):
		c.JSON(http.StatusConflict, gin.H{"error": "question already answered"})
		return
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.publish(event.AnswerSubmitted, gin.H{
		"session_id": id,
		"correct":    result.Correct,
	})
	if result.Completed {
		h.publish(event.SessionCompleted, gin.H{"session_id": id})
	}

	c.JSON(http.StatusOK, result)
}

// GetScore returns the session's running score.
func (h *QuizHandler) GetScore(c *gin.Context) {
	id := c.Param("id")

	correct, total, completed, err := h.Service.Score(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"correct":   correct,
		"total":     total,
		"completed": completed,
	})
}

func (h *QuizHandler) publish(routingKey string, payload any) {
	if h.Publisher == nil {
		return
	}
	if err := h.Publisher.Publish(routingKey, payload); err != nil {
		log.Printf("publish %s: %v", routingKey, err)
	}
}
