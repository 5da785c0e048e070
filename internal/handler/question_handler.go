package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kh1012/half/internal/domain"
	"github.com/kh1012/half/internal/question"
	"github.com/kh1012/half/internal/session"
	apperrors "github.com/kh1012/half/pkg/errors"
	"github.com/kh1012/half/pkg/logger"
)

// QuestionHandler serves the question list and question-level operations.
type QuestionHandler struct {
	session   *session.Session
	questions *question.Service
	log       *logger.Logger
}

// NewQuestionHandler creates a new question handler
func NewQuestionHandler(sess *session.Session, questions *question.Service, log *logger.Logger) *QuestionHandler {
	return &QuestionHandler{session: sess, questions: questions, log: log}
}

// List handles GET /api/questions. The optional filter query narrows the
// list against the local history: "unvoted" excludes voted questions,
// "stack" additionally excludes passed ones.
func (h *QuestionHandler) List(w http.ResponseWriter, r *http.Request) {
	questions, err := h.questions.ActiveQuestions(r.Context())
	if err != nil {
		respondError(h.log, w, err)
		return
	}

	switch r.URL.Query().Get("filter") {
	case "unvoted":
		questions = h.session.History.Unvoted(questions)
	case "stack":
		questions = h.session.History.UnvotedExcludingPassed(questions)
	}

	respondJSON(w, http.StatusOK, questions)
}

// Create handles POST /api/questions
func (h *QuestionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input domain.NewQuestionInput
	if err := decodeBody(r, &input); err != nil {
		respondError(h.log, w, err)
		return
	}

	created, err := h.questions.CreateUserQuestion(r.Context(), input)
	if err != nil {
		respondError(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// Generate handles POST /api/questions/generate
func (h *QuestionHandler) Generate(w http.ResponseWriter, r *http.Request) {
	created, err := h.questions.Generate(r.Context())
	if err != nil {
		respondError(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// Delete handles DELETE /api/questions/{questionID}
func (h *QuestionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	questionID := chi.URLParam(r, "questionID")
	if err := h.questions.DeleteQuestion(r.Context(), questionID); err != nil {
		respondError(h.log, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /api/questions/{questionID}/stats
func (h *QuestionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	questionID := chi.URLParam(r, "questionID")
	stats, err := h.questions.Stats(r.Context(), questionID)
	if err != nil {
		respondError(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// Watch handles POST /api/questions/{questionID}/watch. Viewing a question
// acquires its realtime channels; the acquisition lives until Unwatch or
// session teardown.
func (h *QuestionHandler) Watch(w http.ResponseWriter, r *http.Request) {
	questionID := chi.URLParam(r, "questionID")
	if _, err := h.session.Feed.WatchQuestion(questionID); err != nil {
		respondError(h.log, w, apperrors.NewInternalError("failed to watch question", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Unwatch handles DELETE /api/questions/{questionID}/watch
func (h *QuestionHandler) Unwatch(w http.ResponseWriter, r *http.Request) {
	questionID := chi.URLParam(r, "questionID")
	h.session.Feed.UnwatchQuestion(questionID)
	w.WriteHeader(http.StatusNoContent)
}
