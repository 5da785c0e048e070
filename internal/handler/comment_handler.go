package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kh1012/half/internal/domain"
	"github.com/kh1012/half/internal/question"
	"github.com/kh1012/half/internal/session"
	"github.com/kh1012/half/pkg/logger"
)

// CommentHandler serves comment reads and submissions.
type CommentHandler struct {
	session   *session.Session
	questions *question.Service
	log       *logger.Logger
}

// NewCommentHandler creates a new comment handler
func NewCommentHandler(sess *session.Session, questions *question.Service, log *logger.Logger) *CommentHandler {
	return &CommentHandler{session: sess, questions: questions, log: log}
}

// List handles GET /api/questions/{questionID}/comments
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	questionID := chi.URLParam(r, "questionID")
	comments, err := h.questions.Comments(r.Context(), questionID)
	if err != nil {
		respondError(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, comments)
}

// Create handles POST /api/questions/{questionID}/comments
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	questionID := chi.URLParam(r, "questionID")

	var input domain.NewCommentInput
	if err := decodeBody(r, &input); err != nil {
		respondError(h.log, w, err)
		return
	}
	input.QuestionID = questionID

	created, err := h.session.Coordinator.SubmitComment(r.Context(), input)
	if err != nil {
		respondError(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// Delete handles DELETE /api/comments/{commentID}
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	commentID := chi.URLParam(r, "commentID")
	if err := h.questions.DeleteComment(r.Context(), commentID); err != nil {
		respondError(h.log, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
