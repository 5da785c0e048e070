package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kh1012/half/internal/domain"
	"github.com/kh1012/half/internal/session"
	"github.com/kh1012/half/pkg/logger"
)

// VoteHandler serves vote and pass submissions plus the local history.
type VoteHandler struct {
	session *session.Session
	log     *logger.Logger
}

// NewVoteHandler creates a new vote handler
func NewVoteHandler(sess *session.Session, log *logger.Logger) *VoteHandler {
	return &VoteHandler{session: sess, log: log}
}

// VoteRequest is the body of a vote submission.
type VoteRequest struct {
	ChosenOption domain.Option `json:"chosen_option"`
}

// Vote handles POST /api/questions/{questionID}/vote. The response carries
// the optimistically updated counts; a remote failure rolls the counts
// back and surfaces the rejection.
func (h *VoteHandler) Vote(w http.ResponseWriter, r *http.Request) {
	questionID := chi.URLParam(r, "questionID")

	var req VoteRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(h.log, w, err)
		return
	}

	stats, err := h.session.Coordinator.SubmitVote(r.Context(), questionID, req.ChosenOption)
	if err != nil {
		respondError(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusCreated, stats)
}

// Pass handles POST /api/questions/{questionID}/pass. Passing is a purely
// local mutation and is idempotent.
func (h *VoteHandler) Pass(w http.ResponseWriter, r *http.Request) {
	questionID := chi.URLParam(r, "questionID")
	if err := h.session.History.RecordPass(questionID); err != nil {
		respondError(h.log, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HistoryResponse is the local vote/pass history for this identity.
type HistoryResponse struct {
	Voted  []string `json:"voted"` // newest first
	Passed []string `json:"passed"`
}

// History handles GET /api/history
func (h *VoteHandler) History(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HistoryResponse{
		Voted:  h.session.History.VotedNewestFirst(),
		Passed: h.session.History.Passed(),
	})
}
