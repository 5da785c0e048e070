package handler

import (
	"net/http"

	"github.com/kh1012/half/internal/session"
	"github.com/kh1012/half/pkg/logger"
)

// ProfileHandler serves the local identity and the cooldown status.
type ProfileHandler struct {
	session *session.Session
	log     *logger.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(sess *session.Session, log *logger.Logger) *ProfileHandler {
	return &ProfileHandler{session: sess, log: log}
}

// ProfileResponse is the local view of the identity.
type ProfileResponse struct {
	BrowserID      string `json:"browser_id"`
	Nickname       string `json:"nickname"`
	HasSetNickname bool   `json:"has_set_nickname"`
}

// Get handles GET /api/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ProfileResponse{
		BrowserID:      h.session.Identity.BrowserID(),
		Nickname:       h.session.Identity.Nickname(),
		HasSetNickname: h.session.Identity.HasSetNickname(),
	})
}

// NicknameRequest is the body of a nickname update.
type NicknameRequest struct {
	Nickname string `json:"nickname"`
}

// UpdateNickname handles PUT /api/profile
func (h *ProfileHandler) UpdateNickname(w http.ResponseWriter, r *http.Request) {
	var req NicknameRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(h.log, w, err)
		return
	}

	if err := h.session.Identity.SetDisplayName(req.Nickname); err != nil {
		respondError(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, ProfileResponse{
		BrowserID:      h.session.Identity.BrowserID(),
		Nickname:       h.session.Identity.Nickname(),
		HasSetNickname: h.session.Identity.HasSetNickname(),
	})
}

// Cooldown handles GET /api/cooldown
func (h *ProfileHandler) Cooldown(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.session.Gate.CanGenerate())
}
