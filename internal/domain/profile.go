package domain

import "time"

// DefaultNickname is shown until the user explicitly picks a display name.
const DefaultNickname = "anonymous"

// Profile mirrors the anonymous_profiles row for one browser identity. The
// browser id is generated client-side on first run and never changes; the
// nickname is best-effort metadata. The remote copy of
// LastQuestionGeneratedAt is authoritative and overwrites the local cooldown
// cache on bootstrap.
type Profile struct {
	BrowserID               string     `json:"browser_id"`
	LastNickname            string     `json:"last_nickname"`
	LastQuestionGeneratedAt *time.Time `json:"last_question_generated_at,omitempty"`
	CreatedAt               time.Time  `json:"created_at,omitempty"`
}
