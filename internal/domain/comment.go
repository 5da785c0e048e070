package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxCommentLength bounds user comment content.
const MaxCommentLength = 500

// Comment represents a comment row attached to a question.
type Comment struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	QuestionID   string    `json:"question_id"`
	BrowserID    string    `json:"browser_id"`
	AuthorName   string    `json:"author_name"`
	Content      string    `json:"content"`
	ChosenOption Option    `json:"chosen_option"`
}

// Validate checks a comment row returned by the remote store.
func (c *Comment) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("comment missing id")
	}
	if c.QuestionID == "" {
		return fmt.Errorf("comment %s missing question_id", c.ID)
	}
	return nil
}

// NewCommentInput carries a comment submission before insertion.
type NewCommentInput struct {
	QuestionID   string `json:"question_id"`
	AuthorName   string `json:"author_name"`
	Content      string `json:"content"`
	ChosenOption Option `json:"chosen_option"`
}

// Normalize trims the content in place.
func (in *NewCommentInput) Normalize() {
	in.Content = strings.TrimSpace(in.Content)
	in.AuthorName = strings.TrimSpace(in.AuthorName)
}

// Validate rejects empty or over-long content before any remote call.
func (in *NewCommentInput) Validate() error {
	if in.QuestionID == "" {
		return fmt.Errorf("question id is required")
	}
	if in.Content == "" {
		return fmt.Errorf("comment content is required")
	}
	if utf8.RuneCountInString(in.Content) > MaxCommentLength {
		return fmt.Errorf("comment must be at most %d characters", MaxCommentLength)
	}
	if !in.ChosenOption.Valid() {
		return fmt.Errorf("chosen option must be %q or %q", OptionA, OptionB)
	}
	return nil
}
