package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Question statuses as stored in the questions table.
const (
	QuestionStatusActive   = "active"
	QuestionStatusArchived = "archived"
)

// Categories assigned when a question is not produced by the generator.
const CategoryUserCreated = "user"

// Validation limits for user-submitted questions.
const (
	MaxTitleLength  = 200
	MaxOptionLength = 50
)

// Question represents a paired-choice question row.
type Question struct {
	ID               string    `json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	Title            string    `json:"title"`
	OptionA          string    `json:"option_a"`
	OptionB          string    `json:"option_b"`
	Category         string    `json:"category,omitempty"`
	Status           string    `json:"status"`
	ControversyScore float64   `json:"controversy_score,omitempty"`
}

// Validate checks a question row returned by the remote store.
func (q *Question) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("question missing id")
	}
	if q.Title == "" || q.OptionA == "" || q.OptionB == "" {
		return fmt.Errorf("question %s has empty title or options", q.ID)
	}
	return nil
}

// NewQuestionInput carries a user-submitted question before insertion.
type NewQuestionInput struct {
	Title   string `json:"title"`
	OptionA string `json:"option_a"`
	OptionB string `json:"option_b"`
}

// Normalize trims all fields in place.
func (in *NewQuestionInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.OptionA = strings.TrimSpace(in.OptionA)
	in.OptionB = strings.TrimSpace(in.OptionB)
}

// Validate rejects empty or over-long input before any remote call.
func (in *NewQuestionInput) Validate() error {
	if in.Title == "" || in.OptionA == "" || in.OptionB == "" {
		return fmt.Errorf("title and both options are required")
	}
	if utf8.RuneCountInString(in.Title) > MaxTitleLength {
		return fmt.Errorf("title must be at most %d characters", MaxTitleLength)
	}
	if utf8.RuneCountInString(in.OptionA) > MaxOptionLength || utf8.RuneCountInString(in.OptionB) > MaxOptionLength {
		return fmt.Errorf("options must be at most %d characters", MaxOptionLength)
	}
	return nil
}

// GeneratedQuestion is the structured payload returned by the external
// question generator.
type GeneratedQuestion struct {
	Title    string `json:"title"`
	OptionA  string `json:"option_a"`
	OptionB  string `json:"option_b"`
	Category string `json:"category"`
}
