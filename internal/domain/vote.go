package domain

import (
	"fmt"
	"time"
)

// Option identifies which side of a question was chosen.
type Option string

const (
	OptionA Option = "a"
	OptionB Option = "b"
)

// Valid reports whether o is one of the two known options.
func (o Option) Valid() bool {
	return o == OptionA || o == OptionB
}

// Vote represents a single vote row. Votes are permanent: there is no
// client-side retraction.
type Vote struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	QuestionID   string    `json:"question_id"`
	BrowserID    string    `json:"browser_id"`
	ChosenOption Option    `json:"chosen_option"`
}

// Validate checks a vote row returned by the remote store.
func (v *Vote) Validate() error {
	if v.QuestionID == "" {
		return fmt.Errorf("vote missing question_id")
	}
	if !v.ChosenOption.Valid() {
		return fmt.Errorf("vote for question %s has invalid option %q", v.QuestionID, v.ChosenOption)
	}
	return nil
}

// QuestionStats holds the aggregate counts for one question as reported by
// the remote store's stats view.
type QuestionStats struct {
	QuestionID string `json:"question_id"`
	CountA     int    `json:"count_a"`
	CountB     int    `json:"count_b"`
	TotalVotes int    `json:"total_votes"`
}
