package remote

import (
	"context"

	"github.com/kh1012/half/internal/domain"
)

// ProfileStore defines the remote operations on anonymous profiles
type ProfileStore interface {
	// GetProfile retrieves a profile by browser id. Returns a not-found
	// error when no profile exists, which is an expected first-run case.
	GetProfile(ctx context.Context, browserID string) (*domain.Profile, error)

	// CreateProfile creates a new profile row
	CreateProfile(ctx context.Context, profile *domain.Profile) error

	// UpdateProfile patches the given fields on a profile row
	UpdateProfile(ctx context.Context, browserID string, fields map[string]interface{}) error
}

// QuestionStore defines the remote operations on questions
type QuestionStore interface {
	// ListActiveQuestions returns active questions, newest first
	ListActiveQuestions(ctx context.Context, limit int) ([]domain.Question, error)

	// GetQuestion retrieves a single question by id
	GetQuestion(ctx context.Context, id string) (*domain.Question, error)

	// FindQuestionByTitle returns the first question matching the title,
	// or nil when none exists
	FindQuestionByTitle(ctx context.Context, title string) (*domain.Question, error)

	// FindQuestionByContent returns the first question matching title and
	// both options, or nil when none exists
	FindQuestionByContent(ctx context.Context, title, optionA, optionB string) (*domain.Question, error)

	// CreateQuestion inserts a question row and returns the stored row
	CreateQuestion(ctx context.Context, question *domain.Question) (*domain.Question, error)

	// DeleteQuestion deletes a question row. Dependent comments and votes
	// must already be gone.
	DeleteQuestion(ctx context.Context, id string) error
}

// VoteStore defines the remote operations on votes
type VoteStore interface {
	// CreateVote inserts a vote row and returns the stored row
	CreateVote(ctx context.Context, vote *domain.Vote) (*domain.Vote, error)

	// DeleteVotesByQuestion removes all votes for a question
	DeleteVotesByQuestion(ctx context.Context, questionID string) error
}

// CommentStore defines the remote operations on comments
type CommentStore interface {
	// CreateComment inserts a comment row and returns the stored row
	CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)

	// DeleteComment removes a single comment by id
	DeleteComment(ctx context.Context, id string) error

	// DeleteCommentsByQuestion removes all comments for a question
	DeleteCommentsByQuestion(ctx context.Context, questionID string) error

	// ListCommentsByQuestion returns a question's comments, oldest first
	ListCommentsByQuestion(ctx context.Context, questionID string) ([]domain.Comment, error)
}

// StatsStore defines the remote read of aggregate counts
type StatsStore interface {
	// GetQuestionStats returns the aggregate counts for a question.
	// A question nobody has voted on yet reports zero counts.
	GetQuestionStats(ctx context.Context, questionID string) (*domain.QuestionStats, error)
}

// Store aggregates the full remote data store surface
type Store interface {
	ProfileStore
	QuestionStore
	VoteStore
	CommentStore
	StatsStore
}
