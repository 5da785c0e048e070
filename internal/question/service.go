// Package question implements question creation, cooldown-gated
// generation, the cascading delete, and cache-first reads of the question
// list, stats, and comments.
package question

import (
	"context"
	"fmt"

	"github.com/kh1012/half/internal/cooldown"
	"github.com/kh1012/half/internal/domain"
	"github.com/kh1012/half/internal/generator"
	"github.com/kh1012/half/internal/realtime"
	"github.com/kh1012/half/internal/remote"
	"github.com/kh1012/half/internal/statscache"
	apperrors "github.com/kh1012/half/pkg/errors"
	"github.com/kh1012/half/pkg/logger"
)

// Service coordinates question-level operations.
type Service struct {
	questions remote.QuestionStore
	votes     remote.VoteStore
	comments  remote.CommentStore
	stats     remote.StatsStore
	generator generator.Generator // nil when no generator is configured
	gate      *cooldown.Gate
	cache     *statscache.Cache
	log       *logger.Logger
}

// NewService creates a question service.
func NewService(
	store remote.Store,
	gen generator.Generator,
	gate *cooldown.Gate,
	cache *statscache.Cache,
	log *logger.Logger,
) *Service {
	return &Service{
		questions: store,
		votes:     store,
		comments:  store,
		stats:     store,
		generator: gen,
		gate:      gate,
		cache:     cache,
		log:       log,
	}
}

// ActiveQuestions returns the known question list, newest first. The cache
// is the source; an empty cache falls back to a direct fetch so a session
// that has not refreshed yet still gets data.
func (s *Service) ActiveQuestions(ctx context.Context) ([]domain.Question, error) {
	if cached := s.cache.Questions(); len(cached) > 0 {
		return cached, nil
	}

	questions, err := s.questions.ListActiveQuestions(ctx, realtime.DefaultQuestionLimit)
	if err != nil {
		return nil, err
	}
	s.cache.ReplaceQuestions(questions)
	return questions, nil
}

// CreateUserQuestion validates and inserts a user-submitted question. An
// existing question with the same title is rejected before the insert.
func (s *Service) CreateUserQuestion(ctx context.Context, input domain.NewQuestionInput) (*domain.Question, error) {
	input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	existing, err := s.questions.FindQuestionByTitle(ctx, input.Title)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.NewDuplicateError("an identical question already exists")
	}

	created, err := s.questions.CreateQuestion(ctx, &domain.Question{
		Title:    input.Title,
		OptionA:  input.OptionA,
		OptionB:  input.OptionB,
		Category: domain.CategoryUserCreated,
		Status:   domain.QuestionStatusActive,
	})
	if err != nil {
		return nil, err
	}

	// Merge our own creation immediately; the feed suppresses nothing here
	// because the prepend is idempotent by id.
	s.cache.PrependQuestion(*created)
	return created, nil
}

// Generate asks the external generator for a question, subject to the
// per-identity cooldown. The cooldown is stamped only after the question
// lands, so a failed generation does not burn the window.
func (s *Service) Generate(ctx context.Context) (*domain.Question, error) {
	if s.generator == nil {
		return nil, apperrors.NewValidationError("question generation is not configured")
	}

	status := s.gate.CanGenerate()
	if !status.Allowed {
		return nil, apperrors.NewCooldownError("question generation is on cooldown", status.Remaining)
	}

	generated, err := s.generator.Generate(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := s.questions.FindQuestionByContent(ctx, generated.Title, generated.OptionA, generated.OptionB)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.NewDuplicateError("an identical question already exists, try generating again")
	}

	created, err := s.questions.CreateQuestion(ctx, &domain.Question{
		Title:    generated.Title,
		OptionA:  generated.OptionA,
		OptionB:  generated.OptionB,
		Category: generated.Category,
		Status:   domain.QuestionStatusActive,
	})
	if err != nil {
		return nil, err
	}

	if err := s.gate.RecordGeneration(); err != nil {
		s.log.WithError(err).Warn("Failed to record generation timestamp")
	}

	s.cache.PrependQuestion(*created)
	return created, nil
}

// DeleteQuestion removes a question and everything hanging off it. The
// store enforces referential order: comments, then votes, then the
// question row. A failure aborts the remaining steps and names the step
// that failed.
func (s *Service) DeleteQuestion(ctx context.Context, questionID string) error {
	if err := s.comments.DeleteCommentsByQuestion(ctx, questionID); err != nil {
		return fmt.Errorf("deleting comments for question %s: %w", questionID, err)
	}
	if err := s.votes.DeleteVotesByQuestion(ctx, questionID); err != nil {
		return fmt.Errorf("deleting votes for question %s: %w", questionID, err)
	}
	if err := s.questions.DeleteQuestion(ctx, questionID); err != nil {
		return fmt.Errorf("deleting question %s: %w", questionID, err)
	}

	s.cache.RemoveQuestion(questionID)
	return nil
}

// DeleteComment removes a single comment. The local cache entry is cleared
// by the store's deletion event or, failing that, the next refresh.
func (s *Service) DeleteComment(ctx context.Context, commentID string) error {
	return s.comments.DeleteComment(ctx, commentID)
}

// Stats returns aggregate counts for a question, cache first.
func (s *Service) Stats(ctx context.Context, questionID string) (domain.QuestionStats, error) {
	if cached, ok := s.cache.Stats(questionID); ok {
		return cached, nil
	}

	fetched, err := s.stats.GetQuestionStats(ctx, questionID)
	if err != nil {
		return domain.QuestionStats{}, err
	}
	s.cache.SetStats(*fetched)
	return *fetched, nil
}

// Comments returns a question's comments, cache first.
func (s *Service) Comments(ctx context.Context, questionID string) ([]domain.Comment, error) {
	if cached := s.cache.Comments(questionID); len(cached) > 0 {
		return cached, nil
	}

	fetched, err := s.comments.ListCommentsByQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	s.cache.ReplaceComments(questionID, fetched)
	return fetched, nil
}
