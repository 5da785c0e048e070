// Package mutation mediates vote and comment submissions against the
// remote store. Each submission applies its effect to the shared aggregate
// cache before the remote call resolves, so readers see the change
// immediately; a failed remote write restores the exact pre-mutation state
// and surfaces the failure to the caller. There is no automatic retry;
// the user re-triggers.
package mutation

import (
	"context"

	"github.com/google/uuid"

	"github.com/kh1012/half/internal/domain"
	"github.com/kh1012/half/internal/history"
	"github.com/kh1012/half/internal/identity"
	"github.com/kh1012/half/internal/remote"
	"github.com/kh1012/half/internal/statscache"
	apperrors "github.com/kh1012/half/pkg/errors"
	"github.com/kh1012/half/pkg/logger"
)

// Coordinator wraps optimistic mutations for one identity.
type Coordinator struct {
	cache    *statscache.Cache
	votes    remote.VoteStore
	comments remote.CommentStore
	history  *history.Cache
	identity *identity.Store
	log      *logger.Logger
}

// NewCoordinator creates a mutation coordinator.
func NewCoordinator(
	cache *statscache.Cache,
	votes remote.VoteStore,
	comments remote.CommentStore,
	hist *history.Cache,
	ident *identity.Store,
	log *logger.Logger,
) *Coordinator {
	return &Coordinator{
		cache:    cache,
		votes:    votes,
		comments: comments,
		history:  hist,
		identity: ident,
		log:      log,
	}
}

// SubmitVote casts a vote for one option of a question. The aggregate cache
// is incremented before the remote insert; on failure the snapshot captured
// beforehand is restored wholesale (a full replace, not a decrement) so
// updates that landed in between cannot be compounded into a wrong count.
// On success the question is recorded in the local vote history.
func (m *Coordinator) SubmitVote(ctx context.Context, questionID string, option domain.Option) (domain.QuestionStats, error) {
	if !option.Valid() {
		return domain.QuestionStats{}, apperrors.NewValidationError("chosen option must be \"a\" or \"b\"")
	}
	if m.history.HasVoted(questionID) {
		return domain.QuestionStats{}, apperrors.NewDuplicateError("question already voted on")
	}

	snapshot, existed := m.cache.Stats(questionID)
	optimistic := m.cache.ApplyVote(questionID, option, 0, 0)

	vote := &domain.Vote{
		QuestionID:   questionID,
		BrowserID:    m.identity.BrowserID(),
		ChosenOption: option,
	}
	if _, err := m.votes.CreateVote(ctx, vote); err != nil {
		m.cache.Restore(questionID, snapshot, existed)
		return domain.QuestionStats{}, err
	}

	if err := m.history.RecordVote(questionID); err != nil {
		// The remote vote stands; only the local history write failed.
		m.log.WithError(err).WithField("question_id", questionID).Warn("Failed to record vote in local history")
	}

	return optimistic, nil
}

// SubmitComment posts a comment on a question. The comment id is generated
// locally so the optimistic cache entry, the stored row, and the change
// event all agree; the cache's id-based dedup then absorbs the session's
// own realtime delivery. On remote failure the optimistic entry is removed.
func (m *Coordinator) SubmitComment(ctx context.Context, input domain.NewCommentInput) (*domain.Comment, error) {
	input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	author := input.AuthorName
	if author == "" {
		author = m.identity.Nickname()
	}

	comment := domain.Comment{
		ID:           uuid.NewString(),
		QuestionID:   input.QuestionID,
		BrowserID:    m.identity.BrowserID(),
		AuthorName:   author,
		Content:      input.Content,
		ChosenOption: input.ChosenOption,
	}

	m.cache.AppendComment(comment)

	stored, err := m.comments.CreateComment(ctx, &comment)
	if err != nil {
		m.cache.RemoveComment(comment.QuestionID, comment.ID)
		return nil, err
	}

	// Swap the speculative entry for the stored row so the cached copy
	// carries the server timestamp.
	m.cache.RemoveComment(comment.QuestionID, comment.ID)
	m.cache.AppendComment(*stored)

	return stored, nil
}
