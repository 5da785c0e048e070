package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/kh1012/half/internal/domain"
	"github.com/kh1012/half/internal/events"
	apperrors "github.com/kh1012/half/pkg/errors"
)

const tableVotes = "votes"

// CreateVote inserts a vote row and publishes it on the question's vote
// channel.
func (c *Client) CreateVote(ctx context.Context, vote *domain.Vote) (*domain.Vote, error) {
	body := map[string]interface{}{
		"question_id":   vote.QuestionID,
		"browser_id":    vote.BrowserID,
		"chosen_option": vote.ChosenOption,
	}

	var rows []domain.Vote
	if err := c.do(ctx, http.MethodPost, tableVotes, nil, body, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NewRemoteError("vote insert returned no row", nil)
	}
	created := rows[0]
	if err := created.Validate(); err != nil {
		return nil, apperrors.NewRemoteError("malformed vote row after insert", err)
	}

	payload, err := events.EncodeVoteEvent(domain.VoteEvent{Kind: domain.EventInsert, Vote: created})
	c.publish(events.VoteChannel(created.QuestionID), payload, err)

	return &created, nil
}

// DeleteVotesByQuestion removes all votes for a question. Used only by the
// cascading question delete; peer caches are corrected by the question
// deletion event and the periodic refresh, so no per-vote events are sent.
func (c *Client) DeleteVotesByQuestion(ctx context.Context, questionID string) error {
	query := url.Values{}
	query.Set("question_id", "eq."+questionID)

	return c.do(ctx, http.MethodDelete, tableVotes, query, nil, nil)
}
