package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/kh1012/half/internal/domain"
	"github.com/kh1012/half/internal/events"
	apperrors "github.com/kh1012/half/pkg/errors"
)

const tableComments = "comments"

// CreateComment inserts a comment row and publishes it on the question's
// comment channel.
func (c *Client) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	body := map[string]interface{}{
		"question_id":   comment.QuestionID,
		"browser_id":    comment.BrowserID,
		"author_name":   comment.AuthorName,
		"content":       comment.Content,
		"chosen_option": comment.ChosenOption,
	}

	var rows []domain.Comment
	if err := c.do(ctx, http.MethodPost, tableComments, nil, body, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NewRemoteError("comment insert returned no row", nil)
	}
	created := rows[0]
	if err := created.Validate(); err != nil {
		return nil, apperrors.NewRemoteError("malformed comment row after insert", err)
	}

	payload, err := events.EncodeCommentEvent(domain.CommentEvent{Kind: domain.EventInsert, Comment: created})
	c.publish(events.CommentChannel(created.QuestionID), payload, err)

	return &created, nil
}

// DeleteComment removes a single comment and publishes the deletion.
func (c *Client) DeleteComment(ctx context.Context, id string) error {
	query := url.Values{}
	query.Set("id", "eq."+id)

	var rows []domain.Comment
	if err := c.do(ctx, http.MethodDelete, tableComments, query, nil, &rows); err != nil {
		return err
	}

	for _, deleted := range rows {
		payload, err := events.EncodeCommentEvent(domain.CommentEvent{Kind: domain.EventDelete, Comment: deleted})
		c.publish(events.CommentChannel(deleted.QuestionID), payload, err)
	}
	return nil
}

// DeleteCommentsByQuestion removes all comments for a question. Part of the
// cascading question delete; see DeleteVotesByQuestion for why no per-row
// events are sent.
func (c *Client) DeleteCommentsByQuestion(ctx context.Context, questionID string) error {
	query := url.Values{}
	query.Set("question_id", "eq."+questionID)

	return c.do(ctx, http.MethodDelete, tableComments, query, nil, nil)
}

// ListCommentsByQuestion returns a question's comments, oldest first.
func (c *Client) ListCommentsByQuestion(ctx context.Context, questionID string) ([]domain.Comment, error) {
	query := url.Values{}
	query.Set("question_id", "eq."+questionID)
	query.Set("order", "created_at.asc")

	var rows []domain.Comment
	if err := c.do(ctx, http.MethodGet, tableComments, query, nil, &rows); err != nil {
		return nil, err
	}

	comments := make([]domain.Comment, 0, len(rows))
	for _, cm := range rows {
		if err := cm.Validate(); err != nil {
			c.log.WithError(err).Warn("Dropping malformed comment row")
			continue
		}
		comments = append(comments, cm)
	}
	return comments, nil
}
