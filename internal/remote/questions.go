package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kh1012/half/internal/domain"
	"github.com/kh1012/half/internal/events"
	apperrors "github.com/kh1012/half/pkg/errors"
)

const tableQuestions = "questions"

// ListActiveQuestions returns active questions, newest first. Rows that
// fail boundary validation are logged and skipped rather than failing the
// whole list.
func (c *Client) ListActiveQuestions(ctx context.Context, limit int) ([]domain.Question, error) {
	query := url.Values{}
	query.Set("status", "eq."+domain.QuestionStatusActive)
	query.Set("order", "created_at.desc")
	query.Set("limit", strconv.Itoa(limit))

	var rows []domain.Question
	if err := c.do(ctx, http.MethodGet, tableQuestions, query, nil, &rows); err != nil {
		return nil, err
	}

	questions := make([]domain.Question, 0, len(rows))
	for _, q := range rows {
		if err := q.Validate(); err != nil {
			c.log.WithError(err).Warn("Dropping malformed question row")
			continue
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// GetQuestion retrieves a single question by id.
func (c *Client) GetQuestion(ctx context.Context, id string) (*domain.Question, error) {
	query := url.Values{}
	query.Set("id", "eq."+id)
	query.Set("limit", "1")

	var rows []domain.Question
	if err := c.do(ctx, http.MethodGet, tableQuestions, query, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("question %s not found", id))
	}
	if err := rows[0].Validate(); err != nil {
		return nil, apperrors.NewRemoteError("malformed question row", err)
	}
	return &rows[0], nil
}

// FindQuestionByTitle returns the first question matching the title, or nil
// when none exists.
func (c *Client) FindQuestionByTitle(ctx context.Context, title string) (*domain.Question, error) {
	query := url.Values{}
	query.Set("title", "eq."+title)
	query.Set("limit", "1")

	var rows []domain.Question
	if err := c.do(ctx, http.MethodGet, tableQuestions, query, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// FindQuestionByContent returns the first question matching title and both
// options, or nil when none exists.
func (c *Client) FindQuestionByContent(ctx context.Context, title, optionA, optionB string) (*domain.Question, error) {
	query := url.Values{}
	query.Set("title", "eq."+title)
	query.Set("option_a", "eq."+optionA)
	query.Set("option_b", "eq."+optionB)
	query.Set("limit", "1")

	var rows []domain.Question
	if err := c.do(ctx, http.MethodGet, tableQuestions, query, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// CreateQuestion inserts a question row, publishes the insert on the global
// question channel, and returns the stored row.
func (c *Client) CreateQuestion(ctx context.Context, question *domain.Question) (*domain.Question, error) {
	body := map[string]interface{}{
		"title":    question.Title,
		"option_a": question.OptionA,
		"option_b": question.OptionB,
		"category": question.Category,
		"status":   question.Status,
	}

	var rows []domain.Question
	if err := c.do(ctx, http.MethodPost, tableQuestions, nil, body, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NewRemoteError("question insert returned no row", nil)
	}
	created := rows[0]
	if err := created.Validate(); err != nil {
		return nil, apperrors.NewRemoteError("malformed question row after insert", err)
	}

	payload, err := events.EncodeQuestionEvent(domain.QuestionEvent{Kind: domain.EventInsert, Question: created})
	c.publish(events.QuestionChannel(), payload, err)

	return &created, nil
}

// DeleteQuestion deletes a question row and publishes the deletion.
func (c *Client) DeleteQuestion(ctx context.Context, id string) error {
	query := url.Values{}
	query.Set("id", "eq."+id)

	var rows []domain.Question
	if err := c.do(ctx, http.MethodDelete, tableQuestions, query, nil, &rows); err != nil {
		return err
	}

	for _, q := range rows {
		payload, err := events.EncodeQuestionEvent(domain.QuestionEvent{Kind: domain.EventDelete, Question: q})
		c.publish(events.QuestionChannel(), payload, err)
	}
	return nil
}
