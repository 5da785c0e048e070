package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/kh1012/half/internal/domain"
)

const tableStats = "question_stats"

// GetQuestionStats returns the aggregate counts for a question. The stats
// view has no row for a question nobody has voted on; that reads as zero
// counts, not an error.
func (c *Client) GetQuestionStats(ctx context.Context, questionID string) (*domain.QuestionStats, error) {
	query := url.Values{}
	query.Set("question_id", "eq."+questionID)
	query.Set("limit", "1")

	var rows []domain.QuestionStats
	if err := c.do(ctx, http.MethodGet, tableStats, query, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &domain.QuestionStats{QuestionID: questionID}, nil
	}
	return &rows[0], nil
}
