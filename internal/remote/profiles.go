package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/kh1012/half/internal/domain"
	apperrors "github.com/kh1012/half/pkg/errors"
)

const tableProfiles = "anonymous_profiles"

// GetProfile retrieves a profile by browser id.
func (c *Client) GetProfile(ctx context.Context, browserID string) (*domain.Profile, error) {
	query := url.Values{}
	query.Set("browser_id", "eq."+browserID)
	query.Set("select", "browser_id,last_nickname,last_question_generated_at,created_at")
	query.Set("limit", "1")

	var rows []domain.Profile
	if err := c.do(ctx, http.MethodGet, tableProfiles, query, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("profile %s not found", browserID))
	}
	return &rows[0], nil
}

// CreateProfile creates a new profile row.
func (c *Client) CreateProfile(ctx context.Context, profile *domain.Profile) error {
	body := map[string]interface{}{
		"browser_id":    profile.BrowserID,
		"last_nickname": profile.LastNickname,
	}
	return c.do(ctx, http.MethodPost, tableProfiles, nil, body, nil)
}

// UpdateProfile patches the given fields on a profile row.
func (c *Client) UpdateProfile(ctx context.Context, browserID string, fields map[string]interface{}) error {
	query := url.Values{}
	query.Set("browser_id", "eq."+browserID)

	return c.do(ctx, http.MethodPatch, tableProfiles, query, fields, nil)
}
