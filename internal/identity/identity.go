// Package identity owns the durable pseudo-anonymous identity: an opaque
// browser id generated once on first run, plus a user-chosen display name.
// Both live in the local store; a remote profile row mirrors them
// best-effort. The local copy is authoritative for everything except the
// last-generation timestamp, where the remote profile wins on bootstrap.
package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kh1012/half/internal/domain"
	"github.com/kh1012/half/internal/localstore"
	"github.com/kh1012/half/internal/remote"
	apperrors "github.com/kh1012/half/pkg/errors"
	"github.com/kh1012/half/pkg/logger"
)

const remotePushTimeout = 5 * time.Second

// Store tracks the anonymous identity for this installation.
type Store struct {
	local    *localstore.Store
	profiles remote.ProfileStore
	log      *logger.Logger

	mu             sync.Mutex
	browserID      string
	nickname       string
	hasSetNickname bool
}

// NewStore creates an identity store. Call Load before anything else.
func NewStore(local *localstore.Store, profiles remote.ProfileStore, log *logger.Logger) *Store {
	return &Store{
		local:    local,
		profiles: profiles,
		log:      log,
		nickname: domain.DefaultNickname,
	}
}

// Load resolves the identity from local persistence, generating and
// persisting a fresh browser id on first run. The first run also schedules
// a fire-and-forget remote profile creation; its failure is logged, not
// surfaced, and not retried; EnsureProfile covers it on the next bootstrap.
func (s *Store) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok, err := s.local.Get(localstore.KeyBrowserID)
	if err != nil {
		return "", err
	}

	firstRun := !ok || id == ""
	if firstRun {
		id = uuid.NewString()
		if err := s.local.Set(localstore.KeyBrowserID, id); err != nil {
			return "", err
		}
		s.log.WithField("browser_id", id).Info("Generated new anonymous identity")
	}
	s.browserID = id

	if nickname, ok, err := s.local.Get(localstore.KeyLastNickname); err == nil && ok && nickname != "" {
		s.nickname = nickname
		s.hasSetNickname = true
	}

	if firstRun {
		go s.createProfileAsync(id, s.nickname)
	}

	return id, nil
}

// BrowserID returns the resolved identity. Empty before Load.
func (s *Store) BrowserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.browserID
}

// Nickname returns the current display name.
func (s *Store) Nickname() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nickname
}

// HasSetNickname reports whether the user ever chose a display name, as
// opposed to still carrying the placeholder.
func (s *Store) HasSetNickname() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasSetNickname
}

// SetDisplayName validates and persists a new display name locally, then
// pushes it to the remote profile in the background. The local value is
// kept even when the push fails; the remote name is best-effort metadata.
func (s *Store) SetDisplayName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperrors.NewValidationError("display name must not be empty")
	}

	s.mu.Lock()
	if err := s.local.Set(localstore.KeyLastNickname, name); err != nil {
		s.mu.Unlock()
		return err
	}
	s.nickname = name
	s.hasSetNickname = true
	browserID := s.browserID
	s.mu.Unlock()

	if browserID != "" {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), remotePushTimeout)
			defer cancel()

			err := s.profiles.UpdateProfile(ctx, browserID, map[string]interface{}{
				"last_nickname": name,
			})
			if err != nil {
				s.log.WithError(err).Warn("Failed to push nickname to remote profile")
			}
		}()
	}

	return nil
}

// EnsureProfile looks up the remote profile. If it does not exist it is
// created with the current local display name. If it does, the remote
// last-generation timestamp is returned so the caller can overwrite the
// local cooldown cache. Remote wins for that one field.
func (s *Store) EnsureProfile(ctx context.Context) (*time.Time, error) {
	s.mu.Lock()
	browserID := s.browserID
	nickname := s.nickname
	s.mu.Unlock()

	profile, err := s.profiles.GetProfile(ctx, browserID)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Type == apperrors.ErrorTypeNotFound {
			// Expected first-run case, not an error.
			createErr := s.profiles.CreateProfile(ctx, &domain.Profile{
				BrowserID:    browserID,
				LastNickname: nickname,
			})
			if createErr != nil {
				return nil, createErr
			}
			return nil, nil
		}
		return nil, err
	}

	return profile.LastQuestionGeneratedAt, nil
}

func (s *Store) createProfileAsync(browserID, nickname string) {
	ctx, cancel := context.WithTimeout(context.Background(), remotePushTimeout)
	defer cancel()

	err := s.profiles.CreateProfile(ctx, &domain.Profile{
		BrowserID:    browserID,
		LastNickname: nickname,
	})
	if err != nil {
		s.log.WithError(err).Warn("Failed to create remote profile for new identity")
	}
}
