// Package cooldown gates question generation behind a fixed per-identity
// window. Enforcement is client-side only, a soft rate limit rather than a
// security boundary. The remote profile's timestamp is authoritative; the
// local copy is advisory and overwritten when they disagree.
package cooldown

import (
	"context"
	"sync"
	"time"

	"github.com/kh1012/half/internal/localstore"
	"github.com/kh1012/half/internal/remote"
	"github.com/kh1012/half/pkg/logger"
)

const remotePushTimeout = 5 * time.Second

// Status is the result of a cooldown check.
type Status struct {
	Allowed   bool  `json:"allowed"`
	Remaining int64 `json:"remaining_ms"`
}

// Gate tracks the last generation time for one identity.
type Gate struct {
	local    *localstore.Store
	profiles remote.ProfileStore
	log      *logger.Logger
	window   time.Duration
	now      func() time.Time

	mu             sync.Mutex
	browserID      string
	lastGeneration time.Time // zero means no prior generation
}

// NewGate creates a cooldown gate with the given window. Call Load before
// use.
func NewGate(local *localstore.Store, profiles remote.ProfileStore, window time.Duration, log *logger.Logger) *Gate {
	return &Gate{
		local:    local,
		profiles: profiles,
		log:      log,
		window:   window,
		now:      time.Now,
	}
}

// SetClock overrides the gate's clock. Used in tests.
func (g *Gate) SetClock(now func() time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.now = now
}

// Load reads the cached last-generation timestamp for the given identity.
// An unparseable cached value reads as absent.
func (g *Gate) Load(browserID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.browserID = browserID
	if ms, ok := g.local.GetEpochMillis(localstore.KeyLastGeneration); ok {
		g.lastGeneration = time.UnixMilli(ms)
	}
}

// CanGenerate reports whether generation is allowed and, when it is not,
// how long until it will be. No prior generation means allowed immediately
// with zero remaining.
func (g *Gate) CanGenerate() Status {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.lastGeneration.IsZero() {
		return Status{Allowed: true, Remaining: 0}
	}

	elapsed := g.now().Sub(g.lastGeneration)
	remaining := g.window - elapsed
	if remaining <= 0 {
		return Status{Allowed: true, Remaining: 0}
	}
	return Status{Allowed: false, Remaining: remaining.Milliseconds()}
}

// RecordGeneration stamps now as the last generation time, persists it
// locally, and pushes it to the remote profile in the background. The push
// is best-effort with no retry and no rollback: an unsynced remote
// timestamp self-corrects on the next bootstrap's reconciliation read.
func (g *Gate) RecordGeneration() error {
	g.mu.Lock()
	now := g.now()
	if err := g.local.SetEpochMillis(localstore.KeyLastGeneration, now.UnixMilli()); err != nil {
		g.mu.Unlock()
		return err
	}
	g.lastGeneration = now
	browserID := g.browserID
	g.mu.Unlock()

	if browserID != "" {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), remotePushTimeout)
			defer cancel()

			err := g.profiles.UpdateProfile(ctx, browserID, map[string]interface{}{
				"last_question_generated_at": now.UTC().Format(time.RFC3339Nano),
			})
			if err != nil {
				g.log.WithError(err).Warn("Failed to push generation timestamp to remote profile")
			}
		}()
	}

	return nil
}

// SyncRemote overwrites the local cache with the remote profile's
// timestamp. Called during bootstrap reconciliation; remote wins for this
// one field.
func (g *Gate) SyncRemote(remoteGeneratedAt time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.lastGeneration = remoteGeneratedAt
	if err := g.local.SetEpochMillis(localstore.KeyLastGeneration, remoteGeneratedAt.UnixMilli()); err != nil {
		g.log.WithError(err).Warn("Failed to persist reconciled generation timestamp")
	}
}

// LastGeneration returns the current timestamp, zero when absent.
func (g *Gate) LastGeneration() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastGeneration
}
