// Package session orchestrates startup: identity first, then the local
// history and cooldown caches, then the asynchronous remote profile
// reconciliation, and only then the ready flag. Downstream components must
// not assume identity or history are loaded until Ready reports true.
package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/kh1012/half/internal/cooldown"
	"github.com/kh1012/half/internal/events"
	"github.com/kh1012/half/internal/history"
	"github.com/kh1012/half/internal/identity"
	"github.com/kh1012/half/internal/localstore"
	"github.com/kh1012/half/internal/mutation"
	"github.com/kh1012/half/internal/realtime"
	"github.com/kh1012/half/internal/remote"
	"github.com/kh1012/half/internal/statscache"
	"github.com/kh1012/half/pkg/logger"
)

const reconcileTimeout = 10 * time.Second

// Session wires the client core together for one identity.
type Session struct {
	Identity    *identity.Store
	History     *history.Cache
	Gate        *cooldown.Gate
	Cache       *statscache.Cache
	Coordinator *mutation.Coordinator
	Feed        *realtime.Feed

	store remote.Store
	bus   events.Bus
	log   *logger.Logger

	refreshInterval time.Duration
	ready           atomic.Bool
	cancel          context.CancelFunc
}

// New assembles a session. bus may be nil (no realtime feed, refresh only).
func New(
	local *localstore.Store,
	store remote.Store,
	bus events.Bus,
	cooldownWindow time.Duration,
	refreshInterval time.Duration,
	log *logger.Logger,
) *Session {
	cache := statscache.New()
	ident := identity.NewStore(local, store, log.Named("identity"))
	hist := history.NewCache(local, log.Named("history"))
	gate := cooldown.NewGate(local, store, cooldownWindow, log.Named("cooldown"))

	return &Session{
		Identity:        ident,
		History:         hist,
		Gate:            gate,
		Cache:           cache,
		Coordinator:     mutation.NewCoordinator(cache, store, store, hist, ident, log.Named("mutation")),
		store:           store,
		bus:             bus,
		log:             log,
		refreshInterval: refreshInterval,
	}
}

// Start runs the bootstrap sequence. Each step begins only after the
// previous one's synchronous portion completed; the remote reconciliation
// is fired asynchronously and does not block readiness.
func (s *Session) Start(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel

	browserID, err := s.Identity.Load()
	if err != nil {
		cancel()
		return err
	}

	s.History.Load()
	s.Gate.Load(browserID)

	go s.reconcileProfile(ctx)

	s.Feed = realtime.New(s.bus, s.Cache, s.store, browserID, s.refreshInterval, s.log.Named("realtime"))
	if err := s.Feed.Start(ctx); err != nil {
		cancel()
		return err
	}

	s.ready.Store(true)
	s.log.WithField("browser_id", browserID).Info("Session initialized")
	return nil
}

// Ready reports whether bootstrap completed.
func (s *Session) Ready() bool {
	return s.ready.Load()
}

// Stop tears the session down: subscriptions are released through context
// cancellation and the aggregate cache is cleared.
func (s *Session) Stop() {
	s.ready.Store(false)
	if s.cancel != nil {
		s.cancel()
	}
	s.Cache.Reset()
	s.log.Info("Session stopped")
}

// reconcileProfile runs the remote side of bootstrap: ensure the profile
// row exists and let its last-generation timestamp overwrite the local
// cooldown cache. Failure is logged and the session proceeds on local
// data; profile-not-found is an expected first-run case handled inside
// EnsureProfile.
func (s *Session) reconcileProfile(ctx context.Context) {
	reconcileCtx, cancel := context.WithTimeout(ctx, reconcileTimeout)
	defer cancel()

	remoteGeneratedAt, err := s.Identity.EnsureProfile(reconcileCtx)
	if err != nil {
		s.log.WithError(err).Warn("Remote profile reconciliation failed, proceeding with local state")
		return
	}
	if remoteGeneratedAt != nil {
		s.Gate.SyncRemote(*remoteGeneratedAt)
		s.log.WithField("last_generation", remoteGeneratedAt).Debug("Cooldown timestamp reconciled from remote profile")
	}
}
