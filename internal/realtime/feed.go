// Package realtime merges change notifications from the remote store into
// the shared aggregate cache. Questions arrive on a global channel; votes
// and comments on per-question channels acquired while a question is being
// viewed and released when it no longer is. A periodic full refresh
// overwrites the cache wholesale, so any missed or duplicated event is
// eventually corrected.
//
// Self-notification policy: a vote event carrying this session's own
// browser id is dropped. The mutation coordinator already applied it, and
// counting it again would double-increment. Comments need no such check
// because their id-based dedup absorbs self-delivery.
package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/kh1012/half/internal/domain"
	"github.com/kh1012/half/internal/events"
	"github.com/kh1012/half/internal/statscache"
	"github.com/kh1012/half/pkg/logger"
)

// Snapshotter is the slice of the remote store the periodic refresh reads.
type Snapshotter interface {
	ListActiveQuestions(ctx context.Context, limit int) ([]domain.Question, error)
	GetQuestionStats(ctx context.Context, questionID string) (*domain.QuestionStats, error)
	ListCommentsByQuestion(ctx context.Context, questionID string) ([]domain.Comment, error)
}

// DefaultQuestionLimit matches the question list page size.
const DefaultQuestionLimit = 20

const refreshTimeout = 15 * time.Second

// Feed reconciles realtime events and periodic snapshots into the cache.
type Feed struct {
	bus             events.Bus // nil when no broker is configured
	cache           *statscache.Cache
	store           Snapshotter
	selfID          string
	refreshInterval time.Duration
	log             *logger.Logger

	mu      sync.Mutex
	ctx     context.Context // session lifetime, set by Start
	watched map[string]*watch
}

// watch is one live per-question channel acquisition.
type watch struct {
	sub     events.Subscription
	release func()
}

// New creates a feed for one session. selfID is the session's browser id,
// used to suppress self-originated vote notifications.
func New(bus events.Bus, cache *statscache.Cache, store Snapshotter, selfID string, refreshInterval time.Duration, log *logger.Logger) *Feed {
	return &Feed{
		bus:             bus,
		cache:           cache,
		store:           store,
		selfID:          selfID,
		refreshInterval: refreshInterval,
		log:             log,
		watched:         make(map[string]*watch),
	}
}

// Start subscribes to the global question channel and begins the periodic
// refresh loop. Both run until ctx ends. The initial snapshot is fetched
// before Start returns so the cache is never empty afterwards.
func (f *Feed) Start(ctx context.Context) error {
	f.mu.Lock()
	f.ctx = ctx
	f.mu.Unlock()

	f.refreshQuestions(ctx)

	if f.bus != nil {
		sub, err := f.bus.Subscribe(ctx, events.QuestionChannel())
		if err != nil {
			return err
		}
		go f.consumeQuestions(sub)
	}

	go f.refreshLoop(ctx)
	return nil
}

// WatchQuestion acquires the vote and comment channels for one question
// and seeds the cache with a fresh stats and comments snapshot. The
// subscription lives until UnwatchQuestion or session teardown, whichever
// comes first; watching an already-watched question first releases the
// previous acquisition. The returned release function is an alias for
// UnwatchQuestion on this id.
func (f *Feed) WatchQuestion(questionID string) (func(), error) {
	f.mu.Lock()
	ctx := f.ctx
	f.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	f.seedQuestion(ctx, questionID)

	if f.bus == nil {
		return func() {}, nil
	}

	sub, err := f.bus.Subscribe(ctx, events.VoteChannel(questionID), events.CommentChannel(questionID))
	if err != nil {
		return nil, err
	}
	go f.consumeQuestionScoped(questionID, sub)

	w := &watch{sub: sub}
	var once sync.Once
	w.release = func() {
		once.Do(func() {
			_ = w.sub.Close()
			f.mu.Lock()
			// Only clear the slot if it still belongs to this watch.
			if f.watched[questionID] == w {
				delete(f.watched, questionID)
			}
			f.mu.Unlock()
		})
	}

	f.mu.Lock()
	prev := f.watched[questionID]
	f.watched[questionID] = w
	f.mu.Unlock()
	if prev != nil {
		prev.release()
	}

	return w.release, nil
}

// UnwatchQuestion releases the channels for a question if it is being
// watched.
func (f *Feed) UnwatchQuestion(questionID string) {
	f.mu.Lock()
	w := f.watched[questionID]
	f.mu.Unlock()
	if w != nil {
		w.release()
	}
}

func (f *Feed) consumeQuestions(sub events.Subscription) {
	for msg := range sub.Messages() {
		ev, err := events.DecodeQuestionEvent(msg.Payload)
		if err != nil {
			f.log.WithError(err).Warn("Dropping undecodable question event")
			continue
		}
		f.handleQuestionEvent(ev)
	}
}

func (f *Feed) consumeQuestionScoped(questionID string, sub events.Subscription) {
	voteChannel := events.VoteChannel(questionID)
	commentChannel := events.CommentChannel(questionID)

	for msg := range sub.Messages() {
		switch msg.Channel {
		case voteChannel:
			ev, err := events.DecodeVoteEvent(msg.Payload)
			if err != nil {
				f.log.WithError(err).Warn("Dropping undecodable vote event")
				continue
			}
			f.handleVoteEvent(questionID, ev)
		case commentChannel:
			ev, err := events.DecodeCommentEvent(msg.Payload)
			if err != nil {
				f.log.WithError(err).Warn("Dropping undecodable comment event")
				continue
			}
			f.handleCommentEvent(ev)
		}
	}
}

func (f *Feed) handleQuestionEvent(ev domain.QuestionEvent) {
	switch ev.Kind {
	case domain.EventInsert:
		if f.cache.PrependQuestion(ev.Question) {
			f.log.WithField("question_id", ev.Question.ID).Debug("Merged new question from feed")
		}
	case domain.EventDelete:
		f.cache.RemoveQuestion(ev.Question.ID)
	}
}

func (f *Feed) handleVoteEvent(questionID string, ev domain.VoteEvent) {
	if ev.Kind != domain.EventInsert {
		return
	}
	if ev.Vote.BrowserID == f.selfID {
		// Own vote; the coordinator already counted it.
		return
	}

	f.cache.ApplyVote(questionID, ev.Vote.ChosenOption, 0, 0)
}

func (f *Feed) handleCommentEvent(ev domain.CommentEvent) {
	switch ev.Kind {
	case domain.EventInsert:
		f.cache.AppendComment(ev.Comment)
	case domain.EventDelete:
		f.cache.RemoveComment(ev.Comment.QuestionID, ev.Comment.ID)
	}
}

func (f *Feed) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(f.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.refreshAll(ctx)
		}
	}
}

// refreshAll rebuilds the cache wholesale from the store: the question
// list, and stats plus comments for every watched question. This is the
// correctness backstop for the at-least-once feed.
func (f *Feed) refreshAll(ctx context.Context) {
	f.refreshQuestions(ctx)

	f.mu.Lock()
	watched := make([]string, 0, len(f.watched))
	for id := range f.watched {
		watched = append(watched, id)
	}
	f.mu.Unlock()

	for _, questionID := range watched {
		f.seedQuestion(ctx, questionID)
	}
}

func (f *Feed) refreshQuestions(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	questions, err := f.store.ListActiveQuestions(fetchCtx, DefaultQuestionLimit)
	if err != nil {
		f.log.WithError(err).Warn("Question refresh failed, keeping cached list")
		return
	}
	f.cache.ReplaceQuestions(questions)
}

func (f *Feed) seedQuestion(ctx context.Context, questionID string) {
	fetchCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	if stats, err := f.store.GetQuestionStats(fetchCtx, questionID); err != nil {
		f.log.WithError(err).WithField("question_id", questionID).Warn("Stats refresh failed, keeping cached counts")
	} else {
		f.cache.SetStats(*stats)
	}

	if comments, err := f.store.ListCommentsByQuestion(fetchCtx, questionID); err != nil {
		f.log.WithError(err).WithField("question_id", questionID).Warn("Comment refresh failed, keeping cached list")
	} else {
		f.cache.ReplaceComments(questionID, comments)
	}
}
