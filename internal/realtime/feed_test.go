package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kh1012/half/internal/domain"
	"github.com/kh1012/half/internal/events"
	"github.com/kh1012/half/internal/statscache"
	"github.com/kh1012/half/pkg/logger"
)

// memoryBus is an in-process events.Bus for feed tests.
type memoryBus struct {
	mu   sync.Mutex
	subs []*memorySub
}

type memorySub struct {
	channels map[string]struct{}
	messages chan events.Message
	once     sync.Once
}

func (s *memorySub) Messages() <-chan events.Message { return s.messages }

func (s *memorySub) Close() error {
	s.once.Do(func() { close(s.messages) })
	return nil
}

func newMemoryBus() *memoryBus { return &memoryBus{} }

func (b *memoryBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		if _, ok := sub.channels[channel]; ok {
			sub.messages <- events.Message{Channel: channel, Payload: payload}
		}
	}
	return nil
}

func (b *memoryBus) Subscribe(ctx context.Context, channels ...string) (events.Subscription, error) {
	sub := &memorySub{
		channels: make(map[string]struct{}, len(channels)),
		messages: make(chan events.Message, 16),
	}
	for _, ch := range channels {
		sub.channels[ch] = struct{}{}
	}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return sub, nil
}

// fakeSnapshotter serves canned refresh data.
type fakeSnapshotter struct {
	mu        sync.Mutex
	questions []domain.Question
	stats     map[string]domain.QuestionStats
	comments  map[string][]domain.Comment
}

func newFakeSnapshotter() *fakeSnapshotter {
	return &fakeSnapshotter{
		stats:    make(map[string]domain.QuestionStats),
		comments: make(map[string][]domain.Comment),
	}
}

func (f *fakeSnapshotter) ListActiveQuestions(ctx context.Context, limit int) ([]domain.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Question, len(f.questions))
	copy(out, f.questions)
	return out, nil
}

func (f *fakeSnapshotter) GetQuestionStats(ctx context.Context, questionID string) (*domain.QuestionStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.stats[questionID]
	if !ok {
		s = domain.QuestionStats{QuestionID: questionID}
	}
	return &s, nil
}

func (f *fakeSnapshotter) ListCommentsByQuestion(ctx context.Context, questionID string) ([]domain.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Comment, len(f.comments[questionID]))
	copy(out, f.comments[questionID])
	return out, nil
}

func (f *fakeSnapshotter) setQuestions(questions []domain.Question) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questions = questions
}

func (f *fakeSnapshotter) setStats(stats domain.QuestionStats) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats[stats.QuestionID] = stats
}

type feedFixture struct {
	bus   *memoryBus
	cache *statscache.Cache
	store *fakeSnapshotter
	feed  *Feed
}

func setupFeed(t *testing.T, selfID string) *feedFixture {
	bus := newMemoryBus()
	cache := statscache.New()
	store := newFakeSnapshotter()
	feed := New(bus, cache, store, selfID, time.Hour, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, feed.Start(ctx))

	return &feedFixture{bus: bus, cache: cache, store: store, feed: feed}
}

func publishQuestionEvent(t *testing.T, bus *memoryBus, ev domain.QuestionEvent) {
	payload, err := events.EncodeQuestionEvent(ev)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), events.QuestionChannel(), payload))
}

func publishVoteEvent(t *testing.T, bus *memoryBus, ev domain.VoteEvent) {
	payload, err := events.EncodeVoteEvent(ev)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), events.VoteChannel(ev.Vote.QuestionID), payload))
}

func publishCommentEvent(t *testing.T, bus *memoryBus, ev domain.CommentEvent) {
	payload, err := events.EncodeCommentEvent(ev)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), events.CommentChannel(ev.Comment.QuestionID), payload))
}

func TestFeed_StartSeedsQuestionList(t *testing.T) {
	bus := newMemoryBus()
	cache := statscache.New()
	store := newFakeSnapshotter()
	store.setQuestions([]domain.Question{{ID: "q1"}, {ID: "q2"}})

	feed := New(bus, cache, store, "self", time.Hour, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, feed.Start(ctx))

	list := cache.Questions()
	require.Len(t, list, 2)
	assert.Equal(t, "q1", list[0].ID)
}

func TestFeed_QuestionInsertPrepends(t *testing.T) {
	f := setupFeed(t, "self")

	publishQuestionEvent(t, f.bus, domain.QuestionEvent{
		Kind:     domain.EventInsert,
		Question: domain.Question{ID: "q-new", Title: "fresh"},
	})

	require.Eventually(t, func() bool {
		list := f.cache.Questions()
		return len(list) == 1 && list[0].ID == "q-new"
	}, time.Second, 10*time.Millisecond)

	// Duplicate delivery of the same insert changes nothing
	publishQuestionEvent(t, f.bus, domain.QuestionEvent{
		Kind:     domain.EventInsert,
		Question: domain.Question{ID: "q-new", Title: "fresh"},
	})
	publishQuestionEvent(t, f.bus, domain.QuestionEvent{
		Kind:     domain.EventInsert,
		Question: domain.Question{ID: "q-other"},
	})

	require.Eventually(t, func() bool {
		return len(f.cache.Questions()) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestFeed_QuestionDeleteRemoves(t *testing.T) {
	f := setupFeed(t, "self")
	f.cache.PrependQuestion(domain.Question{ID: "q1"})

	publishQuestionEvent(t, f.bus, domain.QuestionEvent{
		Kind:     domain.EventDelete,
		Question: domain.Question{ID: "q1"},
	})

	require.Eventually(t, func() bool {
		return len(f.cache.Questions()) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestFeed_PeerVoteIncrementsCounts(t *testing.T) {
	f := setupFeed(t, "self")
	f.cache.SetStats(domain.QuestionStats{QuestionID: "q1", CountA: 3, CountB: 2, TotalVotes: 5})

	release, err := f.feed.WatchQuestion("q1")
	require.NoError(t, err)
	t.Cleanup(release)

	publishVoteEvent(t, f.bus, domain.VoteEvent{
		Kind: domain.EventInsert,
		Vote: domain.Vote{QuestionID: "q1", BrowserID: "peer", ChosenOption: domain.OptionB},
	})

	require.Eventually(t, func() bool {
		s, ok := f.cache.Stats("q1")
		return ok && s.CountB == 3 && s.TotalVotes == 6
	}, time.Second, 10*time.Millisecond)
}

func TestFeed_OwnVoteSuppressed(t *testing.T) {
	f := setupFeed(t, "self")
	f.cache.SetStats(domain.QuestionStats{QuestionID: "q1", CountA: 3, CountB: 2, TotalVotes: 5})

	release, err := f.feed.WatchQuestion("q1")
	require.NoError(t, err)
	t.Cleanup(release)

	// Own echo first, then a peer vote as a fence: once the peer vote shows
	// up we know the echo was processed and dropped.
	publishVoteEvent(t, f.bus, domain.VoteEvent{
		Kind: domain.EventInsert,
		Vote: domain.Vote{QuestionID: "q1", BrowserID: "self", ChosenOption: domain.OptionA},
	})
	publishVoteEvent(t, f.bus, domain.VoteEvent{
		Kind: domain.EventInsert,
		Vote: domain.Vote{QuestionID: "q1", BrowserID: "peer", ChosenOption: domain.OptionB},
	})

	require.Eventually(t, func() bool {
		s, _ := f.cache.Stats("q1")
		return s.CountB == 3
	}, time.Second, 10*time.Millisecond)

	s, _ := f.cache.Stats("q1")
	assert.Equal(t, 3, s.CountA, "own vote echo must not double-count")
	assert.Equal(t, 6, s.TotalVotes)
}

func TestFeed_DuplicateCommentDeliveryAbsorbed(t *testing.T) {
	f := setupFeed(t, "self")

	release, err := f.feed.WatchQuestion("q1")
	require.NoError(t, err)
	t.Cleanup(release)

	ev := domain.CommentEvent{
		Kind:    domain.EventInsert,
		Comment: domain.Comment{ID: "c1", QuestionID: "q1", Content: "hi"},
	}
	publishCommentEvent(t, f.bus, ev)
	publishCommentEvent(t, f.bus, ev)

	require.Eventually(t, func() bool {
		return len(f.cache.Comments("q1")) == 1
	}, time.Second, 10*time.Millisecond)

	// Give the second delivery time to land, then confirm it was dropped
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, f.cache.Comments("q1"), 1)
}

func TestFeed_CommentDeleteRemoves(t *testing.T) {
	f := setupFeed(t, "self")

	release, err := f.feed.WatchQuestion("q1")
	require.NoError(t, err)
	t.Cleanup(release)

	publishCommentEvent(t, f.bus, domain.CommentEvent{
		Kind:    domain.EventInsert,
		Comment: domain.Comment{ID: "c1", QuestionID: "q1"},
	})
	require.Eventually(t, func() bool {
		return len(f.cache.Comments("q1")) == 1
	}, time.Second, 10*time.Millisecond)

	publishCommentEvent(t, f.bus, domain.CommentEvent{
		Kind:    domain.EventDelete,
		Comment: domain.Comment{ID: "c1", QuestionID: "q1"},
	})
	require.Eventually(t, func() bool {
		return len(f.cache.Comments("q1")) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestFeed_WatchSeedsStatsAndComments(t *testing.T) {
	f := setupFeed(t, "self")
	f.store.setStats(domain.QuestionStats{QuestionID: "q1", CountA: 7, CountB: 3, TotalVotes: 10})
	f.store.mu.Lock()
	f.store.comments["q1"] = []domain.Comment{{ID: "c1", QuestionID: "q1"}}
	f.store.mu.Unlock()

	release, err := f.feed.WatchQuestion("q1")
	require.NoError(t, err)
	t.Cleanup(release)

	s, ok := f.cache.Stats("q1")
	require.True(t, ok)
	assert.Equal(t, 10, s.TotalVotes)
	assert.Len(t, f.cache.Comments("q1"), 1)
}

func TestFeed_UnwatchStopsDelivery(t *testing.T) {
	f := setupFeed(t, "self")
	f.cache.SetStats(domain.QuestionStats{QuestionID: "q1", CountA: 1, CountB: 1, TotalVotes: 2})

	_, err := f.feed.WatchQuestion("q1")
	require.NoError(t, err)
	f.feed.UnwatchQuestion("q1")

	// Unwatch again is a no-op
	f.feed.UnwatchQuestion("q1")
}

func TestFeed_RefreshOverwritesDrift(t *testing.T) {
	bus := newMemoryBus()
	cache := statscache.New()
	store := newFakeSnapshotter()
	store.setQuestions([]domain.Question{{ID: "q1"}})

	feed := New(bus, cache, store, "self", 30*time.Millisecond, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, feed.Start(ctx))

	// Local drift: a question the store no longer reports
	cache.PrependQuestion(domain.Question{ID: "ghost"})
	store.setQuestions([]domain.Question{{ID: "q1"}, {ID: "q2"}})

	require.Eventually(t, func() bool {
		list := cache.Questions()
		return len(list) == 2 && list[0].ID == "q1" && list[1].ID == "q2"
	}, time.Second, 10*time.Millisecond)
}

func TestFeed_NilBusDegradesToRefreshOnly(t *testing.T) {
	cache := statscache.New()
	store := newFakeSnapshotter()
	store.setQuestions([]domain.Question{{ID: "q1"}})

	feed := New(nil, cache, store, "self", time.Hour, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, feed.Start(ctx))

	assert.Len(t, cache.Questions(), 1)

	release, err := feed.WatchQuestion("q1")
	require.NoError(t, err)
	release()
}
