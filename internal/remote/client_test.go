package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kh1012/half/internal/domain"
	"github.com/kh1012/half/internal/events"
	apperrors "github.com/kh1012/half/pkg/errors"
	"github.com/kh1012/half/pkg/logger"
)

const testAnonKey = "test-anon-key"

// recordingBus captures published change events.
type recordingBus struct {
	mu        sync.Mutex
	published []events.Message
}

func (b *recordingBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, events.Message{Channel: channel, Payload: payload})
	return nil
}

func (b *recordingBus) Subscribe(ctx context.Context, channels ...string) (events.Subscription, error) {
	return nil, nil
}

func (b *recordingBus) onChannel(channel string) []events.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Message
	for _, msg := range b.published {
		if msg.Channel == channel {
			out = append(out, msg)
		}
	}
	return out
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *recordingBus) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	bus := &recordingBus{}
	return NewClient(server.URL, testAnonKey, bus, logger.NewNop()), bus
}

func TestClient_RequestHeaders(t *testing.T) {
	var captured http.Header
	var capturedPrefer string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		captured = r.Header.Clone()
		capturedPrefer = r.Header.Get("Prefer")
		json.NewEncoder(w).Encode([]domain.Profile{})
	})

	_, err := client.GetProfile(context.Background(), "b-1")
	require.Error(t, err) // empty result reads as not found

	assert.Equal(t, testAnonKey, captured.Get("apikey"))
	assert.Equal(t, "Bearer "+testAnonKey, captured.Get("Authorization"))
	assert.Empty(t, capturedPrefer, "reads must not ask for a representation")
}

func TestClient_GetProfile(t *testing.T) {
	generatedAt := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/anonymous_profiles", r.URL.Path)
		assert.Equal(t, "eq.b-1", r.URL.Query().Get("browser_id"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))

		json.NewEncoder(w).Encode([]domain.Profile{{
			BrowserID:               "b-1",
			LastNickname:            "river",
			LastQuestionGeneratedAt: &generatedAt,
		}})
	})

	profile, err := client.GetProfile(context.Background(), "b-1")
	require.NoError(t, err)
	assert.Equal(t, "b-1", profile.BrowserID)
	assert.Equal(t, "river", profile.LastNickname)
	require.NotNil(t, profile.LastQuestionGeneratedAt)
	assert.True(t, generatedAt.Equal(*profile.LastQuestionGeneratedAt))
}

func TestClient_GetProfile_NotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]domain.Profile{})
	})

	_, err := client.GetProfile(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestClient_CreateProfile(t *testing.T) {
	var body map[string]interface{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusCreated)
	})

	err := client.CreateProfile(context.Background(), &domain.Profile{
		BrowserID:    "b-1",
		LastNickname: "anonymous",
	})
	require.NoError(t, err)

	assert.Equal(t, "b-1", body["browser_id"])
	assert.Equal(t, "anonymous", body["last_nickname"])
	_, hasCreatedAt := body["created_at"]
	assert.False(t, hasCreatedAt, "timestamps are assigned by the store")
}

func TestClient_UpdateProfile(t *testing.T) {
	var body map[string]interface{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.b-1", r.URL.Query().Get("browser_id"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusNoContent)
	})

	err := client.UpdateProfile(context.Background(), "b-1", map[string]interface{}{
		"last_nickname": "casey",
	})
	require.NoError(t, err)
	assert.Equal(t, "casey", body["last_nickname"])
}

func TestClient_ListActiveQuestions(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/questions", r.URL.Path)
		assert.Equal(t, "eq.active", r.URL.Query().Get("status"))
		assert.Equal(t, "created_at.desc", r.URL.Query().Get("order"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))

		json.NewEncoder(w).Encode([]domain.Question{
			{ID: "q1", Title: "one", OptionA: "a", OptionB: "b", Status: "active"},
			{ID: "q2", Title: "", OptionA: "a", OptionB: "b", Status: "active"}, // malformed
			{ID: "q3", Title: "three", OptionA: "a", OptionB: "b", Status: "active"},
		})
	})

	questions, err := client.ListActiveQuestions(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, questions, 2, "malformed rows are skipped, not fatal")
	assert.Equal(t, "q1", questions[0].ID)
	assert.Equal(t, "q3", questions[1].ID)
}

func TestClient_CreateQuestion_PublishesInsertEvent(t *testing.T) {
	client, bus := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode([]domain.Question{
			{ID: "q-new", Title: "fresh", OptionA: "a", OptionB: "b", Status: "active"},
		})
	})

	created, err := client.CreateQuestion(context.Background(), &domain.Question{
		Title:   "fresh",
		OptionA: "a",
		OptionB: "b",
		Status:  domain.QuestionStatusActive,
	})
	require.NoError(t, err)
	assert.Equal(t, "q-new", created.ID)

	require.Eventually(t, func() bool {
		return len(bus.onChannel(events.QuestionChannel())) == 1
	}, time.Second, 10*time.Millisecond)

	msg := bus.onChannel(events.QuestionChannel())[0]
	ev, err := events.DecodeQuestionEvent(msg.Payload)
	require.NoError(t, err)
	assert.Equal(t, domain.EventInsert, ev.Kind)
	assert.Equal(t, "q-new", ev.Question.ID)
}

func TestClient_CreateVote_PublishesOnQuestionChannel(t *testing.T) {
	client, bus := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/votes", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode([]domain.Vote{
			{ID: "v1", QuestionID: "q1", BrowserID: "b-1", ChosenOption: domain.OptionA},
		})
	})

	created, err := client.CreateVote(context.Background(), &domain.Vote{
		QuestionID:   "q1",
		BrowserID:    "b-1",
		ChosenOption: domain.OptionA,
	})
	require.NoError(t, err)
	assert.Equal(t, "v1", created.ID)

	require.Eventually(t, func() bool {
		return len(bus.onChannel(events.VoteChannel("q1"))) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestClient_GetQuestionStats_EmptyReadsAsZero(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/question_stats", r.URL.Path)
		json.NewEncoder(w).Encode([]domain.QuestionStats{})
	})

	stats, err := client.GetQuestionStats(context.Background(), "q-quiet")
	require.NoError(t, err)
	assert.Equal(t, "q-quiet", stats.QuestionID)
	assert.Zero(t, stats.TotalVotes)
}

func TestClient_NonSuccessStatusIsRemoteError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"broken"}`))
	})

	_, err := client.ListActiveQuestions(context.Background(), 20)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRemote))
}
