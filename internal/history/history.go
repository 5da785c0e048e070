// Package history tracks which questions this identity has voted on or
// skipped. The in-memory mirrors and the persisted lists move together:
// every mutation commits to the local store before it returns, so a read
// after any call sees exactly what survived.
package history

import (
	"sync"

	"github.com/kh1012/half/internal/domain"
	"github.com/kh1012/half/internal/localstore"
	apperrors "github.com/kh1012/half/pkg/errors"
	"github.com/kh1012/half/pkg/logger"
)

// Cache is the local vote/pass history for one identity.
type Cache struct {
	local *localstore.Store
	log   *logger.Logger

	mu        sync.Mutex
	voted     []string // insertion order, newest last
	votedSet  map[string]struct{}
	passed    []string
	passedSet map[string]struct{}
}

// NewCache creates an empty history cache. Call Load before use.
func NewCache(local *localstore.Store, log *logger.Logger) *Cache {
	return &Cache{
		local:     local,
		log:       log,
		votedSet:  make(map[string]struct{}),
		passedSet: make(map[string]struct{}),
	}
}

// Load reads both lists from local persistence. Corrupt data has already
// been reduced to an empty list by the store; startup never blocks on it.
func (c *Cache) Load() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.voted = c.local.GetStringList(localstore.KeyVotedQuestions)
	c.passed = c.local.GetStringList(localstore.KeyPassedQuestions)

	c.votedSet = make(map[string]struct{}, len(c.voted))
	for _, id := range c.voted {
		c.votedSet[id] = struct{}{}
	}
	c.passedSet = make(map[string]struct{}, len(c.passed))
	for _, id := range c.passed {
		c.passedSet[id] = struct{}{}
	}
}

// HasVoted reports whether this identity voted on the question.
func (c *Cache) HasVoted(questionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.votedSet[questionID]
	return ok
}

// HasPassed reports whether this identity skipped the question.
func (c *Cache) HasPassed(questionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.passedSet[questionID]
	return ok
}

// RecordVote appends the question to the vote record and drops it from the
// pass record, since voting supersedes passing. A second vote for the same id is
// rejected rather than appended twice. Votes are permanent; there is no
// client-side undo.
func (c *Cache) RecordVote(questionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.votedSet[questionID]; ok {
		return apperrors.NewDuplicateError("question already voted on")
	}

	c.voted = append(c.voted, questionID)
	if err := c.local.SetStringList(localstore.KeyVotedQuestions, c.voted); err != nil {
		c.voted = c.voted[:len(c.voted)-1]
		return err
	}
	c.votedSet[questionID] = struct{}{}

	if err := c.removePassLocked(questionID); err != nil {
		// The vote itself is recorded; only the pass-list cleanup failed.
		c.log.WithError(err).WithField("question_id", questionID).Warn("Failed to clear pass record after vote")
	}
	return nil
}

// RecordPass appends the question to the pass record. Idempotent: repeated
// passes on the same id are no-ops.
func (c *Cache) RecordPass(questionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.passedSet[questionID]; ok {
		return nil
	}

	c.passed = append(c.passed, questionID)
	if err := c.local.SetStringList(localstore.KeyPassedQuestions, c.passed); err != nil {
		c.passed = c.passed[:len(c.passed)-1]
		return err
	}
	c.passedSet[questionID] = struct{}{}
	return nil
}

// RemovePass removes the question from the pass record, persisting only
// when something actually changed.
func (c *Cache) RemovePass(questionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removePassLocked(questionID)
}

func (c *Cache) removePassLocked(questionID string) error {
	if _, ok := c.passedSet[questionID]; !ok {
		return nil
	}

	updated := make([]string, 0, len(c.passed)-1)
	for _, id := range c.passed {
		if id != questionID {
			updated = append(updated, id)
		}
	}
	if err := c.local.SetStringList(localstore.KeyPassedQuestions, updated); err != nil {
		return err
	}
	c.passed = updated
	delete(c.passedSet, questionID)
	return nil
}

// Voted returns the vote record in chronological order, newest last.
func (c *Cache) Voted() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.voted))
	copy(out, c.voted)
	return out
}

// VotedNewestFirst returns the vote record reversed for display.
func (c *Cache) VotedNewestFirst() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.voted))
	for i, id := range c.voted {
		out[len(c.voted)-1-i] = id
	}
	return out
}

// Passed returns the pass record.
func (c *Cache) Passed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.passed))
	copy(out, c.passed)
	return out
}

// Unvoted filters a question set down to those not yet voted on.
func (c *Cache) Unvoted(questions []domain.Question) []domain.Question {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if _, ok := c.votedSet[q.ID]; !ok {
			out = append(out, q)
		}
	}
	return out
}

// UnvotedExcludingPassed filters a question set down to those neither voted
// on nor skipped: the card stack the user still has in front of them.
func (c *Cache) UnvotedExcludingPassed(questions []domain.Question) []domain.Question {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if _, voted := c.votedSet[q.ID]; voted {
			continue
		}
		if _, passed := c.passedSet[q.ID]; passed {
			continue
		}
		out = append(out, q)
	}
	return out
}
