// Package statscache is the in-memory aggregate cache shared by the
// optimistic mutation coordinator and the realtime reconciliation feed,
// and read by the UI layer. It is an explicitly constructed object with a
// session lifecycle, not a process-wide singleton, so tests get isolated
// instances. Every read-modify-write happens under one mutex: between
// reading old counts and writing new ones nothing can interleave, which
// rules out lost updates between the two writers.
package statscache

import (
	"sync"

	"github.com/kh1012/half/internal/domain"
)

// Cache holds per-question aggregates, the known question list (newest
// first), and per-question comment lists.
type Cache struct {
	mu          sync.Mutex
	stats       map[string]domain.QuestionStats
	questions   []domain.Question
	questionSet map[string]struct{}
	comments    map[string][]domain.Comment
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		stats:       make(map[string]domain.QuestionStats),
		questionSet: make(map[string]struct{}),
		comments:    make(map[string][]domain.Comment),
	}
}

// Stats returns the aggregate entry for a question and whether one exists.
func (c *Cache) Stats(questionID string) (domain.QuestionStats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.stats[questionID]
	return s, ok
}

// SetStats stores an aggregate entry wholesale.
func (c *Cache) SetStats(stats domain.QuestionStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats[stats.QuestionID] = stats
}

// ApplyVote adds exactly one vote for the given option. When no entry
// exists yet, one is synthesized from the seed counts plus this vote. The
// whole step is atomic; readers see either the old counts or the new ones.
func (c *Cache) ApplyVote(questionID string, option domain.Option, seedA, seedB int) domain.QuestionStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.stats[questionID]
	if !ok {
		s = domain.QuestionStats{
			QuestionID: questionID,
			CountA:     seedA,
			CountB:     seedB,
			TotalVotes: seedA + seedB,
		}
	}

	if option == domain.OptionA {
		s.CountA++
	} else {
		s.CountB++
	}
	s.TotalVotes++

	c.stats[questionID] = s
	return s
}

// Restore puts back an exact pre-mutation snapshot, a full replace rather than a
// decrement, so concurrent updates that landed in between cannot compound
// into a wrong count. existed=false removes the entry entirely.
func (c *Cache) Restore(questionID string, snapshot domain.QuestionStats, existed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existed {
		c.stats[questionID] = snapshot
	} else {
		delete(c.stats, questionID)
	}
}

// Questions returns the known question list, newest first.
func (c *Cache) Questions() []domain.Question {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Question, len(c.questions))
	copy(out, c.questions)
	return out
}

// PrependQuestion adds a question to the front of the list. Merging is
// idempotent by id; a question already known is left untouched.
func (c *Cache) PrependQuestion(q domain.Question) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.questionSet[q.ID]; ok {
		return false
	}
	c.questions = append([]domain.Question{q}, c.questions...)
	c.questionSet[q.ID] = struct{}{}
	return true
}

// RemoveQuestion drops a question and its dependent cache entries.
func (c *Cache) RemoveQuestion(questionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.questionSet[questionID]; ok {
		updated := make([]domain.Question, 0, len(c.questions)-1)
		for _, q := range c.questions {
			if q.ID != questionID {
				updated = append(updated, q)
			}
		}
		c.questions = updated
		delete(c.questionSet, questionID)
	}
	delete(c.stats, questionID)
	delete(c.comments, questionID)
}

// ReplaceQuestions overwrites the question list wholesale. Used by the
// periodic full refresh.
func (c *Cache) ReplaceQuestions(questions []domain.Question) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.questions = make([]domain.Question, len(questions))
	copy(c.questions, questions)
	c.questionSet = make(map[string]struct{}, len(questions))
	for _, q := range questions {
		c.questionSet[q.ID] = struct{}{}
	}
}

// Comments returns a question's comment list, oldest first.
func (c *Cache) Comments(questionID string) []domain.Comment {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.comments[questionID]
	out := make([]domain.Comment, len(list))
	copy(out, list)
	return out
}

// AppendComment adds a comment if its id is not already present, guarding
// against duplicate delivery. Reports whether anything changed.
func (c *Cache) AppendComment(comment domain.Comment) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	list := c.comments[comment.QuestionID]
	for _, existing := range list {
		if existing.ID == comment.ID {
			return false
		}
	}
	c.comments[comment.QuestionID] = append(list, comment)
	return true
}

// RemoveComment drops a comment by id if present. Reports whether anything
// changed.
func (c *Cache) RemoveComment(questionID, commentID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	list, ok := c.comments[questionID]
	if !ok {
		return false
	}
	for i, existing := range list {
		if existing.ID == commentID {
			c.comments[questionID] = append(list[:i:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// ReplaceComments overwrites a question's comment list wholesale. Used by
// the periodic full refresh.
func (c *Cache) ReplaceComments(questionID string, comments []domain.Comment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	list := make([]domain.Comment, len(comments))
	copy(list, comments)
	c.comments[questionID] = list
}

// Reset clears everything. Called at session teardown.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats = make(map[string]domain.QuestionStats)
	c.questions = nil
	c.questionSet = make(map[string]struct{})
	c.comments = make(map[string][]domain.Comment)
}
