package domain

// EventKind distinguishes row inserts from row deletions on the change feed.
type EventKind string

const (
	EventInsert EventKind = "insert"
	EventDelete EventKind = "delete"
)

// QuestionEvent is delivered on the global question channel when a question
// row is inserted or deleted.
type QuestionEvent struct {
	Kind     EventKind `json:"kind"`
	Question Question  `json:"question"`
}

// VoteEvent is delivered on a per-question vote channel when a vote row is
// inserted. Votes are never deleted outside of a cascading question delete,
// so only inserts travel on the feed.
type VoteEvent struct {
	Kind EventKind `json:"kind"`
	Vote Vote      `json:"vote"`
}

// CommentEvent is delivered on a per-question comment channel for both
// inserts and deletions.
type CommentEvent struct {
	Kind    EventKind `json:"kind"`
	Comment Comment   `json:"comment"`
}
