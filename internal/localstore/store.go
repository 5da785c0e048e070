// Package localstore is the durable per-identity key-value store, the
// counterpart of browser localStorage. Values are plain strings; list and
// timestamp helpers take care of the JSON and epoch-millis encodings the
// history and cooldown layers use. A corrupt value is never fatal: it is
// logged and treated as absent.
package localstore

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"

	"github.com/kh1012/half/pkg/logger"
)

// Keys for the persisted local state. Names are kept identical to the
// original localStorage entries so an exported dump stays recognizable.
const (
	KeyBrowserID       = "half_browser_id"
	KeyLastNickname    = "half_last_nickname"
	KeyVotedQuestions  = "half_voted_questions"
	KeyPassedQuestions = "half_passed_questions"
	KeyLastGeneration  = "half_last_generation"
)

// Store wraps a badger database holding the local session state.
type Store struct {
	db  *badger.DB
	log *logger.Logger
}

// Open opens (or creates) the store in dir. Writes are synchronous: once a
// Set returns, the value is durable.
func Open(dir string, log *logger.Logger) (*Store, error) {
	opts := badger.DefaultOptions(dir).
		WithSyncWrites(true).
		WithNumVersionsToKeep(1).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store at %s: %w", dir, err)
	}
	return &Store{db: db, log: log}, nil
}

// OpenInMemory opens a non-persistent store. Used in tests.
func OpenInMemory(log *logger.Logger) (*Store, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory store: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value for key and whether it was present.
func (s *Store) Get(key string) (string, bool, error) {
	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key. The write is committed before Set returns, so
// in-memory mirrors and persisted state never diverge across a call.
func (s *Store) Set(key, value string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Delete removes key if present.
func (s *Store) Delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// GetStringList reads a JSON-encoded string list. Missing or corrupt data
// yields an empty list; corruption is logged and never propagated.
func (s *Store) GetStringList(key string) []string {
	raw, ok, err := s.Get(key)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Failed to read list, treating as empty")
		return nil
	}
	if !ok {
		return nil
	}

	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Corrupt list in local store, treating as empty")
		return nil
	}
	return list
}

// SetStringList writes a JSON-encoded string list.
func (s *Store) SetStringList(key string, list []string) error {
	if list == nil {
		list = []string{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Set(key, string(raw))
}

// GetEpochMillis reads a string-encoded epoch-millisecond timestamp.
// Missing or unparseable values report absent.
func (s *Store) GetEpochMillis(key string) (int64, bool) {
	raw, ok, err := s.Get(key)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Failed to read timestamp, treating as absent")
		return 0, false
	}
	if !ok {
		return 0, false
	}

	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Corrupt timestamp in local store, treating as absent")
		return 0, false
	}
	return ms, true
}

// SetEpochMillis writes a string-encoded epoch-millisecond timestamp.
func (s *Store) SetEpochMillis(key string, ms int64) error {
	return s.Set(key, strconv.FormatInt(ms, 10))
}
