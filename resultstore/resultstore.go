// Package resultstore is a content-addressed cache of execution outcomes,
// adapted from the teacher's cas package: every distinct Outcome is
// serialized once with msgpack and fingerprinted with farm.Hash64, so
// resultsSet can dedupe outcomes across many DPOR executions without
// comparing full traces.
package resultstore

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/dgryski/go-farm"
	"github.com/shamaton/msgpack/v2"

	"github.com/dendrite-sct/dendrite/action"
)

// Hash identifies a stored Outcome by the farm hash of its serialized form.
type Hash uint64

// FailureRecord is the serializable projection of an action.Failure: the
// Kind plus its rendered message, since the underlying Err may not itself
// be msgpack-serializable.
type FailureRecord struct {
	Kind action.FailureKind
	Msg  string
}

// FromFailure converts a runtime Failure into its stored form.
func FromFailure(f *action.Failure) *FailureRecord {
	if f == nil {
		return nil
	}
	return &FailureRecord{Kind: f.Kind, Msg: f.Error()}
}

// Outcome is the unit resultsSet deduplicates: a successful value or a
// failure record, never both.
type Outcome struct {
	Value any
	Fail  *FailureRecord
}

// Store is a content-addressed map of Outcomes, mirroring the teacher's
// cas.MemoryCAS: put-or-lookup by the hash of the serialized value.
type Store struct {
	mu   sync.RWMutex
	data map[Hash][]byte
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{data: make(map[Hash][]byte)}
}

// Put serializes and hashes o, storing it only the first time this exact
// content is seen. The returned bool reports whether this call inserted a
// new entry.
func (s *Store) Put(o Outcome) (Hash, bool, error) {
	var buf bytes.Buffer
	if err := msgpack.MarshalWrite(&buf, &o); err != nil {
		return 0, false, fmt.Errorf("resultstore: marshal outcome: %w", err)
	}
	data := buf.Bytes()
	h := Hash(farm.Hash64(data))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[h]; ok {
		return h, false, nil
	}
	s.data[h] = data
	return h, true, nil
}

// Has reports whether h has already been recorded.
func (s *Store) Has(h Hash) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[h]
	return ok
}

// Get deserializes the Outcome stored at h.
func (s *Store) Get(h Hash) (Outcome, bool, error) {
	s.mu.RLock()
	data, ok := s.data[h]
	s.mu.RUnlock()
	if !ok {
		return Outcome{}, false, nil
	}
	var o Outcome
	if err := msgpack.UnmarshalRead(bytes.NewReader(data), &o); err != nil {
		return Outcome{}, false, fmt.Errorf("resultstore: unmarshal outcome: %w", err)
	}
	return o, true, nil
}

// Len reports how many distinct outcomes have been recorded.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// FingerprintPrefix hashes an ordered thread-id prefix, naming a schedule
// without printing the full trace. No package in this module calls it.
func FingerprintPrefix(ids []action.ThreadID) Hash {
	var buf bytes.Buffer
	_ = msgpack.MarshalWrite(&buf, ids)
	return Hash(farm.Hash64(buf.Bytes()))
}
