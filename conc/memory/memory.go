// Package memory implements the relaxed-memory subsystem (spec.md §4.2):
// per-cell committed values plus, under TSO/PSO, FIFO write buffers drained
// by explicit commit actions modelled as commit pseudo-threads.
package memory

import (
	"github.com/dendrite-sct/dendrite/action"
)

// Entry is one buffered write.
type Entry struct {
	CRef  action.CRefID
	Value any
}

// buffer is a FIFO queue of buffered writes for one (writer[, cell]).
type buffer []Entry

func (b *buffer) push(e Entry) { *b = append(*b, e) }

func (b *buffer) peek() (Entry, bool) {
	if len(*b) == 0 {
		return Entry{}, false
	}
	return (*b)[0], true
}

func (b *buffer) pop() {
	*b = (*b)[1:]
}

// Store is the cell store: committed values plus, depending on MemoryType,
// per-writer (TSO) or per-cell-per-writer (PSO) write buffers.
type Store struct {
	Type      action.MemoryType
	committed map[action.CRefID]any

	// TSO: one buffer per writer thread.
	tsoBuffers map[action.ThreadID]*buffer

	// PSO: one buffer per (writer, cref).
	psoBuffers map[action.ThreadID]map[action.CRefID]*buffer

	// ticket bookkeeping for readForCAS: records, per cell, a monotonically
	// increasing commit generation so a later casCRef can detect whether a
	// commit intervened since the ticket was taken.
	generation map[action.CRefID]uint64
}

func NewStore(t action.MemoryType) *Store {
	return &Store{
		Type:       t,
		committed:  map[action.CRefID]any{},
		tsoBuffers: map[action.ThreadID]*buffer{},
		psoBuffers: map[action.ThreadID]map[action.CRefID]*buffer{},
		generation: map[action.CRefID]uint64{},
	}
}

func (s *Store) NewCRef(id action.CRefID, initial any) {
	s.committed[id] = initial
}

// bufferFor returns the buffer a given writer uses for a given cell under
// the active memory model, creating it on first use. Returns nil under SC.
func (s *Store) bufferFor(writer action.ThreadID, cref action.CRefID) *buffer {
	switch s.Type {
	case action.TotalStoreOrder:
		b, ok := s.tsoBuffers[writer]
		if !ok {
			b = &buffer{}
			s.tsoBuffers[writer] = b
		}
		return b
	case action.PartialStoreOrder:
		m, ok := s.psoBuffers[writer]
		if !ok {
			m = map[action.CRefID]*buffer{}
			s.psoBuffers[writer] = m
		}
		b, ok := m[cref]
		if !ok {
			b = &buffer{}
			m[cref] = b
		}
		return b
	default:
		return nil
	}
}

// WriteCRef performs an unsynchronised write: under SC it publishes
// immediately, otherwise it enqueues onto the writer's buffer.
func (s *Store) WriteCRef(writer action.ThreadID, cref action.CRefID, v any) {
	if s.Type == action.SequentialConsistency {
		s.committed[cref] = v
		return
	}
	s.bufferFor(writer, cref).push(Entry{CRef: cref, Value: v})
}

// ReadCRef performs an unsynchronised read: a thread observes its own
// buffered writes to a cell (the latest one, under PSO; the latest under
// TSO too since the buffer is per-writer and FIFO means the tail is
// authoritative), and otherwise the committed value.
func (s *Store) ReadCRef(reader action.ThreadID, cref action.CRefID) any {
	switch s.Type {
	case action.TotalStoreOrder:
		if b, ok := s.tsoBuffers[reader]; ok {
			for i := len(*b) - 1; i >= 0; i-- {
				if (*b)[i].CRef == cref {
					return (*b)[i].Value
				}
			}
		}
	case action.PartialStoreOrder:
		if m, ok := s.psoBuffers[reader]; ok {
			if b, ok := m[cref]; ok && len(*b) > 0 {
				// latest buffered write is the most recently pushed one
				return (*b)[len(*b)-1].Value
			}
		}
	}
	return s.committed[cref]
}

// EligibleCommits returns the (writer[, cref]) pairs with a non-empty
// buffer, i.e. the commit pseudo-threads the scheduler may currently pick.
// Under TSO one entry exists per writer; under PSO one per (writer, cref).
func (s *Store) EligibleCommits() []CommitKey {
	var out []CommitKey
	switch s.Type {
	case action.TotalStoreOrder:
		for w, b := range s.tsoBuffers {
			if len(*b) > 0 {
				out = append(out, CommitKey{Writer: w})
			}
		}
	case action.PartialStoreOrder:
		for w, m := range s.psoBuffers {
			for c, b := range m {
				if len(*b) > 0 {
					out = append(out, CommitKey{Writer: w, CRef: c})
				}
			}
		}
	}
	return out
}

// CommitKey identifies a commit pseudo-thread's buffer.
type CommitKey struct {
	Writer action.ThreadID
	CRef   action.CRefID // unused (zero) under TSO
}

// Commit drains exactly one entry from the identified buffer and publishes
// it to the committed store, returning the committed cell id.
func (s *Store) Commit(key CommitKey) (action.CRefID, bool) {
	switch s.Type {
	case action.TotalStoreOrder:
		b, ok := s.tsoBuffers[key.Writer]
		if !ok {
			return action.CRefID{}, false
		}
		e, ok := b.peek()
		if !ok {
			return action.CRefID{}, false
		}
		b.pop()
		s.committed[e.CRef] = e.Value
		s.generation[e.CRef]++
		return e.CRef, true
	case action.PartialStoreOrder:
		m, ok := s.psoBuffers[key.Writer]
		if !ok {
			return action.CRefID{}, false
		}
		b, ok := m[key.CRef]
		if !ok {
			return action.CRefID{}, false
		}
		e, ok := b.peek()
		if !ok {
			return action.CRefID{}, false
		}
		b.pop()
		s.committed[e.CRef] = e.Value
		s.generation[e.CRef]++
		return e.CRef, true
	}
	return action.CRefID{}, false
}

// DrainWriterBuffers drains all of a thread's own buffered writes to the
// committed store, synchronously, as required before any synchronised
// operation (modifyCRef, casCRef, modifyCRefCAS — spec.md §4.2).
func (s *Store) DrainWriterBuffers(writer action.ThreadID) {
	switch s.Type {
	case action.TotalStoreOrder:
		if b, ok := s.tsoBuffers[writer]; ok {
			for len(*b) > 0 {
				e, _ := b.peek()
				b.pop()
				s.committed[e.CRef] = e.Value
				s.generation[e.CRef]++
			}
		}
	case action.PartialStoreOrder:
		if m, ok := s.psoBuffers[writer]; ok {
			for _, b := range m {
				for len(*b) > 0 {
					e, _ := b.peek()
					b.pop()
					s.committed[e.CRef] = e.Value
					s.generation[e.CRef]++
				}
			}
		}
	}
}

// ModifyCRef performs a synchronised read-modify-write: it drains all of
// the executing thread's buffered writes, then atomically applies fn to
// the committed value and returns the old/new pair.
func (s *Store) ModifyCRef(executing action.ThreadID, cref action.CRefID, fn func(any) any) (old, new any) {
	s.DrainWriterBuffers(executing)
	old = s.committed[cref]
	new = fn(old)
	s.committed[cref] = new
	s.generation[cref]++
	return old, new
}

// ReadTicket is the implicit ticket returned by readForCAS: the value seen
// plus the commit generation at the time of the read.
type ReadTicket struct {
	CRef       action.CRefID
	Value      any
	Generation uint64
}

func (s *Store) ReadForCAS(executing action.ThreadID, cref action.CRefID) ReadTicket {
	s.DrainWriterBuffers(executing)
	return ReadTicket{CRef: cref, Value: s.committed[cref], Generation: s.generation[cref]}
}

// CasCRef succeeds iff no commit to the cell has intervened since the
// ticket was taken, as observed by the executing thread (i.e. the
// generation counter is unchanged).
func (s *Store) CasCRef(executing action.ThreadID, ticket ReadTicket, newVal any) (success bool) {
	s.DrainWriterBuffers(executing)
	if s.generation[ticket.CRef] != ticket.Generation {
		return false
	}
	s.committed[ticket.CRef] = newVal
	s.generation[ticket.CRef]++
	return true
}
