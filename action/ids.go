// Package action defines the typed event algebra that the concurrency
// runtime emits and that the DPOR explorer consumes: identifiers,
// ThreadAction, Lookahead, ActionType, traces and failures.
package action

import "fmt"

// Family distinguishes the four identifier namespaces.
type Family int

const (
	FamilyThread Family = iota
	FamilyCRef
	FamilyMVar
	FamilyTVar
)

// ID is a (display name, integer) pair, unique and ordered by integer
// within its family.
type ID struct {
	Name string
	Num  int
}

func (id ID) String() string {
	if id.Name != "" {
		return id.Name
	}
	return fmt.Sprintf("%d", id.Num)
}

// Less orders identifiers by their integer component.
func (id ID) Less(other ID) bool { return id.Num < other.Num }

type ThreadID struct{ ID }
type CRefID struct{ ID }
type MVarID struct{ ID }
type TVarID struct{ ID }

// MainThread is the always-present initial thread.
var MainThread = ThreadID{ID{Name: "main", Num: 0}}

// IDSource allocates monotonically increasing integers per family and
// deduplicates user-supplied display names by appending a numeric suffix,
// the first occurrence of a name keeping it bare.
type IDSource struct {
	next  map[Family]int
	seen  map[Family]map[string]int
	negative map[Family]int // for commit pseudo-threads, counts downward
}

// NewIDSource creates a source with the initial thread already allocated.
func NewIDSource() *IDSource {
	s := &IDSource{
		next: map[Family]int{
			FamilyThread: 1, // 0 reserved for main
			FamilyCRef:   0,
			FamilyMVar:   0,
			FamilyTVar:   0,
		},
		seen:     map[Family]map[string]int{},
		negative: map[Family]int{FamilyThread: -1},
	}
	s.seen[FamilyThread] = map[string]int{"main": 0}
	return s
}

// Fresh allocates the next id in family f with the given (possibly empty)
// display name.
func (s *IDSource) Fresh(f Family, name string) ID {
	if s.seen[f] == nil {
		s.seen[f] = map[string]int{}
	}
	num := s.next[f]
	s.next[f] = num + 1

	if name == "" {
		return ID{Num: num}
	}

	count, ok := s.seen[f][name]
	if !ok {
		s.seen[f][name] = 1
		return ID{Name: name, Num: num}
	}
	count++
	s.seen[f][name] = count
	return ID{Name: fmt.Sprintf("%s-%d", name, count), Num: num}
}

// FreshCommitThread allocates a negative thread id for a commit
// pseudo-thread, guaranteed to sort below every real thread.
func (s *IDSource) FreshCommitThread(name string) ThreadID {
	num := s.negative[FamilyThread]
	s.negative[FamilyThread] = num - 1
	return ThreadID{ID{Name: name, Num: num}}
}
