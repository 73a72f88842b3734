package memory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dendrite-sct/dendrite/action"
)

func TestSCPublishesImmediately(t *testing.T) {
	s := NewStore(action.SequentialConsistency)
	cref := action.CRefID{ID: action.ID{Num: 1}}
	s.NewCRef(cref, 0)
	writer := action.ThreadID{ID: action.ID{Num: 1}}
	s.WriteCRef(writer, cref, 1)

	other := action.ThreadID{ID: action.ID{Num: 2}}
	require.Equal(t, 1, s.ReadCRef(other, cref))
}

func TestTSOOwnWriteVisibleOnlyToWriter(t *testing.T) {
	s := NewStore(action.TotalStoreOrder)
	cref := action.CRefID{ID: action.ID{Num: 1}}
	s.NewCRef(cref, 0)
	writer := action.ThreadID{ID: action.ID{Num: 1}}
	other := action.ThreadID{ID: action.ID{Num: 2}}

	s.WriteCRef(writer, cref, 1)

	require.Equal(t, 1, s.ReadCRef(writer, cref), "writer observes its own buffered write")
	require.Equal(t, 0, s.ReadCRef(other, cref), "other threads see only committed state")

	keys := s.EligibleCommits()
	require.Len(t, keys, 1)
	require.Equal(t, writer, keys[0].Writer)

	committed, ok := s.Commit(keys[0])
	require.True(t, ok)
	require.Equal(t, cref, committed)
	require.Equal(t, 1, s.ReadCRef(other, cref))
}

func TestPSOBuffersArePerCell(t *testing.T) {
	s := NewStore(action.PartialStoreOrder)
	c1 := action.CRefID{ID: action.ID{Num: 1}}
	c2 := action.CRefID{ID: action.ID{Num: 2}}
	s.NewCRef(c1, 0)
	s.NewCRef(c2, 0)
	writer := action.ThreadID{ID: action.ID{Num: 1}}

	s.WriteCRef(writer, c1, 10)
	s.WriteCRef(writer, c2, 20)

	keys := s.EligibleCommits()
	require.Len(t, keys, 2)

	// Committing c1 must not affect c2's pending buffer.
	for _, k := range keys {
		if k.CRef == c1 {
			s.Commit(k)
		}
	}
	other := action.ThreadID{ID: action.ID{Num: 2}}
	require.Equal(t, 10, s.ReadCRef(other, c1))
	require.Equal(t, 0, s.ReadCRef(other, c2), "c2 not yet committed")
}

func TestSynchronisedModifyDrainsBuffersFirst(t *testing.T) {
	s := NewStore(action.TotalStoreOrder)
	cref := action.CRefID{ID: action.ID{Num: 1}}
	s.NewCRef(cref, 0)
	writer := action.ThreadID{ID: action.ID{Num: 1}}

	s.WriteCRef(writer, cref, 5)
	old, newV := s.ModifyCRef(writer, cref, func(v any) any { return v.(int) + 1 })
	require.Equal(t, 5, old)
	require.Equal(t, 6, newV)
	require.Empty(t, s.EligibleCommits(), "modify must drain the writer's own buffer")
}

func TestCasCRefFailsIfCommitIntervenes(t *testing.T) {
	s := NewStore(action.SequentialConsistency)
	cref := action.CRefID{ID: action.ID{Num: 1}}
	s.NewCRef(cref, 0)
	t1 := action.ThreadID{ID: action.ID{Num: 1}}
	t2 := action.ThreadID{ID: action.ID{Num: 2}}

	ticket := s.ReadForCAS(t1, cref)
	// t2 writes (synchronously, via modify) in between.
	s.ModifyCRef(t2, cref, func(any) any { return 99 })

	ok := s.CasCRef(t1, ticket, 1)
	require.False(t, ok, "cas must fail once a commit intervened")
	require.Equal(t, 99, s.committed[cref])

	ticket2 := s.ReadForCAS(t1, cref)
	ok2 := s.CasCRef(t1, ticket2, 2)
	require.True(t, ok2)
	require.Equal(t, 2, s.committed[cref])
}
