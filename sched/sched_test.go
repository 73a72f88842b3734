package sched

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dendrite-sct/dendrite/action"
)

func threads(names ...string) []action.RunnableThread {
	out := make([]action.RunnableThread, len(names))
	for i, n := range names {
		out[i] = action.RunnableThread{Tid: action.ThreadID{ID: action.ID{Name: n, Num: i}}}
	}
	return out
}

func TestRoundRobinContinuesPriorWhileRunnable(t *testing.T) {
	rr := NewRoundRobin()
	rn := threads("a", "b")
	tid, ok := rr.Next(nil, nil, rn)
	require.True(t, ok)
	require.Equal(t, "a", tid.Name)

	prior := tid
	tid2, ok := rr.Next(nil, &prior, rn)
	require.True(t, ok)
	require.Equal(t, "a", tid2.Name, "should keep running the prior thread since it's still runnable")
}

func TestRandomPicksFromRunnableSet(t *testing.T) {
	r := NewRandom(rand.New(rand.NewSource(1)))
	rn := threads("a", "b", "c")
	for i := 0; i < 20; i++ {
		tid, ok := r.Next(nil, nil, rn)
		require.True(t, ok)
		require.Contains(t, []string{"a", "b", "c"}, tid.Name)
	}
}

func TestForcedReplaysPrefixThenFallsBack(t *testing.T) {
	rn := threads("a", "b")
	f := &Forced{
		Prefix:   []action.ThreadID{rn[1].Tid, rn[0].Tid},
		Fallback: NewRoundRobin(),
	}
	tid, ok := f.Next(nil, nil, rn)
	require.True(t, ok)
	require.Equal(t, "b", tid.Name)

	tid, ok = f.Next(nil, &tid, rn)
	require.True(t, ok)
	require.Equal(t, "a", tid.Name)
}

func TestNonPreemptiveKeepsPriorRunning(t *testing.T) {
	np := NewNonPreemptive(NewRoundRobin())
	rn := threads("a", "b")
	prior := rn[0].Tid
	tid, ok := np.Next(nil, &prior, rn)
	require.True(t, ok)
	require.Equal(t, "a", tid.Name)
}
