package dpor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dendrite-sct/dendrite/action"
	"github.com/dendrite-sct/dendrite/sched"
)

func tid(name string, num int) action.ThreadID {
	return action.ThreadID{ID: action.ID{Name: name, Num: num}}
}

func testCRef(name string) action.CRefID {
	return action.CRefID{ID: action.ID{Name: name, Num: 0}}
}

func writeStep(dec action.Decision, runnable []action.RunnableThread, c action.CRefID) action.Step {
	return action.Step{Decision: dec, Runnable: runnable, Action: action.ThreadAction{Kind: action.KWriteCRef, CRef: c}}
}

func raceTrace() (action.Trace, action.ThreadID, action.ThreadID) {
	t0, t1 := tid("t0", 0), tid("t1", 1)
	x := testCRef("x")
	runnableBoth := []action.RunnableThread{{Tid: t0}, {Tid: t1}}

	trace := action.Trace{
		writeStep(action.StartDecision(t0), runnableBoth, x),
		writeStep(action.ContinueDecision(), runnableBoth, x),
		writeStep(action.SwitchToDecision(t1), runnableBoth, x),
	}
	return trace, t0, t1
}

func TestFindRacesDetectsConcurrentWritesToSameCell(t *testing.T) {
	trace, _, t1 := raceTrace()

	races := findRaces(trace)
	require.Len(t, races, 2)
	require.Equal(t, 0, races[0].before)
	require.Equal(t, t1, races[0].other)
}

func TestFindRacesIgnoresTwoPlainReads(t *testing.T) {
	t0, t1 := tid("t0", 0), tid("t1", 1)
	x := testCRef("x")
	runnableBoth := []action.RunnableThread{{Tid: t0}, {Tid: t1}}
	trace := action.Trace{
		{Decision: action.StartDecision(t0), Runnable: runnableBoth, Action: action.ThreadAction{Kind: action.KReadCRef, CRef: x}},
		{Decision: action.SwitchToDecision(t1), Runnable: runnableBoth, Action: action.ThreadAction{Kind: action.KReadCRef, CRef: x}},
	}
	require.Empty(t, findRaces(trace))
}

func TestRecordRacesInsertsBacktrackAtEarlierNode(t *testing.T) {
	trace, _, t1 := raceTrace()

	tree := newTree()
	path := tree.extend(trace)
	tree.recordRaces(trace, path, Unbounded{})

	idx, cand, ok := tree.nextBacktrack()
	require.True(t, ok)
	require.Equal(t, 0, idx)
	require.Equal(t, t1, cand)
}

func TestRecordRacesRespectsBound(t *testing.T) {
	trace, _, _ := raceTrace()

	tree := newTree()
	path := tree.extend(trace)
	tree.recordRaces(trace, path, LengthBound(0)) // nothing is ever within a zero-length bound

	_, _, ok := tree.nextBacktrack()
	require.False(t, ok)
}

type stubSched struct{}

func (stubSched) Next(trace action.Trace, prior *action.ThreadID, runnable []action.RunnableThread) (action.ThreadID, bool) {
	if len(runnable) == 0 {
		return action.ThreadID{}, false
	}
	return runnable[0].Tid, true
}

func TestExplorerSchedulesBacktrackPointAsForcedPrefix(t *testing.T) {
	trace, _, t1 := raceTrace()

	exp := NewExplorer(Unbounded{}, 10)

	s1, ok := exp.NextScheduler(stubSched{})
	require.True(t, ok)
	_, isForced := s1.(*sched.Forced)
	require.False(t, isForced, "the first execution is unconstrained")

	exp.Record(trace)

	s2, ok := exp.NextScheduler(stubSched{})
	require.True(t, ok)
	forced, isForced := s2.(*sched.Forced)
	require.True(t, isForced)
	require.Equal(t, []action.ThreadID{t1}, forced.Prefix)

	exp.Record(trace)
	require.Equal(t, 2, exp.Stats().Executions)
}

func TestExplorerStopsAtIterationCap(t *testing.T) {
	exp := NewExplorer(Unbounded{}, 1)
	_, ok := exp.NextScheduler(stubSched{})
	require.True(t, ok)
	exp.Record(action.Trace{})

	_, ok = exp.NextScheduler(stubSched{})
	require.False(t, ok)
}
