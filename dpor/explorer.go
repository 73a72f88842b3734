package dpor

import (
	"github.com/dendrite-sct/dendrite/action"
	"github.com/dendrite-sct/dendrite/sched"
)

// Scheduler matches conc.Scheduler's method set structurally so this
// package never needs to import conc (sct wires the two together).
type Scheduler interface {
	Next(trace action.Trace, prior *action.ThreadID, runnable []action.RunnableThread) (action.ThreadID, bool)
}

// Statistics summarises one Explore run (spec.md §5's reporting needs,
// modeled on the teacher's model.ModelStatistics).
type Statistics struct {
	Executions           int
	TotalTransitions     int
	UniqueStates         int
	MaxDepth             int
	ConservativeDiscards int
	LengthAborts         int
}

// Explorer drives repeated executions of a program, building a schedule
// tree of backtracking points from the races observed in each trace, until
// no more points remain (full coverage modulo the active Bound) or the
// iteration cap is reached.
type Explorer struct {
	tree    *Tree
	bound   Bound
	maxRuns int
	stats   Statistics

	rootVisited bool
}

// NewExplorer creates an Explorer bounded by bound (use Unbounded{} for
// exhaustive search) and capped at maxRuns executions.
func NewExplorer(bound Bound, maxRuns int) *Explorer {
	if bound == nil {
		bound = Unbounded{}
	}
	return &Explorer{tree: newTree(), bound: bound, maxRuns: maxRuns}
}

// filterBound wraps a fallback scheduler so it only ever offers choices the
// active Bound permits; an execution that runs out of permitted choices
// ends (the runtime reports it as an aborted/bound-exceeded trace), not as
// an internal error.
type filterBound struct {
	bound Bound
	inner Scheduler
}

func (s *filterBound) Next(trace action.Trace, prior *action.ThreadID, runnable []action.RunnableThread) (action.ThreadID, bool) {
	allowed := make([]action.RunnableThread, 0, len(runnable))
	for _, r := range runnable {
		if s.bound.Within(trace, runnable, r.Tid) {
			allowed = append(allowed, r)
		}
	}
	if len(allowed) == 0 {
		return action.ThreadID{}, false
	}
	return s.inner.Next(trace, prior, allowed)
}

// NextScheduler returns the Scheduler to drive the next execution, or
// ok=false once the tree has no remaining backtracking points or the
// iteration cap has been reached. fallback picks among bound-permitted
// choices once any forced prefix has been replayed (and for the very first,
// unconstrained run).
func (e *Explorer) NextScheduler(fallback Scheduler) (Scheduler, bool) {
	if e.stats.Executions >= e.maxRuns {
		return nil, false
	}

	bounded := &filterBound{bound: e.bound, inner: fallback}

	if !e.rootVisited {
		e.rootVisited = true
		return bounded, true
	}

	idx, tid, ok := e.tree.nextBacktrack()
	if !ok {
		return nil, false
	}
	prefix := append(e.tree.pathTo(idx), tid)
	return &sched.Forced{Prefix: prefix, Fallback: bounded}, true
}

// Record folds a finished execution's trace into the schedule tree,
// discovering any new backtracking points it implies.
func (e *Explorer) Record(trace action.Trace) {
	before := len(e.tree.nodes)
	path := e.tree.extend(trace)
	after := len(e.tree.nodes)

	e.stats.Executions++
	e.stats.TotalTransitions += len(trace)
	e.stats.UniqueStates += after - before
	if len(trace) > e.stats.MaxDepth {
		e.stats.MaxDepth = len(trace)
	}
	e.stats.ConservativeDiscards += e.tree.recordRaces(trace, path, e.bound)
}

// NoteAbort records that an execution ended via FAbort (the scheduler ran
// out of bound-permitted choices), the livelock/non-convergence signal
// modeled on the teacher's livelockCount tracking.
func (e *Explorer) NoteAbort() { e.stats.LengthAborts++ }

// Stats returns the running totals for the executions recorded so far.
func (e *Explorer) Stats() Statistics { return e.stats }
