package conc

import (
	"fmt"
	"sort"

	"github.com/dendrite-sct/dendrite/action"
	"github.com/dendrite-sct/dendrite/conc/memory"
)

// Run drives program to completion under sched, returning its Result and
// the full execution Trace (spec.md §4.1, §4.5). Exactly one logical
// thread is ever mid-effect at a time: each iteration asks sched to pick
// among the currently runnable threads (including any eligible relaxed-
// memory commits), calls stepThread to run that one thread's next step
// directly, and folds the resulting action into the trace before asking
// again. There is no handoff to a second thread of control anywhere in
// this loop — stepThread is a plain function call that returns once the
// step is done.
func Run(memType action.MemoryType, sched Scheduler, program Program) (Result, action.Trace) {
	rt := NewRuntime(memType)
	rt.spawn("main", program, true)

	var trace action.Trace
	var prior *action.ThreadID

	for {
		runnable := rt.runnableSnapshot()
		if len(runnable) == 0 {
			return rt.terminalResult(), trace
		}

		tid, ok := sched.Next(trace, prior, runnable)
		if !ok {
			return Result{Err: action.NewFailure(action.FAbort, nil)}, trace
		}

		dec := decisionFor(prior, tid)

		var act action.ThreadAction
		if key, isCommit := rt.commitByID[tid]; isCommit {
			act = rt.performCommit(key)
		} else {
			t, ok := rt.threads[tid]
			if !ok || !t.runnable() {
				return Result{Err: action.NewFailure(action.FInternalError,
					fmt.Errorf("scheduler picked non-runnable thread %s", tid.String()))}, trace
			}
			act = rt.stepThread(t)
		}

		trace = append(trace, action.Step{Decision: dec, Runnable: runnable, Action: act})
		p := tid
		prior = &p
	}
}

func decisionFor(prior *action.ThreadID, tid action.ThreadID) action.Decision {
	switch {
	case prior == nil:
		return action.StartDecision(tid)
	case *prior == tid:
		return action.ContinueDecision()
	default:
		return action.SwitchToDecision(tid)
	}
}

// runnableSnapshot lists every thread currently eligible for a step,
// including relaxed-memory commit pseudo-threads, in a stable order (real
// threads by spawn order, then commits by writer id and cell id) so that
// schedulers see a deterministic RunnableThread slice for a given trace
// prefix.
func (rt *Runtime) runnableSnapshot() []action.RunnableThread {
	var out []action.RunnableThread
	for _, tid := range rt.order {
		t := rt.threads[tid]
		if t.runnable() {
			out = append(out, action.RunnableThread{Tid: tid, Lookahead: t.pending})
		}
	}
	keys := rt.mem.EligibleCommits()
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Writer.Num != keys[j].Writer.Num {
			return keys[i].Writer.Num < keys[j].Writer.Num
		}
		return keys[i].CRef.Num < keys[j].CRef.Num
	})
	for _, key := range keys {
		tid := rt.commitIDFor(key)
		out = append(out, action.RunnableThread{
			Tid:       tid,
			Lookahead: action.Lookahead{Kind: action.LCommitCRef, CRef: key.CRef},
		})
	}
	return out
}

func (rt *Runtime) performCommit(key memory.CommitKey) action.ThreadAction {
	cref, ok := rt.mem.Commit(key)
	if !ok {
		return action.ThreadAction{Kind: action.KCommitCRef, CommitWriter: key.Writer}
	}
	return action.ThreadAction{Kind: action.KCommitCRef, CommitWriter: key.Writer, CommitCRef: cref}
}

// terminalResult is computed once no thread (real or commit pseudo-thread)
// is runnable: the program succeeded iff the main thread reached its Stop
// action cleanly, and otherwise the empty runnable set is a deadlock (or,
// if every blocked thread is waiting in a transaction, an stm-deadlock).
func (rt *Runtime) terminalResult() Result {
	main := rt.threads[rt.mainID]
	if main.finished {
		if main.uncaught != nil {
			if fail, ok := main.uncaught.(*action.Failure); ok {
				return Result{Err: fail}
			}
			return Result{Err: action.NewFailure(action.FUncaughtException, main.uncaught)}
		}
		return Result{Value: main.finalValue}
	}

	sawBlocked := false
	allSTM := true
	for _, t := range rt.threads {
		if t.finished {
			continue
		}
		if t.reason != notBlocked {
			sawBlocked = true
			if t.reason != blockedOnSTM {
				allSTM = false
			}
		}
	}
	if sawBlocked && allSTM {
		return Result{Err: action.NewFailure(action.FSTMDeadlock, nil)}
	}
	return Result{Err: action.NewFailure(action.FDeadlock, nil)}
}
