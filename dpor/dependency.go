package dpor

import "github.com/dendrite-sct/dendrite/action"

// dependent reports whether reordering two actions could change the
// program's behaviour: they must touch the same resource and at least one
// must not be a plain read (spec.md §4.3's dependency relation — two
// unsynchronised reads of the same cell never race).
func dependent(a, b action.ActionType) bool {
	if !a.SameResource(b) {
		return false
	}
	if isReadOnly(a) && isReadOnly(b) {
		return false
	}
	return true
}

func isReadOnly(t action.ActionType) bool {
	switch t.Type {
	case action.AUnsynchronisedRead:
		return true
	}
	return false
}

// race records that, at step `before`, the thread `other` was already
// runnable and its eventual dependent action (at some later step) could
// have been scheduled first instead — the classic reversible-race
// condition DPOR backtracks on.
type race struct {
	before int
	other  action.ThreadID
}

// findRaces scans a finished trace for reversible races: pairs of
// dependent actions on different threads where the later thread was
// already offered (runnable) at the earlier step and took no intervening
// step of its own before the race partner ran.
func findRaces(trace action.Trace) []race {
	var races []race
	for i := range trace {
		ti := activeTid(trace, i)
		for j := i + 1; j < len(trace); j++ {
			tj := activeTid(trace, j)
			if tj == ti {
				continue
			}
			if tookStepBetween(trace, tj, i, j) {
				continue
			}
			if !dependentSteps(trace, i, ti, j, tj) {
				continue
			}
			if !containsRunnable(trace[i].Runnable, tj) {
				continue
			}
			races = append(races, race{before: i, other: tj})
		}
	}
	return races
}

// dependentSteps extends the resource-based dependent relation with the
// two thread-targeted rules of spec.md §4.3 that action.ActionType cannot
// express on its own, since it carries no thread identity: a ThrowTo is
// dependent with any action of its target, and a Fork is dependent with
// the first action taken by the thread it spawns.
func dependentSteps(trace action.Trace, i int, ti action.ThreadID, j int, tj action.ThreadID) bool {
	ai, aj := trace[i].Action, trace[j].Action
	if dependent(action.SimplifyAction(ai), action.SimplifyAction(aj)) {
		return true
	}
	if isThrowTo(ai) && ai.ThrowTarget == tj {
		return true
	}
	if isThrowTo(aj) && aj.ThrowTarget == ti {
		return true
	}
	if ai.Kind == action.KFork && ai.ForkedThread == tj && isFirstStepOf(trace, tj, j) {
		return true
	}
	return false
}

func isThrowTo(a action.ThreadAction) bool {
	return a.Kind == action.KThrowTo || a.Kind == action.KBlockedThrowTo
}

// isFirstStepOf reports whether step j is the first step trace attributes
// to tid, i.e. no earlier step in trace belongs to the same thread.
func isFirstStepOf(trace action.Trace, tid action.ThreadID, j int) bool {
	for k := 0; k < j; k++ {
		if activeTid(trace, k) == tid {
			return false
		}
	}
	return true
}

func tookStepBetween(trace action.Trace, tid action.ThreadID, i, j int) bool {
	for k := i + 1; k < j; k++ {
		if activeTid(trace, k) == tid {
			return true
		}
	}
	return false
}
