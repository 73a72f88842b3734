// Package dpor implements the bounded dynamic partial-order reduction
// explorer (spec.md §4.3): a schedule tree of backtracking points, built by
// replaying forced prefixes and analysing the resulting traces for races,
// subject to a composable family of bounds.
package dpor

import (
	"github.com/dendrite-sct/dendrite/action"
)

// Bound restricts which thread a scheduling decision may pick, given the
// steps already taken and the runnable set offered at this decision point.
// Bounds compose by conjunction (And) so a run can be limited on several
// axes at once.
type Bound interface {
	Within(steps action.Trace, runnable []action.RunnableThread, tid action.ThreadID) bool
}

// LengthBound caps the total number of steps in an execution.
type LengthBound int

func (b LengthBound) Within(steps action.Trace, runnable []action.RunnableThread, tid action.ThreadID) bool {
	return len(steps) < int(b)
}

// PreemptionBound caps the number of preemptive context switches: a switch
// away from a thread that was still runnable, rather than one forced by
// that thread blocking or finishing.
type PreemptionBound int

func (b PreemptionBound) Within(steps action.Trace, runnable []action.RunnableThread, tid action.ThreadID) bool {
	n := countExistingPreemptions(steps)
	if wouldPreempt(steps, runnable, tid) {
		n++
	}
	return n <= int(b)
}

// FairBound forbids starving a runnable thread for more than its window of
// consecutive steps in favour of others.
type FairBound int

func (b FairBound) Within(steps action.Trace, runnable []action.RunnableThread, tid action.ThreadID) bool {
	for _, r := range runnable {
		if r.Tid == tid {
			continue
		}
		if consecutiveSkips(steps, r.Tid) >= int(b) {
			return false
		}
	}
	return true
}

// And composes bounds by conjunction: every bound must allow the choice.
type And []Bound

func (a And) Within(steps action.Trace, runnable []action.RunnableThread, tid action.ThreadID) bool {
	for _, b := range a {
		if !b.Within(steps, runnable, tid) {
			return false
		}
	}
	return true
}

// Unbounded allows everything; used when the caller wants exhaustive
// exploration limited only by the iteration cap.
type Unbounded struct{}

func (Unbounded) Within(action.Trace, []action.RunnableThread, action.ThreadID) bool { return true }

func activeTid(steps action.Trace, i int) action.ThreadID {
	for steps[i].Decision.Kind == action.DContinue {
		i--
	}
	return steps[i].Decision.Tid
}

func containsRunnable(rs []action.RunnableThread, tid action.ThreadID) bool {
	for _, r := range rs {
		if r.Tid == tid {
			return true
		}
	}
	return false
}

func countExistingPreemptions(steps action.Trace) int {
	count := 0
	for i, s := range steps {
		if s.Decision.Kind != action.DSwitchTo || i == 0 {
			continue
		}
		prior := activeTid(steps, i-1)
		if containsRunnable(s.Runnable, prior) {
			count++
		}
	}
	return count
}

func wouldPreempt(steps action.Trace, runnable []action.RunnableThread, tid action.ThreadID) bool {
	if len(steps) == 0 {
		return false
	}
	prior := activeTid(steps, len(steps)-1)
	if prior == tid {
		return false
	}
	return containsRunnable(runnable, prior)
}

func consecutiveSkips(steps action.Trace, tid action.ThreadID) int {
	skips := 0
	for i := len(steps) - 1; i >= 0; i-- {
		if activeTid(steps, i) == tid {
			break
		}
		if containsRunnable(steps[i].Runnable, tid) {
			skips++
		} else {
			break
		}
	}
	return skips
}
