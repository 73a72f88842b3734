// Package sched provides ready-made Scheduler implementations (spec.md
// §4.5) that plug directly into conc.Run: non-deterministic baselines used
// for single random-walk testing, and deterministic wrappers used by the
// DPOR explorer to replay a forced prefix before handing control back to
// the tree's backtracking points.
package sched

import (
	"math/rand"

	"github.com/dendrite-sct/dendrite/action"
)

// RoundRobin always continues the prior thread if it is still runnable,
// otherwise advances to the next runnable thread in RunnableThread order,
// wrapping around — a deterministic, non-preemptive-by-default baseline.
type RoundRobin struct {
	lastIndex int
}

func NewRoundRobin() *RoundRobin { return &RoundRobin{} }

func (s *RoundRobin) Next(trace action.Trace, prior *action.ThreadID, runnable []action.RunnableThread) (action.ThreadID, bool) {
	if len(runnable) == 0 {
		return action.ThreadID{}, false
	}
	if prior != nil {
		for _, r := range runnable {
			if r.Tid == *prior {
				return r.Tid, true
			}
		}
	}
	idx := s.lastIndex % len(runnable)
	s.lastIndex++
	return runnable[idx].Tid, true
}

// Random picks uniformly among the runnable set every step, using rng so
// callers control reproducibility (spec.md's determinism requirement
// applies to a fixed rng seed, not to the scheduler's algorithm).
type Random struct {
	rng *rand.Rand
}

func NewRandom(rng *rand.Rand) *Random { return &Random{rng: rng} }

func (s *Random) Next(trace action.Trace, prior *action.ThreadID, runnable []action.RunnableThread) (action.ThreadID, bool) {
	if len(runnable) == 0 {
		return action.ThreadID{}, false
	}
	return runnable[s.rng.Intn(len(runnable))].Tid, true
}

// NonPreemptive wraps another Scheduler so that once a non-blocked thread
// begins a step it keeps running until it blocks, finishes, or is the only
// option — eliminating interleavings that differ only in an uncontested
// preemption point (spec.md §5's "fair bound" family works alongside this).
type NonPreemptive struct {
	inner interface {
		Next(action.Trace, *action.ThreadID, []action.RunnableThread) (action.ThreadID, bool)
	}
}

func NewNonPreemptive(inner interface {
	Next(action.Trace, *action.ThreadID, []action.RunnableThread) (action.ThreadID, bool)
}) *NonPreemptive {
	return &NonPreemptive{inner: inner}
}

func (s *NonPreemptive) Next(trace action.Trace, prior *action.ThreadID, runnable []action.RunnableThread) (action.ThreadID, bool) {
	if prior != nil {
		for _, r := range runnable {
			if r.Tid == *prior {
				return r.Tid, true
			}
		}
	}
	return s.inner.Next(trace, prior, runnable)
}

// Forced replays a fixed prefix of thread ids (as produced by the DPOR
// explorer's schedule tree) and then defers to fallback once the prefix is
// exhausted — the adapter that lets dpor.Explorer drive conc.Run without
// conc importing dpor.
type Forced struct {
	Prefix   []action.ThreadID
	pos      int
	Fallback interface {
		Next(action.Trace, *action.ThreadID, []action.RunnableThread) (action.ThreadID, bool)
	}
}

func (s *Forced) Next(trace action.Trace, prior *action.ThreadID, runnable []action.RunnableThread) (action.ThreadID, bool) {
	if s.pos < len(s.Prefix) {
		want := s.Prefix[s.pos]
		for _, r := range runnable {
			if r.Tid == want {
				s.pos++
				return r.Tid, true
			}
		}
		// forced thread no longer runnable: the prefix was stale (e.g. a
		// commit pseudo-thread whose buffer already drained); fall through.
	}
	if s.Fallback != nil {
		return s.Fallback.Next(trace, prior, runnable)
	}
	if len(runnable) == 0 {
		return action.ThreadID{}, false
	}
	return runnable[0].Tid, true
}
