package conc

import (
	"fmt"

	"github.com/dendrite-sct/dendrite/action"
	"github.com/dendrite-sct/dendrite/conc/memory"
)

// Scheduler is the pluggable driver (spec.md §4.5): given the trace so
// far, the previously-run thread (if any), and the runnable set with
// lookaheads, it picks the next thread to run or returns ok=false to
// abort the execution.
type Scheduler interface {
	Next(trace action.Trace, prior *action.ThreadID, runnable []action.RunnableThread) (tid action.ThreadID, ok bool)
}

// Result is the outcome of one execution: exactly one of Value/Err is
// meaningful, matching spec.md §6's `result = Ok value | Err Failure`.
type Result struct {
	Value any
	Err   *action.Failure
}

// Runtime is the per-execution interpreter state (spec.md §4.1): thread
// table, cell store, blocking-variable store, tvar store, id source and
// subconcurrency nesting depth. A Runtime instance is used for exactly one
// execution and then discarded. Unlike a host scheduler, Runtime is never
// touched from more than one goroutine: every field below is read and
// written exclusively by the single call stack that is driving Run's loop
// in step.go (see conc's package doc for why that is the whole point).
type Runtime struct {
	ids     *action.IDSource
	memType action.MemoryType
	mem     *memory.Store

	threads map[action.ThreadID]*thread
	order   []action.ThreadID

	mvars map[action.MVarID]*mvarCell
	tvars map[action.TVarID]any

	stmWaiters []stmWaiter

	commitIDs  map[memory.CommitKey]action.ThreadID
	commitByID map[action.ThreadID]memory.CommitKey

	numCapabilities int

	subDepth int

	mainID action.ThreadID
}

type stmWaiter struct {
	tid   action.ThreadID
	tvars []action.TVarID
}

type mvarCell struct {
	full        bool
	value       any
	putWaiters  []action.ThreadID
	takeWaiters []action.ThreadID
	readWaiters []action.ThreadID
}

// NewRuntime creates a fresh, not-yet-started Runtime.
func NewRuntime(memType action.MemoryType) *Runtime {
	return &Runtime{
		ids:             action.NewIDSource(),
		memType:         memType,
		mem:             memory.NewStore(memType),
		threads:         map[action.ThreadID]*thread{},
		mvars:           map[action.MVarID]*mvarCell{},
		tvars:           map[action.TVarID]any{},
		commitIDs:       map[memory.CommitKey]action.ThreadID{},
		commitByID:      map[action.ThreadID]memory.CommitKey{},
		numCapabilities: 1,
	}
}

// spawn starts body as a new thread (the main thread if isMain). Starting
// a thread is nothing more than building its first Instr and resolving any
// scopes it immediately returns through (an empty program), so spawn never
// blocks: the child's first real step only runs once the driving loop
// grants it, exactly like any other thread.
func (rt *Runtime) spawn(name string, body Program, isMain bool) action.ThreadID {
	var tid action.ThreadID
	if isMain {
		tid = action.MainThread
	} else {
		tid = action.ThreadID{ID: rt.ids.Fresh(action.FamilyThread, name)}
	}
	t := newThread(tid)
	t.cur = body()
	rt.threads[tid] = t
	rt.order = append(rt.order, tid)
	if isMain {
		rt.mainID = tid
	}
	refreshPending(t)
	return tid
}

// stepThread performs exactly one step of t: either it resolves to Return
// with no open scope left, in which case the thread finishes with a final
// KStop action, or it runs t.cur's perform once. A blocking perform leaves
// t.cur untouched so the identical step is retried once the thread is
// woken; a successful one advances t.cur via cont and refreshes its
// lookahead for the next scheduling round.
func (rt *Runtime) stepThread(t *thread) action.ThreadAction {
	cur := t.cur
	if cur.isReturn {
		t.finished = true
		t.finalValue = cur.retVal
		t.resultErr = cur.retErr
		if cur.retErr != nil {
			t.uncaught = cur.retErr
		}
		return action.ThreadAction{Kind: action.KStop}
	}

	result, act, ok := cur.perform(rt, t)
	if !ok {
		return act
	}
	t.cur = cur.cont(result)
	refreshPending(t)
	return act
}

// wake transitions every id in ids back to runnable. There is no separate
// goroutine to unpark: the thread's next step simply becomes eligible the
// next time runnableSnapshot is taken.
func (rt *Runtime) wake(ids []action.ThreadID) {
	for _, id := range ids {
		rt.threads[id].reason = notBlocked
	}
}

// deliverKill terminates t immediately as if by an uncaught exception,
// bypassing any open Catch scope — ThrowTo is asynchronous and is never
// intended to be caught by the target's own handlers (spec.md §4.1).
func (rt *Runtime) deliverKill(t *thread, err error) {
	t.finished = true
	t.reason = notBlocked
	t.uncaught = err
	t.resultErr = err
}

// commitIDFor returns the stable pseudo-thread id for a buffered-write
// commit key, allocating one (a negative thread id) on first sight.
func (rt *Runtime) commitIDFor(key memory.CommitKey) action.ThreadID {
	if id, ok := rt.commitIDs[key]; ok {
		return id
	}
	id := rt.ids.FreshCommitThread(fmt.Sprintf("commit:%s", key.Writer.String()))
	rt.commitIDs[key] = id
	rt.commitByID[id] = key
	return id
}

// ReadCommitted, NewTVar and CommitWrites implement stm.Store so
// Runtime itself is the tvar backing store a transaction commits into.
func (rt *Runtime) ReadCommitted(id action.TVarID) any { return rt.tvars[id] }

func (rt *Runtime) NewTVar(id action.TVarID, initial any) { rt.tvars[id] = initial }

func (rt *Runtime) CommitWrites(writes map[action.TVarID]any) []action.ThreadID {
	for id, v := range writes {
		rt.tvars[id] = v
	}
	var woken []action.ThreadID
	var remaining []stmWaiter
	seen := map[action.ThreadID]bool{}
	for _, w := range rt.stmWaiters {
		hit := false
		for _, tv := range w.tvars {
			if _, ok := writes[tv]; ok {
				hit = true
				break
			}
		}
		if hit && !seen[w.tid] {
			woken = append(woken, w.tid)
			seen[w.tid] = true
		} else {
			remaining = append(remaining, w)
		}
	}
	rt.stmWaiters = remaining
	return woken
}
