// Package stm implements the transaction engine (spec.md §4.4): a nested
// interpreter over a local read/write set with retry, orElse and
// catch/throw semantics, recording a full TTrace of sub-actions including
// which branch of orElse/catch was taken.
package stm

import (
	"github.com/dendrite-sct/dendrite/action"
)

// Store is the global tvar storage a transaction commits into. The
// concurrency runtime (package conc) implements this so that committing a
// transaction can wake waiters without the stm package needing to know
// about threads beyond their ids.
type Store interface {
	ReadCommitted(id action.TVarID) any
	NewTVar(id action.TVarID, initial any)
	// CommitWrites publishes writes atomically and returns the threads
	// woken because they were blocked retrying on one of the written tvars.
	CommitWrites(writes map[action.TVarID]any) []action.ThreadID
}

// Body is a transaction body written against a TxHandle.
type Body func(TxHandle) (any, error)

// TxHandle is the capability a transaction body runs against.
type TxHandle interface {
	NewTVar(name string, initial any) action.TVarID
	ReadTVar(id action.TVarID) any
	WriteTVar(id action.TVarID, v any)
	Retry()
	OrElse(left, right Body) (any, error)
	CatchSTM(body Body, handler func(TxHandle, error) (any, error)) (any, error)
}

// Outcome is the result of running one transaction to completion.
type Outcome struct {
	Committed bool
	Value     any
	Err       error   // non-nil iff the transaction threw uncaught
	Blocked   bool    // true iff the transaction retried with no handler
	ReadSet   []action.TVarID
	Trace     action.TTrace
}

// engine is one run of RunTransaction; it is not reentrant and is
// discarded after use.
type engine struct {
	store      Store
	ids        *action.IDSource
	local      map[action.TVarID]any
	localSet   map[action.TVarID]bool
	readSet    map[action.TVarID]bool
	trace      action.TTrace
}

// RunTransaction interprets body as a single atomic transaction against
// store, returning the outcome plus the threads woken by a successful
// commit (Store.CommitWrites computes the wake set; callers use it to
// populate ThreadAction.Woken). ids allocates any tvars the body creates.
func RunTransaction(store Store, ids *action.IDSource, body Body) (Outcome, []action.ThreadID) {
	e := &engine{
		store:    store,
		ids:      ids,
		local:    map[action.TVarID]any{},
		localSet: map[action.TVarID]bool{},
		readSet:  map[action.TVarID]bool{},
	}

	trace, _, val, err, retried := e.runBranch(body)
	e.trace = trace

	switch {
	case retried:
		return Outcome{Blocked: true, ReadSet: e.readSetSlice(), Trace: e.trace}, nil
	case err != nil:
		return Outcome{Err: err, Trace: e.trace}, nil
	default:
		woken := store.CommitWrites(e.writeSetValues())
		return Outcome{Committed: true, Value: val, Trace: e.trace, ReadSet: e.readSetSlice()}, woken
	}
}

func (e *engine) NewTVar(name string, initial any) action.TVarID {
	id := e.ids.Fresh(action.FamilyTVar, name)
	tv := action.TVarID{ID: id}
	e.local[tv] = initial
	e.localSet[tv] = true
	e.trace = append(e.trace, action.TAction{Kind: action.TNew, TVar: tv})
	return tv
}

func (e *engine) ReadTVar(id action.TVarID) any {
	e.trace = append(e.trace, action.TAction{Kind: action.TRead, TVar: id})
	if e.localSet[id] {
		return e.local[id]
	}
	e.readSet[id] = true
	v := e.store.ReadCommitted(id)
	e.local[id] = v
	return v
}

func (e *engine) WriteTVar(id action.TVarID, v any) {
	e.local[id] = v
	e.localSet[id] = true
	e.trace = append(e.trace, action.TAction{Kind: action.TWrite, TVar: id})
}

func (e *engine) Retry() {
	panic(retrySignal{})
}

type retrySignal struct{}

// OrElse runs left; if it retries, rolls back left's local writes and runs
// right instead. Exceptions from left propagate without trying right.
func (e *engine) OrElse(left, right Body) (result any, err error) {
	savedLocal := cloneMap(e.local)
	savedLocalSet := cloneBoolMap(e.localSet)

	leftTrace, leftRan, leftVal, leftErr, leftRetried := e.runBranch(left)
	if leftRetried {
		// roll back left's writes, keep its reads (still dependent on them)
		e.local = savedLocal
		e.localSet = savedLocalSet
		rightTrace, _, rightVal, rightErr, rightRetried := e.runBranch(right)
		e.trace = append(e.trace, action.TAction{Kind: action.TOrElse, Left: leftTrace, Right: rightTrace})
		if rightRetried {
			e.Retry()
		}
		return rightVal, rightErr
	}
	e.trace = append(e.trace, action.TAction{Kind: action.TOrElse, Left: leftTrace})
	_ = leftRan
	return leftVal, leftErr
}

// CatchSTM runs body; if it throws, rolls back its writes up to this handler
// and runs handler with the error.
func (e *engine) CatchSTM(body Body, handler func(TxHandle, error) (any, error)) (any, error) {
	savedLocal := cloneMap(e.local)
	savedLocalSet := cloneBoolMap(e.localSet)

	bodyTrace, _, val, err, retried := e.runBranch(body)
	if retried {
		e.trace = append(e.trace, action.TAction{Kind: action.TCatch, Body: bodyTrace})
		e.Retry()
	}
	if err == nil {
		e.trace = append(e.trace, action.TAction{Kind: action.TCatch, Body: bodyTrace})
		return val, nil
	}

	e.local = savedLocal
	e.localSet = savedLocalSet
	handlerTrace, _, hval, herr, hretried := e.runBranch(func(h TxHandle) (any, error) { return handler(h, err) })
	e.trace = append(e.trace, action.TAction{Kind: action.TCatch, Body: bodyTrace, Handler: handlerTrace})
	if hretried {
		e.Retry()
	}
	return hval, herr
}

// runBranch executes fn with its own trace segment, catching both the
// retry panic and ordinary errors, without disturbing the parent trace.
func (e *engine) runBranch(fn Body) (branchTrace action.TTrace, ran bool, val any, err error, retried bool) {
	savedTrace := e.trace
	e.trace = nil
	defer func() {
		branchTrace = e.trace
		e.trace = savedTrace
		if r := recover(); r != nil {
			if _, ok := r.(retrySignal); ok {
				retried = true
				return
			}
			panic(r)
		}
	}()
	val, err = fn(e)
	ran = true
	return
}

func (e *engine) readSetSlice() []action.TVarID {
	out := make([]action.TVarID, 0, len(e.readSet))
	for id := range e.readSet {
		out = append(out, id)
	}
	return out
}

func (e *engine) writeSetValues() map[action.TVarID]any {
	out := map[action.TVarID]any{}
	for id := range e.localSet {
		out[id] = e.local[id]
	}
	return out
}

func cloneMap(m map[action.TVarID]any) map[action.TVarID]any {
	out := make(map[action.TVarID]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneBoolMap(m map[action.TVarID]bool) map[action.TVarID]bool {
	out := make(map[action.TVarID]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
