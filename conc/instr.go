package conc

import (
	"github.com/dendrite-sct/dendrite/action"
	"github.com/dendrite-sct/dendrite/conc/memory"
	"github.com/dendrite-sct/dendrite/stm"
)

// Instr is one node of a thread's computation, represented directly as
// data instead of as a suspended goroutine: look is the Lookahead the
// scheduler sees before the step runs, perform carries out the effect
// against the owning Runtime and reports whether it completed or would
// have blocked, and cont builds the rest of the computation from perform's
// result. A thread is driven by repeatedly swapping its current Instr for
// cont's return value — the whole engine never executes more than this one
// goroutine, so there is nothing to hand a step to but a plain function
// call (spec.md §9's continuation-based interpreter note).
//
// isReturn marks a terminal node instead: retVal/retErr are the result of
// the innermost scope (a Catch body, a whole thread) that just finished.
type Instr struct {
	look    action.Lookahead
	perform func(rt *Runtime, self *thread) (result any, act action.ThreadAction, ok bool)
	cont    func(result any) Instr

	isReturn bool
	retVal   any
	retErr   error
}

// Return ends the innermost open scope with value v and error err. A
// top-level Program should end every branch in a Return.
func Return(v any, err error) Instr {
	return Instr{isReturn: true, retVal: v, retErr: err}
}

// Program is a user computation: a thread body built out of the free
// functions below, always ending in Return.
type Program func() Instr

// scopeFrame is how Catch reclaims control when the scope it opened ends,
// without unwinding a real call stack: pushing a frame is "enter the
// scope", and resolving a Return against it is "the scope just finished,
// decide what runs next". It takes the owning thread so it can itself push
// a further frame (a Catch handler is its own scope).
type scopeFrame struct {
	onReturn func(t *thread, v any, err error) Instr
}

// resolveReturns pops finished scopes until cur names a real step to
// perform, or is a Return with no scope left to return to (the thread
// itself is finished). Popping a scope is pure bookkeeping, never a
// visible step, so this never touches the trace.
func (t *thread) resolveReturns() Instr {
	cur := t.cur
	for cur.isReturn && len(t.scopeStack) > 0 {
		frame := t.scopeStack[len(t.scopeStack)-1]
		t.scopeStack = t.scopeStack[:len(t.scopeStack)-1]
		cur = frame.onReturn(t, cur.retVal, cur.retErr)
	}
	return cur
}

// refreshPending resolves t.cur and records the Lookahead the scheduler
// should see for it, called whenever t.cur changes.
func refreshPending(t *thread) {
	t.cur = t.resolveReturns()
	if t.cur.isReturn {
		t.pending = action.Lookahead{Kind: action.LStop}
	} else {
		t.pending = t.cur.look
	}
}

// simple wraps a non-blocking, self-contained effect into an Instr.
func simple(look action.Lookahead, perform func(rt *Runtime, self *thread) action.ThreadAction, cont func() Instr) Instr {
	return Instr{
		look: look,
		perform: func(rt *Runtime, self *thread) (any, action.ThreadAction, bool) {
			return nil, perform(rt, self), true
		},
		cont: func(any) Instr { return cont() },
	}
}

func Fork(name string, body Program, k func(action.ThreadID) Instr) Instr {
	return Instr{
		look: action.Lookahead{Kind: action.LFork},
		perform: func(rt *Runtime, self *thread) (any, action.ThreadAction, bool) {
			child := rt.spawn(name, body, false)
			return child, action.ThreadAction{Kind: action.KFork, ForkedThread: child}, true
		},
		cont: func(result any) Instr { return k(result.(action.ThreadID)) },
	}
}

func MyThreadId(k func(action.ThreadID) Instr) Instr {
	return Instr{
		look: action.Lookahead{Kind: action.LMyThreadId},
		perform: func(rt *Runtime, self *thread) (any, action.ThreadAction, bool) {
			return self.id, action.ThreadAction{Kind: action.KMyThreadId}, true
		},
		cont: func(result any) Instr { return k(result.(action.ThreadID)) },
	}
}

func GetNumCapabilities(k func(int) Instr) Instr {
	return Instr{
		look: action.Lookahead{Kind: action.LGetNumCapabilities},
		perform: func(rt *Runtime, self *thread) (any, action.ThreadAction, bool) {
			return rt.numCapabilities, action.ThreadAction{Kind: action.KGetNumCapabilities, Capabilities: rt.numCapabilities}, true
		},
		cont: func(result any) Instr { return k(result.(int)) },
	}
}

func SetNumCapabilities(n int, k func() Instr) Instr {
	return simple(action.Lookahead{Kind: action.LSetNumCapabilities}, func(rt *Runtime, self *thread) action.ThreadAction {
		rt.numCapabilities = n
		return action.ThreadAction{Kind: action.KSetNumCapabilities, Capabilities: n}
	}, k)
}

func Yield(k func() Instr) Instr {
	return simple(action.Lookahead{Kind: action.LYield}, func(rt *Runtime, self *thread) action.ThreadAction {
		return action.ThreadAction{Kind: action.KYield}
	}, k)
}

func NewCRef(name string, initial any, k func(CRef) Instr) Instr {
	return Instr{
		look: action.Lookahead{Kind: action.LNewCRef},
		perform: func(rt *Runtime, self *thread) (any, action.ThreadAction, bool) {
			id := action.CRefID{ID: rt.ids.Fresh(action.FamilyCRef, name)}
			rt.mem.NewCRef(id, initial)
			return CRef{id: id, rt: rt}, action.ThreadAction{Kind: action.KNewCRef, CRef: id}, true
		},
		cont: func(result any) Instr { return k(result.(CRef)) },
	}
}

func ReadCRef(r CRef, k func(any) Instr) Instr {
	return Instr{
		look: action.Lookahead{Kind: action.LReadCRef, CRef: r.id},
		perform: func(rt *Runtime, self *thread) (any, action.ThreadAction, bool) {
			v := rt.mem.ReadCRef(self.id, r.id)
			return v, action.ThreadAction{Kind: action.KReadCRef, CRef: r.id}, true
		},
		cont: k,
	}
}

func WriteCRef(r CRef, v any, k func() Instr) Instr {
	return simple(action.Lookahead{Kind: action.LWriteCRef, CRef: r.id}, func(rt *Runtime, self *thread) action.ThreadAction {
		rt.mem.WriteCRef(self.id, r.id, v)
		return action.ThreadAction{Kind: action.KWriteCRef, CRef: r.id}
	}, k)
}

func ModifyCRef(r CRef, fn func(any) any, k func(any) Instr) Instr {
	return Instr{
		look: action.Lookahead{Kind: action.LModCRef, CRef: r.id},
		perform: func(rt *Runtime, self *thread) (any, action.ThreadAction, bool) {
			_, nv := rt.mem.ModifyCRef(self.id, r.id, fn)
			return nv, action.ThreadAction{Kind: action.KModCRef, CRef: r.id}, true
		},
		cont: k,
	}
}

func ModifyCRefCAS(r CRef, fn func(any) any, k func(any) Instr) Instr {
	return Instr{
		look: action.Lookahead{Kind: action.LModCRefCas, CRef: r.id},
		perform: func(rt *Runtime, self *thread) (any, action.ThreadAction, bool) {
			_, nv := rt.mem.ModifyCRef(self.id, r.id, fn)
			return nv, action.ThreadAction{Kind: action.KModCRefCas, CRef: r.id}, true
		},
		cont: k,
	}
}

func CasCRef(r CRef, ticket CASTicket, newVal any, k func(bool) Instr) Instr {
	return Instr{
		look: action.Lookahead{Kind: action.LCasCRef, CRef: r.id},
		perform: func(rt *Runtime, self *thread) (any, action.ThreadAction, bool) {
			mt := memory.ReadTicket{CRef: r.id, Generation: ticket.generation}
			ok := rt.mem.CasCRef(self.id, mt, newVal)
			return ok, action.ThreadAction{Kind: action.KCasCRef, CRef: r.id, CasSuccess: ok}, true
		},
		cont: func(result any) Instr { return k(result.(bool)) },
	}
}

func ReadCRefCAS(r CRef, k func(any, CASTicket) Instr) Instr {
	return Instr{
		look: action.Lookahead{Kind: action.LReadCRefCas, CRef: r.id},
		perform: func(rt *Runtime, self *thread) (any, action.ThreadAction, bool) {
			t := rt.mem.ReadForCAS(self.id, r.id)
			return [2]any{t.Value, CASTicket{generation: t.Generation, cref: r.id}},
				action.ThreadAction{Kind: action.KReadCRefCas, CRef: r.id}, true
		},
		cont: func(result any) Instr {
			pair := result.([2]any)
			return k(pair[0], pair[1].(CASTicket))
		},
	}
}

func NewMVar(name string, initial any, full bool, k func(MVar) Instr) Instr {
	return Instr{
		look: action.Lookahead{Kind: action.LNewMVar},
		perform: func(rt *Runtime, self *thread) (any, action.ThreadAction, bool) {
			id := action.MVarID{ID: rt.ids.Fresh(action.FamilyMVar, name)}
			rt.mvars[id] = &mvarCell{full: full, value: initial}
			return MVar{id: id, rt: rt}, action.ThreadAction{Kind: action.KNewMVar, MVar: id}, true
		},
		cont: func(result any) Instr { return k(result.(MVar)) },
	}
}

func PutMVar(m MVar, v any, k func() Instr) Instr {
	return Instr{
		look: action.Lookahead{Kind: action.LPutMVar, MVar: m.id},
		perform: func(rt *Runtime, self *thread) (any, action.ThreadAction, bool) {
			cell := rt.mvars[m.id]
			if cell.full {
				cell.putWaiters = append(cell.putWaiters, self.id)
				self.reason = blockedOnMVar
				return nil, action.ThreadAction{Kind: action.KBlockedPutMVar, MVar: m.id}, false
			}
			cell.full, cell.value = true, v
			woken := append(append([]action.ThreadID{}, cell.takeWaiters...), cell.readWaiters...)
			cell.takeWaiters, cell.readWaiters = nil, nil
			rt.wake(woken)
			return nil, action.ThreadAction{Kind: action.KPutMVar, MVar: m.id, Woken: woken, OpSuccess: true}, true
		},
		cont: func(any) Instr { return k() },
	}
}

func TryPutMVar(m MVar, v any, k func(bool) Instr) Instr {
	return Instr{
		look: action.Lookahead{Kind: action.LTryPutMVar, MVar: m.id},
		perform: func(rt *Runtime, self *thread) (any, action.ThreadAction, bool) {
			cell := rt.mvars[m.id]
			if cell.full {
				return false, action.ThreadAction{Kind: action.KTryPutMVar, MVar: m.id}, true
			}
			cell.full, cell.value = true, v
			woken := append(append([]action.ThreadID{}, cell.takeWaiters...), cell.readWaiters...)
			cell.takeWaiters, cell.readWaiters = nil, nil
			rt.wake(woken)
			return true, action.ThreadAction{Kind: action.KTryPutMVar, MVar: m.id, Woken: woken, OpSuccess: true}, true
		},
		cont: func(result any) Instr { return k(result.(bool)) },
	}
}

func ReadMVar(m MVar, k func(any) Instr) Instr {
	return Instr{
		look: action.Lookahead{Kind: action.LReadMVar, MVar: m.id},
		perform: func(rt *Runtime, self *thread) (any, action.ThreadAction, bool) {
			cell := rt.mvars[m.id]
			if !cell.full {
				cell.readWaiters = append(cell.readWaiters, self.id)
				self.reason = blockedOnMVar
				return nil, action.ThreadAction{Kind: action.KBlockedReadMVar, MVar: m.id}, false
			}
			return cell.value, action.ThreadAction{Kind: action.KReadMVar, MVar: m.id, OpSuccess: true}, true
		},
		cont: k,
	}
}

func TryReadMVar(m MVar, k func(any, bool) Instr) Instr {
	return Instr{
		look: action.Lookahead{Kind: action.LTryReadMVar, MVar: m.id},
		perform: func(rt *Runtime, self *thread) (any, action.ThreadAction, bool) {
			cell := rt.mvars[m.id]
			if !cell.full {
				return [2]any{nil, false}, action.ThreadAction{Kind: action.KTryReadMVar, MVar: m.id}, true
			}
			return [2]any{cell.value, true}, action.ThreadAction{Kind: action.KTryReadMVar, MVar: m.id, OpSuccess: true}, true
		},
		cont: func(result any) Instr {
			pair := result.([2]any)
			return k(pair[0], pair[1].(bool))
		},
	}
}

func TakeMVar(m MVar, k func(any) Instr) Instr {
	return Instr{
		look: action.Lookahead{Kind: action.LTakeMVar, MVar: m.id},
		perform: func(rt *Runtime, self *thread) (any, action.ThreadAction, bool) {
			cell := rt.mvars[m.id]
			if !cell.full {
				cell.takeWaiters = append(cell.takeWaiters, self.id)
				self.reason = blockedOnMVar
				return nil, action.ThreadAction{Kind: action.KBlockedTakeMVar, MVar: m.id}, false
			}
			v := cell.value
			cell.full, cell.value = false, nil
			woken := append([]action.ThreadID{}, cell.putWaiters...)
			cell.putWaiters = nil
			rt.wake(woken)
			return v, action.ThreadAction{Kind: action.KTakeMVar, MVar: m.id, Woken: woken, OpSuccess: true}, true
		},
		cont: k,
	}
}

func TryTakeMVar(m MVar, k func(any, bool) Instr) Instr {
	return Instr{
		look: action.Lookahead{Kind: action.LTryTakeMVar, MVar: m.id},
		perform: func(rt *Runtime, self *thread) (any, action.ThreadAction, bool) {
			cell := rt.mvars[m.id]
			if !cell.full {
				return [2]any{nil, false}, action.ThreadAction{Kind: action.KTryTakeMVar, MVar: m.id}, true
			}
			v := cell.value
			cell.full, cell.value = false, nil
			woken := append([]action.ThreadID{}, cell.putWaiters...)
			cell.putWaiters = nil
			rt.wake(woken)
			return [2]any{v, true}, action.ThreadAction{Kind: action.KTryTakeMVar, MVar: m.id, Woken: woken, OpSuccess: true}, true
		},
		cont: func(result any) Instr {
			pair := result.([2]any)
			return k(pair[0], pair[1].(bool))
		},
	}
}

// txAdapter lets an stm.TxHandle stand in for conc's own TxHandle, whose
// shape is duplicated in capability.go to avoid an import cycle (conc
// depends on stm for the transaction interpreter; stm must not depend on
// conc for thread ids).
type txAdapter struct{ h stm.TxHandle }

func (a txAdapter) NewTVar(name string, initial any) action.TVarID { return a.h.NewTVar(name, initial) }
func (a txAdapter) ReadTVar(id action.TVarID) any                  { return a.h.ReadTVar(id) }
func (a txAdapter) WriteTVar(id action.TVarID, v any)              { a.h.WriteTVar(id, v) }
func (a txAdapter) Retry()                                         { a.h.Retry() }

func (a txAdapter) OrElse(left, right func(TxHandle) (any, error)) (any, error) {
	return a.h.OrElse(
		func(sh stm.TxHandle) (any, error) { return left(txAdapter{sh}) },
		func(sh stm.TxHandle) (any, error) { return right(txAdapter{sh}) },
	)
}

func (a txAdapter) CatchSTM(body func(TxHandle) (any, error), handler func(TxHandle, error) (any, error)) (any, error) {
	return a.h.CatchSTM(
		func(sh stm.TxHandle) (any, error) { return body(txAdapter{sh}) },
		func(sh stm.TxHandle, err error) (any, error) { return handler(txAdapter{sh}, err) },
	)
}

// Atomically interprets tx as a single transaction (spec.md §4.4): each
// attempt is its own step, and a retry re-announces the same lookahead and
// blocks the thread as an stm waiter until a commit touches one of its
// reads.
func Atomically(tx Transaction, k func(any, error) Instr) Instr {
	return Instr{
		look: action.Lookahead{Kind: action.LSTM},
		perform: func(rt *Runtime, self *thread) (any, action.ThreadAction, bool) {
			outcome, woken := stm.RunTransaction(rt, rt.ids, func(h stm.TxHandle) (any, error) {
				return tx.Run(txAdapter{h})
			})
			if outcome.Blocked {
				rt.stmWaiters = append(rt.stmWaiters, stmWaiter{tid: self.id, tvars: outcome.ReadSet})
				self.reason = blockedOnSTM
				return nil, action.ThreadAction{Kind: action.KBlockedSTM, TTrace: outcome.Trace}, false
			}
			rt.wake(woken)
			act := action.ThreadAction{Kind: action.KSTM, TTrace: outcome.Trace, Woken: woken}
			return [2]any{outcome.Value, outcome.Err}, act, true
		},
		cont: func(result any) Instr {
			pair := result.([2]any)
			err, _ := pair[1].(error)
			return k(pair[0], err)
		},
	}
}

// Throw raises err to the nearest enclosing Catch within the same thread,
// resolved through the thread's own scope stack rather than a Go panic
// unwinding a goroutine's call stack.
func Throw(err error) Instr {
	return Instr{
		look: action.Lookahead{Kind: action.LThrow},
		perform: func(rt *Runtime, self *thread) (any, action.ThreadAction, bool) {
			return nil, action.ThreadAction{Kind: action.KThrow}, true
		},
		cont: func(any) Instr { return Return(nil, err) },
	}
}

// Catch runs body in a new scope; if it ends in Return with a non-nil
// error, handler runs instead (in a scope of its own, so a Throw from
// within the handler resolves correctly) and its result becomes the
// scope's result. Catching/PopCatching bracket the scope exactly as they
// did when Catch was implemented with a deferred recover. The scope is
// pushed from inside this step's perform, the one place in the chain that
// is handed the owning thread, and popped by resolveReturns once body (or
// handler) ends in Return — never more than once per logical scope, since
// nothing else on the chain touches the scope stack.
func Catch(body Program, handler func(error) Instr, k func(any, error) Instr) Instr {
	return Instr{
		look: action.Lookahead{Kind: action.LCatching},
		perform: func(rt *Runtime, self *thread) (any, action.ThreadAction, bool) {
			self.scopeStack = append(self.scopeStack, scopeFrame{onReturn: func(t *thread, v any, err error) Instr {
				if err != nil {
					t.scopeStack = append(t.scopeStack, scopeFrame{onReturn: func(t *thread, v any, err error) Instr {
						return popCatching(v, err, k)
					}})
					return handler(err)
				}
				return popCatching(v, err, k)
			}})
			return nil, action.ThreadAction{Kind: action.KCatching}, true
		},
		cont: func(any) Instr { return body() },
	}
}

func popCatching(v any, err error, k func(any, error) Instr) Instr {
	return simple(action.Lookahead{Kind: action.LPopCatching}, func(rt *Runtime, self *thread) action.ThreadAction {
		return action.ThreadAction{Kind: action.KPopCatching}
	}, func() Instr { return k(v, err) })
}

// ThrowTo delivers an asynchronous exception to target (spec.md §4.1): it
// is delivered immediately, terminating target as if by an uncaught
// exception, unless target is uninterruptibly masked, in which case the
// sender blocks (BlockedThrowTo) until target unmasks.
func ThrowTo(target action.ThreadID, err error, k func() Instr) Instr {
	return Instr{
		look: action.Lookahead{Kind: action.LThrowTo, ThrowTarget: target},
		perform: func(rt *Runtime, self *thread) (any, action.ThreadAction, bool) {
			tt := rt.threads[target]
			if tt == nil || tt.finished {
				return nil, action.ThreadAction{Kind: action.KThrowTo, ThrowTarget: target}, true
			}
			if tt.masked() == action.MaskedUninterruptible {
				tt.throwWaiters = append(tt.throwWaiters, pendingThrow{sender: self.id, err: err})
				self.reason = blockedOnThrowTo
				return nil, action.ThreadAction{Kind: action.KBlockedThrowTo, ThrowTarget: target}, false
			}
			rt.deliverKill(tt, err)
			return nil, action.ThreadAction{Kind: action.KThrowTo, ThrowTarget: target}, true
		},
		cont: func(any) Instr { return k() },
	}
}

func SetMasking(interruptible bool, k func() Instr) Instr {
	return simple(action.Lookahead{Kind: action.LSetMasking}, func(rt *Runtime, self *thread) action.ThreadAction {
		state := action.MaskedUninterruptible
		if interruptible {
			state = action.MaskedInterruptible
		}
		self.maskStack = append(self.maskStack, state)
		return action.ThreadAction{Kind: action.KSetMasking, MaskState: state}
	}, k)
}

// ResetMasking pops the mask stack and, if that unmasks target enough for
// a throwWaiter queued against it to be deliverable, wakes every such
// waiter so its retried ThrowTo delivers on its next granted step.
func ResetMasking(k func() Instr) Instr {
	return simple(action.Lookahead{Kind: action.LResetMasking}, func(rt *Runtime, self *thread) action.ThreadAction {
		if len(self.maskStack) > 0 {
			self.maskStack = self.maskStack[:len(self.maskStack)-1]
		}
		state := self.masked()
		if state != action.MaskedUninterruptible && len(self.throwWaiters) > 0 {
			waiters := self.throwWaiters
			self.throwWaiters = nil
			for _, w := range waiters {
				rt.wake([]action.ThreadID{w.sender})
			}
		}
		return action.ThreadAction{Kind: action.KResetMasking, MaskState: state}
	}, k)
}

func LiftIO(f func() any, k func(any) Instr) Instr {
	return Instr{
		look: action.Lookahead{Kind: action.LLiftIO},
		perform: func(rt *Runtime, self *thread) (any, action.ThreadAction, bool) {
			return f(), action.ThreadAction{Kind: action.KLiftIO}, true
		},
		cont: k,
	}
}

// Subconcurrency runs body to completion in isolation (spec.md §4.1): no
// other thread may interleave with it, which requires self to be the only
// live thread and not already nested. Because nothing else can ever run to
// satisfy a blocking wait or a forked sibling, body is driven entirely
// within this step's perform, by a private loop that never touches the
// trace and treats Fork/ThrowTo and any would-block outcome as illegal.
func Subconcurrency(body Program, k func(any, error, error) Instr) Instr {
	return Instr{
		look: action.Lookahead{Kind: action.LSubconcurrency},
		perform: func(rt *Runtime, self *thread) (any, action.ThreadAction, bool) {
			value, innerErr, illegal := runSubconcurrency(rt, self, body)
			return [3]any{value, innerErr, illegal}, action.ThreadAction{Kind: action.KSubconcurrency}, true
		},
		cont: func(result any) Instr {
			triple := result.([3]any)
			return simple(action.Lookahead{Kind: action.LStopSubconcurrency}, func(rt *Runtime, self *thread) action.ThreadAction {
				return action.ThreadAction{Kind: action.KStopSubconcurrency}
			}, func() Instr {
				innerErr, _ := triple[1].(error)
				illegal, _ := triple[2].(error)
				return k(triple[0], innerErr, illegal)
			})
		},
	}
}
