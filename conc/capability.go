// Package conc is the concurrency runtime (spec.md §4.1): a single-threaded,
// cooperative interpreter of user computations built out of the free
// functions in instr.go. A computation is data — an Instr chain — not a
// running function: the runtime advances exactly one thread's chain by one
// link per granted step, via a plain function call (stepThread in runtime.go),
// and never itself executes a second goroutine, channel, or other host
// concurrency primitive to represent a logical thread (spec.md §5, §9).
// This is the direct analogue of the teacher's own single-threaded, switch-
// driven interpreter step function, generalised from a fixed instruction
// set to a chain of closures so that a thread can suspend at any primitive
// capability call instead of only at statement boundaries.
package conc

import (
	"github.com/dendrite-sct/dendrite/action"
)

// CRef is a handle to a mutable cell with relaxed-memory semantics.
type CRef struct {
	id action.CRefID
	rt *Runtime
}

func (c CRef) ID() action.CRefID { return c.id }

// MVar is a handle to a single-slot blocking variable.
type MVar struct {
	id action.MVarID
	rt *Runtime
}

func (m MVar) ID() action.MVarID { return m.id }

// CASTicket is the implicit ticket returned by ReadCRefCAS.
type CASTicket struct {
	generation uint64
	cref       action.CRefID
}

// Transaction is the capability-level view of an STM computation; the
// concrete interpreter lives in package stm to avoid a cycle between conc
// and stm (conc.Atomically needs to run a transaction; stm needs tvar
// storage that conc also owns). Runtime implements stm.Store and passes
// itself to the stm engine at Atomically time.
type Transaction interface {
	Run(tx TxHandle) (any, error)
}

// TxHandle is the capability a Transaction body is written against.
type TxHandle interface {
	NewTVar(name string, initial any) action.TVarID
	ReadTVar(id action.TVarID) any
	WriteTVar(id action.TVarID, v any)
	Retry()
	OrElse(left, right func(TxHandle) (any, error)) (any, error)
	CatchSTM(body func(TxHandle) (any, error), handler func(TxHandle, error) (any, error)) (any, error)
}
