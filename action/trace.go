package action

// DKind distinguishes how a thread came to run in a given step.
type DKind int

const (
	DStart DKind = iota
	DContinue
	DSwitchTo
)

// Decision records why the scheduler picked the running thread for a step.
type Decision struct {
	Kind DKind
	Tid  ThreadID // meaningful for DStart and DSwitchTo
}

func StartDecision(tid ThreadID) Decision    { return Decision{Kind: DStart, Tid: tid} }
func ContinueDecision() Decision             { return Decision{Kind: DContinue} }
func SwitchToDecision(tid ThreadID) Decision { return Decision{Kind: DSwitchTo, Tid: tid} }

// RunnableThread is one entry in the lookahead set offered to the
// scheduler at a step.
type RunnableThread struct {
	Tid       ThreadID
	Lookahead Lookahead
}

// Step is one entry of a full execution Trace.
type Step struct {
	Decision  Decision
	Runnable  []RunnableThread
	Action    ThreadAction
}

// Trace is the ordered sequence of steps produced by one execution.
type Trace []Step

// Clone performs a shallow copy sufficient for storing a trace once an
// execution has finished (the runtime never mutates steps after appending
// them, but the explorer materialises traces into its own tree nodes and
// must not alias the runtime's backing array).
func (t Trace) Clone() Trace {
	out := make(Trace, len(t))
	copy(out, t)
	return out
}
