package action

// TAction is one step of a transaction's interpreter trace (spec.md §3,
// §4.4). TOrElse and TCatch record the branch actually taken; the other
// branch is nil.
type TKind int

const (
	TNew TKind = iota
	TRead
	TWrite
	TRetry
	TOrElse
	TThrow
	TCatch
	TStop
)

type TAction struct {
	Kind TKind

	TVar TVarID // TNew, TRead, TWrite

	// TOrElse
	Left  TTrace
	Right TTrace // nil if the left branch committed

	// TCatch
	Body    TTrace
	Handler TTrace // nil if no exception was thrown in Body
}

// TTrace is an ordered sequence of transaction sub-actions.
type TTrace []TAction

// TVars returns the set of tvars touched anywhere in the trace, including
// nested OrElse/Catch branches, deduplicated but unordered.
func (t TTrace) TVars() []TVarID {
	seen := map[TVarID]bool{}
	var out []TVarID
	var walk func(TTrace)
	walk = func(tr TTrace) {
		for _, a := range tr {
			switch a.Kind {
			case TRead, TWrite, TNew:
				if !seen[a.TVar] {
					seen[a.TVar] = true
					out = append(out, a.TVar)
				}
			case TOrElse:
				walk(a.Left)
				walk(a.Right)
			case TCatch:
				walk(a.Body)
				walk(a.Handler)
			}
		}
	}
	walk(t)
	return out
}

// Writes returns the set of tvars written anywhere in the trace.
func (t TTrace) Writes() []TVarID {
	seen := map[TVarID]bool{}
	var out []TVarID
	var walk func(TTrace)
	walk = func(tr TTrace) {
		for _, a := range tr {
			switch a.Kind {
			case TWrite:
				if !seen[a.TVar] {
					seen[a.TVar] = true
					out = append(out, a.TVar)
				}
			case TOrElse:
				walk(a.Left)
				walk(a.Right)
			case TCatch:
				walk(a.Body)
				walk(a.Handler)
			}
		}
	}
	walk(t)
	return out
}
