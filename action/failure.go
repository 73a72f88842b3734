package action

// FailureKind enumerates the Failure taxonomy of spec.md §7.
type FailureKind int

const (
	FInternalError FailureKind = iota
	FAbort
	FDeadlock
	FSTMDeadlock
	FUncaughtException
	FIllegalSubconcurrency
)

// Failure is a terminal, non-Ok outcome of one execution.
type Failure struct {
	Kind FailureKind
	// Err carries the underlying user exception for FUncaughtException, or
	// additional detail for FInternalError.
	Err error
}

func (f *Failure) Error() string {
	switch f.Kind {
	case FInternalError:
		msg := "internal error: scheduler violated an invariant"
		if f.Err != nil {
			msg += ": " + f.Err.Error()
		}
		return msg
	case FAbort:
		return "aborted: bound exceeded or scheduler returned no thread"
	case FDeadlock:
		return "deadlock: all live threads blocked on blocking variables"
	case FSTMDeadlock:
		return "stm-deadlock: blocked in transaction with no writer of observed tvars"
	case FUncaughtException:
		msg := "uncaught exception"
		if f.Err != nil {
			msg += ": " + f.Err.Error()
		}
		return msg
	case FIllegalSubconcurrency:
		return "illegal subconcurrency: nesting or multi-thread precondition violated"
	}
	return "unknown failure"
}

// Tag renders the [bracket] notation of spec.md §6.
func (f *Failure) Tag() string {
	switch f.Kind {
	case FInternalError:
		return "[internal-error]"
	case FAbort:
		return "[abort]"
	case FDeadlock:
		return "[deadlock]"
	case FSTMDeadlock:
		return "[stm-deadlock]"
	case FUncaughtException:
		return "[exception]"
	case FIllegalSubconcurrency:
		return "[illegal-subconcurrency]"
	}
	return "[unknown]"
}

func NewFailure(kind FailureKind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}
