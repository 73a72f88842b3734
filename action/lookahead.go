package action

// LKind mirrors Kind but collapses outcome-dependent variants into a single
// "will" form: WillPutMVar covers both a successful and a blocking put.
type LKind int

const (
	LFork LKind = iota
	LMyThreadId
	LGetNumCapabilities
	LSetNumCapabilities
	LYield

	LNewCRef
	LReadCRef
	LReadCRefCas
	LModCRef
	LModCRefCas
	LWriteCRef
	LCasCRef
	LCommitCRef

	LNewMVar
	LPutMVar
	LReadMVar
	LTakeMVar
	LTryPutMVar
	LTryReadMVar
	LTryTakeMVar

	LSTM

	LCatching
	LPopCatching
	LThrow
	LThrowTo
	LSetMasking
	LResetMasking

	LLiftIO

	LReturn
	LStop

	LSubconcurrency
	LStopSubconcurrency
)

// Lookahead describes what a thread is about to do without committing to
// the outcome of a blocking operation.
type Lookahead struct {
	Kind LKind

	CRef        CRefID
	MVar        MVarID
	ThrowTarget ThreadID
}

// Rewind is the total function from ThreadAction (excluding Killed, which
// has no lookahead form) to its Lookahead. simplifyLookahead(Rewind(a)) must
// equal simplifyAction(a) for every such a (checked by TestRewindRoundTrip).
func Rewind(a ThreadAction) (Lookahead, bool) {
	switch a.Kind {
	case KFork:
		return Lookahead{Kind: LFork}, true
	case KMyThreadId:
		return Lookahead{Kind: LMyThreadId}, true
	case KGetNumCapabilities:
		return Lookahead{Kind: LGetNumCapabilities}, true
	case KSetNumCapabilities:
		return Lookahead{Kind: LSetNumCapabilities}, true
	case KYield:
		return Lookahead{Kind: LYield}, true
	case KNewCRef:
		return Lookahead{Kind: LNewCRef}, true
	case KReadCRef:
		return Lookahead{Kind: LReadCRef, CRef: a.CRef}, true
	case KReadCRefCas:
		return Lookahead{Kind: LReadCRefCas, CRef: a.CRef}, true
	case KModCRef:
		return Lookahead{Kind: LModCRef, CRef: a.CRef}, true
	case KModCRefCas:
		return Lookahead{Kind: LModCRefCas, CRef: a.CRef}, true
	case KWriteCRef:
		return Lookahead{Kind: LWriteCRef, CRef: a.CRef}, true
	case KCasCRef:
		return Lookahead{Kind: LCasCRef, CRef: a.CRef}, true
	case KCommitCRef:
		return Lookahead{Kind: LCommitCRef, CRef: a.CommitCRef}, true
	case KNewMVar:
		return Lookahead{Kind: LNewMVar}, true
	case KPutMVar, KBlockedPutMVar:
		return Lookahead{Kind: LPutMVar, MVar: a.MVar}, true
	case KTryPutMVar:
		return Lookahead{Kind: LTryPutMVar, MVar: a.MVar}, true
	case KReadMVar, KBlockedReadMVar:
		return Lookahead{Kind: LReadMVar, MVar: a.MVar}, true
	case KTryReadMVar:
		return Lookahead{Kind: LTryReadMVar, MVar: a.MVar}, true
	case KTakeMVar, KBlockedTakeMVar:
		return Lookahead{Kind: LTakeMVar, MVar: a.MVar}, true
	case KTryTakeMVar:
		return Lookahead{Kind: LTryTakeMVar, MVar: a.MVar}, true
	case KSTM, KBlockedSTM:
		return Lookahead{Kind: LSTM}, true
	case KCatching:
		return Lookahead{Kind: LCatching}, true
	case KPopCatching:
		return Lookahead{Kind: LPopCatching}, true
	case KThrow:
		return Lookahead{Kind: LThrow}, true
	case KThrowTo, KBlockedThrowTo:
		return Lookahead{Kind: LThrowTo, ThrowTarget: a.ThrowTarget}, true
	case KSetMasking:
		return Lookahead{Kind: LSetMasking}, true
	case KResetMasking:
		return Lookahead{Kind: LResetMasking}, true
	case KLiftIO:
		return Lookahead{Kind: LLiftIO}, true
	case KReturn:
		return Lookahead{Kind: LReturn}, true
	case KStop:
		return Lookahead{Kind: LStop}, true
	case KSubconcurrency:
		return Lookahead{Kind: LSubconcurrency}, true
	case KStopSubconcurrency:
		return Lookahead{Kind: LStopSubconcurrency}, true
	case KKilled:
		return Lookahead{}, false
	}
	return Lookahead{}, false
}
