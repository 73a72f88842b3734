package action

// AType is the coarse classification the DPOR explorer reasons about for
// dependency (spec.md §3, §4.3).
type AType int

const (
	AUnsynchronisedRead AType = iota
	AUnsynchronisedWrite
	AUnsynchronisedOther
	APartiallySynchronisedCommit
	APartiallySynchronisedWrite
	APartiallySynchronisedModify
	ASynchronisedModify
	ASynchronisedRead
	ASynchronisedWrite
	ASynchronisedOther
)

// ActionType pairs the coarse classification with the resource it touches,
// when applicable.
type ActionType struct {
	Type AType
	CRef CRefID
	MVar MVarID
}

// SameResource reports whether two ActionTypes refer to the same
// cell/blockvar, used by the dependency relation.
func (t ActionType) SameResource(o ActionType) bool {
	switch t.Type {
	case AUnsynchronisedRead, AUnsynchronisedWrite, APartiallySynchronisedCommit,
		APartiallySynchronisedWrite, APartiallySynchronisedModify, ASynchronisedModify:
		switch o.Type {
		case AUnsynchronisedRead, AUnsynchronisedWrite, APartiallySynchronisedCommit,
			APartiallySynchronisedWrite, APartiallySynchronisedModify, ASynchronisedModify:
			return t.CRef == o.CRef
		}
		return false
	case ASynchronisedRead, ASynchronisedWrite:
		switch o.Type {
		case ASynchronisedRead, ASynchronisedWrite:
			return t.MVar == o.MVar
		}
		return false
	}
	return false
}

// SimplifyLookahead derives an ActionType from a Lookahead.
func SimplifyLookahead(l Lookahead) ActionType {
	switch l.Kind {
	case LReadCRef, LReadCRefCas:
		return ActionType{Type: AUnsynchronisedRead, CRef: l.CRef}
	case LWriteCRef:
		return ActionType{Type: AUnsynchronisedWrite, CRef: l.CRef}
	case LCommitCRef:
		return ActionType{Type: APartiallySynchronisedCommit, CRef: l.CRef}
	case LCasCRef:
		return ActionType{Type: APartiallySynchronisedWrite, CRef: l.CRef}
	case LModCRef, LModCRefCas:
		return ActionType{Type: ASynchronisedModify, CRef: l.CRef}
	case LNewCRef, LNewMVar, LFork, LMyThreadId, LGetNumCapabilities,
		LSetNumCapabilities, LYield, LCatching, LPopCatching, LThrow,
		LSetMasking, LResetMasking, LLiftIO, LReturn, LStop,
		LSubconcurrency, LStopSubconcurrency:
		return ActionType{Type: AUnsynchronisedOther}
	case LReadMVar, LTryReadMVar, LTakeMVar, LTryTakeMVar:
		return ActionType{Type: ASynchronisedRead, MVar: l.MVar}
	case LPutMVar, LTryPutMVar:
		return ActionType{Type: ASynchronisedWrite, MVar: l.MVar}
	case LSTM, LThrowTo:
		return ActionType{Type: ASynchronisedOther}
	}
	return ActionType{Type: AUnsynchronisedOther}
}

// SimplifyAction derives an ActionType from a committed ThreadAction by
// classifying its rewound Lookahead, so outcome information the Lookahead
// lacks plays no part (e.g. a failed CasCRef is still a partially
// synchronised write for dependency purposes — CAS failure does not change
// the classification, only whether the operation had an effect). Killed,
// which has no Lookahead, classifies as UnsynchronisedOther.
func SimplifyAction(a ThreadAction) ActionType {
	l, ok := Rewind(a)
	if !ok {
		return ActionType{Type: AUnsynchronisedOther}
	}
	return SimplifyLookahead(l)
}
