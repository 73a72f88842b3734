package conc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dendrite-sct/dendrite/action"
)

// fifoSched always runs the first runnable thread offered, which given
// runnableSnapshot's stable ordering makes every test below deterministic
// without needing the DPOR explorer.
type fifoSched struct{}

func (fifoSched) Next(trace action.Trace, prior *action.ThreadID, runnable []action.RunnableThread) (action.ThreadID, bool) {
	if len(runnable) == 0 {
		return action.ThreadID{}, false
	}
	return runnable[0].Tid, true
}

func TestMainReturnsValue(t *testing.T) {
	res, _ := Run(action.SequentialConsistency, fifoSched{}, func() Instr {
		return Return(42, nil)
	})
	require.Nil(t, res.Err)
	require.Equal(t, 42, res.Value)
}

func TestForkAndMVarHandoff(t *testing.T) {
	res, _ := Run(action.SequentialConsistency, fifoSched{}, func() Instr {
		return NewMVar("box", nil, false, func(mv MVar) Instr {
			return Fork("writer", func() Instr {
				return PutMVar(mv, "hello", func() Instr { return Return(nil, nil) })
			}, func(action.ThreadID) Instr {
				return TakeMVar(mv, func(v any) Instr { return Return(v, nil) })
			})
		})
	})
	require.Nil(t, res.Err)
	require.Equal(t, "hello", res.Value)
}

func TestTakeMVarOnEmptyWithNoWriterDeadlocks(t *testing.T) {
	res, _ := Run(action.SequentialConsistency, fifoSched{}, func() Instr {
		return NewMVar("box", nil, false, func(mv MVar) Instr {
			return TakeMVar(mv, func(v any) Instr { return Return(v, nil) })
		})
	})
	require.NotNil(t, res.Err)
	require.Equal(t, action.FDeadlock, res.Err.Kind)
}

func TestCatchRecoversFromSelfThrow(t *testing.T) {
	boom := errors.New("boom")
	res, _ := Run(action.SequentialConsistency, fifoSched{}, func() Instr {
		return Catch(
			func() Instr { return Throw(boom) },
			func(err error) Instr { return Return(err.Error(), nil) },
			func(v any, err error) Instr { return Return(v, err) },
		)
	})
	require.Nil(t, res.Err)
	require.Equal(t, "boom", res.Value)
}

func TestUncaughtThrowPropagatesAsFailure(t *testing.T) {
	boom := errors.New("boom")
	res, _ := Run(action.SequentialConsistency, fifoSched{}, func() Instr {
		return Throw(boom)
	})
	require.NotNil(t, res.Err)
	require.Equal(t, action.FUncaughtException, res.Err.Kind)
}

func TestWriteThenReadCRefUnderSC(t *testing.T) {
	res, _ := Run(action.SequentialConsistency, fifoSched{}, func() Instr {
		return NewCRef("x", 0, func(r CRef) Instr {
			return WriteCRef(r, 7, func() Instr {
				return ReadCRef(r, func(v any) Instr { return Return(v, nil) })
			})
		})
	})
	require.Nil(t, res.Err)
	require.Equal(t, 7, res.Value)
}

func TestAtomicallyRetryWakesOnCommit(t *testing.T) {
	res, _ := Run(action.SequentialConsistency, fifoSched{}, func() Instr {
		var tv action.TVarID
		return Atomically(txFunc(func(h TxHandle) (any, error) {
			tv = h.NewTVar("flag", 0)
			return nil, nil
		}), func(any, error) Instr {
			return Fork("writer", func() Instr {
				return Atomically(txFunc(func(h TxHandle) (any, error) {
					h.WriteTVar(tv, 1)
					return nil, nil
				}), func(any, error) Instr { return Return(nil, nil) })
			}, func(action.ThreadID) Instr {
				return Atomically(txFunc(func(h TxHandle) (any, error) {
					v := h.ReadTVar(tv)
					if v.(int) == 0 {
						h.Retry()
					}
					return v, nil
				}), func(v any, err error) Instr { return Return(v, err) })
			})
		})
	})
	require.Nil(t, res.Err)
	require.Equal(t, 1, res.Value)
}

type txFunc func(TxHandle) (any, error)

func (f txFunc) Run(tx TxHandle) (any, error) { return f(tx) }
