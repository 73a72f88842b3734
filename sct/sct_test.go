package sct

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dendrite-sct/dendrite/action"
	"github.com/dendrite-sct/dendrite/conc"
	"github.com/dendrite-sct/dendrite/dpor"
)

// racyWriteProgram forks two writers into the same cell with no
// synchronisation between the writes, so the final value main observes
// depends on which writer the scheduler lets go last.
func racyWriteProgram() conc.Instr {
	return conc.NewCRef("x", 0, func(cell conc.CRef) conc.Instr {
		return conc.NewMVar("d1", nil, false, func(done1 conc.MVar) conc.Instr {
			return conc.NewMVar("d2", nil, false, func(done2 conc.MVar) conc.Instr {
				return conc.Fork("writer1", func() conc.Instr {
					return conc.WriteCRef(cell, 1, func() conc.Instr {
						return conc.PutMVar(done1, struct{}{}, func() conc.Instr {
							return conc.Return(nil, nil)
						})
					})
				}, func(action.ThreadID) conc.Instr {
					return conc.Fork("writer2", func() conc.Instr {
						return conc.WriteCRef(cell, 2, func() conc.Instr {
							return conc.PutMVar(done2, struct{}{}, func() conc.Instr {
								return conc.Return(nil, nil)
							})
						})
					}, func(action.ThreadID) conc.Instr {
						return conc.TakeMVar(done1, func(any) conc.Instr {
							return conc.TakeMVar(done2, func(any) conc.Instr {
								return conc.ReadCRef(cell, func(v any) conc.Instr {
									return conc.Return(v, nil)
								})
							})
						})
					})
				})
			})
		})
	})
}

// deadlockMVarProgram takes from an MVar that is never put to.
func deadlockMVarProgram() conc.Instr {
	return conc.NewMVar("box", nil, false, func(mv conc.MVar) conc.Instr {
		return conc.TakeMVar(mv, func(v any) conc.Instr {
			return conc.Return(v, nil)
		})
	})
}

func TestRunSCTDeduplicatesOutcomesOfARacyProgram(t *testing.T) {
	rs := RunSCT(RunConfig{MemoryType: action.SequentialConsistency, MaxExecutions: 30}, racyWriteProgram)

	require.NotEqual(t, uuid.Nil, rs.RunID)
	require.Greater(t, rs.Stats.Executions, 1)
	require.NotEmpty(t, rs.Outcomes)
	require.Empty(t, rs.Failing(), "this program never blocks or throws")
}

func TestRunSCTReportsDeadlockAsAFailingOutcome(t *testing.T) {
	rs := RunSCT(RunConfig{MemoryType: action.SequentialConsistency, MaxExecutions: 5}, deadlockMVarProgram)

	require.Len(t, rs.Outcomes, 1)
	require.NotNil(t, rs.Outcomes[0].Fail)
	require.Equal(t, action.FDeadlock, rs.Outcomes[0].Fail.Kind)
	require.Len(t, rs.Failing(), 1)
}

func TestRunSCTRespectsLengthBoundAndNotesAborts(t *testing.T) {
	program := func() conc.Instr {
		return conc.NewCRef("x", 0, func(cell conc.CRef) conc.Instr {
			var loop func(i int) conc.Instr
			loop = func(i int) conc.Instr {
				if i >= 50 {
					return conc.ReadCRef(cell, func(v any) conc.Instr { return conc.Return(v, nil) })
				}
				return conc.WriteCRef(cell, i, func() conc.Instr { return loop(i + 1) })
			}
			return loop(0)
		})
	}

	rs := RunSCT(RunConfig{
		MemoryType:    action.SequentialConsistency,
		Bound:         dpor.LengthBound(3),
		MaxExecutions: 5,
	}, program)

	require.Len(t, rs.Outcomes, 1)
	require.NotNil(t, rs.Outcomes[0].Fail)
	require.Equal(t, action.FAbort, rs.Outcomes[0].Fail.Kind)
	require.Equal(t, 1, rs.Stats.LengthAborts)
}
