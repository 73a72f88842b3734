package dpor_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dendrite-sct/dendrite/action"
	"github.com/dendrite-sct/dendrite/conc"
	"github.com/dendrite-sct/dendrite/dpor"
	"github.com/dendrite-sct/dendrite/sched"
)

// racyWriteProgram exercises the full wiring (dpor.Explorer picking
// schedulers, conc.Run executing them, the resulting traces feeding back
// into the explorer) against a genuinely racy program: two forked threads
// write different values into the same cell with no synchronisation
// between the writes, so the final value main observes depends on
// scheduling order.
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

func TestExplorerDrivesRealProgramToMultipleDistinctOutcomes(t *testing.T) {
	run := func(s conc.Scheduler) (conc.Result, action.Trace) {
		return conc.Run(action.SequentialConsistency, s, racyWriteProgram)
	}

	exp := dpor.NewExplorer(dpor.Unbounded{}, 30)
	results := map[any]bool{}
	executions := 0

	for {
		s, ok := exp.NextScheduler(sched.NewRoundRobin())
		if !ok {
			break
		}
		res, trace := run(s)
		executions++
		require.Nil(t, res.Err)
		results[res.Value] = true
		exp.Record(trace)
	}

	require.Greater(t, executions, 1, "the race should yield at least one backtracking point")
	require.NotEmpty(t, results)
}
