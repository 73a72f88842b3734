// Package sct is the top-level glue (spec.md §6): RunSCT drives a program
// through every schedule the bounded DPOR explorer proposes and returns the
// deduplicated set of outcomes observed, alongside exploration statistics
// and trace rendering for reporting.
package sct

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dendrite-sct/dendrite/action"
	"github.com/dendrite-sct/dendrite/conc"
	"github.com/dendrite-sct/dendrite/dpor"
	"github.com/dendrite-sct/dendrite/resultstore"
	"github.com/dendrite-sct/dendrite/sched"
)

// RunConfig parameterises one RunSCT invocation.
type RunConfig struct {
	MemoryType    action.MemoryType
	Bound         dpor.Bound // nil means dpor.Unbounded{}
	MaxExecutions int        // <=0 defaults to 1000
	Reporter      Reporter   // nil means SilentReporter{}
	RunID         uuid.UUID  // zero means a fresh uuid.New()
}

// Outcome is one distinct result RunSCT observed, paired with the first
// trace that produced it.
type Outcome struct {
	Hash  resultstore.Hash
	Value any
	Fail  *action.Failure
	Trace action.Trace
}

// ResultsSet is the deduplicated collection of outcomes RunSCT observed,
// plus the explorer's running statistics, tagged with the run's
// correlation id the same way production runs in the pack carry one.
type ResultsSet struct {
	RunID    uuid.UUID
	Outcomes []Outcome
	Stats    dpor.Statistics
}

// Failing returns the subset of Outcomes whose execution ended in Failure.
func (rs *ResultsSet) Failing() []Outcome {
	var out []Outcome
	for _, o := range rs.Outcomes {
		if o.Fail != nil {
			out = append(out, o)
		}
	}
	return out
}

// RunSCT drives program through every schedule cfg's bound and execution
// cap permit, recording each execution's outcome and folding races found
// in its trace back into the explorer's schedule tree.
func RunSCT(cfg RunConfig, program conc.Program) *ResultsSet {
	if cfg.MaxExecutions <= 0 {
		cfg.MaxExecutions = 1000
	}
	if cfg.Bound == nil {
		cfg.Bound = dpor.Unbounded{}
	}
	if cfg.Reporter == nil {
		cfg.Reporter = SilentReporter{}
	}
	runID := cfg.RunID
	if runID == uuid.Nil {
		runID = uuid.New()
	}
	logger := log.With().Str("run_id", runID.String()).Logger()

	exp := dpor.NewExplorer(cfg.Bound, cfg.MaxExecutions)
	store := resultstore.NewStore()
	rs := &ResultsSet{RunID: runID}

	for {
		s, ok := exp.NextScheduler(sched.NewRoundRobin())
		if !ok {
			break
		}

		res, trace := conc.Run(cfg.MemoryType, s, program)
		exp.Record(trace)
		if res.Err != nil && res.Err.Kind == action.FAbort {
			exp.NoteAbort()
		}

		hash, fresh, err := store.Put(resultstore.Outcome{Value: res.Value, Fail: resultstore.FromFailure(res.Err)})
		if err != nil {
			logger.Warn().Err(err).Msg("couldn't hash execution outcome, keeping it anyway")
			fresh = true
		}
		if fresh {
			rs.Outcomes = append(rs.Outcomes, Outcome{Hash: hash, Value: res.Value, Fail: res.Err, Trace: trace.Clone()})
			cfg.Reporter.Printf("execution %d: new outcome at depth %d\n", exp.Stats().Executions, len(trace))
		}
		logger.Trace().Int("depth", len(trace)).Bool("fresh", fresh).Msg("execution recorded")
	}

	rs.Stats = exp.Stats()
	logger.Debug().
		Int("executions", rs.Stats.Executions).
		Int("outcomes", len(rs.Outcomes)).
		Msg("RunSCT finished")
	return rs
}
