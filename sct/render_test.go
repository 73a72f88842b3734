package sct

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dendrite-sct/dendrite/action"
)

func TestRenderTraceCompactNotation(t *testing.T) {
	writer := action.ThreadID{ID: action.ID{Name: "writer", Num: 1}}
	runnable := []action.RunnableThread{{Tid: action.MainThread}, {Tid: writer}}

	trace := action.Trace{
		{Decision: action.StartDecision(action.MainThread), Runnable: runnable,
			Action: action.ThreadAction{Kind: action.KFork, ForkedThread: writer}},
		{Decision: action.SwitchToDecision(writer), Runnable: runnable,
			Action: action.ThreadAction{Kind: action.KWriteCRef}},
		{Decision: action.ContinueDecision(), Runnable: runnable,
			Action: action.ThreadAction{Kind: action.KStop}},
	}

	out := RenderTrace(trace, false)
	lines := strings.SplitN(out, "\n", 2)
	require.Equal(t, "S0- P1- -", lines[0])
	require.Equal(t, "1=writer", lines[1])
}

func TestRenderTraceCommitStep(t *testing.T) {
	commit := action.ThreadID{ID: action.ID{Name: "commit:writer", Num: -1}}
	trace := action.Trace{
		{Decision: action.StartDecision(commit), Action: action.ThreadAction{Kind: action.KCommitCRef}},
	}
	require.Equal(t, "C-", RenderTrace(trace, false))
}

func TestRenderTraceDetailsIncludesPerStepLines(t *testing.T) {
	trace := action.Trace{
		{Decision: action.StartDecision(action.MainThread), Action: action.ThreadAction{Kind: action.KStop}},
	}
	out := RenderTrace(trace, true)
	require.Contains(t, out, "thread=main")
	require.Contains(t, out, "action=Stop")
}

func TestRenderFailure(t *testing.T) {
	require.Equal(t, "ok", RenderFailure(nil))
	require.Equal(t, "[deadlock]", RenderFailure(action.NewFailure(action.FDeadlock, nil)))
}
