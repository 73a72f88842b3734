package scenario

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dendrite-sct/dendrite/action"
	"github.com/dendrite-sct/dendrite/dpor"
)

const sample = `
[scenario]
name = "racy counter"
memory_model = "tso"
max_executions = 50
preemption_bound = 2

[properties.no_lost_update]
expr = "counter == 2"
`

func TestParseReadsScenarioAndProperties(t *testing.T) {
	s, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.Equal(t, "racy counter", s.Scenario.Name)
	require.Equal(t, 50, s.Scenario.MaxExecutions)
	require.Equal(t, "counter == 2", s.Properties["no_lost_update"].Expr)
}

func TestMemoryTypeResolvesKnownNames(t *testing.T) {
	s, err := Parse([]byte(sample))
	require.NoError(t, err)
	mt, err := s.MemoryType()
	require.NoError(t, err)
	require.Equal(t, action.TotalStoreOrder, mt)
}

func TestMemoryTypeRejectsUnknownName(t *testing.T) {
	s, err := Parse([]byte("[scenario]\nmemory_model = \"bogus\"\n"))
	require.NoError(t, err)
	_, err = s.MemoryType()
	require.Error(t, err)
}

func TestBoundComposesConfiguredAxes(t *testing.T) {
	s, err := Parse([]byte(sample))
	require.NoError(t, err)
	and, ok := s.Bound().(dpor.And)
	require.True(t, ok)
	require.Len(t, and, 1) // only preemption_bound was set in sample
}

func TestBoundIsUnboundedWhenNoAxisConfigured(t *testing.T) {
	s, err := Parse([]byte("[scenario]\nname = \"x\"\n"))
	require.NoError(t, err)
	require.Equal(t, dpor.Unbounded{}, s.Bound())
}

func TestMaxExecutionsDefaultsWhenUnset(t *testing.T) {
	s, err := Parse([]byte("[scenario]\nname = \"x\"\n"))
	require.NoError(t, err)
	require.Equal(t, 1000, s.MaxExecutions())
}

func TestMatchesExpectedFailure(t *testing.T) {
	s, err := Parse([]byte("[scenario]\nexpected_failure = \"deadlock\"\n"))
	require.NoError(t, err)
	require.True(t, s.MatchesExpectedFailure(action.NewFailure(action.FDeadlock, nil)))
	require.False(t, s.MatchesExpectedFailure(action.NewFailure(action.FAbort, nil)))
	require.False(t, s.MatchesExpectedFailure(nil))
}

func TestMatchesExpectedFailureNoneExpectedMeansSuccess(t *testing.T) {
	s, err := Parse([]byte("[scenario]\nname = \"x\"\n"))
	require.NoError(t, err)
	require.True(t, s.MatchesExpectedFailure(nil))
	require.False(t, s.MatchesExpectedFailure(action.NewFailure(action.FDeadlock, nil)))
}
