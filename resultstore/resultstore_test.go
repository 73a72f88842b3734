package resultstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dendrite-sct/dendrite/action"
)

func TestPutDedupesIdenticalOutcomes(t *testing.T) {
	s := NewStore()
	h1, first1, err := s.Put(Outcome{Value: 42})
	require.NoError(t, err)
	require.True(t, first1)

	h2, first2, err := s.Put(Outcome{Value: 42})
	require.NoError(t, err)
	require.False(t, first2)
	require.Equal(t, h1, h2)
	require.Equal(t, 1, s.Len())
}

func TestPutDistinguishesDifferentOutcomes(t *testing.T) {
	s := NewStore()
	h1, _, err := s.Put(Outcome{Value: 1})
	require.NoError(t, err)
	h2, _, err := s.Put(Outcome{Value: 2})
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)
	require.Equal(t, 2, s.Len())
}

func TestGetRoundTripsFailureRecord(t *testing.T) {
	s := NewStore()
	fail := FromFailure(action.NewFailure(action.FDeadlock, nil))
	h, _, err := s.Put(Outcome{Fail: fail})
	require.NoError(t, err)

	got, ok, err := s.Get(h)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, action.FDeadlock, got.Fail.Kind)
}

func TestFingerprintPrefixIsStableAndOrderSensitive(t *testing.T) {
	a := action.ThreadID{ID: action.ID{Name: "a", Num: 0}}
	b := action.ThreadID{ID: action.ID{Name: "b", Num: 1}}

	h1 := FingerprintPrefix([]action.ThreadID{a, b})
	h2 := FingerprintPrefix([]action.ThreadID{a, b})
	h3 := FingerprintPrefix([]action.ThreadID{b, a})
	require.Equal(t, h1, h2)
	require.NotEqual(t, h1, h3)
}
