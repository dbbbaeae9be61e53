package consensuslog

import (
	"testing"

	"github.com/stretchr/testify/require"
	"kvraft/internal/message"
)

func TestEmptyLogStartup(t *testing.T) {
	l := New()
	require.Equal(t, -1, l.LastIndex())
	require.Equal(t, message.Term(0), l.LastTerm())
	require.Equal(t, -1, l.CommitIndex())
}

func TestAppendAndSlice(t *testing.T) {
	l := New()
	l.Append(Entry{Term: 1, Command: "SET x 1"})
	l.Append(Entry{Term: 1, Command: "SET y 1"})
	idx := l.Append(Entry{Term: 2, Command: "SET z 1"})

	require.Equal(t, 2, idx)
	require.Equal(t, 3, l.Len())
	require.Equal(t, message.Term(2), l.LastTerm())

	tail := l.Slice(1)
	require.Len(t, tail, 2)
	require.Equal(t, "SET y 1", tail[0].Command)
}

// S2: divergent suffix truncation.
func TestReplaceSuffixTruncatesOnDivergence(t *testing.T) {
	l := New()
	l.Append(Entry{Term: 1, Command: "set x 100"})
	l.Append(Entry{Term: 1, Command: "set y 100"})
	l.Append(Entry{Term: 2, Command: "set z 100"})

	l.ReplaceSuffix(2, []Entry{
		{Term: 2, Command: "set z 105"},
		{Term: 2, Command: "set m 65"},
	})

	require.Equal(t, 4, l.Len())
	require.Equal(t, "set x 100", l.At(0).Command)
	require.Equal(t, "set y 100", l.At(1).Command)
	require.Equal(t, "set z 105", l.At(2).Command)
	require.Equal(t, "set m 65", l.At(3).Command)
	require.Equal(t, 3, l.LastIndex())
}

func TestAdvanceCommitIndexMonotonic(t *testing.T) {
	l := New()
	require.True(t, l.AdvanceCommitIndex(2))
	require.Equal(t, 2, l.CommitIndex())
	require.False(t, l.AdvanceCommitIndex(1))
	require.Equal(t, 2, l.CommitIndex())
	require.True(t, l.AdvanceCommitIndex(5))
}

func TestMatchesAt(t *testing.T) {
	l := New()
	l.Append(Entry{Term: 1, Command: "x"})
	require.True(t, l.MatchesAt(0, 1))
	require.False(t, l.MatchesAt(0, 2))
	require.False(t, l.MatchesAt(5, 1))
	require.False(t, l.MatchesAt(-1, 1))
}
