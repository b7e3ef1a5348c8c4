package mutation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_SingleReplacement(t *testing.T) {
	content := "line one\nline two\nline three"
	m := Mutation{Replacements: []Replacement{{LineNumber: 2, Find: "two", Replace: "TWO"}}}

	out, ok := Apply(content, m)
	require.True(t, ok)
	assert.Equal(t, "line one\nline TWO\nline three", out)
}

func TestApply_MultipleReplacementsAreOrderIndependent(t *testing.T) {
	content := "a\nb\nc\nd\ne"
	forward := Mutation{Replacements: []Replacement{
		{LineNumber: 2, Find: "b", Replace: "B"},
		{LineNumber: 4, Find: "d", Replace: "D"},
	}}
	reversed := Mutation{Replacements: []Replacement{
		{LineNumber: 4, Find: "d", Replace: "D"},
		{LineNumber: 2, Find: "b", Replace: "B"},
	}}

	out1, ok1 := Apply(content, forward)
	out2, ok2 := Apply(content, reversed)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, out1, out2)
	assert.Equal(t, "a\nB\nc\nD\ne", out1)
}

func TestApply_DescendingOrderPreservesEarlierLineNumbers(t *testing.T) {
	// A replacement that inserts newlines into an earlier line would shift
	// every later line number if applied first; descending order means
	// the earlier line is rewritten last, after later lines are already
	// resolved by content rather than stale indices.
	content := "short\ntarget\nother"
	m := Mutation{Replacements: []Replacement{
		{LineNumber: 1, Find: "short", Replace: "short\nextra"},
		{LineNumber: 2, Find: "target", Replace: "TARGET"},
	}}

	out, ok := Apply(content, m)
	require.True(t, ok)
	assert.Contains(t, out, "TARGET")
	assert.Contains(t, out, "extra")
}

func TestApply_MissingFindFails(t *testing.T) {
	content := "alpha\nbeta\ngamma"
	m := Mutation{Replacements: []Replacement{{LineNumber: 2, Find: "nonexistent", Replace: "x"}}}

	_, ok := Apply(content, m)
	assert.False(t, ok)
}

func TestApply_FallsBackToNearbyLineWhenHintDrifted(t *testing.T) {
	content := "one\ntwo\nthree\nfour\nfive"
	// find text actually sits on line 3, hint says line 2 (drift of 1)
	m := Mutation{Replacements: []Replacement{{LineNumber: 2, Find: "three", Replace: "THREE"}}}

	out, ok := Apply(content, m)
	require.True(t, ok)
	assert.Equal(t, "one\ntwo\nTHREE\nfour\nfive", out)
}
