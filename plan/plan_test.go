// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package plan

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/quadvote/quadratic"
)

const offsite = `
credits: 25
choices: [mountains, beach, city]
steps:
  - choice: mountains
    votes: 4
  - choice: beach
    direction: increase
  - choice: beach
    direction: increase
  - choice: beach
    direction: increase
  - choice: city
    direction: increase
  - choice: city
    direction: decrease
  - choice: city
    direction: decrease
  - choice: lake
    direction: increase
  - choice: mountains
    votes: 0
`

func TestLoad(t *testing.T) {
	p, err := Load(strings.NewReader(offsite))
	require.NoError(t, err)
	require.Equal(t, 25, p.Credits)
	require.Equal(t, []string{"mountains", "beach", "city"}, p.Choices)
	require.Len(t, p.Steps, 9)
	require.NotNil(t, p.Steps[0].Votes)
	require.Equal(t, 4, *p.Steps[0].Votes)
	require.Equal(t, "increase", p.Steps[1].Direction)
	require.NotNil(t, p.Steps[8].Votes)
	require.Zero(t, *p.Steps[8].Votes)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"unknown key", "credits: 4\nchoices: [a]\nbudget: 3\n"},
		{"both kinds", "credits: 4\nchoices: [a]\nsteps:\n  - choice: a\n    votes: 1\n    direction: increase\n"},
		{"neither kind", "credits: 4\nchoices: [a]\nsteps:\n  - choice: a\n"},
		{"not yaml", "credits: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.doc))
			require.Error(t, err)
		})
	}
}

func TestRun(t *testing.T) {
	p, err := Load(strings.NewReader(offsite))
	require.NoError(t, err)

	report, err := Run(p)
	require.NoError(t, err)
	require.Len(t, report.Steps, len(p.Steps))

	// mountains 4 (16), beach 3 (9): the city vote no longer fits
	wantAccepted := []bool{true, true, true, true, false, false, false, false, true}
	wantRemaining := []int{9, 8, 5, 0, 0, 0, 0, 0, 16}
	for i, s := range report.Steps {
		require.Equal(t, wantAccepted[i], s.Accepted, "step %d (%s)", i+1, s.Step)
		require.Equal(t, wantRemaining[i], s.Remaining, "step %d (%s)", i+1, s.Step)
	}
	require.ErrorIs(t, report.Steps[4].Err, quadratic.ErrInsufficientCredits)
	require.ErrorIs(t, report.Steps[5].Err, quadratic.ErrNoVotesToRemove)
	require.ErrorIs(t, report.Steps[7].Err, quadratic.ErrUnknownChoice)
	require.Nil(t, report.Steps[8].Err)

	require.Equal(t, []quadratic.Choice{
		{ID: "mountains", Votes: 0},
		{ID: "beach", Votes: 3},
		{ID: "city", Votes: 0},
	}, report.Final)
	require.Equal(t, 9, report.Spent)
	require.Equal(t, 5, report.Accepted())
}

func TestRunInvalidConfiguration(t *testing.T) {
	_, err := Run(&Plan{Credits: 0, Choices: []string{"a"}})
	require.ErrorIs(t, err, quadratic.ErrInvalidConfiguration)

	_, err = Run(&Plan{Credits: 10})
	require.ErrorIs(t, err, quadratic.ErrInvalidConfiguration)
}

func TestRunBadDirection(t *testing.T) {
	report, err := Run(&Plan{
		Credits: 4,
		Choices: []string{"a"},
		Steps:   []Step{{Choice: "a", Direction: "sideways"}, {Choice: "a", Direction: "+"}},
	})
	require.NoError(t, err)
	require.False(t, report.Steps[0].Accepted)
	require.True(t, report.Steps[1].Accepted)
	require.Equal(t, 3, report.Steps[1].Remaining)
}

func TestReportWrite(t *testing.T) {
	votes := 30
	report, err := Run(&Plan{
		Credits: 1000,
		Choices: []string{"a", "b"},
		Steps: []Step{
			{Choice: "a", Votes: &votes},
			{Choice: "b", Votes: &votes},
		},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.Write(&buf))
	out := buf.String()

	require.Contains(t, out, "set a to 30")
	require.Contains(t, out, "rejected: insufficient credits")
	require.Contains(t, out, "remaining 100")
	require.Contains(t, out, "900 of 1,000 credits spent, 1 of 2 steps accepted")
}

func TestRunRejectsOverflowingVotes(t *testing.T) {
	p, err := Load(strings.NewReader("credits: 16\nchoices: [a, b]\nsteps:\n  - choice: a\n    votes: 4294967296\n  - choice: b\n    votes: 4\n"))
	require.NoError(t, err)

	report, err := Run(p)
	require.NoError(t, err)
	require.ErrorIs(t, report.Steps[0].Err, quadratic.ErrInsufficientCredits)
	require.Equal(t, 16, report.Steps[0].Remaining)
	require.True(t, report.Steps[1].Accepted)
	require.Equal(t, 16, report.Spent)
}
