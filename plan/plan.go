// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package plan

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/danielhkuo/quadvote/quadratic"
)

var ErrInvalidStep = errors.New("step must set exactly one of direction or votes")

type Plan struct {
	Credits int      `yaml:"credits"`
	Choices []string `yaml:"choices"`
	Steps   []Step   `yaml:"steps"`
}

// Step is one adjustment. Votes is a pointer so that "votes: 0" can clear a choice.
type Step struct {
	Choice    string `yaml:"choice"`
	Direction string `yaml:"direction,omitempty"`
	Votes     *int   `yaml:"votes,omitempty"`
}

func (s Step) String() string {
	if s.Votes != nil {
		return fmt.Sprintf("set %s to %d", s.Choice, *s.Votes)
	}
	return fmt.Sprintf("%s %s", s.Direction, s.Choice)
}

// StepResult records what happened to one step. Err is nil for accepted steps.
type StepResult struct {
	Step      Step
	Accepted  bool
	Err       error
	Remaining int
}

type Report struct {
	Steps   []StepResult
	Final   []quadratic.Choice
	Credits int
	Spent   int
}

// Accepted counts the steps the allocator let through.
func (r Report) Accepted() int {
	n := 0
	for _, s := range r.Steps {
		if s.Accepted {
			n++
		}
	}
	return n
}

// Load decodes a plan and checks that every step is well formed. Unknown
// YAML keys are rejected so typos surface before the run.
func Load(r io.Reader) (*Plan, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var p Plan
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty plan")
		}
		return nil, fmt.Errorf("decoding plan: %w", err)
	}

	for i, s := range p.Steps {
		if (s.Direction == "") == (s.Votes == nil) {
			return nil, fmt.Errorf("step %d: %w", i+1, ErrInvalidStep)
		}
	}
	return &p, nil
}

// Run applies the steps in order to a fresh ballot. Only an invalid
// ballot configuration aborts the run.
func Run(p *Plan) (Report, error) {
	ballot, err := quadratic.New(p.Choices, p.Credits)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		Steps:   make([]StepResult, 0, len(p.Steps)),
		Credits: p.Credits,
	}
	for _, s := range p.Steps {
		res := StepResult{Step: s, Accepted: true}
		if err := apply(ballot, s); err != nil {
			res.Accepted = false
			res.Err = err
		}
		res.Remaining = ballot.Remaining()
		report.Steps = append(report.Steps, res)
	}

	report.Final = ballot.Choices()
	report.Spent = ballot.TotalSpent()
	return report, nil
}

func apply(b *quadratic.Ballot, s Step) error {
	if s.Votes != nil {
		return b.SetVotes(s.Choice, *s.Votes)
	}
	dir, err := quadratic.ParseDirection(s.Direction)
	if err != nil {
		return err
	}
	return b.RequestChange(s.Choice, dir)
}

// Write prints the step log followed by the final allocation table.
func (r Report) Write(w io.Writer) error {
	var sb strings.Builder

	for i, s := range r.Steps {
		status := "ok"
		if !s.Accepted {
			status = "rejected: " + s.Err.Error()
		}
		fmt.Fprintf(&sb, "%3d  %-30s %-40s remaining %s\n",
			i+1, s.Step, status, humanize.Comma(int64(s.Remaining)))
	}

	sb.WriteString("\n")
	for _, c := range r.Final {
		fmt.Fprintf(&sb, "%-20s %4d votes  %s credits\n", c.ID, c.Votes, humanize.Comma(int64(c.Cost())))
	}
	fmt.Fprintf(&sb, "\n%s of %s credits spent, %d of %d steps accepted\n",
		humanize.Comma(int64(r.Spent)), humanize.Comma(int64(r.Credits)), r.Accepted(), len(r.Steps))

	_, err := io.WriteString(w, sb.String())
	return err
}
