// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "quadvote"

// Adjustment outcomes.
const (
	OutcomeAccepted     = "accepted"
	OutcomeInsufficient = "insufficient_credits"
	OutcomeNoVotes      = "no_votes_to_remove"
	OutcomeUnknown      = "unknown_choice"
	OutcomeInvalid      = "invalid"
)

type Metrics struct {
	registry *prometheus.Registry

	BallotAdjustments *prometheus.CounterVec
	BallotsSubmitted  *prometheus.CounterVec
	ElectionsClosed   prometheus.Counter
	OpenSessions      prometheus.GaugeFunc
}

// New registers all collectors on a fresh registry. sessions reports the
// current number of open ballot sessions and may be nil.
func New(sessions func() int) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		BallotAdjustments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ballot_adjustments_total",
			Help:      "Ballot vote changes by direction and outcome.",
		}, []string{"direction", "outcome"}),
		BallotsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ballots_submitted_total",
			Help:      "Submitted ballots, split into new and updated.",
		}, []string{"kind"}),
		ElectionsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "elections_closed_total",
			Help:      "Elections closed with a result snapshot.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.BallotAdjustments,
		m.BallotsSubmitted,
		m.ElectionsClosed,
	)

	if sessions != nil {
		m.OpenSessions = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_ballot_sessions",
			Help:      "Ballot sessions currently held in memory.",
		}, func() float64 { return float64(sessions()) })
		reg.MustRegister(m.OpenSessions)
	}
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
