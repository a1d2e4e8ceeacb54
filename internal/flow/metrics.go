package flow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	outcomesDecodedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_outcomes_decoded_total",
			Help: "Initiation outcomes decoded, by variant.",
		},
		[]string{"variant"},
	)

	decodeFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_decode_failures_total",
			Help: "Initiation payloads that failed to decode, by error code.",
		},
		[]string{"code"},
	)

	flowsFinishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_flows_finished_total",
			Help: "Checkout flows reaching a terminal state, by final status.",
		},
		[]string{"status"},
	)

	submissionDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "checkout_submission_duration_seconds",
			Help:    "Duration of payment-initiation round-trips.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Metric accessors for tests (prometheus/testutil). The metrics themselves
// are registered globally via promauto, so tests assert on increments.

// GetOutcomesDecodedTotal returns the decoded-outcome counter vector.
func GetOutcomesDecodedTotal() *prometheus.CounterVec { return outcomesDecodedTotal }

// GetDecodeFailuresTotal returns the decode-failure counter vector.
func GetDecodeFailuresTotal() *prometheus.CounterVec { return decodeFailuresTotal }

// GetFlowsFinishedTotal returns the finished-flow counter vector.
func GetFlowsFinishedTotal() *prometheus.CounterVec { return flowsFinishedTotal }

// GetSubmissionDurationSeconds returns the submission duration histogram.
func GetSubmissionDurationSeconds() prometheus.Histogram { return submissionDurationSeconds }
