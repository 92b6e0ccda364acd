/*
Copyright (C) 2026 BlessChain Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SlotsProducedTotal counts slots that committed a block.
	SlotsProducedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blessd_slots_produced_total",
		Help: "Number of slots for which a block was committed.",
	})

	// SlotsAbandonedTotal counts slots abandoned after the retry budget.
	SlotsAbandonedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blessd_slots_abandoned_total",
		Help: "Number of slots abandoned with no produced block.",
	})

	// ProductionRetriesTotal counts failed attempts that were retried.
	ProductionRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blessd_production_retries_total",
		Help: "Number of block production attempts retried after failure.",
	})

	// PauseSkipsTotal counts deadlines recomputed because the wake-time
	// pause re-check found an active window.
	PauseSkipsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blessd_pause_skips_total",
		Help: "Number of deadlines pushed past a pause window at wake time.",
	})

	// ProductionAttemptDuration observes the latency of AttemptProduce.
	ProductionAttemptDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "blessd_production_attempt_duration_seconds",
		Help:    "Duration of block production attempts.",
		Buckets: prometheus.DefBuckets,
	})

	// ScheduleStateWritesTotal counts durable schedule-state writes.
	ScheduleStateWritesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blessd_schedule_state_writes_total",
		Help: "Number of durable schedule state writes.",
	})

	// ProducerPhase exports the loop's state machine phase, one-hot.
	ProducerPhase = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "blessd_producer_phase",
		Help: "Current production loop phase (1 for the active phase).",
	}, []string{"phase"})

	// APIRequestsTotal counts ops API requests.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blessd_api_requests_total",
		Help: "Ops API requests.",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration observes ops API latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blessd_api_request_duration_seconds",
		Help:    "Ops API request duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections tracks in-flight ops API requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "blessd_api_active_connections",
		Help: "In-flight ops API requests.",
	})
)

// SetProducerPhase flips the one-hot phase gauge.
func SetProducerPhase(phase string, all []string) {
	for _, p := range all {
		if p == phase {
			ProducerPhase.WithLabelValues(p).Set(1)
		} else {
			ProducerPhase.WithLabelValues(p).Set(0)
		}
	}
}
