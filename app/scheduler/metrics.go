package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	schedulerPassesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callpilot_scheduler_passes_total",
		Help: "Total number of scheduler wake-ups processed",
	})

	callsDispatchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callpilot_calls_dispatched_total",
		Help: "Total number of calls started by the dispatcher",
	})

	campaignsActivatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callpilot_campaigns_activated_total",
		Help: "Total number of campaigns moved from scheduled to active",
	})

	campaignsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callpilot_campaigns_completed_total",
		Help: "Total number of campaigns finished by the scheduler",
	})

	callsReconciledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callpilot_calls_reconciled_total",
		Help: "Total number of stuck calls force-failed by the reconciliation sweep",
	})

	entriesRequeuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callpilot_entries_requeued_total",
		Help: "Total number of stuck queue entries returned to pending by reconciliation",
	})

	inFlightCalls = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "callpilot_in_flight_calls",
		Help: "Calls currently occupying a concurrency slot, sampled each scheduler pass",
	})
)
