// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal counts split operations by name and outcome.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mealsplit_operations_total",
			Help: "Split lifecycle operations by outcome",
		},
		[]string{"op", "outcome"},
	)

	// ConflictsTotal counts create/join attempts rejected by the conflict window.
	ConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mealsplit_conflicts_total",
			Help: "Scheduling conflicts detected",
		},
		[]string{"op"},
	)

	// OwnershipTransfersTotal counts creator hand-offs, split by whether the
	// new creator's name could be resolved.
	OwnershipTransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mealsplit_ownership_transfers_total",
			Help: "Ownership transfers after the creator left",
		},
		[]string{"name_resolved"},
	)

	// SideEffectFailuresTotal counts best-effort writes that failed.
	SideEffectFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mealsplit_side_effect_failures_total",
			Help: "Failed best-effort writes (pointer sync, conversation cleanup)",
		},
		[]string{"kind"},
	)

	// LockWaitSeconds tracks time spent acquiring split locks.
	LockWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mealsplit_lock_wait_seconds",
			Help:    "Time spent waiting for a split lock",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	// RPCRequestsTotal counts Connect procedures by status code.
	RPCRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mealsplit_rpc_requests_total",
			Help: "RPC requests by procedure and code",
		},
		[]string{"procedure", "code"},
	)

	// RPCDuration tracks Connect procedure latency.
	RPCDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mealsplit_rpc_duration_seconds",
			Help:    "RPC duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"procedure"},
	)
)

// Side-effect kinds.
const (
	KindPointerSync         = "pointer_sync"
	KindConversationCleanup = "conversation_cleanup"
)

// RecordOperation records the outcome of a lifecycle operation.
func RecordOperation(op, outcome string) {
	OperationsTotal.WithLabelValues(op, outcome).Inc()
}

// RecordConflict records a conflict-window rejection.
func RecordConflict(op string) {
	ConflictsTotal.WithLabelValues(op).Inc()
}

// RecordOwnershipTransfer records a creator hand-off.
func RecordOwnershipTransfer(nameResolved bool) {
	label := "false"
	if nameResolved {
		label = "true"
	}
	OwnershipTransfersTotal.WithLabelValues(label).Inc()
}

// RecordSideEffectFailure records a failed best-effort write.
func RecordSideEffectFailure(kind string) {
	SideEffectFailuresTotal.WithLabelValues(kind).Inc()
}

// ObserveLockWait records how long a lock acquisition took.
func ObserveLockWait(seconds float64) {
	LockWaitSeconds.Observe(seconds)
}

// RecordRPC records a completed RPC.
func RecordRPC(procedure, code string, seconds float64) {
	RPCRequestsTotal.WithLabelValues(procedure, code).Inc()
	RPCDuration.WithLabelValues(procedure).Observe(seconds)
}
