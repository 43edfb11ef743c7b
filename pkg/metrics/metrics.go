package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PermissionChecks counts permission evaluations by check and outcome (allowed|denied|error).
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_permission_checks_total",
			Help: "Total number of permission checks",
		},
		[]string{"permission", "result"},
	)

	// GateDecisions counts request gate outcomes by mode (all|any) and result.
	GateDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_gate_decisions_total",
			Help: "Total number of request gate decisions",
		},
		[]string{"mode", "result"},
	)

	// RoleMutations counts role graph changes by operation.
	RoleMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_role_mutations_total",
			Help: "Total number of role graph mutations",
		},
		[]string{"operation"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
