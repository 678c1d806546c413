package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PatternsResolved tracks resolved patterns per pattern type
	PatternsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatcher_patterns_resolved_total",
			Help: "Total number of node patterns resolved",
		},
		[]string{"type"},
	)

	// PatternErrors tracks per-pattern resolution errors
	PatternErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatcher_pattern_errors_total",
			Help: "Total number of pattern resolution errors",
		},
		[]string{"type"},
	)

	// FiltersApplied tracks scope filter applications per action
	FiltersApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatcher_filters_applied_total",
			Help: "Total number of scope filters applied",
		},
		[]string{"action"},
	)

	// NodesSelected tracks nodes surviving collection processing
	NodesSelected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatcher_nodes_selected_total",
			Help: "Total number of nodes selected by collection processing",
		},
		[]string{"collection"},
	)

	// NodesRejected tracks nodes removed by filtering or validation
	NodesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatcher_nodes_rejected_total",
			Help: "Total number of nodes rejected during collection processing",
		},
		[]string{"collection", "stage"},
	)

	// CommandsDispatched tracks commands issued per batch
	CommandsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatcher_commands_dispatched_total",
			Help: "Total number of commands dispatched",
		},
		[]string{"batch"},
	)

	// CommandFailures tracks failed commands per classified error type
	CommandFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatcher_command_failures_total",
			Help: "Total number of failed commands",
		},
		[]string{"batch", "error_type"},
	)

	// RetriesTotal tracks retry attempts per strategy label
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatcher_retries_total",
			Help: "Total number of retry attempts",
		},
		[]string{"strategy"},
	)

	// FallbackExecutions tracks fallback strategy executions and outcomes
	FallbackExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatcher_fallback_executions_total",
			Help: "Total number of fallback strategy executions",
		},
		[]string{"strategy", "outcome"},
	)

	// RecoveryDuration tracks end-to-end recovery time per outcome
	RecoveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatcher_recovery_duration_seconds",
			Help:    "End-to-end recovery time per failing command",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	// JournalPending tracks pending journal entries
	JournalPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatcher_journal_pending",
			Help: "Number of pending recovery journal entries",
		},
	)

	// DBConnectionPoolUsage tracks database pool utilization
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatcher_db_pool_usage_percent",
			Help: "Database connection pool usage percentage",
		},
	)
)
