package domain

import "time"

// ItemError is a structured, non-fatal error collected during processing.
type ItemError struct {
	Ref      string `json:"ref"`   // pattern/filter/node the error belongs to
	Stage    string `json:"stage"` // resolution, filtering, validation
	Message  string `json:"message"`
	Critical bool   `json:"critical"`
}

// CollectionStats summarizes one collection-processing run.
type CollectionStats struct {
	TotalCandidates     int           `json:"total_candidates"`
	Survivors           int           `json:"survivors"`
	RemovedByFilters    int           `json:"removed_by_filters"`
	RemovedByValidation int           `json:"removed_by_validation"`
	PatternsApplied     int           `json:"patterns_applied"`
	FiltersApplied      int           `json:"filters_applied"`
	Duration            time.Duration `json:"duration"`
}

// CollectionResult is the output of processing one collection.
type CollectionResult struct {
	CollectionID string          `json:"collection_id"`
	RunID        string          `json:"run_id"`
	Nodes        []*Node         `json:"nodes"`
	Stats        CollectionStats `json:"stats"`
	Errors       []ItemError     `json:"errors,omitempty"`
}

// EvaluationDetail traces one node's evaluation against one filter.
type EvaluationDetail struct {
	NodeID  string `json:"node_id"`
	Matched bool   `json:"matched"`
	Error   string `json:"error,omitempty"`
}

// FilterStats summarizes one filter application.
type FilterStats struct {
	Total      int           `json:"total"`
	Matched    int           `json:"matched"`
	NonMatched int           `json:"non_matched"`
	Duration   time.Duration `json:"duration"`
}

// FilterResult partitions a node set for one filter. Action semantics are
// applied by the caller, not by the filter engine.
type FilterResult struct {
	FilterID   string             `json:"filter_id"`
	Matched    []*Node            `json:"matched"`
	NonMatched []*Node            `json:"non_matched"`
	Stats      FilterStats        `json:"stats"`
	Details    []EvaluationDetail `json:"details,omitempty"`
}

// RecoveryOutcome is the terminal state of one command's recovery.
type RecoveryOutcome string

const (
	OutcomeSuccess           RecoveryOutcome = "success"
	OutcomeRecoveredRetry    RecoveryOutcome = "recovered_retry"
	OutcomeRecoveredFallback RecoveryOutcome = "recovered_fallback"
	OutcomeUnrecovered       RecoveryOutcome = "unrecovered"
)

// RecoveryResult reports how one failing command was handled. The success
// probability is advisory, derived from category and severity.
type RecoveryResult struct {
	NodeID             string          `json:"node_id"`
	CommandID          string          `json:"command_id"`
	Outcome            RecoveryOutcome `json:"outcome"`
	Classification     Classification  `json:"classification"`
	Attempts           []RetryAttempt  `json:"attempts,omitempty"`
	StrategiesTried    []string        `json:"strategies_tried,omitempty"`
	RecoveredBy        string          `json:"recovered_by,omitempty"`
	SuccessProbability float64         `json:"success_probability"`
	Duration           time.Duration   `json:"duration"`
	Error              string          `json:"error,omitempty"`
}

// BatchResult aggregates command outcomes for one batch.
type BatchResult struct {
	BatchID           string            `json:"batch_id"`
	Dispatched        int               `json:"dispatched"`
	Succeeded         int               `json:"succeeded"`
	RecoveredRetry    int               `json:"recovered_retry"`
	RecoveredFallback int               `json:"recovered_fallback"`
	Unrecovered       int               `json:"unrecovered"`
	Recoveries        []*RecoveryResult `json:"recoveries,omitempty"`
	Duration          time.Duration     `json:"duration"`
}
