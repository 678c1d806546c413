package domain

import (
	"time"

	"github.com/google/uuid"
)

// JournalStatus tracks a journaled command failure.
type JournalStatus string

const (
	JournalStatusPending     JournalStatus = "pending"
	JournalStatusRecovered   JournalStatus = "recovered"
	JournalStatusUnrecovered JournalStatus = "unrecovered"
	JournalStatusIgnored     JournalStatus = "ignored"
)

// JournalEntry records one failing command in the recovery journal.
type JournalEntry struct {
	ID             string         `json:"id"`
	RunID          string         `json:"run_id"`
	BatchID        string         `json:"batch_id"`
	NodeID         string         `json:"node_id"`
	CommandID      string         `json:"command_id"`
	CommandLine    string         `json:"command_line"`
	Error          string         `json:"error_msg"`
	Classification Classification `json:"classification"`
	RetryCount     int            `json:"retry_count"`
	Status         JournalStatus  `json:"status"`
	LastAttempt    time.Time      `json:"last_attempt"`
	CreatedAt      time.Time      `json:"created_at"`
}

// NewJournalEntry creates a pending entry for a fresh failure.
func NewJournalEntry(nodeID string, cmd *Command, errText string, c Classification) *JournalEntry {
	now := time.Now()
	return &JournalEntry{
		ID:             uuid.New().String(),
		NodeID:         nodeID,
		CommandID:      cmd.ID,
		CommandLine:    cmd.Line,
		Error:          errText,
		Classification: c,
		Status:         JournalStatusPending,
		LastAttempt:    now,
		CreatedAt:      now,
	}
}

// AuditRecord is one row of the per-batch command audit trail.
type AuditRecord struct {
	ID        string          `json:"id"`
	RunID     string          `json:"run_id"`
	BatchID   string          `json:"batch_id"`
	NodeID    string          `json:"node_id"`
	CommandID string          `json:"command_id"`
	Line      string          `json:"line"`
	ExitCode  int             `json:"exit_code"`
	Outcome   RecoveryOutcome `json:"outcome,omitempty"`
	Error     string          `json:"error_msg,omitempty"`
	StartedAt time.Time       `json:"started_at"`
	Duration  time.Duration   `json:"duration"`
}
