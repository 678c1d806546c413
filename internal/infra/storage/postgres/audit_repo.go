package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

// AuditRepo implements storage.AuditRepository using PostgreSQL.
type AuditRepo struct {
	db *DB
}

// NewAuditRepo creates a new PostgreSQL audit repository.
func NewAuditRepo(db *DB) *AuditRepo {
	return &AuditRepo{db: db}
}

type auditRow struct {
	ID         string    `db:"id"`
	RunID      string    `db:"run_id"`
	BatchID    string    `db:"batch_id"`
	NodeID     string    `db:"node_id"`
	CommandID  string    `db:"command_id"`
	Line       string    `db:"line"`
	ExitCode   int       `db:"exit_code"`
	Outcome    string    `db:"outcome"`
	ErrorMsg   string    `db:"error_msg"`
	StartedAt  time.Time `db:"started_at"`
	DurationMS int64     `db:"duration_ms"`
}

func (r auditRow) toDomain() *domain.AuditRecord {
	return &domain.AuditRecord{
		ID:        r.ID,
		RunID:     r.RunID,
		BatchID:   r.BatchID,
		NodeID:    r.NodeID,
		CommandID: r.CommandID,
		Line:      r.Line,
		ExitCode:  r.ExitCode,
		Outcome:   domain.RecoveryOutcome(r.Outcome),
		Error:     r.ErrorMsg,
		StartedAt: r.StartedAt,
		Duration:  time.Duration(r.DurationMS) * time.Millisecond,
	}
}

// Record appends one audit record.
func (r *AuditRepo) Record(ctx context.Context, rec *domain.AuditRecord) error {
	query := `
		INSERT INTO command_audit (id, run_id, batch_id, node_id, command_id, line, exit_code, outcome, error_msg, started_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.RunID,
		rec.BatchID,
		rec.NodeID,
		rec.CommandID,
		rec.Line,
		rec.ExitCode,
		string(rec.Outcome),
		rec.Error,
		rec.StartedAt,
		rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// GetByRun retrieves all records for a dispatch run.
func (r *AuditRepo) GetByRun(ctx context.Context, runID string) ([]*domain.AuditRecord, error) {
	query := `
		SELECT id, run_id, batch_id, node_id, command_id, line, exit_code, outcome, error_msg, started_at, duration_ms
		FROM command_audit
		WHERE run_id = $1
		ORDER BY started_at ASC
	`
	return r.selectRecords(ctx, query, runID)
}

// GetByNode retrieves all records for a node.
func (r *AuditRepo) GetByNode(ctx context.Context, nodeID string) ([]*domain.AuditRecord, error) {
	query := `
		SELECT id, run_id, batch_id, node_id, command_id, line, exit_code, outcome, error_msg, started_at, duration_ms
		FROM command_audit
		WHERE node_id = $1
		ORDER BY started_at ASC
	`
	return r.selectRecords(ctx, query, nodeID)
}

func (r *AuditRepo) selectRecords(ctx context.Context, query string, arg string) ([]*domain.AuditRecord, error) {
	var rows []auditRow
	if err := r.db.SelectContext(ctx, &rows, query, arg); err != nil {
		return nil, fmt.Errorf("failed to get audit records: %w", err)
	}

	records := make([]*domain.AuditRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toDomain())
	}
	return records, nil
}
