package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

// JournalRepo implements storage.JournalRepository using PostgreSQL.
type JournalRepo struct {
	db *DB
}

// NewJournalRepo creates a new PostgreSQL journal repository.
func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

type journalRow struct {
	ID             string    `db:"id"`
	RunID          string    `db:"run_id"`
	BatchID        string    `db:"batch_id"`
	NodeID         string    `db:"node_id"`
	CommandID      string    `db:"command_id"`
	CommandLine    string    `db:"command_line"`
	ErrorMsg       string    `db:"error_msg"`
	Classification []byte    `db:"classification"`
	RetryCount     int       `db:"retry_count"`
	Status         string    `db:"status"`
	LastAttempt    time.Time `db:"last_attempt"`
	CreatedAt      time.Time `db:"created_at"`
}

func (r journalRow) toDomain() (*domain.JournalEntry, error) {
	e := &domain.JournalEntry{
		ID:          r.ID,
		RunID:       r.RunID,
		BatchID:     r.BatchID,
		NodeID:      r.NodeID,
		CommandID:   r.CommandID,
		CommandLine: r.CommandLine,
		Error:       r.ErrorMsg,
		RetryCount:  r.RetryCount,
		Status:      domain.JournalStatus(r.Status),
		LastAttempt: r.LastAttempt,
		CreatedAt:   r.CreatedAt,
	}
	if len(r.Classification) > 0 {
		if err := json.Unmarshal(r.Classification, &e.Classification); err != nil {
			return nil, fmt.Errorf("failed to decode classification: %w", err)
		}
	}
	return e, nil
}

// Add adds a journal entry.
func (r *JournalRepo) Add(ctx context.Context, entry *domain.JournalEntry) error {
	classification, err := json.Marshal(entry.Classification)
	if err != nil {
		return fmt.Errorf("failed to encode classification: %w", err)
	}

	status := string(entry.Status)
	if status == "" {
		status = string(domain.JournalStatusPending)
	}

	query := `
		INSERT INTO recovery_journal (id, run_id, batch_id, node_id, command_id, command_line, error_msg, classification, retry_count, status, last_attempt, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	`
	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		entry.RunID,
		entry.BatchID,
		entry.NodeID,
		entry.CommandID,
		entry.CommandLine,
		entry.Error,
		classification,
		entry.RetryCount,
		status,
	)
	if err != nil {
		return fmt.Errorf("failed to add journal entry: %w", err)
	}
	return nil
}

// GetNext returns the oldest pending entry to process.
func (r *JournalRepo) GetNext(ctx context.Context) (*domain.JournalEntry, error) {
	query := `
		SELECT id, run_id, batch_id, node_id, command_id, command_line, error_msg, classification, retry_count, status, last_attempt, created_at
		FROM recovery_journal
		WHERE status = 'pending'
		ORDER BY last_attempt ASC
		LIMIT 1
	`

	var row journalRow
	err := r.db.GetContext(ctx, &row, query)
	if err == sql.ErrNoRows {
		return nil, nil // No pending entries
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get journal entry: %w", err)
	}
	return row.toDomain()
}

// IncrementRetry increments retry count and updates timestamp.
func (r *JournalRepo) IncrementRetry(ctx context.Context, id string) error {
	query := `
		UPDATE recovery_journal
		SET retry_count = retry_count + 1, last_attempt = NOW()
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// Resolve marks an entry recovered, unrecovered or ignored.
func (r *JournalRepo) Resolve(ctx context.Context, id string, status domain.JournalStatus) error {
	query := `
		UPDATE recovery_journal
		SET status = $2
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, string(status))
	return err
}

// GetPending returns all pending entries (for monitoring and the CLI).
func (r *JournalRepo) GetPending(ctx context.Context) ([]*domain.JournalEntry, error) {
	query := `
		SELECT id, run_id, batch_id, node_id, command_id, command_line, error_msg, classification, retry_count, status, last_attempt, created_at
		FROM recovery_journal
		WHERE status = 'pending'
		ORDER BY created_at ASC
	`

	var rows []journalRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to get pending journal entries: %w", err)
	}

	entries := make([]*domain.JournalEntry, 0, len(rows))
	for _, row := range rows {
		e, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Count returns the number of pending entries.
func (r *JournalRepo) Count(ctx context.Context) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM recovery_journal
		WHERE status = 'pending'
	`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("failed to count journal entries: %w", err)
	}
	return count, nil
}
