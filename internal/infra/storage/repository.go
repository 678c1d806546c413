package storage

import (
	"context"
	"errors"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

var (
	// ErrNotFound is returned when a record doesn't exist
	ErrNotFound = errors.New("record not found")
)

// NodeRepository handles node inventory storage operations
type NodeRepository interface {
	// Save saves a node
	Save(ctx context.Context, node *domain.Node) error

	// SaveBatch saves multiple nodes
	SaveBatch(ctx context.Context, nodes []*domain.Node) error

	// GetByID retrieves a node by id
	GetByID(ctx context.Context, id string) (*domain.Node, error)

	// GetAll retrieves the full inventory
	GetAll(ctx context.Context) ([]*domain.Node, error)

	// UpdateStatus updates node status
	UpdateStatus(ctx context.Context, id string, status domain.NodeStatus) error

	// UpdateSyncStatus updates node sync status
	UpdateSyncStatus(ctx context.Context, id string, status domain.SyncStatus) error

	// Count returns the inventory size
	Count(ctx context.Context) (int, error)
}

// JournalRepository handles the command-failure recovery journal
type JournalRepository interface {
	// Add adds a journal entry
	Add(ctx context.Context, entry *domain.JournalEntry) error

	// GetNext retrieves the oldest pending entry to process
	GetNext(ctx context.Context) (*domain.JournalEntry, error)

	// IncrementRetry increments retry count
	IncrementRetry(ctx context.Context, id string) error

	// Resolve marks an entry recovered, unrecovered or ignored
	Resolve(ctx context.Context, id string, status domain.JournalStatus) error

	// GetPending retrieves all pending entries
	GetPending(ctx context.Context) ([]*domain.JournalEntry, error)

	// Count returns the count of pending entries
	Count(ctx context.Context) (int, error)
}

// AuditRepository handles the per-batch command audit trail
type AuditRepository interface {
	// Record appends one audit record
	Record(ctx context.Context, rec *domain.AuditRecord) error

	// GetByRun retrieves all records for a dispatch run
	GetByRun(ctx context.Context, runID string) ([]*domain.AuditRecord, error)

	// GetByNode retrieves all records for a node
	GetByNode(ctx context.Context, nodeID string) ([]*domain.AuditRecord, error)
}
