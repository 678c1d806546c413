package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vietddude/dispatcher/internal/core/domain"
	"github.com/vietddude/dispatcher/internal/infra/storage"
)

// NodeRepo implements storage.NodeRepository using PostgreSQL.
type NodeRepo struct {
	db *DB
}

// NewNodeRepo creates a new PostgreSQL node repository.
func NewNodeRepo(db *DB) *NodeRepo {
	return &NodeRepo{db: db}
}

type nodeRow struct {
	ID         string    `db:"id"`
	Name       string    `db:"name"`
	NodeType   string    `db:"node_type"`
	NEType     string    `db:"ne_type"`
	Status     string    `db:"status"`
	SyncStatus string    `db:"sync_status"`
	Location   string    `db:"location"`
	Version    string    `db:"version"`
	Vendor     string    `db:"vendor"`
	Attributes []byte    `db:"attributes"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r nodeRow) toDomain() (*domain.Node, error) {
	n := &domain.Node{
		ID:         r.ID,
		Name:       r.Name,
		NodeType:   r.NodeType,
		NEType:     r.NEType,
		Status:     domain.NodeStatus(r.Status),
		SyncStatus: domain.SyncStatus(r.SyncStatus),
		Location:   r.Location,
		Version:    r.Version,
		Vendor:     r.Vendor,
	}
	if len(r.Attributes) > 0 {
		if err := json.Unmarshal(r.Attributes, &n.Attributes); err != nil {
			return nil, fmt.Errorf("failed to decode node attributes: %w", err)
		}
	}
	return n, nil
}

// Save upserts a node by id.
func (r *NodeRepo) Save(ctx context.Context, node *domain.Node) error {
	attrs, err := json.Marshal(node.Attributes)
	if err != nil {
		return fmt.Errorf("failed to encode node attributes: %w", err)
	}

	query := `
		INSERT INTO nodes (id, name, node_type, ne_type, status, sync_status, location, version, vendor, attributes, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			node_type = EXCLUDED.node_type,
			ne_type = EXCLUDED.ne_type,
			status = EXCLUDED.status,
			sync_status = EXCLUDED.sync_status,
			location = EXCLUDED.location,
			version = EXCLUDED.version,
			vendor = EXCLUDED.vendor,
			attributes = EXCLUDED.attributes,
			updated_at = NOW()
	`
	_, err = r.db.ExecContext(ctx, query,
		node.ID,
		node.Name,
		node.NodeType,
		node.NEType,
		string(node.Status),
		string(node.SyncStatus),
		node.Location,
		node.Version,
		node.Vendor,
		attrs,
	)
	if err != nil {
		return fmt.Errorf("failed to save node: %w", err)
	}
	return nil
}

// SaveBatch saves multiple nodes in one transaction.
func (r *NodeRepo) SaveBatch(ctx context.Context, nodes []*domain.Node) error {
	if len(nodes) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO nodes (id, name, node_type, ne_type, status, sync_status, location, version, vendor, attributes, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			node_type = EXCLUDED.node_type,
			ne_type = EXCLUDED.ne_type,
			status = EXCLUDED.status,
			sync_status = EXCLUDED.sync_status,
			location = EXCLUDED.location,
			version = EXCLUDED.version,
			vendor = EXCLUDED.vendor,
			attributes = EXCLUDED.attributes,
			updated_at = NOW()
	`
	for _, node := range nodes {
		attrs, err := json.Marshal(node.Attributes)
		if err != nil {
			return fmt.Errorf("failed to encode node attributes: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query,
			node.ID,
			node.Name,
			node.NodeType,
			node.NEType,
			string(node.Status),
			string(node.SyncStatus),
			node.Location,
			node.Version,
			node.Vendor,
			attrs,
		); err != nil {
			return fmt.Errorf("failed to save node %s: %w", node.ID, err)
		}
	}

	return tx.Commit()
}

// GetByID retrieves a node by id.
func (r *NodeRepo) GetByID(ctx context.Context, id string) (*domain.Node, error) {
	query := `
		SELECT id, name, node_type, ne_type, status, sync_status, location, version, vendor, attributes, updated_at
		FROM nodes
		WHERE id = $1
	`

	var row nodeRow
	err := r.db.GetContext(ctx, &row, query, id)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get node: %w", err)
	}
	return row.toDomain()
}

// GetAll retrieves the full inventory ordered by id.
func (r *NodeRepo) GetAll(ctx context.Context) ([]*domain.Node, error) {
	query := `
		SELECT id, name, node_type, ne_type, status, sync_status, location, version, vendor, attributes, updated_at
		FROM nodes
		ORDER BY id ASC
	`

	var rows []nodeRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to get nodes: %w", err)
	}

	nodes := make([]*domain.Node, 0, len(rows))
	for _, row := range rows {
		n, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// UpdateStatus updates node status.
func (r *NodeRepo) UpdateStatus(ctx context.Context, id string, status domain.NodeStatus) error {
	query := `
		UPDATE nodes
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to update node status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UpdateSyncStatus updates node sync status.
func (r *NodeRepo) UpdateSyncStatus(ctx context.Context, id string, status domain.SyncStatus) error {
	query := `
		UPDATE nodes
		SET sync_status = $2, updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to update node sync status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Count returns the inventory size.
func (r *NodeRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM nodes`); err != nil {
		return 0, fmt.Errorf("failed to count nodes: %w", err)
	}
	return count, nil
}
