package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vietddude/dispatcher/internal/core/domain"
	"github.com/vietddude/dispatcher/internal/infra/storage"
)

// MemoryStorage backs every repository with in-process maps. Used by
// tests and dry runs where no database is available.
type MemoryStorage struct {
	nodes   map[string]*domain.Node
	journal map[string]*domain.JournalEntry
	audit   []*domain.AuditRecord
	mu      sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		nodes:   make(map[string]*domain.Node),
		journal: make(map[string]*domain.JournalEntry),
	}
}

// -----------------------------------------------------------------------------
// Node Repository
// -----------------------------------------------------------------------------

type NodeRepo struct {
	store *MemoryStorage
}

func NewNodeRepo(store *MemoryStorage) *NodeRepo {
	return &NodeRepo{store: store}
}

func (r *NodeRepo) Save(ctx context.Context, node *domain.Node) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.nodes[node.ID] = node.Clone()
	return nil
}

func (r *NodeRepo) SaveBatch(ctx context.Context, nodes []*domain.Node) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, n := range nodes {
		r.store.nodes[n.ID] = n.Clone()
	}
	return nil
}

func (r *NodeRepo) GetByID(ctx context.Context, id string) (*domain.Node, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	n, ok := r.store.nodes[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return n.Clone(), nil
}

func (r *NodeRepo) GetAll(ctx context.Context) ([]*domain.Node, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	nodes := make([]*domain.Node, 0, len(r.store.nodes))
	for _, n := range r.store.nodes {
		nodes = append(nodes, n.Clone())
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes, nil
}

func (r *NodeRepo) UpdateStatus(ctx context.Context, id string, status domain.NodeStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	n, ok := r.store.nodes[id]
	if !ok {
		return storage.ErrNotFound
	}
	n.Status = status
	return nil
}

func (r *NodeRepo) UpdateSyncStatus(ctx context.Context, id string, status domain.SyncStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	n, ok := r.store.nodes[id]
	if !ok {
		return storage.ErrNotFound
	}
	n.SyncStatus = status
	return nil
}

func (r *NodeRepo) Count(ctx context.Context) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return len(r.store.nodes), nil
}

// -----------------------------------------------------------------------------
// Journal Repository
// -----------------------------------------------------------------------------

type JournalRepo struct {
	store *MemoryStorage
}

func NewJournalRepo(store *MemoryStorage) *JournalRepo {
	return &JournalRepo{store: store}
}

func (r *JournalRepo) Add(ctx context.Context, entry *domain.JournalEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	e := *entry
	if e.Status == "" {
		e.Status = domain.JournalStatusPending
	}
	r.store.journal[e.ID] = &e
	return nil
}

func (r *JournalRepo) GetNext(ctx context.Context) (*domain.JournalEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var next *domain.JournalEntry
	for _, e := range r.store.journal {
		if e.Status != domain.JournalStatusPending {
			continue
		}
		if next == nil || e.LastAttempt.Before(next.LastAttempt) {
			next = e
		}
	}
	if next == nil {
		return nil, nil
	}
	cp := *next
	return &cp, nil
}

func (r *JournalRepo) IncrementRetry(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	e, ok := r.store.journal[id]
	if !ok {
		return storage.ErrNotFound
	}
	e.RetryCount++
	return nil
}

func (r *JournalRepo) Resolve(ctx context.Context, id string, status domain.JournalStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	e, ok := r.store.journal[id]
	if !ok {
		return storage.ErrNotFound
	}
	e.Status = status
	return nil
}

func (r *JournalRepo) GetPending(ctx context.Context) ([]*domain.JournalEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var entries []*domain.JournalEntry
	for _, e := range r.store.journal {
		if e.Status == domain.JournalStatusPending {
			cp := *e
			entries = append(entries, &cp)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

func (r *JournalRepo) Count(ctx context.Context) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	count := 0
	for _, e := range r.store.journal {
		if e.Status == domain.JournalStatusPending {
			count++
		}
	}
	return count, nil
}

// -----------------------------------------------------------------------------
// Audit Repository
// -----------------------------------------------------------------------------

type AuditRepo struct {
	store *MemoryStorage
}

func NewAuditRepo(store *MemoryStorage) *AuditRepo {
	return &AuditRepo{store: store}
}

func (r *AuditRepo) Record(ctx context.Context, rec *domain.AuditRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *rec
	r.store.audit = append(r.store.audit, &cp)
	return nil
}

func (r *AuditRepo) GetByRun(ctx context.Context, runID string) ([]*domain.AuditRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var records []*domain.AuditRecord
	for _, rec := range r.store.audit {
		if rec.RunID == runID {
			cp := *rec
			records = append(records, &cp)
		}
	}
	return records, nil
}

func (r *AuditRepo) GetByNode(ctx context.Context, nodeID string) ([]*domain.AuditRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var records []*domain.AuditRecord
	for _, rec := range r.store.audit {
		if rec.NodeID == nodeID {
			cp := *rec
			records = append(records, &cp)
		}
	}
	return records, nil
}
