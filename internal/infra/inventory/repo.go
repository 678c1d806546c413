package inventory

import (
	"context"

	"github.com/vietddude/dispatcher/internal/core/domain"
	"github.com/vietddude/dispatcher/internal/infra/storage"
)

// RepoProvider serves snapshots from a node repository (PostgreSQL in
// production, memory in tests).
type RepoProvider struct {
	repo storage.NodeRepository
}

// NewRepoProvider creates a repository-backed inventory provider.
func NewRepoProvider(repo storage.NodeRepository) *RepoProvider {
	return &RepoProvider{repo: repo}
}

// Snapshot loads all nodes from the repository.
func (p *RepoProvider) Snapshot(ctx context.Context) ([]*domain.Node, error) {
	return p.repo.GetAll(ctx)
}
