package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/dispatcher/internal/infra/storage"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Health(ctx context.Context) error
}

// EscalationCounter counts open manual-intervention escalations.
type EscalationCounter interface {
	Count(ctx context.Context) (int, error)
}

// Monitor aggregates health status from various system components.
type Monitor struct {
	nodes       storage.NodeRepository
	journal     storage.JournalRepository
	escalations EscalationCounter
	db          Pinger
	redis       Pinger

	lastCheck  time.Time
	lastReport Report
	mu         sync.RWMutex
}

// NewMonitor creates a new health monitor. Any dependency may be nil
// when the corresponding backend isn't configured.
func NewMonitor(
	nodes storage.NodeRepository,
	journal storage.JournalRepository,
	escalations EscalationCounter,
	db Pinger,
	redis Pinger,
) *Monitor {
	return &Monitor{
		nodes:       nodes,
		journal:     journal,
		escalations: escalations,
		db:          db,
		redis:       redis,
	}
}

// CheckHealth builds the current health report.
func (m *Monitor) CheckHealth(ctx context.Context) Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Rate limit checks (e.g. max once per 10s) to avoid spamming backends
	if time.Since(m.lastCheck) < 10*time.Second && m.lastReport.Status != "" {
		return m.lastReport
	}

	report := Report{
		Status:     StatusHealthy,
		DatabaseOK: true,
		RedisOK:    true,
	}

	if m.db != nil && m.db.Health(ctx) != nil {
		report.DatabaseOK = false
	}
	if m.redis != nil && m.redis.Health(ctx) != nil {
		report.RedisOK = false
	}

	if m.nodes != nil {
		if count, err := m.nodes.Count(ctx); err == nil {
			report.InventorySize = count
		}
	}
	if m.journal != nil {
		if count, err := m.journal.Count(ctx); err == nil {
			report.PendingJournal = count
		}
	}
	if m.escalations != nil {
		if count, err := m.escalations.Count(ctx); err == nil {
			report.OpenEscalations = count
		}
	}

	// Evaluate Status
	if !report.DatabaseOK || report.PendingJournal > 100 {
		report.Status = StatusCritical
	} else if !report.RedisOK || report.PendingJournal > 0 || report.OpenEscalations > 0 {
		report.Status = StatusDegraded
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}
