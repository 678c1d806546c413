// Package health provides system health monitoring and status reporting.
package health

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// Report contains the dispatcher's health metrics.
type Report struct {
	Status          SystemStatus `json:"status"`
	InventorySize   int          `json:"inventory_size"`
	PendingJournal  int          `json:"pending_journal"`
	OpenEscalations int          `json:"open_escalations"`
	DatabaseOK      bool         `json:"database_ok"`
	RedisOK         bool         `json:"redis_ok"`
}
