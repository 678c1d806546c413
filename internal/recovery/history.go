package recovery

import (
	"sync"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

// History is the shared retry-history map keyed by (nodeID, commandID).
// Append-only for the lifetime of one command's recovery; the caller
// clears keys explicitly. Different keys never contend beyond the map
// lock; same-key recoveries are additionally serialized by the handler.
type History struct {
	mu      sync.RWMutex
	entries map[string][]domain.RetryAttempt
}

// NewHistory creates an empty retry history.
func NewHistory() *History {
	return &History{entries: make(map[string][]domain.RetryAttempt)}
}

func historyKey(nodeID, commandID string) string {
	return nodeID + "/" + commandID
}

// Append records one attempt for a command.
func (h *History) Append(nodeID, commandID string, a domain.RetryAttempt) {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := historyKey(nodeID, commandID)
	h.entries[key] = append(h.entries[key], a)
}

// Get returns a copy of the attempts recorded for a command.
func (h *History) Get(nodeID, commandID string) []domain.RetryAttempt {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]domain.RetryAttempt(nil), h.entries[historyKey(nodeID, commandID)]...)
}

// Clear removes a command's history once its recovery lifecycle ends.
func (h *History) Clear(nodeID, commandID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.entries, historyKey(nodeID, commandID))
}

// Len reports the number of commands with recorded attempts.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}
