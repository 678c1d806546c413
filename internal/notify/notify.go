// Package notify delivers manual-intervention alerts to operators.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

// Alert is one manual-intervention notification.
type Alert struct {
	Severity       domain.Severity       `json:"severity"`
	NodeID         string                `json:"node_id"`
	CommandID      string                `json:"command_id"`
	CommandLine    string                `json:"command_line"`
	Message        string                `json:"message"`
	Classification domain.Classification `json:"classification"`
	StrategiesTried []string             `json:"strategies_tried,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
}

// Sink accepts alerts. Implementations must not block recovery for long;
// callers pass a bounded context.
type Sink interface {
	Notify(ctx context.Context, a Alert) error
}

// LogSink writes alerts to the structured log. The default sink when no
// webhook is configured.
type LogSink struct {
	log *slog.Logger
}

// NewLogSink creates a log-backed sink.
func NewLogSink() *LogSink {
	return &LogSink{log: slog.With("component", "notify")}
}

// Notify logs the alert at error level.
func (s *LogSink) Notify(ctx context.Context, a Alert) error {
	s.log.Error("manual intervention required",
		"node", a.NodeID,
		"command", a.CommandID,
		"severity", a.Severity,
		"error_type", a.Classification.Type,
		"message", a.Message,
	)
	return nil
}
