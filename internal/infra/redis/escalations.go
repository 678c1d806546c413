package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vietddude/dispatcher/internal/core/domain"
	"github.com/vietddude/dispatcher/internal/notify"
)

// EscalationQueue holds manual-intervention alerts in Redis so operator
// tooling can pop the most severe open escalation first. Implements
// notify.Sink for the fallback engine.
type EscalationQueue struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewEscalationQueue creates a Redis-backed escalation queue.
func NewEscalationQueue(client *Client, ttl time.Duration) *EscalationQueue {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &EscalationQueue{rdb: client.rdb, ttl: ttl}
}

// Key helpers
func (q *EscalationQueue) queueKey() string {
	return "escalations"
}

func (q *EscalationQueue) alertKey(id string) string {
	return fmt.Sprintf("escalation:%s", id)
}

// severityScore orders escalations: critical pops before low.
func severityScore(s domain.Severity) float64 {
	switch s {
	case domain.SeverityCritical:
		return 4
	case domain.SeverityHigh:
		return 3
	case domain.SeverityMedium:
		return 2
	case domain.SeverityLow:
		return 1
	}
	return 0
}

// Notify enqueues an alert. Satisfies notify.Sink.
func (q *EscalationQueue) Notify(ctx context.Context, a notify.Alert) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	id := uuid.New().String()
	if err := q.rdb.Set(ctx, q.alertKey(id), data, q.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set alert: %w", err)
	}

	if err := q.rdb.ZAdd(ctx, q.queueKey(), redis.Z{
		Score:  severityScore(a.Severity),
		Member: id,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to queue: %w", err)
	}

	return nil
}

// Pop returns and removes the most severe open escalation, or nil when
// the queue is empty.
func (q *EscalationQueue) Pop(ctx context.Context) (*notify.Alert, error) {
	// Highest score first
	ids, err := q.rdb.ZRevRange(ctx, q.queueKey(), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrange failed: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	id := ids[0]

	data, err := q.rdb.Get(ctx, q.alertKey(id)).Bytes()
	if err == redis.Nil {
		// Data expired but ID still in queue, remove it
		q.rdb.ZRem(ctx, q.queueKey(), id)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}

	if err := q.rdb.ZRem(ctx, q.queueKey(), id).Err(); err != nil {
		return nil, fmt.Errorf("zrem failed: %w", err)
	}
	if err := q.rdb.Del(ctx, q.alertKey(id)).Err(); err != nil {
		return nil, fmt.Errorf("failed to delete alert: %w", err)
	}

	var a notify.Alert
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal alert: %w", err)
	}
	return &a, nil
}

// GetAll returns all open escalations, most severe first.
func (q *EscalationQueue) GetAll(ctx context.Context) ([]*notify.Alert, error) {
	ids, err := q.rdb.ZRevRange(ctx, q.queueKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrange failed: %w", err)
	}

	alerts := make([]*notify.Alert, 0, len(ids))
	for _, id := range ids {
		data, err := q.rdb.Get(ctx, q.alertKey(id)).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get alert: %w", err)
		}

		var a notify.Alert
		if err := json.Unmarshal(data, &a); err != nil {
			continue
		}
		alerts = append(alerts, &a)
	}

	return alerts, nil
}

// Count returns the number of open escalations.
func (q *EscalationQueue) Count(ctx context.Context) (int, error) {
	count, err := q.rdb.ZCard(ctx, q.queueKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard failed: %w", err)
	}
	return int(count), nil
}
