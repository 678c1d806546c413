package transport

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

// Loopback executes nothing and records everything. Backs dry runs and
// tests; an optional Fail hook injects failures per command.
type Loopback struct {
	mu       sync.Mutex
	executed []Execution

	// Fail, when set, decides whether a command fails.
	Fail func(node *domain.Node, cmd *domain.Command) error

	// Latency is added to every execution.
	Latency time.Duration
}

// Execution is one recorded loopback call.
type Execution struct {
	NodeID string
	Cmd    domain.Command
}

// NewLoopback creates an empty loopback executor.
func NewLoopback() *Loopback {
	return &Loopback{}
}

// Name returns the gateway identifier.
func (l *Loopback) Name() string {
	return "loopback"
}

// Execute records the command and reports success unless Fail says
// otherwise.
func (l *Loopback) Execute(ctx context.Context, node *domain.Node, cmd *domain.Command) (*domain.CommandResult, error) {
	if l.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.Latency):
		}
	}

	l.mu.Lock()
	l.executed = append(l.executed, Execution{NodeID: node.ID, Cmd: *cmd})
	l.mu.Unlock()

	if l.Fail != nil {
		if err := l.Fail(node, cmd); err != nil {
			return &domain.CommandResult{ExitCode: 1, Stderr: err.Error()}, err
		}
	}
	return &domain.CommandResult{ExitCode: 0}, nil
}

// Executed returns a copy of the recorded calls.
func (l *Loopback) Executed() []Execution {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Execution(nil), l.executed...)
}

// Close cleans up resources.
func (l *Loopback) Close() error {
	return nil
}
