// Package transport ships rendered commands to network elements through
// a configuration gateway.
//
// This package contains:
//   - Executor interface: core abstraction for command delivery
//   - HTTPGateway: JSON over HTTP implementation
//   - GRPCGateway: gRPC implementation
//   - Loopback: in-process implementation for tests and dry runs
package transport

import (
	"context"
	"fmt"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

// Executor delivers one command to one node and reports the outcome.
// A non-nil error means the command did not take effect; the error text
// feeds the recovery classifier.
type Executor interface {
	// Name returns the gateway identifier (e.g. "enm-http", "enm-grpc")
	Name() string

	// Execute ships the command and waits for the result
	Execute(ctx context.Context, node *domain.Node, cmd *domain.Command) (*domain.CommandResult, error)

	// Close cleans up resources
	Close() error
}

// CommandError wraps a gateway-reported failure so the exit code and
// stderr survive into classification.
type CommandError struct {
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("command failed with exit code %d: %s", e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("command failed with exit code %d", e.ExitCode)
}
