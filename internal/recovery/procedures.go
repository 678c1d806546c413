package recovery

import (
	"context"
	"log/slog"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

// ExecuteFunc re-executes a command against a node. The batch executor
// supplies it; the handler never talks to the transport directly.
type ExecuteFunc func(ctx context.Context, node *domain.Node, cmd *domain.Command) error

// Procedure attempts one recovery of a failed command. Procedures are
// external, possibly long-running operations; their error result is the
// retry attempt's verdict.
type Procedure func(ctx context.Context, node *domain.Node, cmd *domain.Command) error

// ProcedureTable maps classification types to recovery procedures. The
// generic procedure handles every type without its own entry.
type ProcedureTable map[domain.ErrorType]Procedure

// procedureKeyGeneric is the fallthrough entry every table should carry.
const procedureKeyGeneric domain.ErrorType = "generic"

// DefaultProcedures builds the fixed table: every procedure re-executes
// the command, with per-type logging so operators can see which path ran.
func DefaultProcedures(execute ExecuteFunc) ProcedureTable {
	wrap := func(kind string) Procedure {
		log := slog.With("component", "recovery", "procedure", kind)
		return func(ctx context.Context, node *domain.Node, cmd *domain.Command) error {
			log.Debug("attempting recovery", "node", node.ID, "command", cmd.ID)
			return execute(ctx, node, cmd)
		}
	}

	return ProcedureTable{
		domain.ErrorNetworkTimeout:   wrap("network"),
		domain.ErrorNetwork:          wrap("network"),
		domain.ErrorAuthentication:   wrap("auth"),
		domain.ErrorResourceNotFound: wrap("resource"),
		domain.ErrorSyncFailure:      wrap("sync"),
		domain.ErrorConfiguration:    wrap("config"),
		domain.ErrorSystemOverload:   wrap("overload"),
		procedureKeyGeneric:          wrap("generic"),
	}
}

// lookup resolves the procedure for a classification type, falling back
// to the generic entry.
func (t ProcedureTable) lookup(et domain.ErrorType) (Procedure, bool) {
	if p, ok := t[et]; ok {
		return p, true
	}
	p, ok := t[procedureKeyGeneric]
	return p, ok
}
