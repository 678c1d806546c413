package scope

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

// CELPredicate compiles a CEL expression into a custom predicate. The
// expression sees the node's flattened attribute map as `node`, e.g.
//
//	node["vendor"] == "Ericsson" && node["ne_type"].startsWith("ERBS")
func CELPredicate(expr string) (Predicate, error) {
	env, err := cel.NewEnv(
		cel.Variable("node", cel.MapType(cel.StringType, cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build CEL environment: %w", err)
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("invalid CEL expression %q: %w", expr, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("CEL expression %q must evaluate to bool, got %s", expr, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to plan CEL program: %w", err)
	}

	return func(ctx context.Context, node *domain.Node) (bool, error) {
		out, _, err := prg.ContextEval(ctx, map[string]interface{}{
			"node": node.AttributeMap(),
		})
		if err != nil {
			return false, fmt.Errorf("CEL evaluation failed: %w", err)
		}
		b, ok := out.Value().(bool)
		if !ok {
			return false, fmt.Errorf("CEL expression returned %T, want bool", out.Value())
		}
		return b, nil
	}, nil
}

// RegisterCELPredicate compiles and registers an expression in one step.
func (e *Engine) RegisterCELPredicate(name, expr string) error {
	p, err := CELPredicate(expr)
	if err != nil {
		return err
	}
	e.RegisterPredicate(name, p)
	return nil
}
