package recovery

import (
	"strings"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

// Synthesizer derives a best-effort inverse for a configuration command.
// Kept behind an interface so the textual heuristics can later be replaced
// by a structured, command-type-aware inverse generator without touching
// the rest of the recovery state machine.
type Synthesizer interface {
	Synthesize(cmd *domain.Command) *domain.Command
}

// TextualSynthesizer rewrites the command line with string heuristics:
// `cmedit set` gets `--rollback` appended, `cmedit create` becomes
// `cmedit delete`, anything else gets `--rollback` appended. Fragile and
// not semantically verified; the synthesized command is best-effort only.
type TextualSynthesizer struct{}

// Synthesize returns the heuristic inverse command.
func (TextualSynthesizer) Synthesize(cmd *domain.Command) *domain.Command {
	inverse := *cmd
	inverse.ID = cmd.ID + "-rollback"

	line := strings.TrimSpace(cmd.Line)
	switch {
	case strings.HasPrefix(line, "cmedit set"):
		inverse.Line = line + " --rollback"
	case strings.HasPrefix(line, "cmedit create"):
		inverse.Line = strings.Replace(line, "cmedit create", "cmedit delete", 1)
	default:
		inverse.Line = line + " --rollback"
	}
	return &inverse
}
