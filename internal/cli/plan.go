package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/dispatcher/internal/control"
)

var planCmd = &cobra.Command{
	Use:   "plan [collection_id]",
	Short: "Resolve a collection and print the selected nodes without dispatching",
	Args:  cobra.ExactArgs(1),
	Run:   runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	ctx := context.Background()
	app, err := control.NewDispatcher(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize Dispatcher", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = app.Stop(ctx)
	}()

	res, err := app.Plan(ctx, args[0])
	if err != nil {
		slog.Error("Failed to resolve collection", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "NODE\tNE TYPE\tSTATUS\tSYNC\tMATCHED BY")

	for _, n := range res.Nodes {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			n.ID, n.NEType, n.Status, n.SyncStatus, n.Metadata.MatchedPattern)
	}
	_ = w.Flush()

	fmt.Printf("\n%d candidates, %d selected, %d removed by filters, %d removed by validation\n",
		res.Stats.TotalCandidates, res.Stats.Survivors,
		res.Stats.RemovedByFilters, res.Stats.RemovedByValidation)

	for _, e := range res.Errors {
		fmt.Printf("warning [%s/%s]: %s\n", e.Stage, e.Ref, e.Message)
	}
}
