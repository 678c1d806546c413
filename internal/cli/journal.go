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

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "List pending command failures awaiting recovery",
	Run:   runJournal,
}

func init() {
	rootCmd.AddCommand(journalCmd)
}

func runJournal(cmd *cobra.Command, args []string) {
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

	entries, err := app.PendingJournal(ctx)
	if err != nil {
		slog.Error("Failed to load journal", "error", err)
		os.Exit(1)
	}

	if len(entries) == 0 {
		fmt.Println("No pending journal entries")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "NODE\tCOMMAND\tTYPE\tRETRIES\tLAST ATTEMPT\tERROR")

	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			e.NodeID, e.CommandID, e.Classification.Type,
			e.RetryCount, e.LastAttempt.Format("2006-01-02 15:04:05"), e.Error)
	}
	_ = w.Flush()
}
