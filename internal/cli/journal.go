package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/obsq/internal/journal"
	"github.com/mattjoyce/obsq/internal/storage"
)

var journalLimit int

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Show recently delivered items",
	Long:  "List the newest entries of the delivery journal at journal.path, with the total count.",
	Args:  cobra.NoArgs,
	RunE:  runJournal,
}

func init() {
	journalCmd.Flags().IntVar(&journalLimit, "limit", 20, "number of entries to show")
	rootCmd.AddCommand(journalCmd)
}

func runJournal(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := storage.OpenSQLite(cmd.Context(), cfg.Journal.Path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer db.Close()

	j := journal.New(db)
	total, err := j.Count(cmd.Context(), cfg.Queue.Name)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if total == 0 {
		fmt.Fprintf(out, "No entries for queue %q.\n", cfg.Queue.Name)
		return nil
	}

	entries, err := j.Recent(cmd.Context(), cfg.Queue.Name, journalLimit)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Queue %q: %d entries, showing %d\n", cfg.Queue.Name, total, len(entries))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SEQ\tRECORDED\tDIGEST\tPAYLOAD")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			e.Seq,
			e.RecordedAt.Local().Format(time.DateTime),
			e.Digest[:12],
			strings.ReplaceAll(e.Payload, "\t", " "),
		)
	}
	return w.Flush()
}
