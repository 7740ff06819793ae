package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/halcyonpay/amlscreen/internal/index"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the sanctions index status",
	Long:  "Reports the index generation, entity counts per list, the last build time and whether the index is ready to serve screenings.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("status"); err != nil {
			return err
		}

		store, err := index.Open(cfg.Paths.DBPath)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		formatIndexStatus(ctx, os.Stdout, store)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// formatIndexStatus writes the index status report to w.
func formatIndexStatus(ctx context.Context, out io.Writer, store *index.Store) {
	ready, reason := store.Readiness(ctx)
	if !ready {
		fmt.Fprintf(out, "index: not ready (%s)\n", reason)
		fmt.Fprintln(out, "run 'amlscreen refresh' to build it")
		return
	}

	gen, _ := store.Generation(ctx)
	total, _ := store.EntityCount(ctx)
	fmt.Fprintf(out, "index: ready (generation %d, %d entities)\n", gen, total)

	if builtAt, err := store.LastBuilt(ctx); err == nil && !builtAt.IsZero() {
		fmt.Fprintf(out, "last built: %s\n", builtAt.UTC().Format(time.RFC3339))
	}

	counts, err := store.ListCounts(ctx)
	if err != nil || len(counts) == 0 {
		return
	}
	lists := make([]string, 0, len(counts))
	for name := range counts {
		lists = append(lists, name)
	}
	sort.Strings(lists)

	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "LIST\tENTITIES")
	_, _ = fmt.Fprintln(w, "----\t--------")
	for _, name := range lists {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", name, counts[name])
	}
	_ = w.Flush()
}
