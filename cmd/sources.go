package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/halcyonpay/amlscreen/internal/watchlist"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the registered sanctions sources",
	Long:  "Shows every registered authority feed with its URL (after mirror overrides) and the last successful download time.",
	RunE: func(cmd *cobra.Command, args []string) error {
		refreshLog := watchlist.NewRefreshLog(cfg.Paths.LogDir())
		registry := watchlist.NewRegistry(cfg.Fetch.SourceURLOverrides())

		formatSources(os.Stdout, registry, refreshLog)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

// formatSources writes a tabular source listing to w.
func formatSources(out io.Writer, registry *watchlist.Registry, log *watchlist.RefreshLog) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SOURCE\tLIST\tPUBLISHER\tLAST DOWNLOAD\tURL")
	_, _ = fmt.Fprintln(w, "------\t----\t---------\t-------------\t---")

	for _, src := range registry.All() {
		last := log.Last(src.Name())
		if last == "" {
			last = "never"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			src.Name(), src.ListName(), src.Publisher(), last, src.FeedURL())
	}
	_ = w.Flush()
}
