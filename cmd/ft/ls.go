package main

import (
	"fmt"
	"io"
	"log"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/ft/pkg/metrics"
	"github.com/vanderheijden86/ft/pkg/tree"
	"github.com/vanderheijden86/ft/pkg/ui"
)

// NewLsCmd creates the non-interactive listing command.
func NewLsCmd(a *app) *cobra.Command {
	var (
		query       string
		expandAll   bool
		expandDepth int
		best        bool
		showMetrics bool
		inWorkspace bool
	)
	cmd := &cobra.Command{
		Use:   "ls [source]",
		Short: "Print the visible tree as indented text",
		Long: `Print the nodes the explorer would show, one per line, indented by depth.
Containers end in "/". With --query only matches and their ancestors are
printed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			warn := func(msg string) { fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", msg) }
			var (
				l   *tree.Listing
				err error
			)
			if inWorkspace {
				l, _, err = a.loadWorkspace(cmd, log.New(cmd.ErrOrStderr(), "", 0), warn)
			} else {
				l, _, err = a.load(cmd, args, best, warn)
			}
			if err != nil {
				return err
			}
			depth := a.cfg.UI.ExpandDepth
			if cmd.Flags().Changed("expand-depth") {
				depth = expandDepth
			}
			e, err := a.newEngine(l, depth)
			if err != nil {
				return err
			}
			if expandAll {
				e.ExpandAll()
			}
			if query != "" {
				e.SearchSync(cmd.Context(), query)
			}
			if err := ui.WritePlain(cmd.OutOrStdout(), e); err != nil {
				return err
			}
			if showMetrics {
				return writeMetrics(cmd.ErrOrStderr())
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "print only matches and their ancestors")
	cmd.Flags().BoolVarP(&expandAll, "expand-all", "a", false, "expand every container")
	cmd.Flags().IntVar(&expandDepth, "expand-depth", 0, "expand containers down to this depth")
	cmd.Flags().BoolVar(&best, "best", false, "for a directory, read its freshest saved listing instead of walking it")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print timing metrics to stderr")
	cmd.Flags().BoolVarP(&inWorkspace, "workspace", "w", false, "list every configured source, each under its name")
	return cmd
}

func writeMetrics(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METRIC\tCOUNT\tTOTAL ms\tAVG ms\tMAX ms")
	for _, s := range metrics.AllTimingStats() {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%.2f\n", s.Name, s.Count, s.TotalMs, s.AvgMs, s.MaxMs)
	}
	return tw.Flush()
}
