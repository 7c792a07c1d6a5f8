package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/ft/internal/datasource"
	"github.com/vanderheijden86/ft/pkg/config"
)

// NewSourcesCmd lists configured source names and the listings found for a
// directory.
func NewSourcesCmd(a *app) *cobra.Command {
	var (
		asJSON  bool
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "sources [dir]",
		Short: "List configured sources and saved listings for a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) > 0 {
				dir = a.cfg.ResolveSource(args[0])
			}
			found, err := datasource.DiscoverSources(datasource.DiscoveryOptions{
				Dir:                    dir,
				ValidateAfterDiscovery: true,
				IncludeInvalid:         true,
				Verbose:                verbose,
				Logger: func(msg string) {
					fmt.Fprintln(cmd.ErrOrStderr(), msg)
				},
			})
			if err != nil {
				return err
			}
			best, bestErr := datasource.SelectBestSource(found)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Configured []config.Source         `json:"configured"`
					Discovered []datasource.DataSource `json:"discovered"`
				}{a.cfg.Sources, found})
			}

			if len(a.cfg.Sources) > 0 {
				fmt.Fprintln(out, "Configured:")
				for _, s := range a.cfg.Sources {
					fmt.Fprintf(out, "  %s\t%s\n", s.Name, s.Path)
				}
				fmt.Fprintln(out)
			}
			fmt.Fprintln(out, "Discovered:")
			for _, s := range found {
				mark := " "
				if bestErr == nil && s.Path == best.Path {
					mark = "*"
				}
				fmt.Fprintf(out, "%s %s\n", mark, s.String())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log discovery steps to stderr")
	return cmd
}
