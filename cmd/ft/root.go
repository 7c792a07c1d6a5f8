package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"runtime/pprof"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/ft/internal/datasource"
	"github.com/vanderheijden86/ft/pkg/config"
	"github.com/vanderheijden86/ft/pkg/debug"
	"github.com/vanderheijden86/ft/pkg/loader"
	"github.com/vanderheijden86/ft/pkg/search"
	"github.com/vanderheijden86/ft/pkg/tree"
	"github.com/vanderheijden86/ft/pkg/version"
	"github.com/vanderheijden86/ft/pkg/visible"
	"github.com/vanderheijden86/ft/pkg/workspace"
)

// app holds the state shared by every subcommand.
type app struct {
	cfgFile    string
	cfg        config.Config
	ignore     []string
	maxEntries int
	cpuProfile string

	profile *os.File
}

// NewRootCmd creates the root command. Run without a subcommand it browses.
func NewRootCmd() *cobra.Command {
	a := &app{cfg: config.DefaultConfig()}
	bo := &browseOptions{}

	rootCmd := &cobra.Command{
		Use:   "ft [source]",
		Short: "Browse a file hierarchy as a collapsible, searchable tree",
		Long: `ft shows a directory, a saved listing (JSONL or SQLite) or a listing on
stdin as an expandable tree. Type to filter, use the arrow keys to move,
and Enter to pick a file.

A source is a path, "-" for stdin, or the name of a source from the config
file. Without one, $FT_SOURCE or the working directory is used.`,
		Version:       version.Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.teardown()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBrowse(cmd, args, bo)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/ft/config.yaml)")
	pf.StringSliceVar(&a.ignore, "ignore", nil, "glob patterns to leave out (replaces the configured list)")
	pf.IntVar(&a.maxEntries, "max-entries", 0, "stop directory walks after this many entries")
	pf.StringVar(&a.cpuProfile, "cpu-profile", "", "write a CPU profile to file")
	bindBrowseFlags(rootCmd, bo)

	rootCmd.AddCommand(NewBrowseCmd(a))
	rootCmd.AddCommand(NewLsCmd(a))
	rootCmd.AddCommand(NewExportCmd(a))
	rootCmd.AddCommand(NewSourcesCmd(a))
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	var err error
	if a.cfgFile != "" {
		a.cfg, err = config.LoadFrom(a.cfgFile)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
		fmt.Fprintln(cmd.ErrOrStderr(), "Using default settings.")
		a.cfg = config.DefaultConfig()
	}

	if cmd.Flags().Changed("ignore") {
		if _, err := loader.NewIgnore(a.ignore); err != nil {
			return err
		}
	}

	if a.cpuProfile != "" {
		f, err := os.Create(a.cpuProfile)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		a.profile = f
	}
	return nil
}

func (a *app) teardown() {
	if a.profile == nil {
		return
	}
	pprof.StopCPUProfile()
	a.profile.Close()
	a.profile = nil
}

// ignorePatterns returns the --ignore list when given, else the configured
// one. Nil leaves the loader defaults in place.
func (a *app) ignorePatterns(cmd *cobra.Command) []string {
	if cmd.Flags().Changed("ignore") {
		if a.ignore == nil {
			return []string{}
		}
		return a.ignore
	}
	if len(a.cfg.Loader.Ignore) == 0 {
		return nil
	}
	return a.cfg.Loader.Ignore
}

func (a *app) loadOptions(cmd *cobra.Command, warn func(string)) datasource.LoadOptions {
	maxEntries := a.cfg.Loader.MaxEntries
	if a.maxEntries > 0 {
		maxEntries = a.maxEntries
	}
	return datasource.LoadOptions{
		Ignore:     a.ignorePatterns(cmd),
		MaxEntries: maxEntries,
		Warn:       warn,
	}
}

// resolve maps the optional source argument through the configured source
// names before handing it to datasource.Resolve.
func (a *app) resolve(args []string) (datasource.DataSource, error) {
	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}
	if arg != "" && arg != "-" {
		arg = a.cfg.ResolveSource(arg)
	}
	return datasource.Resolve(arg)
}

// load resolves and reads the source named by args. With best set and a
// directory source, the freshest saved listing for that directory wins.
func (a *app) load(cmd *cobra.Command, args []string, best bool, warn func(string)) (*tree.Listing, datasource.DataSource, error) {
	src, err := a.resolve(args)
	if err != nil {
		return nil, src, err
	}
	opts := a.loadOptions(cmd, warn)
	if best && src.Type == datasource.SourceTypeDir {
		return datasource.LoadBest(src.Path, opts)
	}
	l, err := datasource.LoadFromSource(src, opts)
	return l, src, err
}

// loadWorkspace merges every configured source into one listing. The
// returned function reloads it.
func (a *app) loadWorkspace(cmd *cobra.Command, logger *log.Logger, warn func(string)) (*tree.Listing, func() (*tree.Listing, error), error) {
	if len(a.cfg.Sources) == 0 {
		return nil, nil, errors.New("--workspace needs sources in the config file")
	}
	wl := workspace.NewAggregateLoader(a.cfg.Sources, a.loadOptions(cmd, warn))
	wl.SetLogger(logger)
	load := func() (*tree.Listing, error) {
		l, results, err := wl.LoadAll(cmd.Context())
		if err != nil {
			return nil, err
		}
		debug.Log("workspace: %s", workspace.Summarize(results))
		return l, nil
	}
	l, err := load()
	return l, load, err
}

func (a *app) newEngine(l *tree.Listing, expandDepth int, opts ...visible.Option) (*visible.Engine, error) {
	t, err := tree.Build(l)
	if err != nil {
		return nil, fmt.Errorf("build tree: %w", err)
	}
	opts = append([]visible.Option{
		visible.WithExpandDepth(expandDepth),
		visible.WithScanner(search.Matcher{ParallelThreshold: a.cfg.Search.ParallelThreshold}),
	}, opts...)
	return visible.New(t, opts...), nil
}

// NewVersionCmd prints the build version.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ft %s\n", version.Version)
		},
	}
}
