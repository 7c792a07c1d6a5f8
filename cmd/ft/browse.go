package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vanderheijden86/ft/internal/datasource"
	"github.com/vanderheijden86/ft/pkg/config"
	"github.com/vanderheijden86/ft/pkg/debug"
	"github.com/vanderheijden86/ft/pkg/loader"
	"github.com/vanderheijden86/ft/pkg/tree"
	"github.com/vanderheijden86/ft/pkg/ui"
	"github.com/vanderheijden86/ft/pkg/visible"
	"github.com/vanderheijden86/ft/pkg/watcher"
)

// AutoCloseEnvVar quits the TUI after the given number of milliseconds.
const AutoCloseEnvVar = "FT_TUI_AUTOCLOSE_MS"

type browseOptions struct {
	height      int
	expandDepth int
	activate    string
	query       string
	noWatch     bool
	mouse       bool
	best        bool
	workspace   bool
}

func bindBrowseFlags(cmd *cobra.Command, o *browseOptions) {
	f := cmd.Flags()
	f.IntVar(&o.height, "height", 0, "rows of tree to show (0 fills the terminal)")
	f.IntVar(&o.expandDepth, "expand-depth", 0, "expand containers down to this depth on open")
	f.StringVar(&o.activate, "activate", "", "what Enter on a file does: print, clipboard or open")
	f.StringVarP(&o.query, "query", "q", "", "start with this search query")
	f.BoolVar(&o.noWatch, "no-watch", false, "do not reload when the source changes")
	f.BoolVar(&o.mouse, "mouse", false, "enable mouse wheel and click")
	f.BoolVar(&o.best, "best", false, "for a directory, open its freshest saved listing instead of walking it")
	f.BoolVarP(&o.workspace, "workspace", "w", false, "show every configured source, each under its name")
}

// NewBrowseCmd creates the interactive explorer command.
func NewBrowseCmd(a *app) *cobra.Command {
	o := &browseOptions{}
	cmd := &cobra.Command{
		Use:   "browse [source]",
		Short: "Open the interactive explorer",
		Long: `Open the interactive explorer on a source.

When the chosen action is "print", the picked path is written to stdout and
the explorer draws on stderr, so it can be used as: cd "$(dirname "$(ft)")".
When neither stdout nor stderr is a terminal the tree is printed as text.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBrowse(cmd, args, o)
		},
	}
	bindBrowseFlags(cmd, o)
	return cmd
}

func (a *app) runBrowse(cmd *cobra.Command, args []string, o *browseOptions) error {
	set, err := a.settings(cmd, o)
	if err != nil {
		return err
	}

	// Warnings are held back while the TUI owns the terminal.
	var logBuf bytes.Buffer
	logger := log.New(&logBuf, "", 0)
	warn := func(msg string) { logger.Printf("Warning: %s", msg) }
	defer func() {
		if logBuf.Len() > 0 {
			cmd.ErrOrStderr().Write(logBuf.Bytes())
		}
	}()

	var (
		l      *tree.Listing
		src    datasource.DataSource
		reload func() (*tree.Listing, error)
	)
	if o.workspace {
		if len(args) > 0 {
			return errors.New("--workspace takes no source argument")
		}
		l, reload, err = a.loadWorkspace(cmd, logger, warn)
	} else {
		l, src, err = a.load(cmd, args, o.best, warn)
		if err == nil && src.Watchable() {
			loadOpts := a.loadOptions(cmd, warn)
			reload = func() (*tree.Listing, error) {
				return datasource.LoadFromSource(src, loadOpts)
			}
		}
	}
	if err != nil {
		return err
	}
	e, err := a.newEngine(l, set.expandDepth, visible.WithLogger(logger))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if o.query != "" {
		e.SearchSync(ctx, o.query)
	}

	out, ok := tuiOutput()
	if !ok {
		return ui.WritePlain(cmd.OutOrStdout(), e)
	}

	opts := ui.Options{
		Height:   set.height,
		Activate: set.activate,
		Title:    sourceTitle(src),
		Reload:   reload,
		Logger:   logger,
	}
	if src.Type == datasource.SourceTypeDir {
		opts.Root = src.Path
	}
	if !o.workspace && src.Watchable() && a.cfg.WatchEnabled() && !o.noWatch {
		w, err := a.newWatcher(cmd, src, logger)
		if err != nil {
			warn(fmt.Sprintf("live reload disabled: %v", err))
		} else {
			defer w.Stop()
			opts.Watcher = w
		}
	}
	theme := ui.DefaultTheme(lipgloss.NewRenderer(out))
	opts.Theme = &theme

	progOpts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithOutput(out)}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		progOpts = append(progOpts, tea.WithInputTTY())
	}
	if o.mouse {
		progOpts = append(progOpts, tea.WithMouseCellMotion())
	}

	final, err := runTUIProgram(ui.NewModel(ctx, e, l, opts), progOpts...)
	if err != nil {
		return err
	}
	if sel := final.Selected(); sel != "" {
		fmt.Fprintln(cmd.OutOrStdout(), sel)
	}
	return nil
}

type browseSettings struct {
	height      int
	expandDepth int
	activate    string
}

// settings merges flags over the config file.
func (a *app) settings(cmd *cobra.Command, o *browseOptions) (browseSettings, error) {
	s := browseSettings{
		height:      a.cfg.UI.Height,
		expandDepth: a.cfg.UI.ExpandDepth,
		activate:    a.cfg.UI.Activate,
	}
	if cmd.Flags().Changed("height") {
		s.height = o.height
	}
	if cmd.Flags().Changed("expand-depth") {
		s.expandDepth = o.expandDepth
	}
	if o.activate != "" {
		s.activate = o.activate
	}

	check := a.cfg
	check.UI = config.UIConfig{Height: s.height, ExpandDepth: s.expandDepth, Activate: s.activate}
	if err := check.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

func (a *app) newWatcher(cmd *cobra.Command, src datasource.DataSource, logger *log.Logger) (*watcher.Watcher, error) {
	opts := []watcher.WatcherOption{
		watcher.WithDebounceDuration(a.cfg.Watch.Debounce),
		watcher.WithOnError(func(err error) {
			logger.Printf("Warning: watcher: %v", err)
		}),
	}
	if src.Type == datasource.SourceTypeDir {
		patterns := a.ignorePatterns(cmd)
		if patterns == nil {
			patterns = loader.DefaultIgnore
		}
		ig, err := loader.NewIgnore(patterns)
		if err != nil {
			return nil, err
		}
		opts = append(opts, watcher.WithIgnore(ig))
	}
	w, err := watcher.NewWatcher(src.Path, opts...)
	if err != nil {
		return nil, err
	}
	if err := w.Start(); err != nil {
		return nil, err
	}
	debug.Log("watching %s (polling=%v, fs=%s)", src.Path, w.IsPolling(), w.FilesystemType())
	return w, nil
}

// tuiOutput picks the terminal to draw on. Stdout is preferred; when it is
// redirected the TUI moves to stderr so stdout only carries the result.
func tuiOutput() (*os.File, bool) {
	switch {
	case term.IsTerminal(int(os.Stdout.Fd())):
		return os.Stdout, true
	case term.IsTerminal(int(os.Stderr.Fd())):
		return os.Stderr, true
	default:
		return nil, false
	}
}

func sourceTitle(src datasource.DataSource) string {
	switch src.Type {
	case datasource.SourceTypeStdin:
		return "stdin"
	case "":
		return "workspace"
	}
	return filepath.Base(src.Path)
}

func runTUIProgram(m ui.Model, opts ...tea.ProgramOption) (ui.Model, error) {
	opts = append([]tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	}, opts...)
	p := tea.NewProgram(m, opts...)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	if v := os.Getenv(AutoCloseEnvVar); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()

				select {
				case <-runDone:
					return
				case <-time.After(2 * time.Second):
				}

				p.Kill()
			}()
		}
	}

	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
			return m, nil
		}
		return m, err
	}
	if fm, ok := final.(ui.Model); ok {
		return fm, nil
	}
	return m, nil
}
