package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/ft/internal/datasource"
	"github.com/vanderheijden86/ft/pkg/hooks"
	"github.com/vanderheijden86/ft/pkg/tree"
)

const (
	formatJSONL  = "jsonl"
	formatSQLite = "sqlite"
)

// NewExportCmd creates the command that saves a listing.
func NewExportCmd(a *app) *cobra.Command {
	var (
		format   string
		output   string
		snapshot bool
		noHooks  bool
	)
	cmd := &cobra.Command{
		Use:   "export [source]",
		Short: "Save a listing as JSONL or SQLite",
		Long: `Read a source and write its listing.

JSONL goes to stdout unless --output is set. SQLite needs --output, or
--snapshot to write <dir>/.ft/listing.db where later runs with --best will
find it. When the output already holds a listing, a summary of what changed
is printed to stderr.

Commands in <dir>/.ft/hooks.yaml (or ./.ft/hooks.yaml for other sources)
run before and after the write, with FT_SOURCE_PATH, FT_EXPORT_PATH,
FT_EXPORT_FORMAT, FT_ENTRY_COUNT and FT_TIMESTAMP set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			warn := func(msg string) { fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", msg) }
			l, src, err := a.load(cmd, args, false, warn)
			if err != nil {
				return err
			}

			if snapshot {
				if src.Type != datasource.SourceTypeDir {
					return errors.New("--snapshot needs a directory source")
				}
				if output != "" {
					return errors.New("--snapshot and --output are mutually exclusive")
				}
				output = filepath.Join(src.Path, datasource.SnapshotDir, "listing.db")
			}
			if format == "" {
				format = formatFor(output)
			}

			write, err := exportWriter(cmd, l, format, output)
			if err != nil {
				return err
			}

			projectDir := ""
			if src.Type == datasource.SourceTypeDir {
				projectDir = src.Path
			}
			exportPath := output
			if exportPath == "" {
				exportPath = "-"
			}
			hookCtx := hooks.ExportContext{
				SourcePath:   src.Path,
				ExportPath:   exportPath,
				ExportFormat: format,
				EntryCount:   l.Len(),
				Timestamp:    time.Now(),
			}
			executor, err := hooks.RunHooks(projectDir, hookCtx, noHooks)
			if err != nil {
				return err
			}
			if executor != nil {
				defer func() {
					fmt.Fprint(cmd.ErrOrStderr(), executor.Summary())
				}()
				if err := executor.RunPreExport(); err != nil {
					return err
				}
			}

			if err := write(); err != nil {
				return err
			}
			if executor != nil {
				return executor.RunPostExport()
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "jsonl or sqlite (default from the output extension)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write")
	cmd.Flags().BoolVar(&snapshot, "snapshot", false, "write a SQLite snapshot into the directory's .ft folder")
	cmd.Flags().BoolVar(&noHooks, "no-hooks", false, "skip the hooks in .ft/hooks.yaml")
	return cmd
}

// exportWriter validates the format and output and returns the write step.
func exportWriter(cmd *cobra.Command, l *tree.Listing, format, output string) (func() error, error) {
	switch format {
	case formatJSONL:
		if output == "" {
			return func() error { return datasource.ExportJSONL(l, cmd.OutOrStdout()) }, nil
		}
		return func() error {
			reportChanges(cmd, output, l)
			return writeJSONLFile(l, output)
		}, nil
	case formatSQLite:
		if output == "" {
			return nil, errors.New("sqlite export needs --output or --snapshot")
		}
		return func() error {
			reportChanges(cmd, output, l)
			if err := datasource.ExportSQLite(l, output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d entries to %s\n", l.Len(), output)
			return nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown format %q (want %s or %s)", format, formatJSONL, formatSQLite)
	}
}

func formatFor(output string) string {
	switch strings.ToLower(filepath.Ext(output)) {
	case ".db", ".sqlite", ".sqlite3":
		return formatSQLite
	default:
		return formatJSONL
	}
}

func writeJSONLFile(l *tree.Listing, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := datasource.ExportJSONL(l, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// reportChanges compares l with a listing already saved at path.
func reportChanges(cmd *cobra.Command, path string, l *tree.Listing) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	prev, err := datasource.LoadFromSource(sourceAt(path), datasource.LoadOptions{Warn: func(string) {}})
	if err != nil {
		return
	}
	d := datasource.DiffListings(prev, l)
	fmt.Fprintf(cmd.ErrOrStderr(), "Changes since last export: %s\n", d.Summary())
	if d.HasChanges() {
		fmt.Fprint(cmd.ErrOrStderr(), d.Details(10))
	}
}

func sourceAt(path string) datasource.DataSource {
	if formatFor(path) == formatSQLite {
		return datasource.DataSource{Type: datasource.SourceTypeSQLite, Path: path}
	}
	return datasource.DataSource{Type: datasource.SourceTypeFile, Path: path}
}
