package datasource

import (
	"bufio"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/ft/pkg/loader"
	"github.com/vanderheijden86/ft/pkg/tree"
)

// SchemaVersion is recorded in the meta table of exported databases.
const SchemaVersion = 1

// CreateSchema creates the entries and meta tables.
func CreateSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			path TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			truncated INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// ExportSQLite writes l to a fresh database at path. The file is written
// under a temporary name and renamed into place. The temporary file is
// removed when the export fails.
func ExportSQLite(l *tree.Listing, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale temp file: %w", err)
	}
	if err := writeSQLite(l, tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("move database into place: %w", err)
	}
	return nil
}

func writeSQLite(l *tree.Listing, file string) (err error) {
	db, err := sql.Open("sqlite", file)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close database: %w", cerr)
		}
	}()

	if err := CreateSchema(db); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO entries (path, type, truncated, updated_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, p := range sortedPaths(l) {
		e := l.Entries[p]
		if _, err := stmt.Exec(p, wireType(e.Kind), e.Truncated, now); err != nil {
			return fmt.Errorf("insert %s: %w", p, err)
		}
	}
	for k, v := range map[string]string{
		"schema_version": fmt.Sprint(SchemaVersion),
		"exported_at":    now,
		"entry_count":    fmt.Sprint(l.Len()),
	} {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("write meta: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ExportJSONL writes l as one {"path","type"} object per line, sorted by
// path. Truncated directories carry "truncated":true.
func ExportJSONL(l *tree.Listing, w io.Writer) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, p := range sortedPaths(l) {
		e := l.Entries[p]
		if err := enc.Encode(loader.Entry{Path: p, Type: wireType(e.Kind), Truncated: e.Truncated}); err != nil {
			return fmt.Errorf("encode %s: %w", p, err)
		}
	}
	return bw.Flush()
}

func wireType(k tree.Kind) string {
	switch k {
	case tree.Container:
		return "tree"
	case tree.Leaf:
		return "blob"
	default:
		panic(fmt.Sprintf("datasource: unhandled node kind %v", k))
	}
}

func sortedPaths(l *tree.Listing) []string {
	paths := make([]string, 0, l.Len())
	for p := range l.Entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
