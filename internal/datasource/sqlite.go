package datasource

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/ft/pkg/tree"
)

// SQLiteReader provides read access to a listing database. The database
// holds one row per entry:
//
//	CREATE TABLE entries (path TEXT PRIMARY KEY, type TEXT NOT NULL,
//	                      truncated INTEGER NOT NULL DEFAULT 0, updated_at TEXT)
type SQLiteReader struct {
	db   *sql.DB
	path string
}

// NewSQLiteReader opens a SQLite database for reading
func NewSQLiteReader(source DataSource) (*SQLiteReader, error) {
	if source.Type != SourceTypeSQLite {
		return nil, fmt.Errorf("source is not SQLite: %s", source.Type)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", source.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Best effort; a read-only database may refuse some of these.
	for _, pragma := range []string{
		"PRAGMA cache_size = -16000",
		"PRAGMA temp_store = MEMORY",
	} {
		_, _ = db.Exec(pragma)
	}

	return &SQLiteReader{db: db, path: source.Path}, nil
}

// Close closes the database connection
func (r *SQLiteReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadListing reads every entry into a listing. Rows with an unknown type
// are reported through warn and skipped.
func (r *SQLiteReader) LoadListing(warn func(string)) (*tree.Listing, error) {
	if warn == nil {
		warn = func(string) {}
	}

	rows, err := r.db.Query(`SELECT path, type, truncated FROM entries`)
	withTruncated := true
	if err != nil {
		// Older snapshots carry only path and type.
		rows, err = r.db.Query(`SELECT path, type FROM entries`)
		withTruncated = false
	}
	if err != nil {
		return nil, fmt.Errorf("query entries in %s: %w", r.path, err)
	}
	defer rows.Close()

	l := tree.NewListing()
	var truncated []string
	for rows.Next() {
		var p, typ string
		var trunc sql.NullBool
		if withTruncated {
			err = rows.Scan(&p, &typ, &trunc)
		} else {
			err = rows.Scan(&p, &typ)
		}
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}

		kind, ok := parseType(typ)
		if !ok {
			warn(fmt.Sprintf("skipping %s: unknown entry type %q", p, typ))
			continue
		}
		l.Add(p, kind)
		if trunc.Valid && trunc.Bool {
			truncated = append(truncated, p)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read entries: %w", err)
	}
	for _, p := range truncated {
		l.MarkTruncated(p)
	}
	return l, nil
}

// CountEntries returns the number of rows in the entries table
func (r *SQLiteReader) CountEntries() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// GetLastModified returns the most recent updated_at, or the zero time when
// the column is missing or empty.
func (r *SQLiteReader) GetLastModified() (time.Time, error) {
	var updatedAt sql.NullString
	if err := r.db.QueryRow("SELECT MAX(updated_at) FROM entries").Scan(&updatedAt); err != nil {
		if strings.Contains(err.Error(), "no such column") {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	if !updatedAt.Valid || updatedAt.String == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, updatedAt.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse updated_at %q: %w", updatedAt.String, err)
	}
	return t, nil
}

func parseType(typ string) (tree.Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "tree", "dir", "directory", "container":
		return tree.Container, true
	case "blob", "file", "leaf", "commit", "symlink":
		return tree.Leaf, true
	}
	return tree.Leaf, false
}
