// Package store persists parsed files and a flat declaration index in
// SQLite or DuckDB.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/swiftast/pkg/ast"
)

// ErrNotFound indicates the requested file is not indexed.
var ErrNotFound = errors.New("file not indexed")

var log = commonlog.GetLogger("swiftast.store")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started TEXT NOT NULL,
		finished TEXT,
		files INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS files (
		path TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		digest TEXT NOT NULL,
		diagnostics INTEGER NOT NULL,
		ast BLOB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS decls (
		path TEXT NOT NULL,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		parent TEXT NOT NULL,
		access TEXT NOT NULL,
		line INTEGER NOT NULL
	)`,
}

// Decl is one row of the declaration index.
type Decl struct {
	Path   string
	Kind   ast.DeclKind
	Name   string
	Parent string // enclosing type, "" at top level
	Access string
	Line   int // 1-based start line, 0 when the range is unknown
}

// Filter selects declarations. Empty fields match everything; Name
// matches as a prefix.
type Filter struct {
	Kind   string
	Name   string
	Access string
	Path   string
}

// Store is a declaration index backed by database/sql.
type Store struct {
	db     *sql.DB
	driver string
	mu     sync.Mutex
}

// Open opens or creates an index. driver is "sqlite" or "duckdb"; dsn is a
// file path for both.
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case "sqlite", "duckdb":
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
	if dir := filepath.Dir(dsn); dsn != "" && dsn != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s := &Store{db: db, driver: driver}

	if driver == "sqlite" {
		if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting busy timeout: %w", err)
		}
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating table: %w", err)
		}
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Driver returns the database driver name.
func (s *Store) Driver() string {
	return s.driver
}

// Digest returns the hex SHA-256 of dump text, used to skip unchanged files.
func Digest(dump string) string {
	sum := sha256.Sum256([]byte(dump))
	return hex.EncodeToString(sum[:])
}

// Run groups the files written by one index invocation.
type Run struct {
	ID    string
	store *Store
	files int
}

// BeginRun records the start of an index run.
func (s *Store) BeginRun(ctx context.Context) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (id, started) VALUES (?, ?)",
		id, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("starting run: %w", err)
	}
	log.Infof("index run %s started", id)
	return &Run{ID: id, store: s}, nil
}

// Put stores f and replaces its declarations. diagnostics is the number
// of errors recovered from while parsing.
func (r *Run) Put(ctx context.Context, f *ast.File, digest string, diagnostics int) error {
	if f.Path == "" {
		return errors.New("storing file: empty path")
	}
	data, err := ast.MarshalFile(f)
	if err != nil {
		return fmt.Errorf("storing %s: %w", f.Path, err)
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storing %s: %w", f.Path, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM files WHERE path = ?", f.Path); err != nil {
		return fmt.Errorf("storing %s: %w", f.Path, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO files (path, run_id, digest, diagnostics, ast) VALUES (?, ?, ?, ?, ?)",
		f.Path, r.ID, digest, diagnostics, data,
	); err != nil {
		return fmt.Errorf("storing %s: %w", f.Path, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM decls WHERE path = ?", f.Path); err != nil {
		return fmt.Errorf("storing %s: %w", f.Path, err)
	}
	for _, d := range Flatten(f) {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO decls (path, kind, name, parent, access, line) VALUES (?, ?, ?, ?, ?, ?)",
			d.Path, d.Kind.String(), d.Name, d.Parent, d.Access, d.Line,
		); err != nil {
			return fmt.Errorf("indexing %s: %w", f.Path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storing %s: %w", f.Path, err)
	}
	r.files++
	return nil
}

// Finish records the end of the run.
func (r *Run) Finish(ctx context.Context) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"UPDATE runs SET finished = ?, files = ? WHERE id = ?",
		time.Now().UTC().Format(time.RFC3339), r.files, r.ID)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	log.Infof("index run %s finished: %d files", r.ID, r.files)
	return nil
}

// Flatten lists the declarations of f with type members attributed to
// their enclosing type. Top-level code has no name and is not listed.
func Flatten(f *ast.File) []Decl {
	var out []Decl
	var add func(d ast.Declaration, parent string)
	add = func(d ast.Declaration, parent string) {
		if d.Kind() == ast.DeclTopLevelCode {
			return
		}
		row := Decl{
			Path:   f.Path,
			Kind:   d.Kind(),
			Name:   ast.NameOf(d),
			Parent: parent,
			Access: ast.AccessOf(d),
		}
		if r := d.SourceRange(); r != nil {
			row.Line = r.Start.Line + 1
		}
		out = append(out, row)
		if td, ok := ast.TypeDeclOf(d); ok {
			for _, m := range td.Members {
				add(m, td.Name)
			}
		}
	}
	for _, d := range f.Declarations() {
		add(d, "")
	}
	return out
}

// Load returns the stored AST of path.
func (s *Store) Load(ctx context.Context, path string) (*ast.File, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT ast FROM files WHERE path = ?", path).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	f, err := ast.UnmarshalFile(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return f, nil
}

// FileDigest returns the digest stored for path, or "" if it is not indexed.
func (s *Store) FileDigest(ctx context.Context, path string) (string, error) {
	var digest string
	err := s.db.QueryRowContext(ctx, "SELECT digest FROM files WHERE path = ?", path).Scan(&digest)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading digest of %s: %w", path, err)
	}
	return digest, nil
}

// Files lists the indexed paths in order.
func (s *Store) Files(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT path FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("listing files: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Remove drops path and its declarations from the index.
func (s *Store) Remove(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, q := range []string{"DELETE FROM decls WHERE path = ?", "DELETE FROM files WHERE path = ?"} {
		if _, err := s.db.ExecContext(ctx, q, path); err != nil {
			return fmt.Errorf("removing %s: %w", path, err)
		}
	}
	return nil
}

// Query returns the declarations matching filter ordered by path and line.
func (s *Store) Query(ctx context.Context, filter Filter) ([]Decl, error) {
	var where []string
	var args []any
	if filter.Kind != "" {
		if _, ok := ast.ParseDeclKind(filter.Kind); !ok {
			return nil, fmt.Errorf("unknown declaration kind %q", filter.Kind)
		}
		where = append(where, "kind = ?")
		args = append(args, filter.Kind)
	}
	if filter.Name != "" {
		where = append(where, "name LIKE ? ESCAPE '\\'")
		args = append(args, escapeLike(filter.Name)+"%")
	}
	if filter.Access != "" {
		where = append(where, "access = ?")
		args = append(args, filter.Access)
	}
	if filter.Path != "" {
		where = append(where, "path = ?")
		args = append(args, filter.Path)
	}

	q := "SELECT path, kind, name, parent, access, line FROM decls"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY path, line, name"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying declarations: %w", err)
	}
	defer rows.Close()

	var out []Decl
	for rows.Next() {
		var d Decl
		var kind string
		if err := rows.Scan(&d.Path, &kind, &d.Name, &d.Parent, &d.Access, &d.Line); err != nil {
			return nil, fmt.Errorf("querying declarations: %w", err)
		}
		d.Kind, _ = ast.ParseDeclKind(kind)
		out = append(out, d)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
