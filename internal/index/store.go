// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index keeps a searchable SQLite copy of the most recent
// successful build. Document text is indexed with FTS5, so the binary
// must be built with the sqlite_fts5 tag.
package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/pdiddy/docsmith/internal/builder"
	"github.com/pdiddy/docsmith/internal/logging"
	"github.com/pdiddy/docsmith/pkg/types"
)

const (
	dbFile            = "docsmith.db"
	defaultMaxResults = 20
)

// Store manages the index database.
type Store struct {
	db         *sql.DB
	dir        string
	maxResults int
	log        zerolog.Logger
}

// NewStore opens or creates the index database at cfg.Dir/docsmith.db and
// creates the schema if it does not exist.
func NewStore(cfg types.IndexConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating index directory")
	}

	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Store{
		db:         db,
		dir:        cfg.Dir,
		maxResults: maxResults,
		log:        logging.Component("index"),
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating schema")
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			path TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			title_key TEXT NOT NULL,
			headings TEXT,
			checksum TEXT NOT NULL,
			body TEXT NOT NULL,
			mod_time TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_title_key ON documents(title_key)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.Wrap(err, "executing schema statement")
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='documents_fts'`,
	).Scan(&ftsExists); err != nil {
		return errors.Wrap(err, "checking FTS table")
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE documents_fts USING fts5(title, body, content=documents, content_rowid=rowid)`,
			`CREATE TRIGGER documents_ai AFTER INSERT ON documents BEGIN
				INSERT INTO documents_fts(rowid, title, body) VALUES (new.rowid, new.title, new.body);
			END`,
			`CREATE TRIGGER documents_ad AFTER DELETE ON documents BEGIN
				INSERT INTO documents_fts(documents_fts, rowid, title, body) VALUES('delete', old.rowid, old.title, old.body);
			END`,
			`CREATE TRIGGER documents_au AFTER UPDATE ON documents BEGIN
				INSERT INTO documents_fts(documents_fts, rowid, title, body) VALUES('delete', old.rowid, old.title, old.body);
				INSERT INTO documents_fts(rowid, title, body) VALUES (new.rowid, new.title, new.body);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return errors.Wrap(err, "creating FTS infrastructure")
			}
		}
	}

	return nil
}

// Ingest makes the index mirror docs. Documents whose checksum and ID are
// unchanged are skipped, and rows for paths absent from docs are removed.
// The whole update runs in one transaction.
func (s *Store) Ingest(ctx context.Context, docs []types.Document, w io.Writer) (types.IngestSummary, error) {
	var summary types.IngestSummary

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return summary, errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	current := make(map[string]bool, len(docs))
	for _, doc := range docs {
		current[doc.Path] = true
	}

	stale, err := stalePaths(ctx, tx, current)
	if err != nil {
		return summary, err
	}
	for _, p := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, p); err != nil {
			return summary, errors.Wrapf(err, "removing %s", p)
		}
		fmt.Fprintf(w, "removed %s\n", p)
		summary.Removed++
	}

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		var storedID, storedChecksum string
		err := tx.QueryRowContext(ctx,
			`SELECT id, checksum FROM documents WHERE path = ?`, doc.Path,
		).Scan(&storedID, &storedChecksum)
		exists := err == nil
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return summary, errors.Wrapf(err, "looking up %s", doc.Path)
		}

		if exists && storedID == doc.ID && storedChecksum == doc.Checksum {
			summary.Skipped++
			continue
		}

		if err := upsert(ctx, tx, doc); err != nil {
			return summary, errors.Wrapf(err, "indexing %s", doc.Path)
		}
		if exists {
			fmt.Fprintf(w, "updated %s\n", doc.Path)
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexed %s\n", doc.Path)
			summary.Indexed++
		}
	}

	if err := tx.Commit(); err != nil {
		return summary, errors.Wrap(err, "committing index")
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, removed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Removed)

	if summary.Indexed > 0 || summary.Updated > 0 || summary.Removed > 0 {
		if _, err := s.ExportYAML(ctx, QueryOptions{}); err != nil {
			s.log.Warn().Err(err).Msg("export.yaml write failed")
		}
	}

	return summary, nil
}

func stalePaths(ctx context.Context, tx *sql.Tx, current map[string]bool) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT path FROM documents ORDER BY path`)
	if err != nil {
		return nil, errors.Wrap(err, "listing indexed documents")
	}
	defer rows.Close()

	var stale []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, errors.Wrap(err, "scanning row")
		}
		if !current[p] {
			stale = append(stale, p)
		}
	}
	return stale, rows.Err()
}

// upsert replaces whatever row holds doc's path or ID.
func upsert(ctx context.Context, tx *sql.Tx, doc types.Document) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM documents WHERE path = ? OR id = ?`, doc.Path, doc.ID,
	); err != nil {
		return errors.Wrap(err, "deleting old row")
	}

	headingsJSON, err := json.Marshal(doc.Headings)
	if err != nil {
		return errors.Wrap(err, "encoding headings")
	}

	modTime := ""
	if !doc.ModTime.IsZero() {
		modTime = doc.ModTime.UTC().Format(time.RFC3339Nano)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (id, path, title, title_key, headings, checksum, body, mod_time)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Path, doc.Title, builder.TitleKey(doc.Title),
		string(headingsJSON), doc.Checksum, doc.Body, modTime,
	)
	return err
}
