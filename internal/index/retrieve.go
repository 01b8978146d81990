// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/pdiddy/docsmith/internal/builder"
	"github.com/pdiddy/docsmith/internal/outline"
	"github.com/pdiddy/docsmith/pkg/types"
)

var (
	// ErrNotFound is returned when no document has the requested ID.
	ErrNotFound = errors.New("document not found")

	// ErrSectionNotFound is returned when a document has no heading with
	// the requested text.
	ErrSectionNotFound = errors.New("section not found")
)

// QueryOptions holds parameters for index queries.
type QueryOptions struct {
	// Query is an FTS5 full-text search string over titles and bodies.
	Query string

	// Title restricts results to the document with this title, compared
	// the way the builder compares titles for collisions.
	Title string

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.Title == ""
}

// QueryResult is one matching document.
type QueryResult struct {
	ID       string          `json:"id" yaml:"id"`
	Path     string          `json:"path" yaml:"path"`
	Title    string          `json:"title" yaml:"title"`
	Checksum string          `json:"checksum" yaml:"checksum"`
	Headings []types.Heading `json:"headings,omitempty" yaml:"headings,omitempty"`
	Snippet  string          `json:"snippet,omitempty" yaml:"snippet,omitempty"`
}

// Search queries the index. Full-text results are ranked by relevance;
// filter-only queries are sorted by path.
func (s *Store) Search(ctx context.Context, opts QueryOptions) ([]QueryResult, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	if useFTS {
		qb.WriteString(
			`SELECT d.id, d.path, d.title, d.checksum, d.headings,
				snippet(documents_fts, 1, '[', ']', '...', 12)
			FROM documents_fts
			JOIN documents d ON d.rowid = documents_fts.rowid
			WHERE documents_fts MATCH ?`)
		args = append(args, ftsQuery(opts.Query))
	} else {
		qb.WriteString(
			`SELECT d.id, d.path, d.title, d.checksum, d.headings, ''
			FROM documents d
			WHERE 1=1`)
	}

	if opts.Title != "" {
		qb.WriteString(` AND d.title_key = ?`)
		args = append(args, builder.TitleKey(opts.Title))
	}

	if useFTS {
		qb.WriteString(` ORDER BY documents_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY d.path`)
	}

	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		if useFTS {
			return nil, errors.WithHint(errors.Wrapf(err, "querying index for %q", opts.Query),
				"quote terms that hold FTS5 syntax, for example \"a:b\"")
		}
		return nil, errors.Wrap(err, "querying index")
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		var (
			qr           QueryResult
			headingsJSON sql.NullString
		)
		if err := rows.Scan(&qr.ID, &qr.Path, &qr.Title, &qr.Checksum, &headingsJSON, &qr.Snippet); err != nil {
			return nil, errors.Wrap(err, "scanning row")
		}
		qr.Headings = s.decodeHeadings(qr.ID, headingsJSON)
		results = append(results, qr)
	}

	return results, rows.Err()
}

// decodeHeadings decodes a stored headings column. A corrupt value is
// logged and treated as no headings.
func (s *Store) decodeHeadings(id string, raw sql.NullString) []types.Heading {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var headings []types.Heading
	if err := json.Unmarshal([]byte(raw.String), &headings); err != nil {
		s.log.Debug().Err(err).Str("id", id).Msg("ignoring undecodable headings")
		return nil
	}
	return headings
}

// ftsQuery quotes each whitespace-separated term of q that is not an FTS5
// bareword, so input like "foo-bar" or "v1.2" searches as a phrase instead
// of failing to parse. Quoted phrases, the AND, OR and NOT operators, and a
// trailing prefix "*" pass through.
func ftsQuery(q string) string {
	var (
		out  []string
		rest = strings.TrimSpace(q)
	)
	for rest != "" {
		if rest[0] == '"' {
			end := strings.IndexByte(rest[1:], '"')
			if end < 0 {
				if tail := strings.TrimSpace(rest[1:]); tail != "" {
					out = append(out, quoteTerm(tail))
				}
				break
			}
			out = append(out, rest[:end+2])
			rest = strings.TrimSpace(rest[end+2:])
			continue
		}
		term := rest
		if i := strings.IndexAny(rest, " \t\r\n"); i >= 0 {
			term, rest = rest[:i], strings.TrimSpace(rest[i:])
		} else {
			rest = ""
		}
		switch {
		case term == "AND" || term == "OR" || term == "NOT":
			out = append(out, term)
		case isBareword(strings.TrimSuffix(term, "*")):
			out = append(out, term)
		case strings.HasSuffix(term, "*") && len(term) > 1:
			out = append(out, quoteTerm(strings.TrimSuffix(term, "*"))+"*")
		default:
			out = append(out, quoteTerm(term))
		}
	}
	return strings.Join(out, " ")
}

func isBareword(term string) bool {
	if term == "" {
		return false
	}
	for _, r := range term {
		if r < 0x80 && r != '_' && !('a' <= r && r <= 'z') && !('A' <= r && r <= 'Z') && !('0' <= r && r <= '9') {
			return false
		}
	}
	return true
}

func quoteTerm(term string) string {
	return `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
}

// Document returns the indexed document with the given ID, body included.
func (s *Store) Document(ctx context.Context, id string) (types.Document, error) {
	var (
		doc          types.Document
		headingsJSON sql.NullString
		modTime      sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, path, title, checksum, headings, body, mod_time FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.Path, &doc.Title, &doc.Checksum, &headingsJSON, &doc.Body, &modTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Document{}, errors.Wrapf(ErrNotFound, "%s", id)
		}
		return types.Document{}, errors.Wrap(err, "looking up document")
	}

	doc.Headings = s.decodeHeadings(doc.ID, headingsJSON)
	if modTime.Valid && modTime.String != "" {
		if t, err := time.Parse(time.RFC3339Nano, modTime.String); err == nil {
			doc.ModTime = t
		}
	}
	return doc, nil
}

// Section returns the body text under the named heading of document id.
// An empty heading returns the whole body.
func (s *Store) Section(ctx context.Context, id, heading string) (string, error) {
	doc, err := s.Document(ctx, id)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(heading) == "" {
		return doc.Body, nil
	}

	text, ok := outline.Section([]byte(doc.Body), heading)
	if !ok {
		return "", errors.Wrapf(ErrSectionNotFound, "%q in %s", heading, id)
	}
	return text, nil
}
