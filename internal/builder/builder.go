// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package builder turns a tree of Markdown sources into a validated output
// tree. Every document is parsed for front matter, titles are checked for
// collisions, and only a fully valid set of documents is emitted and indexed.
package builder

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/pdiddy/docsmith/internal/logging"
	"github.com/pdiddy/docsmith/pkg/frontmatter"
	"github.com/pdiddy/docsmith/pkg/types"
)

// FailureKind classifies why a document was rejected.
type FailureKind string

const (
	KindRead             FailureKind = "read"
	KindMissingBeginning FailureKind = "missing-beginning-delimiter"
	KindMissingEnding    FailureKind = "missing-ending-delimiter"
	KindInvalidHeader    FailureKind = "invalid-header"
	KindEmptyTitle       FailureKind = "empty-title"
	KindDuplicateTitle   FailureKind = "duplicate-title"
	KindUnencodable      FailureKind = "unencodable-header"
	KindUnclassified     FailureKind = "error"
)

// Failure is a rejected document.
type Failure struct {
	Path string      `json:"path" yaml:"path"`
	Kind FailureKind `json:"kind" yaml:"kind"`
	Err  error       `json:"-" yaml:"-"`
}

func (f Failure) String() string {
	return fmt.Sprintf("%s [%s]: %v", f.Path, f.Kind, f.Err)
}

// Classify maps a ParseDocument error onto a FailureKind.
func Classify(err error) FailureKind {
	switch {
	case errors.Is(err, frontmatter.ErrMissingBeginningDelimiter):
		return KindMissingBeginning
	case errors.Is(err, frontmatter.ErrMissingEndingDelimiter):
		return KindMissingEnding
	case errors.Is(err, frontmatter.ErrInvalidHeader):
		return KindInvalidHeader
	case errors.Is(err, ErrEmptyTitle):
		return KindEmptyTitle
	case errors.Is(err, ErrDuplicateTitle):
		return KindDuplicateTitle
	case errors.Is(err, frontmatter.ErrUnencodableHeader):
		return KindUnencodable
	default:
		return KindUnclassified
	}
}

// BuildSummary holds the outcome of a build or check.
type BuildSummary struct {
	Parsed    int
	Written   int
	Unchanged int
	Removed   int
	Failed    int
	Failures  []Failure
	Documents []types.Document
	Manifest  *types.Manifest
	Index     *types.IngestSummary
}

// HasFailures reports whether any document was rejected.
func (s BuildSummary) HasFailures() bool {
	return s.Failed > 0
}

// Indexer receives the documents of every successful build.
type Indexer interface {
	Ingest(ctx context.Context, docs []types.Document, w io.Writer) (types.IngestSummary, error)
}

// Builder runs the build pipeline for one source tree.
type Builder struct {
	cfg      types.BuildConfig
	indexer  Indexer
	skipDirs []string
	log      zerolog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithIndexer ingests emitted documents into idx.
func WithIndexer(idx Indexer) Option {
	return func(b *Builder) { b.indexer = idx }
}

// WithSkipDirs excludes additional directories (such as the index
// directory) from discovery.
func WithSkipDirs(dirs ...string) Option {
	return func(b *Builder) { b.skipDirs = append(b.skipDirs, dirs...) }
}

// New creates a Builder for cfg.
func New(cfg types.BuildConfig, opts ...Option) *Builder {
	b := &Builder{
		cfg: cfg,
		log: logging.Component("builder"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Check parses and validates every document without writing anything.
func (b *Builder) Check(ctx context.Context, w io.Writer) (BuildSummary, error) {
	summary, err := b.collect(ctx, w)
	if err != nil {
		return summary, err
	}
	fmt.Fprintf(w, "\nparsed: %d, failed: %d\n", summary.Parsed, summary.Failed)
	return summary, nil
}

// Run parses and validates every document and, when none failed, writes
// the output tree and manifest and updates the index. Document failures
// are reported in the summary; the returned error is reserved for problems
// with the source or output trees themselves.
func (b *Builder) Run(ctx context.Context, w io.Writer) (BuildSummary, error) {
	summary, err := b.collect(ctx, w)
	if err != nil {
		return summary, err
	}
	if summary.HasFailures() {
		fmt.Fprintf(w, "\nparsed: %d, failed: %d (nothing written)\n", summary.Parsed, summary.Failed)
		return summary, nil
	}

	if err := b.emit(ctx, &summary); err != nil {
		return summary, err
	}
	fmt.Fprintf(w, "\nparsed: %d, written: %d, unchanged: %d, removed: %d\n",
		summary.Parsed, summary.Written, summary.Unchanged, summary.Removed)

	if b.indexer != nil {
		ingest, err := b.indexer.Ingest(ctx, summary.Documents, w)
		if err != nil {
			return summary, errors.Wrap(err, "indexing documents")
		}
		summary.Index = &ingest
	}
	return summary, nil
}

// collect discovers, parses, and validates the source documents.
func (b *Builder) collect(ctx context.Context, w io.Writer) (BuildSummary, error) {
	var summary BuildSummary

	skip := append([]string{b.cfg.OutputDir}, b.skipDirs...)
	paths, err := Discover(b.cfg.SourceDir, b.cfg.Include, b.cfg.Exclude, skip...)
	if err != nil {
		return summary, err
	}
	b.log.Debug().Int("documents", len(paths)).Str("source", b.cfg.SourceDir).Msg("discovered sources")

	taken := make(map[string]bool)
	var docs []types.Document
	for _, rel := range paths {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		doc, err := b.readDocument(rel)
		if err != nil {
			f := Failure{Path: rel, Kind: Classify(err), Err: err}
			if errors.Is(err, errRead) {
				f.Kind = KindRead
			}
			summary.Failures = append(summary.Failures, f)
			fmt.Fprintf(w, "failed  %s\n", f)
			continue
		}

		// Distinct paths may slug to the same ID ("a-b.md", "a/b.md").
		doc.ID = uniqueID(doc.ID, taken)

		b.log.Debug().Str("path", rel).Str("title", doc.Title).Int("headings", len(doc.Headings)).Msg("parsed")
		docs = append(docs, doc)
	}
	summary.Parsed = len(docs)

	docFailures := ValidateTitles(docs)
	for _, doc := range docs {
		if _, err := Render(doc); err != nil {
			docFailures = append(docFailures, Failure{Path: doc.Path, Kind: Classify(err), Err: err})
		}
	}
	sort.SliceStable(docFailures, func(i, j int) bool { return docFailures[i].Path < docFailures[j].Path })
	for _, f := range docFailures {
		fmt.Fprintf(w, "failed  %s\n", f)
	}
	summary.Failures = append(summary.Failures, docFailures...)

	rejected := make(map[string]bool, len(docFailures))
	for _, f := range docFailures {
		rejected[f.Path] = true
	}
	for _, doc := range docs {
		if !rejected[doc.Path] {
			summary.Documents = append(summary.Documents, doc)
		}
	}
	summary.Failed = len(summary.Failures)

	if summary.Failed > 0 {
		b.log.Warn().Int("failed", summary.Failed).Msg("documents rejected")
	}
	return summary, nil
}

// uniqueID returns id, or id with the first "-N" suffix (N >= 2) not yet
// in taken, and marks the result as taken.
func uniqueID(id string, taken map[string]bool) string {
	candidate := id
	for n := 2; taken[candidate]; n++ {
		candidate = fmt.Sprintf("%s-%d", id, n)
	}
	taken[candidate] = true
	return candidate
}

var errRead = errors.New("reading source")

func (b *Builder) readDocument(rel string) (types.Document, error) {
	full := filepath.Join(b.cfg.SourceDir, filepath.FromSlash(rel))

	info, err := os.Stat(full)
	if err != nil {
		return types.Document{}, errors.Mark(errors.Wrap(err, "reading source"), errRead)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return types.Document{}, errors.Mark(errors.Wrap(err, "reading source"), errRead)
	}
	return ParseDocument(rel, string(data), info.ModTime())
}
