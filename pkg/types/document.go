// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Heading is a Markdown heading found in a document body.
type Heading struct {
	Level int    `json:"level" yaml:"level"`
	Text  string `json:"text" yaml:"text"`
}

// Document is a parsed source document.
type Document struct {
	// ID is a slug derived from Path (e.g. "guide-getting-started").
	ID string `json:"id" yaml:"id"`

	// Path is the slash-separated path relative to the source directory.
	Path string `json:"path" yaml:"path"`

	// Title is the front-matter title.
	Title string `json:"title" yaml:"title"`

	// Checksum is the hex SHA-256 of the raw source text.
	Checksum string `json:"checksum" yaml:"checksum"`

	// ModTime is the source file modification time.
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`

	// Headings is the body outline in document order.
	Headings []Heading `json:"headings,omitempty" yaml:"headings,omitempty"`

	// Body is the text after the front matter, verbatim.
	Body string `json:"-" yaml:"-"`

	// Newline is the delimiter terminator ("\n" or "\r\n") the source used.
	Newline string `json:"-" yaml:"-"`
}

// Manifest describes one successful build.
type Manifest struct {
	// BuildID uniquely identifies the build.
	BuildID string `json:"build_id" yaml:"build_id"`

	// GeneratedAt is when the manifest was written.
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`

	// Source is the source directory the build read.
	Source string `json:"source" yaml:"source"`

	// Documents lists every emitted document, sorted by path.
	Documents []Document `json:"documents" yaml:"documents"`
}

// IngestSummary holds counts from one index update.
type IngestSummary struct {
	Indexed int `json:"indexed" yaml:"indexed"`
	Updated int `json:"updated" yaml:"updated"`
	Skipped int `json:"skipped" yaml:"skipped"`
	Removed int `json:"removed" yaml:"removed"`
}

// Total returns the number of documents processed. Removed rows are not
// counted.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped
}
