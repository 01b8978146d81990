// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package builder

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/pdiddy/docsmith/internal/outline"
	"github.com/pdiddy/docsmith/pkg/frontmatter"
	"github.com/pdiddy/docsmith/pkg/types"
)

// Headers is the front matter every source document carries.
type Headers struct {
	Title string `yaml:"title"`
}

// DecodeHeaders requires a title and ignores any other keys.
var DecodeHeaders = frontmatter.Fields[Headers]("title")

// ParseDocument parses the text of the source file at relPath.
func ParseDocument(relPath, text string, modTime time.Time) (types.Document, error) {
	parsed, err := frontmatter.Parse(text, DecodeHeaders)
	if err != nil {
		return types.Document{}, err
	}

	sum := sha256.Sum256([]byte(text))
	return types.Document{
		ID:       Slug(relPath),
		Path:     relPath,
		Title:    parsed.Headers.Title,
		Checksum: hex.EncodeToString(sum[:]),
		ModTime:  modTime.UTC(),
		Headings: outline.Headings([]byte(parsed.Body)),
		Body:     parsed.Body,
		Newline:  string(parsed.Newline),
	}, nil
}

// Slug derives a document ID from a slash-separated path: the extension is
// dropped, letters are lowercased, and every run of other characters
// becomes a single "-".
func Slug(relPath string) string {
	base := strings.TrimSuffix(relPath, path.Ext(relPath))

	var b strings.Builder
	pendingDash := false
	for _, r := range base {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		pendingDash = true
	}
	if b.Len() == 0 {
		return "document"
	}
	return b.String()
}
