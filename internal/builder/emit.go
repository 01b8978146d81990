// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package builder

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/docsmith/pkg/frontmatter"
	"github.com/pdiddy/docsmith/pkg/types"
)

// ManifestFile is the manifest name inside the output directory.
const ManifestFile = "manifest.yaml"

// now is replaced in tests.
var now = time.Now

// emit writes every document in canonical form, removes outputs of
// documents that disappeared since the previous manifest, and writes the
// new manifest.
func (b *Builder) emit(ctx context.Context, summary *BuildSummary) error {
	outDir := b.cfg.OutputDir
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errors.Wrapf(err, "creating output directory %s", outDir)
	}

	previous, err := ReadManifest(outDir)
	if err != nil {
		b.log.Warn().Err(err).Msg("ignoring unreadable previous manifest")
		previous = nil
	}

	current := make(map[string]bool, len(summary.Documents))
	for _, doc := range summary.Documents {
		if err := ctx.Err(); err != nil {
			return err
		}
		current[doc.Path] = true

		content, err := Render(doc)
		if err != nil {
			return errors.Wrapf(err, "formatting %s", doc.Path)
		}

		dest := filepath.Join(outDir, filepath.FromSlash(doc.Path))
		written, err := writeIfChanged(dest, []byte(content))
		if err != nil {
			return errors.Wrapf(err, "writing %s", doc.Path)
		}
		if written {
			summary.Written++
		} else {
			summary.Unchanged++
		}
	}

	if previous != nil {
		for _, old := range previous.Documents {
			if current[old.Path] {
				continue
			}
			stale := filepath.Join(outDir, filepath.FromSlash(old.Path))
			if err := os.Remove(stale); err != nil && !errors.Is(err, os.ErrNotExist) {
				return errors.Wrapf(err, "removing stale output %s", old.Path)
			}
			b.log.Debug().Str("path", old.Path).Msg("removed stale output")
			summary.Removed++
		}
	}

	manifest := &types.Manifest{
		BuildID:     uuid.NewString(),
		GeneratedAt: now().UTC(),
		Source:      b.cfg.SourceDir,
		Documents:   summary.Documents,
	}
	if err := WriteManifest(outDir, manifest); err != nil {
		return err
	}
	summary.Manifest = manifest
	return nil
}

// Render returns the canonical text of doc: its Headers re-encoded with
// the source's newline variant, followed by the body.
func Render(doc types.Document) (string, error) {
	return frontmatter.Format(Headers{Title: doc.Title}, doc.Body, frontmatter.Newline(doc.Newline))
}

// WriteManifest writes m to dir/manifest.yaml.
func WriteManifest(dir string, m *types.Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "marshaling manifest")
	}
	if err := writeAtomic(filepath.Join(dir, ManifestFile), data); err != nil {
		return errors.Wrap(err, "writing manifest")
	}
	return nil
}

// ReadManifest loads dir/manifest.yaml. It returns nil without error when
// no manifest exists.
func ReadManifest(dir string) (*types.Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "reading manifest")
	}
	var m types.Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "parsing manifest")
	}
	return &m, nil
}

// writeIfChanged writes data to path unless the file already holds exactly
// data. It reports whether a write happened.
func writeIfChanged(path string, data []byte) (bool, error) {
	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, data) {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}
	return true, writeAtomic(path, data)
}

// writeAtomic writes data to a temp file beside path and renames it into place.
func writeAtomic(path string, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".docsmith-*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(data)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return errors.Wrap(writeErr, "writing temp file")
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return errors.Wrap(closeErr, "closing temp file")
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "setting permissions")
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "renaming temp file")
	}
	return nil
}
