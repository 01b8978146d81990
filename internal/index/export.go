// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"go.yaml.in/yaml/v3"
)

// ExportEntry is one document in an export file.
type ExportEntry struct {
	ID       string   `json:"id" yaml:"id"`
	Path     string   `json:"path" yaml:"path"`
	Title    string   `json:"title" yaml:"title"`
	Checksum string   `json:"checksum" yaml:"checksum"`
	Headings []string `json:"headings,omitempty" yaml:"headings,omitempty"`
}

const exportLimit = 100000

// ExportYAML writes the index to <dir>/export.yaml and returns its path.
// It supports the same filters as Search.
func (s *Store) ExportYAML(ctx context.Context, opts QueryOptions) (string, error) {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(entries)
	if err != nil {
		return "", errors.Wrap(err, "marshaling YAML")
	}
	return s.writeExport("export.yaml", data)
}

// ExportJSON writes the index to <dir>/export.json and returns its path.
// It supports the same filters as Search.
func (s *Store) ExportJSON(ctx context.Context, opts QueryOptions) (string, error) {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshaling JSON")
	}
	return s.writeExport("export.json", data)
}

func (s *Store) writeExport(name string, data []byte) (string, error) {
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "writing %s", name)
	}
	return path, nil
}

func (s *Store) exportEntries(ctx context.Context, opts QueryOptions) ([]ExportEntry, error) {
	opts.MaxResults = exportLimit
	results, err := s.Search(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "querying for export")
	}

	entries := make([]ExportEntry, len(results))
	for i, r := range results {
		entries[i] = ExportEntry{
			ID:       r.ID,
			Path:     r.Path,
			Title:    r.Title,
			Checksum: r.Checksum,
		}
		for _, h := range r.Headings {
			entries[i].Headings = append(entries[i].Headings, h.Text)
		}
	}
	return entries, nil
}
