package builder

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/docsmith/pkg/frontmatter"
	"github.com/pdiddy/docsmith/pkg/types"
)

type fakeIndexer struct {
	calls int
	docs  []types.Document
}

func (f *fakeIndexer) Ingest(_ context.Context, docs []types.Document, _ io.Writer) (types.IngestSummary, error) {
	f.calls++
	f.docs = docs
	return types.IngestSummary{Indexed: len(docs)}, nil
}

func newTestBuilder(t *testing.T, files map[string]string, opts ...Option) (*Builder, types.BuildConfig) {
	t.Helper()
	root := t.TempDir()
	writeFiles(t, root, files)
	cfg := types.BuildConfig{
		SourceDir: root,
		OutputDir: filepath.Join(root, "dist"),
		Include:   []string{"**/*.md"},
	}
	return New(cfg, opts...), cfg
}

func readOutput(t *testing.T, cfg types.BuildConfig, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func TestRun_WritesOutputAndManifest(t *testing.T) {
	idx := &fakeIndexer{}
	b, cfg := newTestBuilder(t, map[string]string{
		"index.md":         "---\ntitle: Welcome\n---\nHello.\n",
		"guide/install.md": "---\ntitle: Install\nauthor: someone\n---\n# Linux\n\nSteps.\n",
		"notes.txt":        "not markdown",
	}, WithIndexer(idx))

	var out strings.Builder
	summary, err := b.Run(context.Background(), &out)
	require.NoError(t, err)

	assert.False(t, summary.HasFailures())
	assert.Equal(t, 2, summary.Parsed)
	assert.Equal(t, 2, summary.Written)
	assert.Contains(t, out.String(), "parsed: 2, written: 2, unchanged: 0, removed: 0")

	assert.Equal(t, "---\ntitle: Welcome\n---\nHello.\n", readOutput(t, cfg, "index.md"))
	assert.Equal(t, "---\ntitle: Install\n---\n# Linux\n\nSteps.\n", readOutput(t, cfg, "guide/install.md"))
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "notes.txt"))

	manifest, err := ReadManifest(cfg.OutputDir)
	require.NoError(t, err)
	require.NotNil(t, manifest)
	assert.NotEmpty(t, manifest.BuildID)
	require.Len(t, manifest.Documents, 2)
	assert.Equal(t, "guide/install.md", manifest.Documents[0].Path)
	assert.Equal(t, "guide-install", manifest.Documents[0].ID)
	assert.Equal(t, summary.Manifest.BuildID, manifest.BuildID)

	assert.Equal(t, 1, idx.calls)
	assert.Len(t, idx.docs, 2)
	require.NotNil(t, summary.Index)
	assert.Equal(t, 2, summary.Index.Indexed)
}

func TestRun_PreservesCRLF(t *testing.T) {
	b, cfg := newTestBuilder(t, map[string]string{
		"win.md": "---\r\ntitle: Windows\r\nextra: 1\r\n---\r\nLine one.\r\nLine two.\r\n",
	})

	_, err := b.Run(context.Background(), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "---\r\ntitle: Windows\r\n---\r\nLine one.\r\nLine two.\r\n", readOutput(t, cfg, "win.md"))
}

func TestRun_Incremental(t *testing.T) {
	b, cfg := newTestBuilder(t, map[string]string{
		"a.md": "---\ntitle: A\n---\na\n",
		"b.md": "---\ntitle: B\n---\nb\n",
	})

	first, err := b.Run(context.Background(), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Written)

	second, err := b.Run(context.Background(), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Written)
	assert.Equal(t, 2, second.Unchanged)
	assert.NotEqual(t, first.Manifest.BuildID, second.Manifest.BuildID)

	require.NoError(t, os.Remove(filepath.Join(cfg.SourceDir, "b.md")))
	third, err := b.Run(context.Background(), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 1, third.Unchanged)
	assert.Equal(t, 1, third.Removed)
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "b.md"))
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "a.md"))
}

func TestRun_FailuresWriteNothing(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		kinds map[string]FailureKind
	}{
		{
			name: "duplicate titles",
			files: map[string]string{
				"a.md": "---\ntitle: Same\n---\n",
				"b.md": "---\ntitle: same\n---\n",
				"c.md": "---\ntitle: Fine\n---\n",
			},
			kinds: map[string]FailureKind{"a.md": KindDuplicateTitle, "b.md": KindDuplicateTitle},
		},
		{
			name: "parse failures",
			files: map[string]string{
				"plain.md":  "no front matter\n",
				"open.md":   "---\ntitle: x\n",
				"broken.md": "---\ntitle: [\n---\n",
				"empty.md":  "---\ntitle: \"\"\n---\n",
				"ok.md":     "---\ntitle: Ok\n---\n",
			},
			kinds: map[string]FailureKind{
				"plain.md":  KindMissingBeginning,
				"open.md":   KindMissingEnding,
				"broken.md": KindInvalidHeader,
				"empty.md":  KindEmptyTitle,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := &fakeIndexer{}
			b, cfg := newTestBuilder(t, tt.files, WithIndexer(idx))

			var out strings.Builder
			summary, err := b.Run(context.Background(), &out)
			require.NoError(t, err)

			assert.True(t, summary.HasFailures())
			assert.Equal(t, len(tt.kinds), summary.Failed)
			got := make(map[string]FailureKind)
			for _, f := range summary.Failures {
				got[f.Path] = f.Kind
			}
			assert.Equal(t, tt.kinds, got)

			assert.Contains(t, out.String(), "(nothing written)")
			assert.NoDirExists(t, cfg.OutputDir)
			assert.Zero(t, idx.calls)
		})
	}
}

func TestRun_SkipsOutputAndExtraDirs(t *testing.T) {
	b, cfg := newTestBuilder(t, map[string]string{
		"a.md":             "---\ntitle: A\n---\n",
		".docsmith/x.md":   "---\ntitle: A\n---\n",
		"dist/previous.md": "---\ntitle: A\n---\n",
	})
	b = New(cfg, WithSkipDirs(filepath.Join(cfg.SourceDir, ".docsmith")))

	summary, err := b.Run(context.Background(), io.Discard)
	require.NoError(t, err)
	assert.False(t, summary.HasFailures())
	assert.Equal(t, 1, summary.Parsed)
}

func TestRun_DuplicateSlugs(t *testing.T) {
	b, _ := newTestBuilder(t, map[string]string{
		"a-b.md": "---\ntitle: One\n---\n",
		"a/b.md": "---\ntitle: Two\n---\n",
	})

	summary, err := b.Run(context.Background(), io.Discard)
	require.NoError(t, err)
	require.Len(t, summary.Documents, 2)
	assert.Equal(t, "a-b", summary.Documents[0].ID)
	assert.Equal(t, "a-b-2", summary.Documents[1].ID)
}

func TestRun_DuplicateSlugsSkipTakenSuffix(t *testing.T) {
	// "a-b-2.md" claims a-b-2 before "a/b.md" needs a suffix.
	b, _ := newTestBuilder(t, map[string]string{
		"a-b-2.md": "---\ntitle: One\n---\n",
		"a-b.md":   "---\ntitle: Two\n---\n",
		"a/b.md":   "---\ntitle: Three\n---\n",
	})

	summary, err := b.Run(context.Background(), io.Discard)
	require.NoError(t, err)
	require.Len(t, summary.Documents, 3)

	ids := make(map[string]string)
	for _, doc := range summary.Documents {
		ids[doc.Path] = doc.ID
	}
	assert.Equal(t, map[string]string{
		"a-b-2.md": "a-b-2",
		"a-b.md":   "a-b",
		"a/b.md":   "a-b-3",
	}, ids)
}

func TestRun_DelimiterInTitleRoundTrips(t *testing.T) {
	b, cfg := newTestBuilder(t, map[string]string{
		"part.md": "---\ntitle: \"Part one---\"\n---\nBody.\n",
	})

	summary, err := b.Run(context.Background(), io.Discard)
	require.NoError(t, err)
	assert.False(t, summary.HasFailures())

	out := readOutput(t, cfg, "part.md")
	assert.Equal(t, "---\ntitle: \"Part one---\"\n---\nBody.\n", out)

	doc, err := ParseDocument("part.md", out, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "Part one---", doc.Title)
	assert.Equal(t, "Body.\n", doc.Body)
}

func TestRun_MissingSource(t *testing.T) {
	b := New(types.BuildConfig{
		SourceDir: filepath.Join(t.TempDir(), "missing"),
		OutputDir: filepath.Join(t.TempDir(), "out"),
		Include:   []string{"**/*.md"},
	})
	_, err := b.Run(context.Background(), io.Discard)
	require.Error(t, err)
}

func TestRun_Canceled(t *testing.T) {
	b, _ := newTestBuilder(t, map[string]string{"a.md": "---\ntitle: A\n---\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Run(ctx, io.Discard)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCheck_WritesNothing(t *testing.T) {
	idx := &fakeIndexer{}
	b, cfg := newTestBuilder(t, map[string]string{
		"a.md": "---\ntitle: A\n---\n",
		"b.md": "nope",
	}, WithIndexer(idx))

	var out strings.Builder
	summary, err := b.Check(context.Background(), &out)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Parsed)
	assert.Equal(t, 1, summary.Failed)
	assert.Contains(t, out.String(), "failed  b.md [missing-beginning-delimiter]")
	assert.Contains(t, out.String(), "parsed: 1, failed: 1")
	assert.NoDirExists(t, cfg.OutputDir)
	assert.Zero(t, idx.calls)
}

func TestClassify_Unknown(t *testing.T) {
	assert.Equal(t, KindUnclassified, Classify(assert.AnError))
}

func TestClassify_Unencodable(t *testing.T) {
	err := errors.Wrap(frontmatter.ErrUnencodableHeader, "formatting a.md")
	assert.Equal(t, KindUnencodable, Classify(err))
}
