package watch

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func startWatcher(t *testing.T, cfg Config) (context.CancelFunc, <-chan error) {
	t.Helper()
	w, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	t.Cleanup(cancel)
	return cancel, errCh
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// TestWatcherDebounce verifies that rapid changes are coalesced into one
// callback with every changed path.
func TestWatcherDebounce(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	var (
		mu        sync.Mutex
		calls     int
		collected []string
	)
	done := make(chan struct{})

	startWatcher(t, Config{
		BaseDir:  dir,
		Include:  []string{"**/*.md"},
		Debounce: 100 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			mu.Lock()
			defer mu.Unlock()
			calls++
			collected = append(collected, changed...)
			if calls == 1 {
				close(done)
			}
			return nil
		},
	})

	for _, name := range []string{"a.md", "b.md", "c.md"} {
		writeFile(t, filepath.Join(dir, name))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}

	// Let any stray second callback surface.
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("callback called %d times, want 1", calls)
	}
	for _, want := range []string{"a.md", "b.md", "c.md"} {
		if !slices.Contains(collected, want) {
			t.Errorf("changed paths %v missing %s", collected, want)
		}
	}
}

// TestWatcherFilters verifies that ignored, excluded, skipped, and
// non-matching files never trigger a callback.
func TestWatcherFilters(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	out := filepath.Join(dir, "dist")
	if err := os.MkdirAll(out, 0o755); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	startWatcher(t, Config{
		BaseDir:  dir,
		Include:  []string{"**/*.md"},
		Exclude:  []string{"drafts/**"},
		SkipDirs: []string{out},
		Debounce: 50 * time.Millisecond,
		OnChange: func(context.Context, []string) error {
			calls.Add(1)
			return nil
		},
	})

	writeFile(t, filepath.Join(out, "page.md"))
	writeFile(t, filepath.Join(dir, "notes.txt"))
	writeFile(t, filepath.Join(dir, "page.md.swp"))

	time.Sleep(300 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("callback called %d times, want 0", n)
	}
}

// TestWatcherNewDirectory verifies that directories created after startup
// are watched.
func TestWatcherNewDirectory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	got := make(chan []string, 4)
	startWatcher(t, Config{
		BaseDir:  dir,
		Include:  []string{"**/*.md"},
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			got <- changed
			return nil
		},
	})

	if err := os.Mkdir(filepath.Join(dir, "guide"), 0o755); err != nil {
		t.Fatal(err)
	}
	// Give the event loop time to register the directory.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "guide", "install.md"))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case changed := <-got:
			if slices.Contains(changed, "guide/install.md") {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for change in new directory")
		}
	}
}

// TestWatcherSkipIfBusy verifies that a slow callback is never re-entered.
func TestWatcherSkipIfBusy(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	var (
		active    atomic.Int32
		maxActive atomic.Int32
		calls     atomic.Int32
	)
	startWatcher(t, Config{
		BaseDir:  dir,
		Debounce: 20 * time.Millisecond,
		OnChange: func(context.Context, []string) error {
			n := active.Add(1)
			if n > maxActive.Load() {
				maxActive.Store(n)
			}
			calls.Add(1)
			time.Sleep(200 * time.Millisecond)
			active.Add(-1)
			return nil
		},
	})

	for i := range 5 {
		writeFile(t, filepath.Join(dir, "f"+string(rune('a'+i))+".md"))
		time.Sleep(60 * time.Millisecond)
	}
	time.Sleep(800 * time.Millisecond)

	if maxActive.Load() > 1 {
		t.Errorf("callback ran concurrently (%d at once)", maxActive.Load())
	}
	if calls.Load() == 0 {
		t.Error("callback never ran")
	}
}

// TestWatcherContextCancel verifies Run returns nil on cancellation and
// cannot be started twice.
func TestWatcherContextCancel(t *testing.T) {
	t.Parallel()
	w, err := New(Config{BaseDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	if err := w.Run(ctx); err == nil {
		t.Error("second Run should fail")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWatcherInvalidPattern(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{BaseDir: t.TempDir(), Include: []string{"[unclosed"}}); err == nil {
		t.Error("expected error for invalid include pattern")
	}
	if _, err := New(Config{BaseDir: t.TempDir(), Exclude: []string{"docs/[z"}}); err == nil {
		t.Error("expected error for invalid exclude pattern")
	}
}

func TestRelevant(t *testing.T) {
	t.Parallel()
	w := &Watcher{
		cfg:     Config{Include: []string{"**/*.md"}},
		ignores: append(slices.Clone(defaultIgnores), "drafts/**"),
	}

	tests := []struct {
		rel  string
		want bool
	}{
		{"index.md", true},
		{"guide/install.md", true},
		{"drafts/wip.md", false},
		{".git/HEAD.md", false},
		{"node_modules/pkg/README.md", false},
		{"index.md~", false},
		{"guide/.docsmith-123.tmp", false},
		{"notes.txt", false},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			if got := w.Relevant(tt.rel); got != tt.want {
				t.Errorf("Relevant(%q) = %v, want %v", tt.rel, got, tt.want)
			}
		})
	}
}

func TestSkipped(t *testing.T) {
	t.Parallel()
	base := t.TempDir()
	w := &Watcher{skipDirs: []string{filepath.Join(base, "dist")}}

	if !w.skipped(filepath.Join(base, "dist")) {
		t.Error("skip dir itself should be skipped")
	}
	if !w.skipped(filepath.Join(base, "dist", "a", "b.md")) {
		t.Error("file inside skip dir should be skipped")
	}
	if w.skipped(filepath.Join(base, "distant.md")) {
		t.Error("sibling with shared prefix should not be skipped")
	}
	if w.skipped(filepath.Join(base, "docs", "a.md")) {
		t.Error("unrelated path should not be skipped")
	}
}
