// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package watch rebuilds on source changes.
//
// A Watcher monitors the source tree with fsnotify and invokes a callback
// after a quiet period. Events inside the debounce window are coalesced so
// the callback fires once with every changed path.
package watch

import (
	"context"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/pdiddy/docsmith/internal/logging"
)

const defaultDebounce = 500 * time.Millisecond

// defaultIgnores are editor, VCS, and OS noise.
var defaultIgnores = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
	"**/.docsmith-*.tmp",
}

// Config holds the parameters for a Watcher.
type Config struct {
	// BaseDir is the source directory to watch.
	BaseDir string

	// Include selects the files that trigger a rebuild. Empty means all
	// files that are not ignored.
	Include []string

	// Exclude are additional patterns that never trigger a rebuild.
	Exclude []string

	// SkipDirs are directories (typically the output and index
	// directories) whose changes are ignored.
	SkipDirs []string

	// Debounce is the quiet period before OnChange fires. Zero or negative
	// uses 500ms.
	Debounce time.Duration

	// OnChange receives the deduplicated, sorted paths (relative to
	// BaseDir, slash-separated) that changed.
	OnChange func(ctx context.Context, changed []string) error
}

// Watcher monitors a source tree. Run must be called exactly once.
type Watcher struct {
	cfg      Config
	fsw      *fsnotify.Watcher
	ignores  []string
	skipDirs []string
	debounce time.Duration
	baseDir  string
	started  atomic.Bool
	log      zerolog.Logger
}

// New validates cfg, creates the fsnotify watcher, and registers every
// directory under BaseDir that is not ignored.
func New(cfg Config) (*Watcher, error) {
	absBase, err := filepath.Abs(cfg.BaseDir)
	if err != nil {
		return nil, errors.Wrap(err, "resolving watch directory")
	}

	for _, pat := range append(slices.Clone(cfg.Include), cfg.Exclude...) {
		if !doublestar.ValidatePattern(pat) {
			return nil, errors.Newf("invalid watch pattern %q", pat)
		}
	}

	var skipDirs []string
	for _, dir := range cfg.SkipDirs {
		if dir == "" {
			continue
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving %s", dir)
		}
		skipDirs = append(skipDirs, abs)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating fsnotify watcher")
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		ignores:  append(slices.Clone(defaultIgnores), cfg.Exclude...),
		skipDirs: skipDirs,
		debounce: debounce,
		baseDir:  absBase,
		log:      logging.Component("watch"),
	}

	if err := w.addDirectories(); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is canceled. It returns nil on
// cancellation. A callback still running when the debounce window closes
// again is not re-entered; the pending changes are retried later.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watcher already running")
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.log.Debug().Msg("previous rebuild still running, deferring")
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		w.log.Info().Int("changed", len(changed)).Msg("sources changed")
		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.log.Error().Err(err).Msg("rebuild failed")
			}
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if err := w.fsw.Close(); err != nil {
			w.log.Warn().Err(err).Msg("closing fsnotify watcher")
		}
	}()

	w.log.Info().Str("dir", w.baseDir).Dur("debounce", w.debounce).Msg("watching for changes")

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("fsnotify event channel closed")
			}
			if w.skipped(evt.Name) {
				continue
			}

			rel, err := filepath.Rel(w.baseDir, evt.Name)
			if err != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			// New directories may fill with sources later, so they are
			// added before filtering.
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name, rel)
			}
			if !w.Relevant(rel) {
				continue
			}

			mu.Lock()
			pending[rel] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("fsnotify error channel closed")
			}
			w.log.Warn().Err(err).Msg("fsnotify error")
		}
	}
}

// Relevant reports whether a change to rel (slash-separated, relative to
// BaseDir) should trigger a rebuild.
func (w *Watcher) Relevant(rel string) bool {
	if matchAny(w.ignores, rel) {
		return false
	}
	return len(w.cfg.Include) == 0 || matchAny(w.cfg.Include, rel)
}

func (w *Watcher) addDirectories() error {
	err := filepath.WalkDir(w.baseDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			w.log.Warn().Err(walkErr).Str("path", path).Msg("skipping inaccessible path")
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.baseDir {
			rel, err := filepath.Rel(w.baseDir, path)
			if err != nil {
				return nil
			}
			if w.ignoredDir(path, filepath.ToSlash(rel)) {
				return filepath.SkipDir
			}
		}
		if err := w.fsw.Add(path); err != nil {
			return errors.Wrapf(err, "watching %s", path)
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "walking watch directory")
	}
	return nil
}

func (w *Watcher) maybeAddDir(path, rel string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if w.ignoredDir(path, rel) {
		return
	}
	if err := w.fsw.Add(path); err != nil {
		w.log.Warn().Err(err).Str("path", path).Msg("watching new directory")
	}
}

func (w *Watcher) ignoredDir(abs, rel string) bool {
	return w.skipped(abs) || matchAny(w.ignores, rel) || matchAny(w.ignores, rel+"/")
}

// skipped reports whether abs lies inside one of the skip directories.
func (w *Watcher) skipped(abs string) bool {
	for _, dir := range w.skipDirs {
		if abs == dir {
			return true
		}
		rel, err := filepath.Rel(dir, abs)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if matched, err := doublestar.Match(pat, rel); err == nil && matched {
			return true
		}
	}
	return false
}
