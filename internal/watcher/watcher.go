package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"Strata/internal/logger"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// ImportFunc handles one settled file.
type ImportFunc func(ctx context.Context, path string) error

type Config struct {
	Dir      string
	Patterns []string
	// Debounce is how long a file must stay quiet before it is imported.
	Debounce time.Duration
}

type Watcher struct {
	config    Config
	fsWatcher *fsnotify.Watcher
	handle    ImportFunc

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

func New(config Config, handle ImportFunc) (*Watcher, error) {
	if config.Debounce <= 0 {
		config.Debounce = 500 * time.Millisecond
	}
	for _, p := range config.Patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, errors.New("invalid watch pattern: " + p)
		}
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		config:    config,
		fsWatcher: fsWatcher,
		handle:    handle,
		pending:   map[string]*time.Timer{},
	}, nil
}

// Matches reports whether path, relative to the drop directory, is an import candidate.
func (w *Watcher) Matches(rel string) bool {
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(filepath.Base(rel), ".") {
		return false
	}
	for _, p := range w.config.Patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Scan imports files already in the directory.
func (w *Watcher) Scan(ctx context.Context) error {
	log := logger.ForComponent("watcher")
	seen := map[string]bool{}
	for _, p := range w.config.Patterns {
		matches, err := doublestar.Glob(os.DirFS(w.config.Dir), p)
		if err != nil {
			return err
		}
		for _, rel := range matches {
			if seen[rel] || !w.Matches(rel) {
				continue
			}
			seen[rel] = true
			path := filepath.Join(w.config.Dir, filepath.FromSlash(rel))
			if err := w.handle(ctx, path); err != nil {
				log.Warn("import failed", "path", path, "error", err)
			}
		}
	}
	return nil
}

// Run watches until ctx is done. Subdirectories created later are watched too.
func (w *Watcher) Run(ctx context.Context) error {
	log := logger.ForComponent("watcher")
	if err := w.addTree(w.config.Dir); err != nil {
		return err
	}
	log.Info("watching drop directory", "dir", w.config.Dir, "patterns", w.config.Patterns)

	defer func() {
		w.mu.Lock()
		for path, t := range w.pending {
			if t.Stop() {
				w.wg.Done()
			}
			delete(w.pending, path)
		}
		w.mu.Unlock()
		w.wg.Wait()
		w.fsWatcher.Close()
		log.Info("watcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.onEvent(ctx, event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) onEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				logger.ForComponent("watcher").Debug("failed to watch directory", "path", event.Name, "error", err)
			}
			return
		}
	}
	rel, err := filepath.Rel(w.config.Dir, event.Name)
	if err != nil || !w.Matches(rel) {
		return
	}
	w.schedule(ctx, event.Name)
}

// schedule restarts the quiet timer for path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok && t.Stop() {
		w.wg.Done()
	}
	w.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(w.config.Debounce, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.pending[path] == t {
			delete(w.pending, path)
		}
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		if err := w.handle(ctx, path); err != nil {
			logger.ForComponent("watcher").Warn("import failed", "path", path, "error", err)
		}
	})
	w.pending[path] = t
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}
