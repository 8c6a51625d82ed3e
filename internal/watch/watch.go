// Package watch reports debounced changes to model files under a directory.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last event before a change
// is reported.
const DefaultDebounce = 200 * time.Millisecond

// DefaultExtensions are the file types whose changes trigger a rescan.
var DefaultExtensions = []string{".sql", ".yml", ".yaml"}

var skipDirs = map[string]struct{}{
	"target":       {},
	"dbt_packages": {},
	"node_modules": {},
	"logs":         {},
}

// Config configures a Watcher.
type Config struct {
	// Logger for watcher diagnostics. If nil, logging is discarded.
	Logger *slog.Logger
	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration
	// Extensions defaults to DefaultExtensions.
	Extensions []string
}

// Watcher watches a directory tree for model file changes.
type Watcher struct {
	root     string
	debounce time.Duration
	exts     map[string]struct{}
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
}

// New creates a Watcher with every directory under root registered.
func New(root string, cfg Config) (*Watcher, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	extensions := cfg.Extensions
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		exts[strings.ToLower(ext)] = struct{}{}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{root: root, debounce: debounce, exts: exts, logger: logger, fsw: fsw}
	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", root, err)
	}
	return w, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run delivers batches of changed paths to onChange until ctx is done or
// the watcher is closed. Batches are sorted and deduplicated, and onChange
// is never called concurrently with itself.
func (w *Watcher) Run(ctx context.Context, onChange func(changed []string)) error {
	w.logger.Info("watching for changes", slog.String("dir", w.root))

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	var fire <-chan time.Time
	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) && w.isWatchableDir(event.Name) {
				if err := w.addTree(event.Name); err != nil {
					w.logger.Warn("failed to watch new directory", slog.String("dir", event.Name), slog.Any("error", err))
				}
				continue
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("change detected", slog.String("path", event.Name), slog.String("op", event.Op.String()))
			pending[event.Name] = struct{}{}
			timer.Reset(w.debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			changed := make([]string, 0, len(pending))
			for path := range pending {
				changed = append(changed, path)
			}
			sort.Strings(changed)
			clear(pending)
			onChange(changed)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", slog.Any("error", err))
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	_, ok := w.exts[strings.ToLower(filepath.Ext(name))]
	return ok
}

func (w *Watcher) isWatchableDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir() && !skipDir(filepath.Base(path))
}

// addTree adds dir and its subdirectories to the watcher.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func skipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	_, skip := skipDirs[name]
	return skip
}
