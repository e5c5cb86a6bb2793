// Package watch re-runs reconciliation when the taxonomy directory changes.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/agentstation/taxsync/pkg/constants"
	"github.com/agentstation/taxsync/pkg/errors"
	"github.com/agentstation/taxsync/pkg/logging"
)

// SyncFunc is called once per settled burst of changes.
type SyncFunc func(ctx context.Context) error

// Watcher watches a directory tree and debounces its events.
type Watcher struct {
	root     string
	debounce time.Duration
	fsw      *fsnotify.Watcher
	logger   *zerolog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the tree must stay quiet before a sync runs.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the watcher logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New starts watching root and every visible directory below it.
// Events are buffered until Run is called.
func New(root string, opts ...Option) (*Watcher, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.NewPathError("source", root, err)
	}
	if !info.IsDir() {
		return nil, errors.NewPathError("source", root, errors.New("not a directory"))
	}

	fsw, err := fsnotify.NewBufferedWatcher(constants.WatchEventBuffer)
	if err != nil {
		return nil, errors.WrapIO("watch", root, err)
	}

	w := &Watcher{
		root:     root,
		debounce: constants.DefaultDebounce,
		fsw:      fsw,
		logger:   logging.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.addRecursive(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run calls sync after each burst of changes until ctx is done.
// Sync errors are logged and do not stop the watcher.
func (w *Watcher) Run(ctx context.Context, sync SyncFunc) error {
	defer func() { _ = w.fsw.Close() }()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	w.logger.Info().Str("source_dir", w.root).Dur("debounce", w.debounce).Msg("Watching for changes")

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug().Msg("Watcher stopped")
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("Change detected")
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("Watcher error")

		case <-fire:
			fire = nil
			if err := sync(ctx); err != nil {
				w.logger.Error().Err(err).Msg("Sync after change failed")
			}
		}
	}
}

// relevant filters hidden paths and registers new directories.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || hidden(rel) {
		return false
	}
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn().Err(err).Str("path", event.Name).Msg("Failed to watch new directory")
			}
		}
	}
	return true
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return errors.WrapIO("watch", path, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return errors.WrapIO("watch", path, err)
		}
		w.logger.Debug().Str("path", path).Msg("Watching directory")
		return nil
	})
}

func hidden(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part != "." && part != ".." && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
