// Package watch re-runs the pipeline when Python sources below a root change.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/dshills/gatestub/internal/extractor"
	"github.com/dshills/gatestub/internal/scanner"
)

// DefaultDebounce is how long changes are collected before a re-run
const DefaultDebounce = 500 * time.Millisecond

// Handler is called once per debounced batch of changes
type Handler func(ctx context.Context) error

// Watcher watches every non-ignored directory below a root
type Watcher struct {
	root     string
	ignore   *scanner.PatternSet
	debounce time.Duration
	logger   *zap.Logger

	fsw     *fsnotify.Watcher
	trigger chan struct{}

	mu    sync.Mutex
	timer *time.Timer
}

// Option configures a Watcher
type Option func(*Watcher)

// WithDebounce sets the quiet period before a re-run
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// New creates a Watcher on root. Directories matching ignore are not watched.
func New(root string, ignore []string, opts ...Option) (*Watcher, error) {
	patterns, err := scanner.CompilePatterns(ignore)
	if err != nil {
		return nil, errors.Wrap(err, "invalid ignore patterns")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	w := &Watcher{
		root:     root,
		ignore:   patterns,
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
		fsw:      fsw,
		trigger:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Watched returns the directories currently watched
func (w *Watcher) Watched() []string {
	return w.fsw.WatchList()
}

// Run calls fn after each debounced batch of source changes until ctx is
// done. Calls never overlap; an error from fn is logged and watching goes on.
func (w *Watcher) Run(ctx context.Context, fn Handler) error {
	defer w.stopTimer()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))

		case <-w.trigger:
			if err := fn(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.logger.Warn("re-run failed", zap.Error(err))
			}
		}
	}
}

// Close stops watching
func (w *Watcher) Close() error {
	w.stopTimer()
	return w.fsw.Close()
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory",
					zap.String("path", event.Name),
					zap.Error(err))
			}
			w.schedule()
			return
		}
	}

	if !strings.HasSuffix(event.Name, extractor.DefaultSourceExt) {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	if w.ignore.MatchPath(w.rel(event.Name)) {
		return
	}

	w.logger.Debug("source changed",
		zap.String("path", event.Name),
		zap.String("op", event.Op.String()))
	w.schedule()
}

// schedule restarts the debounce timer
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case w.trigger <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// addTree watches dir and every non-ignored directory below it
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return errors.Wrapf(err, "failed to read %s", dir)
			}
			w.logger.Warn("failed to read directory", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.ignore.Match(w.rel(path), true) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return errors.Wrapf(err, "failed to watch %s", path)
		}
		return nil
	})
}

func (w *Watcher) rel(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
