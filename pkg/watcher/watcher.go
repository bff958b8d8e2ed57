// Package watcher reports changes to a file or to the files of a
// directory, coalescing bursts of filesystem events into one notification.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce is how long the watcher waits for a burst of events to
// settle before reporting a change.
const DefaultDebounce = 200 * time.Millisecond

var (
	ErrFileRemoved    = errors.New("watched file was removed")
	ErrAlreadyStarted = errors.New("watcher already started")
)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the debounce window.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger.WithField("component", "watcher")
		}
	}
}

// Watcher watches one file, or every file directly inside one directory.
// For a file the parent directory is watched so editors that replace the
// file atomically are still seen.
type Watcher struct {
	path     string
	dir      bool
	debounce time.Duration
	logger   *logrus.Entry

	changes chan struct{}
	errs    chan error

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	timer   *time.Timer
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// New creates a watcher for path. Nothing is watched until Start.
func New(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	w := &Watcher{
		path:     abs,
		dir:      err == nil && info.IsDir(),
		debounce: DefaultDebounce,
		logger:   logrus.NewEntry(logrus.New()).WithField("component", "watcher"),
		changes:  make(chan struct{}, 1),
		errs:     make(chan error, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Path returns the watched file.
func (w *Watcher) Path() string { return w.path }

// Changes delivers one value per settled burst of changes. Pending
// notifications are merged, so a slow reader sees at most one.
func (w *Watcher) Changes() <-chan struct{} { return w.changes }

// Errors delivers watch errors, including ErrFileRemoved. Errors are
// dropped while an earlier one is unread.
func (w *Watcher) Errors() <-chan error { return w.errs }

// Start begins watching until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return ErrAlreadyStarted
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	target := filepath.Dir(w.path)
	if w.dir {
		target = w.path
	}
	if err := fsw.Add(target); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch %s: %w", target, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	w.fsw = fsw
	w.cancel = cancel
	w.done = make(chan struct{})
	w.started = true
	go w.loop(ctx, fsw, w.done)

	w.logger.WithField("path", w.path).Debug("Watching file")
	return nil
}

// Stop stops watching and waits for the event loop to exit. A pending
// debounced notification is discarded.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.cancel()
	done := w.done
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.started = false
	w.mu.Unlock()

	<-done
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	defer fsw.Close()

	target := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !w.dir && filepath.Base(ev.Name) != target {
				continue
			}
			w.logger.WithFields(logrus.Fields{"file": ev.Name, "op": ev.Op.String()}).Trace("File event")
			switch {
			case ev.Has(fsnotify.Remove) && w.dir:
				w.trigger()
			case ev.Has(fsnotify.Remove):
				w.report(ErrFileRemoved)
			case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create), ev.Has(fsnotify.Rename):
				w.trigger()
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.report(err)
		}
	}
}

// trigger (re)arms the debounce timer.
func (w *Watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	started := w.started
	w.timer = nil
	w.mu.Unlock()
	if !started {
		return
	}
	select {
	case w.changes <- struct{}{}:
	default:
	}
}

func (w *Watcher) report(err error) {
	w.logger.WithError(err).Debug("Watch error")
	select {
	case w.errs <- err:
	default:
	}
}
