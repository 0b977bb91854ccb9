// Package watch triggers work when files change on disk.
//
// A Watcher observes a set of files and invokes a handler once the
// files settle after a burst of changes. Parent directories are watched
// rather than the files themselves, so editors that save by writing a
// temporary file and renaming it over the target are still seen.
package watch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/paperlay/paperlay/pkg/errors"
)

// DefaultDebounce is how long a watcher waits after the last change
// before invoking its handler. Editors often write a file several times
// in quick succession when saving.
const DefaultDebounce = 300 * time.Millisecond

// Handler is invoked with the path of the file that settled.
type Handler func(ctx context.Context, path string)

// Watcher invokes a handler when any of a set of files changes.
type Watcher struct {
	// Debounce overrides DefaultDebounce when positive.
	Debounce time.Duration
	// Logger receives change and error events. Defaults to log.Default.
	Logger *log.Logger

	handler Handler
	targets map[string]bool
	fw      *fsnotify.Watcher
}

// New creates a watcher for the given files. The files do not need to
// exist yet; their parent directories do.
func New(handler Handler, paths ...string) (*Watcher, error) {
	if handler == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "watch handler must not be nil")
	}
	if len(paths) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no files to watch")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeWatch, err, "failed to create file watcher")
	}

	w := &Watcher{
		handler: handler,
		targets: make(map[string]bool, len(paths)),
		fw:      fw,
	}
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, errors.Wrap(errors.ErrCodeWatch, err, "failed to resolve %s", p)
		}
		w.targets[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, errors.Wrap(errors.ErrCodeWatch, err, "failed to watch %s", dir)
		}
		dirs[dir] = true
	}
	return w, nil
}

// Run blocks, dispatching debounced change events to the handler until
// ctx is canceled. The handler runs on the watch goroutine, so it is
// never invoked concurrently; changes arriving while it runs are
// coalesced into the next invocation.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fw.Close()

	logger := w.Logger
	if logger == nil {
		logger = log.Default()
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending string
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !w.targets[abs] {
				continue
			}
			logger.Debug("change detected", "path", abs, "op", event.Op.String())
			pending = abs
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.handler(ctx, pending)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "err", err)
		}
	}
}
