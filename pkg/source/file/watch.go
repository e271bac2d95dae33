package file

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	errs "github.com/matzehuels/ontograph/pkg/errors"
	"github.com/matzehuels/ontograph/pkg/ontology"
)

// DefaultDebounce is how long the watcher waits for a burst of writes to
// settle before re-reading the document.
const DefaultDebounce = 100 * time.Millisecond

// Watcher re-reads a snapshot document whenever it changes on disk.
//
// The parent directory is watched rather than the file so that editors that
// save by renaming a temporary file over the original are still seen.
// Documents that fail to parse are logged and skipped; the last good
// snapshot stays current. Writes that leave the content unchanged produce no
// new snapshot.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *log.Logger
	last     []byte
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithDebounce sets the debounce interval.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger for parse and watch errors.
func WithLogger(l *log.Logger) WatchOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher returns a watcher for the document at path.
func NewWatcher(path string, opts ...WatchOption) *Watcher {
	w := &Watcher{
		path:     filepath.Clean(path),
		debounce: DefaultDebounce,
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Path returns the watched document.
func (w *Watcher) Path() string { return w.path }

// Load reads the document, remembering its content so that Run only reports
// later changes.
func (w *Watcher) Load() (*ontology.Snapshot, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "open %s", w.path)
		}
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "open %s", w.path)
	}
	s, err := w.parse(data)
	if err != nil {
		return nil, err
	}
	w.last = data
	return s, nil
}

// Run watches the document until ctx is done, calling onChange with each new
// snapshot. It returns nil when ctx is canceled.
func (w *Watcher) Run(ctx context.Context, onChange func(*ontology.Snapshot)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errs.Wrap(errs.ErrCodeInternal, err, "create watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return errs.Wrap(errs.ErrCodeFileNotFound, err, "watch %s", w.path)
	}

	debounce := time.NewTimer(w.debounce)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			debounce.Reset(w.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "path", w.path, "err", err)

		case <-debounce.C:
			if s := w.reload(); s != nil {
				onChange(s)
			}
		}
	}
}

func (w *Watcher) reload() *ontology.Snapshot {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Warn("snapshot unreadable", "path", w.path, "err", err)
		return nil
	}
	if bytes.Equal(data, w.last) {
		return nil
	}
	s, err := w.parse(data)
	if err != nil {
		w.logger.Warn("snapshot rejected", "path", w.path, "err", err)
		return nil
	}
	w.last = data
	w.logger.Info("snapshot reloaded", "path", w.path, "classes", len(s.Classes))
	return s
}

func (w *Watcher) parse(data []byte) (*ontology.Snapshot, error) {
	s, err := ontology.Read(bytes.NewReader(data), ontology.FormatFromPath(w.path))
	if err != nil {
		return nil, err
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(w.path), filepath.Ext(w.path))
	}
	return s, nil
}
