package data

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultReloadDelay is how long the watcher waits after the last change to
// the database file before reopening it.
const DefaultReloadDelay = 500 * time.Millisecond

// Opener opens a dataset stored at path.
type Opener func(path string) (Dataset, error)

// OpenMmdb is the Opener for MaxMind DB files.
func OpenMmdb(path string) (Dataset, error) {
	r, err := NewMmdbReader(path)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// WatchOptions configures a WatchedReader. Zero values select defaults.
type WatchOptions struct {
	Logger      *slog.Logger
	ReloadDelay time.Duration
	// OnReload is called after every reload attempt with its result.
	OnReload func(err error)
}

// WatchedReader is a Dataset that reopens its file whenever it changes on
// disk. Every opened handle is read-only; a reload swaps in a fresh handle and
// closes the old one once no lookup is using it.
type WatchedReader struct {
	path    string
	open    Opener
	opts    WatchOptions
	watcher *fsnotify.Watcher

	mu      sync.RWMutex
	current Dataset

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWatchedReader opens the MMDB file at path and starts watching it.
func NewWatchedReader(path string, opts WatchOptions) (*WatchedReader, error) {
	return newWatchedReader(path, OpenMmdb, opts)
}

func newWatchedReader(path string, open Opener, opts WatchOptions) (*WatchedReader, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ReloadDelay <= 0 {
		opts.ReloadDelay = DefaultReloadDelay
	}

	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve dataset path: %w", err)
	}

	current, err := open(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		current.Close()
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory so that files replaced by rename are picked up.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		current.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	w := &WatchedReader{
		path:    path,
		open:    open,
		opts:    opts,
		watcher: watcher,
		current: current,
		done:    make(chan struct{}),
	}

	w.wg.Add(1)
	go w.run()

	return w, nil
}

// Lookup queries the currently loaded dataset.
func (w *WatchedReader) Lookup(ip net.IP) (*LocationRecord, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.current == nil {
		return nil, fmt.Errorf("%w: dataset is closed", ErrLookup)
	}
	return w.current.Lookup(ip)
}

// Metadata describes the currently loaded dataset.
func (w *WatchedReader) Metadata() Metadata {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.current == nil {
		return Metadata{}
	}
	return w.current.Metadata()
}

// Close stops watching and releases the current dataset.
func (w *WatchedReader) Close() error {
	select {
	case <-w.done:
		return nil
	default:
	}

	close(w.done)
	err := w.watcher.Close()
	w.wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.current != nil {
		err = errors.Join(err, w.current.Close())
		w.current = nil
	}
	return err
}

func (w *WatchedReader) run() {
	defer w.wg.Done()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			w.opts.Logger.Debug("dataset file changed", "path", w.path, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.opts.ReloadDelay)
			} else {
				timer.Reset(w.opts.ReloadDelay)
			}
			fire = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.opts.Logger.Warn("dataset watcher error", "path", w.path, "error", err)

		case <-fire:
			fire = nil
			err := w.reload()
			if w.opts.OnReload != nil {
				w.opts.OnReload(err)
			}
		}
	}
}

func (w *WatchedReader) reload() error {
	next, err := w.open(w.path)
	if err != nil {
		w.opts.Logger.Error("dataset reload failed, keeping previous dataset", "path", w.path, "error", err)
		return err
	}

	w.mu.Lock()
	prev := w.current
	w.current = next
	w.mu.Unlock()

	if prev != nil {
		if err := prev.Close(); err != nil {
			w.opts.Logger.Warn("failed to close previous dataset", "path", w.path, "error", err)
		}
	}

	w.opts.Logger.Info("dataset reloaded", "path", w.path, "database_type", next.Metadata().DatabaseType)
	return nil
}
