// Package monitor watches a source tree and drops changed Rust files from the
// completion cache.
package monitor

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/flowave-io/rsflow/internal/complete"
	"github.com/flowave-io/rsflow/pkg/log"
)

// DefaultDebounce coalesces bursts of events from editors that write a file
// in several steps.
const DefaultDebounce = 75 * time.Millisecond

var watchExtensions = []string{".rs"}

type Option func(*Watcher)

// WithCache invalidates changed files in c.
func WithCache(c *complete.Cache) Option {
	return func(w *Watcher) { w.cache = c }
}

// WithNotify sends on ch after each debounced batch. Sends never block; a
// full channel already signals a pending refresh.
func WithNotify(ch chan<- struct{}) Option {
	return func(w *Watcher) { w.notify = ch }
}

// WithOnChange calls fn with every changed path of a batch.
func WithOnChange(fn func(paths []string)) Option {
	return func(w *Watcher) { w.onChange = fn }
}

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// Watcher is a running recursive watch. Close stops it.
type Watcher struct {
	fw       *fsnotify.Watcher
	cache    *complete.Cache
	notify   chan<- struct{}
	onChange func([]string)
	debounce time.Duration

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// Start watches dir and every directory below it, including directories created
// later.
func Start(dir string, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{fw: fw, debounce: DefaultDebounce, done: make(chan struct{})}
	for _, opt := range opts {
		opt(w)
	}
	if err := w.addTree(dir); err != nil {
		fw.Close()
		return nil, err
	}
	log.Infow("watching for .rs changes", "dir", dir)
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && len(d.Name()) > 1 && d.Name()[0] == '.' {
			return filepath.SkipDir
		}
		return w.fw.Add(path)
	})
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()
	pending := map[string]struct{}{}
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				if isDir(ev.Name) {
					if err := w.addTree(ev.Name); err != nil {
						log.Warnw("watch new directory", "dir", ev.Name, "err", err)
					}
					continue
				}
			}
			if !matchesExt(ev.Name) || ev.Op == fsnotify.Chmod {
				continue
			}
			pending[filepath.Clean(ev.Name)] = struct{}{}
			timer.Reset(w.debounce)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Warnw("watch error", "err", err)
		case <-timer.C:
			w.flush(pending)
			pending = map[string]struct{}{}
		}
	}
}

func (w *Watcher) flush(pending map[string]struct{}) {
	if len(pending) == 0 {
		return
	}
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
		if w.cache != nil {
			w.cache.Invalidate(p)
		}
	}
	log.Debugw("rust sources changed", "paths", paths)
	if w.onChange != nil {
		w.onChange(paths)
	}
	if w.notify != nil {
		select {
		case w.notify <- struct{}{}:
		default:
		}
	}
}

// Close stops the watch and waits for the event loop to exit.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fw.Close()
		w.wg.Wait()
	})
	return err
}

func matchesExt(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range watchExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
