// Package watch rebuilds a site when its source files change.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'md2html.watch'
func tracer() tracing.Trace {
	return tracing.Select("md2html.watch")
}

// DefaultDebounce collapses bursts of events from a single save.
const DefaultDebounce = 100 * time.Millisecond

// Watcher calls OnChange after files under its paths are written, created,
// removed or renamed. Directories are watched recursively; hidden
// directories are skipped.
type Watcher struct {
	watcher  *fsnotify.Watcher
	paths    []string
	debounce time.Duration
	onChange func(path string)
	// files watched through their parent directory
	files    map[string]bool
	fileDirs map[string]bool
}

// New creates a Watcher for paths. Paths that do not exist are ignored.
func New(paths []string, debounce time.Duration, onChange func(path string)) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{
		watcher:  fsWatcher,
		paths:    paths,
		debounce: debounce,
		onChange: onChange,
		files:    map[string]bool{},
		fileDirs: map[string]bool{},
	}
	for _, p := range paths {
		if err := w.add(p); err != nil {
			fsWatcher.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) add(root string) error {
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		tracer().Debugf("not watching missing %s", root)
		return nil
	} else if err != nil {
		return err
	}
	if !info.IsDir() {
		// watch the directory so editors that replace files are seen
		tracer().Infof("watching %s", root)
		w.files[filepath.Clean(root)] = true
		w.fileDirs[filepath.Dir(filepath.Clean(root))] = true
		return w.watcher.Add(filepath.Dir(root))
	}
	tracer().Infof("watching %s", root)
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return w.watcher.Add(path)
		}
		return nil
	})
}

// Run processes events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending string
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !w.relevant(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.add(event.Name); err != nil {
						tracer().Errorf("watch %s: %v", event.Name, err)
					}
				}
			}
			tracer().Debugf("%s %s", event.Op, event.Name)
			pending = event.Name
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			tracer().Infof("changed: %s", pending)
			w.onChange(pending)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			tracer().Errorf("watcher error: %v", err)
		}
	}
}

// relevant filters hidden files and siblings of individually watched files.
func (w *Watcher) relevant(name string) bool {
	name = filepath.Clean(name)
	if strings.HasPrefix(filepath.Base(name), ".") {
		return false
	}
	if w.files[name] {
		return true
	}
	if !w.fileDirs[filepath.Dir(name)] {
		return true
	}
	// the directory may also be watched for its own sake
	for _, p := range w.paths {
		if rel, err := filepath.Rel(filepath.Clean(p), name); err == nil && !strings.HasPrefix(rel, "..") && !w.files[filepath.Clean(p)] {
			return true
		}
	}
	return false
}
