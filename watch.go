package hbs

import (
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

type watcher struct {
	fsw  *fsnotify.Watcher
	done chan struct{}
}

// Watch starts watching the given directories (recursively) and evicts
// changed paths from the caches as events arrive, so a cache-enabled render
// after an edit picks up the new content.  It should be called once; errors
// from the running watcher are printed to Logger.  Close stops it.
func (e *Engine) Watch(dirs ...string) error {
	if e.watcher != nil {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if err := watchTree(fsw, dir); err != nil {
			fsw.Close()
			return err
		}
	}
	w := &watcher{fsw: fsw, done: make(chan struct{})}
	e.watcher = w
	go e.watchLoop(w)
	return nil
}

// Close stops the watcher, if one is running.
func (e *Engine) Close() error {
	if e.watcher == nil {
		return nil
	}
	w := e.watcher
	e.watcher = nil
	err := w.fsw.Close()
	<-w.done
	return err
}

func (e *Engine) watchLoop(w *watcher) {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// A created directory needs its own watch.
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := watchTree(w.fsw, ev.Name); err != nil {
						Logger.Println(err)
					}
				}
			}
			e.invalidate(ev.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			Logger.Println(err)
		}
	}
}

// invalidate evicts the changed path and its directory's cached listing.
func (e *Engine) invalidate(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	e.ResetCache(abs, filepath.Dir(abs))
	if e.conf.Debug {
		Logger.Printf("invalidated %s", abs)
	}
}

// watchTree adds dir and every subdirectory to the watcher.  fsnotify
// watches are not recursive on their own.
func watchTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}
