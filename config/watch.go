package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads path whenever it is rewritten and reports each attempt to
// onReload. Watching the directory rather than the file survives the
// rename-and-replace pattern editors and config managers use. The
// returned stop function releases the watcher.
func Watch(path string, onReload func(Config, error)) (stop func() error, err error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				onReload(Load(abs))
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return w.Close, nil
}
