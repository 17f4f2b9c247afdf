// Package fswatch reports changes to profile files while a game session
// runs.
package fswatch

import (
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/fikasync/pkg/errors"
)

var fs = afero.NewOsFs()

// changedOps are the operations that modify a profile's contents. The game
// server saves by writing in place or by renaming a temporary file over the
// profile, which shows up as a Create.
const changedOps = fsnotify.Write | fsnotify.Create

// Watcher watches a profile directory.
type Watcher struct {
	// Changes receives the name of each profile that's written to. Names
	// are dropped if the receiver falls behind.
	Changes <-chan string

	watcher *fsnotify.Watcher
}

// Watch starts watching the profiles with extension `ext` directly within
// `dir`.
func Watch(dir, ext string) (*Watcher, error) {
	exists, err := afero.DirExists(fs, dir)
	if err != nil {
		return nil, errors.WithContext(err, "stat")
	}
	if !exists {
		return nil, errors.FileNotFound{Path: dir}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WithContext(err, "create watcher")
	}

	if err := watcher.Add(dir); err != nil {
		// Close the watcher so that we release its file handles.
		if err := watcher.Close(); err != nil {
			log.WithError(err).Warn("Failed to close file watcher")
		}
		return nil, errors.WithContext(err, "watch "+dir)
	}

	go logErrors(watcher.Errors)
	return &Watcher{
		Changes: profileChanges(watcher.Events, ext),
		watcher: watcher,
	}, nil
}

// Close stops the watcher. Changes is closed once the pending events are
// drained.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func profileChanges(events <-chan fsnotify.Event, ext string) chan string {
	changes := make(chan string, 16)
	go func() {
		defer close(changes)
		for event := range events {
			if event.Op&changedOps == 0 {
				continue
			}

			name := filepath.Base(event.Name)
			if !strings.EqualFold(filepath.Ext(name), ext) {
				continue
			}

			select {
			case changes <- name:
			default:
			}
		}
	}()
	return changes
}

func logErrors(errs <-chan error) {
	for err := range errs {
		log.WithError(err).Debug("File watcher error")
	}
}
