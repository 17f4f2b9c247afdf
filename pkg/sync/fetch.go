package sync

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/fikasync/pkg/archive"
	"github.com/sidkik/fikasync/pkg/errors"
)

// ErrFetchFailed is wrapped by errors returned when the remote profiles
// couldn't be retrieved. The remote state is then unknown, which is not the
// same as the remote being empty.
var ErrFetchFailed = errors.New("remote profiles unavailable")

// RemoteSnapshot is the remote tree materialized on local disk for the
// duration of a pull pass.
type RemoteSnapshot struct {
	// Paths are the profile files within the snapshot, sorted.
	Paths []string

	dir string
}

// FetchSnapshot materializes the remote tree in the engine's temporary
// directory and finds the profiles within it. The caller must Release the
// snapshot. If fetching fails, the temporary directory has already been
// released.
func (e *Engine) FetchSnapshot(ctx context.Context) (*RemoteSnapshot, error) {
	snapshot := &RemoteSnapshot{dir: e.tempDir()}

	// Clear out leftovers from a run that was killed mid-download.
	snapshot.Release()

	fetched := false
	defer func() {
		if !fetched {
			snapshot.Release()
		}
	}()

	log.Debug("Downloading remote profiles")
	root, err := e.Store.Fetch(ctx, snapshot.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFetchFailed, err)
	}

	paths, err := archive.ListFiles(fs, root, ProfileExt)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFetchFailed, errors.WithContext(err, "find profiles"))
	}

	snapshot.Paths = paths
	fetched = true
	return snapshot, nil
}

// Release removes the snapshot from disk.
func (snapshot *RemoteSnapshot) Release() {
	archive.ForceRemove(fs, snapshot.dir)
}

// byName flattens the snapshot by filename. Profiles are identified by
// filename alone, so if two remote paths share a name the later one wins.
func (snapshot *RemoteSnapshot) byName() (names []string, paths map[string]string) {
	paths = map[string]string{}
	for _, path := range snapshot.Paths {
		name := filepath.Base(path)
		if prev, ok := paths[name]; ok {
			log.WithFields(log.Fields{
				"ignored": prev,
				"using":   path,
			}).Warn("Two remote paths have the same profile name. Ignoring the former.")
		} else {
			names = append(names, name)
		}
		paths[name] = path
	}
	sort.Strings(names)
	return names, paths
}
