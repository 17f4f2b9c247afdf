package sync

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"

	"github.com/sidkik/fikasync/pkg/errors"
	"github.com/sidkik/fikasync/pkg/remote"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// ProfileExt is the extension of profile files.
const ProfileExt = ".json"

// DefaultRemoteDir is the directory within the remote store that holds the
// profiles.
const DefaultRemoteDir = "profiles"

// Engine runs the sync passes between a local profile directory and a remote
// store. The zero values of the optional fields are replaced by sensible
// defaults.
type Engine struct {
	// BaseDir holds the engine's own state: temporary downloads in `temp`
	// and backups in `backups`.
	BaseDir string

	// ProfilesDir is the game's local profile directory.
	ProfilesDir string

	Store remote.Store

	// RemoteDir is the directory in the store that uploads are written to.
	// Optional.
	RemoteDir string

	// Timestamp extracts progress timestamps from profiles. Optional.
	Timestamp TimestampFunc

	// Clock names backup directories. Optional.
	Clock clockwork.Clock

	// DryRun makes the pull pass decide without touching the local
	// directory.
	DryRun bool
}

// Profile is a profile file read from disk.
type Profile struct {
	Name      string
	Path      string
	Hash      string
	Timestamp int64
	ModTime   time.Time

	contents []byte
}

func (e *Engine) remoteDir() string {
	if e.RemoteDir == "" {
		return DefaultRemoteDir
	}
	return e.RemoteDir
}

func (e *Engine) timestamp(contents []byte) int64 {
	if e.Timestamp == nil {
		return FieldTimestamp(DefaultTimestampField)(contents)
	}
	return e.Timestamp(contents)
}

func (e *Engine) clock() clockwork.Clock {
	if e.Clock == nil {
		return clockwork.NewRealClock()
	}
	return e.Clock
}

func (e *Engine) tempDir() string {
	return filepath.Join(e.BaseDir, "temp")
}

func (e *Engine) localPath(name string) string {
	return filepath.Join(e.ProfilesDir, name)
}

func (e *Engine) remotePath(name string) string {
	return remote.ProfilePath(e.remoteDir(), name)
}

func (e *Engine) readProfile(path string) (Profile, error) {
	fi, err := fs.Stat(path)
	if err != nil {
		return Profile{}, err
	}

	contents, err := afero.ReadFile(fs, path)
	if err != nil {
		return Profile{}, errors.WithContext(err, "read")
	}

	return Profile{
		Name:      filepath.Base(path),
		Path:      path,
		Hash:      Hash(contents),
		Timestamp: e.timestamp(contents),
		ModTime:   fi.ModTime(),
		contents:  contents,
	}, nil
}

// localProfiles returns the names of the profiles directly beneath the
// profile directory, in sorted order. A missing directory has no profiles.
func (e *Engine) localProfiles() ([]string, error) {
	entries, err := afero.ReadDir(fs, e.ProfilesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WithContext(err, "list profiles")
	}

	// ReadDir sorts by filename.
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ProfileExt) {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}
