// Package remote defines the capabilities the sync engine needs from the
// remote store that holds the shared copy of the profiles.
package remote

import (
	"context"
	"path"

	"github.com/sidkik/fikasync/pkg/errors"
)

// ErrNotFound is returned by Store.ReadFile when the path has never existed
// in the remote store. It's distinct from transport failures.
var ErrNotFound = errors.New("remote file not found")

// Store is the remote copy of the profiles.
type Store interface {
	// Fetch materializes the complete remote tree somewhere beneath `dir` and
	// returns the root of the materialized tree. The caller owns `dir` and is
	// responsible for removing it.
	Fetch(ctx context.Context, dir string) (root string, err error)

	// ReadFile returns the current contents of the file at `path`. It
	// returns ErrNotFound if the file doesn't exist.
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// WriteFile creates or replaces the file at `path`.
	WriteFile(ctx context.Context, path string, contents []byte) error
}

// ProfilePath returns the path within the remote store of the profile named
// `name`.
func ProfilePath(dir, name string) string {
	return path.Join(dir, name)
}
