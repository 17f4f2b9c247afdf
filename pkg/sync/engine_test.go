package sync

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/fikasync/pkg/remote"
)

var (
	testBaseDir     = "/fikasync"
	testProfilesDir = "/game/user/profiles"
	testNow         = time.Date(2024, 5, 4, 18, 30, 15, 0, time.UTC)
)

type storedFile struct {
	contents []byte
	modTime  time.Time
}

// mockStore is an in-memory remote.Store. Fetch materializes its files into
// the package's mocked filesystem.
type mockStore struct {
	files map[string]storedFile

	fetchErr error
	readErr  error
	writeErr error

	reads  []string
	writes []string
}

func newMockStore() *mockStore {
	return &mockStore{files: map[string]storedFile{}}
}

func (store *mockStore) put(path string, contents []byte, modTime time.Time) {
	store.files[path] = storedFile{contents: contents, modTime: modTime}
}

func (store *mockStore) Fetch(_ context.Context, dir string) (string, error) {
	if store.fetchErr != nil {
		return "", store.fetchErr
	}

	root := filepath.Join(dir, "owner-profiles-0123abc")
	if err := fs.MkdirAll(root, 0755); err != nil {
		return "", err
	}

	for path, f := range store.files {
		dst := filepath.Join(root, filepath.FromSlash(path))
		if err := fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return "", err
		}
		if err := afero.WriteFile(fs, dst, f.contents, 0644); err != nil {
			return "", err
		}
		if err := fs.Chtimes(dst, f.modTime, f.modTime); err != nil {
			return "", err
		}
	}
	return root, nil
}

func (store *mockStore) ReadFile(_ context.Context, path string) ([]byte, error) {
	store.reads = append(store.reads, path)
	if store.readErr != nil {
		return nil, store.readErr
	}

	f, ok := store.files[path]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return f.contents, nil
}

func (store *mockStore) WriteFile(_ context.Context, path string, contents []byte) error {
	store.writes = append(store.writes, path)
	if store.writeErr != nil {
		return store.writeErr
	}
	store.put(path, contents, testNow)
	return nil
}

// profileJSON returns the contents of a profile whose progress timestamp is
// `timestamp`. `nickname` varies the contents for equal timestamps.
func profileJSON(timestamp int64, nickname string) []byte {
	return []byte(fmt.Sprintf(
		`{"info":{"nickname":%q},"characters":{"pmc":{"Hideout":{"sptUpdateLastRunTimestamp":%d}}}}`,
		nickname, timestamp))
}

func newTestEngine(t *testing.T, store remote.Store) *Engine {
	fs = afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(testProfilesDir, 0755))

	return &Engine{
		BaseDir:     testBaseDir,
		ProfilesDir: testProfilesDir,
		Store:       store,
		Clock:       clockwork.NewFakeClockAt(testNow),
	}
}

func writeLocal(t *testing.T, name string, contents []byte) {
	require.NoError(t, afero.WriteFile(fs, filepath.Join(testProfilesDir, name), contents, 0644))
}

func readLocal(t *testing.T, name string) []byte {
	contents, err := afero.ReadFile(fs, filepath.Join(testProfilesDir, name))
	require.NoError(t, err)
	return contents
}
