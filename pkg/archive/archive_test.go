package archive

import (
	"archive/zip"
	"bytes"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type zipEntry struct {
	name     string
	contents string
	modTime  time.Time
}

func writeZip(t *testing.T, fs afero.Fs, path string, entries []zipEntry) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.name, Method: zip.Deflate, Modified: e.modTime}
		w, err := zw.CreateHeader(hdr)
		require.NoError(t, err)
		_, err = w.Write([]byte(e.contents))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, afero.WriteFile(fs, path, buf.Bytes(), 0644))
}

func TestExtractZip(t *testing.T) {
	modTime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		entries  []zipEntry
		expRoot  string
		expFiles []string
	}{
		{
			name: "SingleTopLevelDirectory",
			entries: []zipEntry{
				{name: "owner-repo-abc123/profiles/a.json", contents: "{}", modTime: modTime},
				{name: "owner-repo-abc123/README.md", contents: "readme", modTime: modTime},
			},
			expRoot: "/tmp/extracted/owner-repo-abc123",
			expFiles: []string{
				"/tmp/extracted/owner-repo-abc123/profiles/a.json",
			},
		},
		{
			name: "FlatArchive",
			entries: []zipEntry{
				{name: "a.json", contents: "{}", modTime: modTime},
				{name: "b.json", contents: "{}", modTime: modTime},
			},
			expRoot: "/tmp/extracted",
			expFiles: []string{
				"/tmp/extracted/a.json",
				"/tmp/extracted/b.json",
			},
		},
		{
			name:     "Empty",
			expRoot:  "/tmp/extracted",
			expFiles: nil,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			writeZip(t, fs, "/tmp/repo.zip", test.entries)

			// Stale files from a previous run must not survive extraction.
			require.NoError(t, afero.WriteFile(fs, "/tmp/extracted/stale.json", []byte("{}"), 0644))

			root, err := ExtractZip(fs, "/tmp/repo.zip", "/tmp/extracted")
			require.NoError(t, err)
			assert.Equal(t, test.expRoot, root)

			files, err := ListFiles(fs, "/tmp/extracted", ".json")
			require.NoError(t, err)
			assert.Equal(t, test.expFiles, files)

			for _, f := range files {
				fi, err := fs.Stat(f)
				require.NoError(t, err)
				assert.True(t, fi.ModTime().Equal(modTime))
			}
		})
	}
}

func TestExtractZipRejectsEscapingEntries(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeZip(t, fs, "/tmp/repo.zip", []zipEntry{
		{name: "../evil.json", contents: "{}"},
	})

	_, err := ExtractZip(fs, "/tmp/repo.zip", "/tmp/extracted")
	assert.Error(t, err)

	exists, err := afero.Exists(fs, "/tmp/evil.json")
	assert.NoError(t, err)
	assert.False(t, exists)
}

func TestExtractZipMissingArchive(t *testing.T) {
	_, err := ExtractZip(afero.NewMemMapFs(), "/tmp/missing.zip", "/tmp/extracted")
	assert.Error(t, err)
}

func TestListFilesSortsAndFilters(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, path := range []string{"/r/z.json", "/r/a.JSON", "/r/sub/m.json", "/r/notes.txt"} {
		require.NoError(t, afero.WriteFile(fs, path, []byte("{}"), 0644))
	}

	files, err := ListFiles(fs, "/r", ".json")
	require.NoError(t, err)
	assert.Equal(t, []string{"/r/a.JSON", "/r/sub/m.json", "/r/z.json"}, files)
}

func TestForceRemove(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/tmp/a/b.json", []byte("{}"), 0644))

	ForceRemove(fs, "/tmp/a")
	exists, err := afero.DirExists(fs, "/tmp/a")
	assert.NoError(t, err)
	assert.False(t, exists)

	// Removing something that doesn't exist is a no-op.
	ForceRemove(fs, "/tmp/missing")
}
