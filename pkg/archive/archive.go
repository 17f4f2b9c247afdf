// Package archive extracts the repository bundles served by the remote store
// and enumerates the files inside them.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/fikasync/pkg/errors"
)

// ExtractZip extracts the zip archive at `archivePath` into `dest`, replacing
// anything that was already there. It returns the root of the extracted
// tree: if the archive contained a single top-level directory (as repository
// zipballs do), that directory is returned, otherwise `dest` itself.
func ExtractZip(fs afero.Fs, archivePath, dest string) (string, error) {
	ForceRemove(fs, dest)
	if err := fs.MkdirAll(dest, 0755); err != nil {
		return "", errors.WithContext(err, "create destination")
	}

	f, err := fs.Open(archivePath)
	if err != nil {
		return "", errors.WithContext(err, "open archive")
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return "", errors.WithContext(err, "stat archive")
	}

	zr, err := zip.NewReader(f, fi.Size())
	if err != nil {
		return "", errors.WithContext(err, "read zip")
	}

	for _, entry := range zr.File {
		if err := extractEntry(fs, entry, dest); err != nil {
			return "", errors.WithContext(err, fmt.Sprintf("extract %q", entry.Name))
		}
	}

	return archiveRoot(fs, dest)
}

func extractEntry(fs afero.Fs, entry *zip.File, dest string) error {
	target := filepath.Join(dest, filepath.FromSlash(entry.Name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return errors.New("entry escapes the destination directory")
	}

	if entry.FileInfo().IsDir() {
		return fs.MkdirAll(target, 0755)
	}

	if err := fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.WithContext(err, "create parent")
	}

	src, err := entry.Open()
	if err != nil {
		return errors.WithContext(err, "open entry")
	}
	defer src.Close()

	dst, err := fs.OpenFile(target, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.WithContext(err, "create file")
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return errors.WithContext(err, "copy")
	}
	if err := dst.Close(); err != nil {
		return errors.WithContext(err, "close")
	}

	// The sync engine preserves remote modification times when pulling.
	modTime := entry.Modified
	if modTime.IsZero() {
		return nil
	}
	return fs.Chtimes(target, modTime, modTime)
}

func archiveRoot(fs afero.Fs, dest string) (string, error) {
	entries, err := afero.ReadDir(fs, dest)
	if err != nil {
		return "", errors.WithContext(err, "read destination")
	}

	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dest, entries[0].Name()), nil
	}
	return dest, nil
}

// ListFiles recursively lists the files beneath `root` whose name ends with
// `ext`. The paths are sorted so that callers get a deterministic order
// regardless of the underlying filesystem.
func ListFiles(fs afero.Fs, root, ext string) ([]string, error) {
	var paths []string
	err := afero.Walk(fs, root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if fi.IsDir() || !strings.EqualFold(filepath.Ext(path), ext) {
			return nil
		}

		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, errors.WithContext(err, "walk")
	}

	sort.Strings(paths)
	return paths, nil
}

// ForceRemove removes `dir` and everything beneath it. Failures are logged
// rather than returned because callers only use it to release temporary
// storage.
func ForceRemove(fs afero.Fs, dir string) {
	if err := fs.RemoveAll(dir); err != nil {
		log.WithError(err).WithField("path", dir).Warn(
			"Failed to remove temporary directory. It can be deleted manually.")
	}
}
