package sync

import (
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/fikasync/pkg/errors"
)

// backupTimeFormat names the per-run backup directories.
const backupTimeFormat = "2006-01-02_15-04-05"

// Backup copies the profile at `path` into a backup directory named after
// the current time. Backups are best-effort: failures are logged and never
// block the overwrite they precede.
func (e *Engine) Backup(path string) {
	dir := filepath.Join(e.BaseDir, "backups", e.clock().Now().Format(backupTimeFormat))
	if err := copyToDir(path, dir); err != nil {
		log.WithError(err).WithField("path", path).Warn(
			"Failed to back up profile before overwriting it")
		return
	}
	log.WithField("dir", dir).Debugf("Backed up %s", filepath.Base(path))
}

func copyToDir(path, dir string) error {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return errors.WithContext(err, "create backup dir")
	}

	src, err := fs.Open(path)
	if err != nil {
		return errors.WithContext(err, "open")
	}
	defer src.Close()

	// Backups are immutable, so never replace an existing one.
	dst, err := fs.OpenFile(filepath.Join(dir, filepath.Base(path)),
		os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return errors.WithContext(err, "create backup")
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return errors.WithContext(err, "copy")
	}
	return dst.Close()
}
