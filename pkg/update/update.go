// Package update replaces the running binary with the latest published
// release.
package update

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	goversion "github.com/hashicorp/go-version"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/fikasync/pkg/errors"
	"github.com/sidkik/fikasync/pkg/remote/github"
)

var fs = afero.NewOsFs()

// ReleaseSource is where releases are published.
type ReleaseSource interface {
	LatestRelease(ctx context.Context, repoName string) (github.Release, error)
	Download(ctx context.Context, url string, w io.Writer) error
}

// Available describes the outcome of checking for a new release.
type Available struct {
	Current *goversion.Version
	Latest  *goversion.Version
	Release github.Release
}

// ParseVersion parses a version string, ignoring a leading `v`. Versions that
// can't be parsed, such as those of development builds, are treated as 0.0.0
// so that any release is newer.
func ParseVersion(versionStr string) *goversion.Version {
	parsed, err := goversion.NewVersion(strings.TrimPrefix(versionStr, "v"))
	if err != nil {
		return goversion.Must(goversion.NewVersion("0.0.0"))
	}
	return parsed
}

// Check fetches the latest release of `repoName` and returns whether it's
// newer than `current`.
func Check(ctx context.Context, src ReleaseSource, repoName, current string) (Available, bool, error) {
	release, err := src.LatestRelease(ctx, repoName)
	if err != nil {
		return Available{}, false, errors.WithContext(err, "get latest release")
	}

	latest, err := goversion.NewVersion(strings.TrimPrefix(release.TagName, "v"))
	if err != nil {
		return Available{}, false, errors.WithContext(err,
			fmt.Sprintf("parse release tag %q", release.TagName))
	}

	available := Available{
		Current: ParseVersion(current),
		Latest:  latest,
		Release: release,
	}
	return available, latest.GreaterThan(available.Current), nil
}

// Apply downloads `release` and swaps it in for the binary at `exePath`. The
// replaced binary is kept at `<exePath>.old` since it may still be running,
// and is cleaned up by CleanupOld on the next start. If the swap fails, the
// original binary is restored.
func Apply(ctx context.Context, src ReleaseSource, release github.Release, exePath string) error {
	if release.DownloadURL == "" {
		return errors.NewFriendlyError("Release %s has no downloadable binary.", release.TagName)
	}

	fi, err := fs.Stat(exePath)
	if err != nil {
		return errors.WithContext(err, "stat executable")
	}

	newPath := exePath + ".new"
	if err := download(ctx, src, release.DownloadURL, newPath, fi.Mode()); err != nil {
		fs.Remove(newPath)
		return errors.WithContext(err, "download release")
	}

	oldPath := OldPath(exePath)
	if err := fs.Remove(oldPath); err != nil && !os.IsNotExist(err) {
		fs.Remove(newPath)
		return errors.WithContext(err, "remove previous backup")
	}

	if err := fs.Rename(exePath, oldPath); err != nil {
		fs.Remove(newPath)
		return errors.WithContext(err, "move current binary")
	}

	if err := fs.Rename(newPath, exePath); err != nil {
		if rollbackErr := fs.Rename(oldPath, exePath); rollbackErr != nil {
			log.WithError(rollbackErr).WithField("path", oldPath).Error(
				"Failed to restore the original binary")
		}
		fs.Remove(newPath)
		return errors.WithContext(err, "install new binary")
	}
	return nil
}

func download(ctx context.Context, src ReleaseSource, url, dst string, mode os.FileMode) error {
	f, err := fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return errors.WithContext(err, "create")
	}

	if err := src.Download(ctx, url, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// OldPath returns where Apply keeps the replaced binary.
func OldPath(exePath string) string {
	return exePath + ".old"
}

// CleanupOld removes the binary left behind by a previous update.
func CleanupOld(exePath string) {
	err := fs.Remove(OldPath(exePath))
	if err != nil && !os.IsNotExist(err) {
		log.WithError(err).Debug("Failed to remove previous binary")
	}
}
