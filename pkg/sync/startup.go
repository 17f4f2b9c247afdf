package sync

import (
	"context"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/fikasync/pkg/errors"
)

// PullStatus is the outcome of the pull pass for a single profile.
type PullStatus string

const (
	// PullDownloaded means the profile only existed remotely and was
	// downloaded.
	PullDownloaded PullStatus = "Downloaded"

	// PullSynced means both copies have identical contents.
	PullSynced PullStatus = "Synced"

	// PullLocalNewer means the local copy is ahead, so it was left alone and
	// marked pending.
	PullLocalNewer PullStatus = "Local newer"

	// PullUpdated means the remote copy was ahead and replaced the local one.
	PullUpdated PullStatus = "Updated"

	// PullNewLocal means the profile only exists locally and was marked
	// pending.
	PullNewLocal PullStatus = "New local"

	// PullFailed means the profile couldn't be compared or written.
	PullFailed PullStatus = "Failed"
)

// Action describes what the pull pass did, or scheduled, for a status.
func (status PullStatus) Action() string {
	switch status {
	case PullDownloaded, PullUpdated:
		return "Downloaded"
	case PullSynced:
		return "Skipped"
	case PullLocalNewer, PullNewLocal:
		return "Will upload"
	default:
		return "None"
	}
}

// PullResult is a row of the pull report.
type PullResult struct {
	Name   string
	Status PullStatus
	Err    error
}

// PullReport summarizes a pull pass.
type PullReport struct {
	Results []PullResult

	// Pending holds the profiles that owe an upload. It should be passed to
	// the push pass at the end of the session.
	Pending PendingSet
}

// Count returns how many profiles ended with `status`.
func (report PullReport) Count(status PullStatus) (n int) {
	for _, res := range report.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// Pull reconciles the local profile directory with the remote store before a
// session. It downloads remote profiles that are ahead of their local copies
// and marks local profiles that are ahead as pending. It never uploads.
//
// If the remote profiles can't be fetched, the returned error wraps
// ErrFetchFailed and the local directory is untouched.
func (e *Engine) Pull(ctx context.Context) (PullReport, error) {
	snapshot, err := e.FetchSnapshot(ctx)
	if err != nil {
		return PullReport{}, err
	}
	defer snapshot.Release()

	if len(snapshot.Paths) == 0 {
		log.Info("No profiles found in the remote store")
	} else {
		log.Infof("Found %d remote profiles", len(snapshot.Paths))
	}

	if !e.DryRun {
		if err := fs.MkdirAll(e.ProfilesDir, 0755); err != nil {
			return PullReport{}, errors.WithContext(err, "create profiles directory")
		}
	}

	report := PullReport{Pending: PendingSet{}}
	names, paths := snapshot.byName()
	seen := map[string]struct{}{}
	for _, name := range names {
		seen[name] = struct{}{}
		report.Results = append(report.Results, e.pullProfile(name, paths[name], report.Pending))
	}

	localNames, err := e.localProfiles()
	if err != nil {
		return PullReport{}, err
	}

	for _, name := range localNames {
		if _, ok := seen[name]; ok {
			continue
		}
		report.Pending.Add(name)
		report.Results = append(report.Results, PullResult{Name: name, Status: PullNewLocal})
	}

	return report, nil
}

func (e *Engine) pullProfile(name, remotePath string, pending PendingSet) PullResult {
	logger := log.WithField("profile", name)

	remote, err := e.readProfile(remotePath)
	if err != nil {
		return PullResult{Name: name, Status: PullFailed, Err: errors.WithContext(err, "read remote")}
	}

	local, err := e.readProfile(e.localPath(name))
	switch {
	case os.IsNotExist(err):
		logger.Debug("Profile only exists remotely")
		if err := e.apply(remote); err != nil {
			return PullResult{Name: name, Status: PullFailed, Err: err}
		}
		return PullResult{Name: name, Status: PullDownloaded}
	case err != nil:
		return PullResult{Name: name, Status: PullFailed, Err: errors.WithContext(err, "read local")}
	}

	// Identical contents are in sync regardless of what the timestamps say.
	if local.Hash == remote.Hash {
		return PullResult{Name: name, Status: PullSynced}
	}

	logger.WithFields(log.Fields{
		"localTimestamp":  local.Timestamp,
		"remoteTimestamp": remote.Timestamp,
	}).Debug("Profile contents differ")

	if local.Timestamp > remote.Timestamp {
		pending.Add(name)
		return PullResult{Name: name, Status: PullLocalNewer}
	}

	if !e.DryRun {
		e.Backup(local.Path)
	}
	if err := e.apply(remote); err != nil {
		return PullResult{Name: name, Status: PullFailed, Err: err}
	}
	return PullResult{Name: name, Status: PullUpdated}
}

// apply writes the remote profile into the local directory, keeping the
// remote modification time.
func (e *Engine) apply(remote Profile) error {
	if e.DryRun {
		return nil
	}

	dst := e.localPath(remote.Name)
	tmp := filepath.Join(e.ProfilesDir, "."+remote.Name+".tmp")
	if err := afero.WriteFile(fs, tmp, remote.contents, 0644); err != nil {
		return errors.WithContext(err, "write profile")
	}

	if err := fs.Rename(tmp, dst); err != nil {
		fs.Remove(tmp)
		return errors.WithContext(err, "replace profile")
	}

	if err := fs.Chtimes(dst, remote.ModTime, remote.ModTime); err != nil {
		log.WithError(err).WithField("path", dst).Warn("Failed to preserve profile modification time")
	}
	return nil
}
