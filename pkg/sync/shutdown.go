package sync

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/fikasync/pkg/errors"
	"github.com/sidkik/fikasync/pkg/remote"
)

// PushReason is why the push pass considered a profile.
type PushReason string

const (
	// ReasonNewProgress means the session advanced the profile.
	ReasonNewProgress PushReason = "New progress"

	// ReasonPending means the pull pass marked the profile as owing an
	// upload.
	ReasonPending PushReason = "Pending upload"

	// ReasonConflict means a pending profile was overtaken by the remote
	// copy while the session ran.
	ReasonConflict PushReason = "Conflict"

	// ReasonUnreadable means the local profile couldn't be read.
	ReasonUnreadable PushReason = "Unreadable"
)

// PushStatus is the outcome of the push pass for a single profile.
type PushStatus string

const (
	// PushSent means the profile was uploaded.
	PushSent PushStatus = "Sent"

	// PushFailed means the upload, or reading the profile, failed.
	PushFailed PushStatus = "Error"

	// PushRemoteNewer means the remote copy is at least as far ahead, so the
	// profile wasn't uploaded.
	PushRemoteNewer PushStatus = "Remote newer"

	// PushAlreadySynced means the remote copy already had the same contents.
	PushAlreadySynced PushStatus = "Already synced"

	// PushVerifyFailed means the remote copy couldn't be checked, so the
	// profile wasn't uploaded.
	PushVerifyFailed PushStatus = "Verify failed"
)

// PushResult is a row of the push report.
type PushResult struct {
	Name   string
	Reason PushReason
	Status PushStatus
	Err    error
}

// PushReport summarizes a push pass.
type PushReport struct {
	Results []PushResult

	// Pending is what remains of the pending set after the pass. Profiles
	// leave it only when an upload was attempted.
	Pending PendingSet

	// NoLocal is set when there was no local profile directory at all.
	NoLocal bool
}

// HasActivity returns whether the pass has anything worth reporting.
// Profiles that neither advanced nor were pending produce no results.
func (report PushReport) HasActivity() bool {
	return len(report.Results) > 0
}

// Count returns how many profiles ended with `status`.
func (report PushReport) Count(status PushStatus) (n int) {
	for _, res := range report.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// Push uploads the profiles that changed during the session, and the pending
// profiles that are still ahead of the remote store. `start` is the snapshot
// captured before the session, and `pending` is the set produced by Pull. The
// passed set isn't modified; the remaining set is returned in the report.
//
// A failure to upload one profile doesn't stop the others from being
// processed.
func (e *Engine) Push(ctx context.Context, start SessionSnapshot, pending PendingSet) (PushReport, error) {
	report := PushReport{Pending: pending.Copy()}

	exists, err := afero.DirExists(fs, e.ProfilesDir)
	if err != nil {
		return report, errors.WithContext(err, "stat profiles directory")
	}
	if !exists {
		log.WithField("path", e.ProfilesDir).Info("No local profiles directory. Nothing to upload.")
		report.NoLocal = true
		return report, nil
	}

	names, err := e.localProfiles()
	if err != nil {
		return report, err
	}

	for _, name := range names {
		if res, ok := e.pushProfile(ctx, name, start, report.Pending); ok {
			report.Results = append(report.Results, res)
		}
	}
	return report, nil
}

func (e *Engine) pushProfile(ctx context.Context, name string, start SessionSnapshot,
	pending PendingSet) (PushResult, bool) {

	logger := log.WithField("profile", name)

	local, err := e.readProfile(e.localPath(name))
	if err != nil {
		logger.WithError(err).Warn("Failed to read local profile")
		return PushResult{Name: name, Reason: ReasonUnreadable, Status: PushFailed, Err: err}, true
	}

	startTimestamp := start.StartTimestampOf(name)
	if local.Timestamp > startTimestamp {
		logger.WithFields(log.Fields{
			"start":   startTimestamp,
			"current": local.Timestamp,
		}).Debug("Session advanced profile")
		return e.upload(ctx, local, ReasonNewProgress, pending), true
	}

	if !pending.Has(name) {
		return PushResult{}, false
	}

	// The remote copy may have moved ahead while the session ran, e.g. if the
	// profile was played on another machine. Check it before uploading.
	logger.Info("Verifying remote copy before uploading pending profile")
	remoteContents, err := e.Store.ReadFile(ctx, e.remotePath(name))
	switch {
	case errors.Is(err, remote.ErrNotFound):
		logger.Debug("Profile doesn't exist remotely")
		return e.upload(ctx, local, ReasonPending, pending), true
	case err != nil:
		logger.WithError(err).Warn("Failed to verify remote profile. Not uploading it.")
		return PushResult{Name: name, Reason: ReasonPending, Status: PushVerifyFailed,
			Err: errors.WithContext(err, "read remote")}, true
	}

	if Hash(remoteContents) == local.Hash {
		return PushResult{Name: name, Reason: ReasonPending, Status: PushAlreadySynced}, true
	}

	remoteTimestamp := e.timestamp(remoteContents)
	logger.WithFields(log.Fields{
		"localTimestamp":  local.Timestamp,
		"remoteTimestamp": remoteTimestamp,
	}).Debug("Verified remote profile")

	if local.Timestamp > remoteTimestamp {
		return e.upload(ctx, local, ReasonPending, pending), true
	}
	return PushResult{Name: name, Reason: ReasonConflict, Status: PushRemoteNewer}, true
}

func (e *Engine) upload(ctx context.Context, profile Profile, reason PushReason,
	pending PendingSet) PushResult {

	pending.Remove(profile.Name)

	if err := e.Store.WriteFile(ctx, e.remotePath(profile.Name), profile.contents); err != nil {
		log.WithError(err).WithField("profile", profile.Name).Error("Failed to upload profile")
		return PushResult{Name: profile.Name, Reason: reason, Status: PushFailed,
			Err: errors.WithContext(err, "upload")}
	}

	log.WithField("profile", profile.Name).Debug("Uploaded profile")
	return PushResult{Name: profile.Name, Reason: reason, Status: PushSent}
}
