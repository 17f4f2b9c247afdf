package sync

import (
	log "github.com/sirupsen/logrus"
)

// CaptureSessionStart records the progress timestamp of every local profile.
// It must be called right before the game session starts, so that the push
// pass can tell which profiles the session advanced.
func (e *Engine) CaptureSessionStart() (SessionSnapshot, error) {
	snapshot := SessionSnapshot{}

	names, err := e.localProfiles()
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		profile, err := e.readProfile(e.localPath(name))
		if err != nil {
			// Leaving the profile out means any progress it has will be
			// uploaded at the end of the session.
			log.WithError(err).WithField("profile", name).Warn(
				"Failed to read profile at session start")
			continue
		}
		snapshot[name] = profile.Timestamp
	}

	log.WithField("profiles", len(snapshot)).Debug("Captured session start snapshot")
	return snapshot, nil
}
