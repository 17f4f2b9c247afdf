package config

import (
	"path/filepath"

	"github.com/sidkik/fikasync/pkg/errors"
	"github.com/sidkik/fikasync/pkg/sync"
)

const (
	// SettingsFile is the name of the optional settings file within the base
	// directory.
	SettingsFile = "fikasync.yaml"

	// SupportedSettingsVersion is the version of the settings file
	// understood by this binary. Files that don't specify a version default
	// to it.
	SupportedSettingsVersion = "v1alpha1"
)

// Settings are the non-secret options that rarely need changing.
type Settings struct {
	Version string `json:"version,omitempty"`

	// ProfilesPath overrides the detected profile directory. Relative paths
	// are evaluated relative to the base directory.
	ProfilesPath string `json:"profilesPath,omitempty"`

	// RemoteDir is the directory within the remote repository that profiles
	// are uploaded to.
	RemoteDir string `json:"remoteDir,omitempty"`

	// TimestampField is the path of the progress timestamp within a profile.
	TimestampField string `json:"timestampField,omitempty"`

	Backend    string `json:"backend,omitempty"`
	GitWorkDir string `json:"gitWorkDir,omitempty"`
	SSHKeyPath string `json:"sshKeyPath,omitempty"`
}

func (s Settings) getVersion() string {
	return s.Version
}

// DefaultSettings returns the settings used when the settings file doesn't
// exist.
func DefaultSettings() Settings {
	return Settings{
		Version:        SupportedSettingsVersion,
		RemoteDir:      sync.DefaultRemoteDir,
		TimestampField: sync.DefaultTimestampField,
		Backend:        BackendGitHub,
	}
}

// ParseSettings parses the settings file in `baseDir`. Fields that aren't
// set keep their default values.
func ParseSettings(baseDir string) (Settings, error) {
	path := filepath.Join(baseDir, SettingsFile)
	settings := DefaultSettings()
	if err := parseConfig(path, &settings, SupportedSettingsVersion); err != nil {
		if _, ok := err.(errors.FileNotFound); ok {
			return DefaultSettings(), nil
		}
		return Settings{}, err
	}
	return settings, nil
}
