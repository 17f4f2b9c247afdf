package util

import (
	"context"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/fikasync/pkg/config"
	"github.com/sidkik/fikasync/pkg/errors"
	"github.com/sidkik/fikasync/pkg/remote"
	"github.com/sidkik/fikasync/pkg/remote/github"
	"github.com/sidkik/fikasync/pkg/remote/gitstore"
	"github.com/sidkik/fikasync/pkg/sync"
)

// BaseDir is set by the `--base-dir` flag. When empty, the directory of the
// executable is used.
var BaseDir string

// Mocked for unit testing.
var executable = os.Executable

// ResolveBaseDir returns the directory holding the game and FikaSync's own
// files.
func ResolveBaseDir() (string, error) {
	if BaseDir != "" {
		return filepath.Abs(BaseDir)
	}

	exe, err := executable()
	if err != nil {
		return "", errors.WithContext(err, "get executable path")
	}
	return filepath.Dir(exe), nil
}

// LoadConfig loads and validates the configuration in the base directory.
func LoadConfig() (config.Config, error) {
	baseDir, err := ResolveBaseDir()
	if err != nil {
		return config.Config{}, err
	}

	cfg, err := config.Load(baseDir)
	if err != nil {
		return config.Config{}, errors.WithContext(err, "load config")
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	log.WithFields(log.Fields{
		"baseDir":  cfg.BaseDir,
		"profiles": cfg.ProfilesDir,
		"backend":  cfg.Backend,
	}).Debug("Loaded config")
	return cfg, nil
}

// Connect returns the remote store described by `cfg`. For the GitHub
// backend, the token is checked before returning.
func Connect(ctx context.Context, cfg config.Config) (remote.Store, error) {
	if cfg.Backend == config.BackendGit {
		return gitstore.New(gitstore.Options{
			URL:        cfg.RepoURL,
			SSHKeyPath: cfg.SSHKeyPath,
			Token:      cfg.Token,
			WorkDir:    cfg.GitWorkDir,
		})
	}

	owner, repo, err := github.ParseRepoURL(cfg.RepoURL)
	if err != nil {
		return nil, err
	}

	client := github.New(cfg.Token, owner, repo)
	login, err := client.Login(ctx)
	if err != nil {
		return nil, errors.WithContext(err, "log in to GitHub")
	}
	log.Infof("Logged in to GitHub as %s", login)
	return client, nil
}

// NewEngine returns a sync engine between the configured profile directory
// and `store`.
func NewEngine(cfg config.Config, store remote.Store) *sync.Engine {
	return &sync.Engine{
		BaseDir:     cfg.BaseDir,
		ProfilesDir: cfg.ProfilesDir,
		Store:       store,
		RemoteDir:   cfg.RemoteDir,
		Timestamp:   sync.FieldTimestamp(cfg.TimestampField),
	}
}
