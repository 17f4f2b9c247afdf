// Package config resolves where the game keeps its profiles and how to reach
// the remote store. Secrets live in a `.env` file next to the executable, and
// optional settings in `fikasync.yaml`.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/spf13/afero"

	"github.com/sidkik/fikasync/pkg/errors"
)

// parseConfigErrTemplate is a template for when the CLI fails to parse yaml
// configuration files. This can happen for a multitude of reasons, including
// extraneous fields and incorrect field types. However, the yaml library
// constructs errors in a way that loses context, and so we can only pass the
// error message on.
const parseConfigErrTemplate = "Configuration file could not be parsed. " +
	"Please review %q.\n" +
	"Common pitfalls include:\n" +
	" - Using the wrong types for fields\n" +
	" - Having extra fields inside the config file\n\n" +
	"For reference, here is the error from the parser:\n" +
	"%s"

const (
	// BackendGitHub talks to the GitHub content API with a personal access
	// token.
	BackendGitHub = "github"

	// BackendGit clones the repository with git over SSH or HTTPS.
	BackendGit = "git"
)

// GitHubURLPrefix is the prefix every repository URL must have when using
// the GitHub backend.
const GitHubURLPrefix = "https://github.com/"

// minTokenLength is the length a personal access token must exceed.
const minTokenLength = 10

// Config is the fully resolved configuration of a sync run.
type Config struct {
	BaseDir     string
	ProfilesDir string

	Token      string
	RepoURL    string
	Backend    string
	SSHKeyPath string
	GitWorkDir string

	RemoteDir      string
	TimestampField string
}

// Load resolves the configuration rooted at `baseDir`. Values in the
// environment take precedence over the `.env` file, which takes precedence
// over `fikasync.yaml`.
func Load(baseDir string) (Config, error) {
	settings, err := ParseSettings(baseDir)
	if err != nil {
		return Config{}, errors.WithContext(err, "parse settings")
	}

	env, err := ReadEnv(baseDir)
	if err != nil {
		return Config{}, errors.WithContext(err, "read env file")
	}

	cfg := Config{
		BaseDir:        baseDir,
		Token:          env.get(EnvToken),
		RepoURL:        strings.TrimSpace(env.get(EnvRepoURL)),
		Backend:        settings.Backend,
		SSHKeyPath:     settings.SSHKeyPath,
		GitWorkDir:     settings.GitWorkDir,
		RemoteDir:      settings.RemoteDir,
		TimestampField: settings.TimestampField,
	}
	if backend := env.get(EnvBackend); backend != "" {
		cfg.Backend = backend
	}
	if keyPath := env.get(EnvSSHKeyPath); keyPath != "" {
		cfg.SSHKeyPath = keyPath
	}

	switch cfg.Backend {
	case BackendGitHub, BackendGit:
	default:
		return Config{}, errors.NewFriendlyError(
			"Unknown sync backend %q. Expected %q or %q.",
			cfg.Backend, BackendGitHub, BackendGit)
	}

	if cfg.ProfilesDir, err = resolvePath(baseDir, settings.ProfilesPath); err != nil {
		return Config{}, errors.WithContext(err, "resolve profiles path")
	}
	if cfg.ProfilesDir == "" {
		cfg.ProfilesDir, err = DetectProfilesDir(baseDir)
		if err != nil {
			return Config{}, err
		}
	}

	if cfg.SSHKeyPath, err = resolvePath(baseDir, cfg.SSHKeyPath); err != nil {
		return Config{}, errors.WithContext(err, "resolve ssh key path")
	}
	if cfg.GitWorkDir, err = resolvePath(baseDir, cfg.GitWorkDir); err != nil {
		return Config{}, errors.WithContext(err, "resolve git work dir")
	}
	if cfg.GitWorkDir == "" {
		cfg.GitWorkDir = filepath.Join(baseDir, "git")
	}
	return cfg, nil
}

// Validate checks that the remote store can be reached with the
// configuration. The returned errors are friendly, and suggest running the
// `config` command.
func (cfg Config) Validate() error {
	if cfg.RepoURL == "" {
		return errors.NewFriendlyError("The repository URL isn't configured. " +
			"Please run `fikasync config` to set it.")
	}

	if cfg.Backend == BackendGit {
		return nil
	}

	if err := ValidateRepoURL(cfg.RepoURL); err != nil {
		return err
	}
	return ValidateToken(cfg.Token)
}

// ValidateToken checks that `token` looks like a personal access token.
func ValidateToken(token string) error {
	if len(strings.TrimSpace(token)) <= minTokenLength {
		return errors.NewFriendlyError("The GitHub token is missing or too short. " +
			"Please run `fikasync config` to set it.")
	}
	return nil
}

// ValidateRepoURL checks that `url` points at a GitHub repository.
func ValidateRepoURL(url string) error {
	if !strings.HasPrefix(url, GitHubURLPrefix) {
		return errors.NewFriendlyError("The repository URL %q must start with %q.",
			url, GitHubURLPrefix)
	}
	return nil
}

// DetectProfilesDir returns where the game installed in `baseDir` keeps its
// profiles. SPT 4 nests the server in an `SPT` directory.
func DetectProfilesDir(baseDir string) (string, error) {
	spt4, err := afero.DirExists(fs, filepath.Join(baseDir, "SPT"))
	if err != nil {
		return "", errors.WithContext(err, "detect game layout")
	}

	if spt4 {
		return filepath.Join(baseDir, "SPT", "user", "profiles"), nil
	}
	return filepath.Join(baseDir, "user", "profiles"), nil
}

// resolvePath expands `~` in `path`, and evaluates relative paths relative
// to `baseDir`.
func resolvePath(baseDir, path string) (string, error) {
	if path == "" {
		return "", nil
	}

	path, err := homedirExpand(path)
	if err != nil {
		return "", err
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	return path, nil
}

type configInterface interface {
	getVersion() string
}

type incompatibleVersionError struct {
	path, exp, actual string
}

func (err incompatibleVersionError) Error() string {
	return err.FriendlyMessage()
}

func (err incompatibleVersionError) FriendlyMessage() string {
	return fmt.Sprintf("The configuration file %q is incompatible "+
		"with this version of FikaSync.\n"+
		"Expected version %q, but got %q.", err.path, err.exp, err.actual)
}

func parseConfig(path string, config configInterface, expVersion string) error {
	configBytes, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.FileNotFound{Path: path}
		}
		return errors.WithContext(err, "read file")
	}

	err = yaml.Unmarshal(configBytes, config)
	if err != nil {
		return errors.NewFriendlyError(parseConfigErrTemplate, path, err)
	}

	if config.getVersion() != expVersion {
		return incompatibleVersionError{path, expVersion, config.getVersion()}
	}

	// Do a strict unmarshal to check for any extra fields. We do a non-strict
	// unmarshal first so that we can catch version errors before erroring on
	// extra fields.
	err = yaml.UnmarshalStrict(configBytes, config, yaml.DisallowUnknownFields)
	if err != nil {
		return errors.NewFriendlyError(parseConfigErrTemplate, path, err)
	}
	return nil
}
