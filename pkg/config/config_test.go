package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/fikasync/pkg/errors"
)

const baseDir = "/games/spt"

func mockEnvironment(t *testing.T, vars map[string]string) {
	fs = afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(baseDir, 0755))

	lookupEnv = func(key string) (string, bool) {
		val, ok := vars[key]
		return val, ok
	}
	homedirExpand = func(path string) (string, error) {
		if strings.HasPrefix(path, "~") {
			return "/home/player" + path[1:], nil
		}
		return path, nil
	}
}

func writeFile(t *testing.T, name, contents string) {
	require.NoError(t, afero.WriteFile(fs, filepath.Join(baseDir, name), []byte(contents), 0644))
}

func TestParseSettings(t *testing.T) {
	path := filepath.Join(baseDir, SettingsFile)
	overridden := DefaultSettings()
	overridden.RemoteDir = "saves"
	overridden.Backend = BackendGit

	tests := []struct {
		name      string
		input     *string
		expConfig Settings
		expError  error
	}{
		{
			name:      "MissingFile",
			expConfig: DefaultSettings(),
		},
		{
			name:      "EmptyVersion",
			input:     strPtr("remoteDir: saves\nbackend: git"),
			expConfig: overridden,
		},
		{
			name: "CorrectVersion",
			input: strPtr(fmt.Sprintf("version: %s\nremoteDir: saves\nbackend: git",
				SupportedSettingsVersion)),
			expConfig: overridden,
		},
		{
			name:  "IncorrectVersion",
			input: strPtr("version: v2\nremoteDir: saves"),
			expError: incompatibleVersionError{
				path:   path,
				exp:    SupportedSettingsVersion,
				actual: "v2",
			},
		},
		{
			name:  "ExtraFields",
			input: strPtr(fmt.Sprintf("version: %s\nextra: fields", SupportedSettingsVersion)),
			expError: errors.NewFriendlyError(parseConfigErrTemplate, path,
				errors.New("error unmarshaling JSON: while decoding JSON: "+
					`json: unknown field "extra"`)),
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			mockEnvironment(t, nil)
			if test.input != nil {
				writeFile(t, SettingsFile, *test.input)
			}

			settings, err := ParseSettings(baseDir)
			assert.Equal(t, test.expError, err)
			if test.expError == nil {
				assert.Equal(t, test.expConfig, settings)
			}
		})
	}
}

func TestDetectProfilesDir(t *testing.T) {
	mockEnvironment(t, nil)

	dir, err := DetectProfilesDir(baseDir)
	require.NoError(t, err)
	assert.Equal(t, "/games/spt/user/profiles", dir)

	require.NoError(t, fs.MkdirAll(filepath.Join(baseDir, "SPT"), 0755))
	dir, err = DetectProfilesDir(baseDir)
	require.NoError(t, err)
	assert.Equal(t, "/games/spt/SPT/user/profiles", dir)
}

func TestLoad(t *testing.T) {
	mockEnvironment(t, map[string]string{EnvToken: "ghp_from_environment"})
	writeFile(t, EnvFile, "GITHUB_PAT=ghp_from_file\nREPO_URL=\" https://github.com/owner/profiles \"\n")

	cfg, err := Load(baseDir)
	require.NoError(t, err)
	assert.Equal(t, Config{
		BaseDir:        baseDir,
		ProfilesDir:    "/games/spt/user/profiles",
		Token:          "ghp_from_environment",
		RepoURL:        "https://github.com/owner/profiles",
		Backend:        BackendGitHub,
		GitWorkDir:     "/games/spt/git",
		RemoteDir:      "profiles",
		TimestampField: "characters.pmc.Hideout.sptUpdateLastRunTimestamp",
	}, cfg)
}

func TestLoadGitBackend(t *testing.T) {
	mockEnvironment(t, nil)
	writeFile(t, EnvFile, "REPO_URL=git@github.com:owner/profiles.git\nSYNC_BACKEND=git\n"+
		"SSH_KEY_PATH=~/.ssh/id_ed25519\n")
	writeFile(t, SettingsFile, "profilesPath: custom/profiles\ngitWorkDir: ~/fikasync-clone\n")

	cfg, err := Load(baseDir)
	require.NoError(t, err)
	assert.Equal(t, BackendGit, cfg.Backend)
	assert.Equal(t, "/games/spt/custom/profiles", cfg.ProfilesDir)
	assert.Equal(t, "/home/player/.ssh/id_ed25519", cfg.SSHKeyPath)
	assert.Equal(t, "/home/player/fikasync-clone", cfg.GitWorkDir)
	assert.NoError(t, cfg.Validate())
}

func TestLoadUnknownBackend(t *testing.T) {
	mockEnvironment(t, map[string]string{EnvBackend: "ftp"})

	_, err := Load(baseDir)
	assert.Error(t, err)
	assert.Contains(t, errors.GetPrintableMessage(err), `Unknown sync backend "ftp"`)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		expError bool
	}{
		{
			name: "Valid",
			cfg: Config{Backend: BackendGitHub, Token: "ghp_0123456789abcdef",
				RepoURL: "https://github.com/owner/profiles"},
		},
		{
			name:     "MissingURL",
			cfg:      Config{Backend: BackendGitHub, Token: "ghp_0123456789abcdef"},
			expError: true,
		},
		{
			name: "NotGitHub",
			cfg: Config{Backend: BackendGitHub, Token: "ghp_0123456789abcdef",
				RepoURL: "https://gitlab.com/owner/profiles"},
			expError: true,
		},
		{
			name: "ShortToken",
			cfg: Config{Backend: BackendGitHub, Token: "0123456789",
				RepoURL: "https://github.com/owner/profiles"},
			expError: true,
		},
		{
			name: "GitBackendNeedsNoToken",
			cfg:  Config{Backend: BackendGit, RepoURL: "git@github.com:owner/profiles.git"},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			err := test.cfg.Validate()
			if test.expError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSetEnv(t *testing.T) {
	mockEnvironment(t, nil)
	writeFile(t, EnvFile, "# written by hand\nREPO_URL=https://github.com/owner/old\nOTHER=kept\n")

	require.NoError(t, SetEnv(baseDir, EnvRepoURL, "https://github.com/owner/new"))
	require.NoError(t, SetEnv(baseDir, EnvToken, "ghp_0123456789abcdef"))

	env, err := ReadEnv(baseDir)
	require.NoError(t, err)
	assert.Equal(t, Env{
		"REPO_URL":   "https://github.com/owner/new",
		"GITHUB_PAT": "ghp_0123456789abcdef",
		"OTHER":      "kept",
	}, env)
}

func TestReadEnvMissing(t *testing.T) {
	mockEnvironment(t, nil)

	env, err := ReadEnv(baseDir)
	require.NoError(t, err)
	assert.Empty(t, env)
}

func strPtr(s string) *string {
	return &s
}
