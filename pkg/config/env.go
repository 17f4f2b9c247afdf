package config

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"

	"github.com/sidkik/fikasync/pkg/errors"
)

// EnvFile is the name of the file holding secrets within the base directory.
const EnvFile = ".env"

// The keys read from the environment and the env file.
const (
	EnvToken      = "GITHUB_PAT"
	EnvRepoURL    = "REPO_URL"
	EnvBackend    = "SYNC_BACKEND"
	EnvSSHKeyPath = "SSH_KEY_PATH"
)

// Env holds the values of the env file.
type Env map[string]string

// get returns the value of `key`. Variables set in the process environment
// override the file.
func (env Env) get(key string) string {
	if val, ok := lookupEnv(key); ok {
		return val
	}
	return env[key]
}

// ReadEnv parses the env file in `baseDir`. A missing file is empty.
func ReadEnv(baseDir string) (Env, error) {
	contents, err := afero.ReadFile(fs, filepath.Join(baseDir, EnvFile))
	if err != nil {
		if os.IsNotExist(err) {
			return Env{}, nil
		}
		return nil, errors.WithContext(err, "read")
	}

	env, err := godotenv.Parse(bytes.NewReader(contents))
	if err != nil {
		return nil, errors.WithContext(err, "parse")
	}
	return env, nil
}

// SetEnv sets `key` in the env file in `baseDir`, preserving the other
// values.
func SetEnv(baseDir, key, value string) error {
	env, err := ReadEnv(baseDir)
	if err != nil {
		return err
	}
	env[key] = value

	contents, err := godotenv.Marshal(env)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	// The file holds credentials, so only the owner can read it.
	path := filepath.Join(baseDir, EnvFile)
	if err := afero.WriteFile(fs, path, []byte(contents+"\n"), 0600); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}
