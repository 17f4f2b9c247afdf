package config

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/fikasync/pkg/config"
	"github.com/sidkik/fikasync/pkg/errors"
)

func TestPromptUser(t *testing.T) {
	tests := []struct {
		name                             string
		defaultAnswer, currAnswer, stdin string
		expPrompt, expResult             string
	}{
		{
			name:      "NoChoices",
			stdin:     "https://github.com/owner/profiles\n",
			expPrompt: "Enter the URL.\nRepository URL:\nPlease enter manually: \n",
			expResult: "https://github.com/owner/profiles",
		},
		{
			name:       "ChooseCurrent",
			currAnswer: "https://github.com/owner/current",
			stdin:      "1\n",
			expPrompt: "Enter the URL.\nRepository URL:\n\n" +
				"\t1. https://github.com/owner/current (recommended)\n" +
				"\t2. (Enter manually)\n\n" +
				"Please choose one [1-2]: \n",
			expResult: "https://github.com/owner/current",
		},
		{
			name:       "EmptyResponsePicksFirst",
			currAnswer: "https://github.com/owner/current",
			stdin:      "\n",
			expPrompt: "Enter the URL.\nRepository URL:\n\n" +
				"\t1. https://github.com/owner/current (recommended)\n" +
				"\t2. (Enter manually)\n\n" +
				"Please choose one [1-2]: \n",
			expResult: "https://github.com/owner/current",
		},
		{
			name:          "DefaultAndCurrent",
			defaultAnswer: "https://github.com/owner/default",
			currAnswer:    "https://github.com/owner/current",
			stdin:         "2\n",
			expPrompt: "Enter the URL.\nRepository URL:\n\n" +
				"\t1. https://github.com/owner/default (recommended)\n" +
				"\t2. https://github.com/owner/current\n" +
				"\t3. (Enter manually)\n\n" +
				"Please choose one [1-3]: \n",
			expResult: "https://github.com/owner/current",
		},
		{
			name:       "InvalidChoiceThenManual",
			currAnswer: "https://github.com/owner/current",
			stdin:      "7\n2\nhttps://github.com/owner/typed\r\n",
			expPrompt: "Enter the URL.\nRepository URL:\n\n" +
				"\t1. https://github.com/owner/current (recommended)\n" +
				"\t2. (Enter manually)\n\n" +
				"Please choose one [1-2]: " +
				"Please choose one [1-2]: " +
				"Please enter manually: \n",
			expResult: "https://github.com/owner/typed",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			out := bytes.NewBuffer(nil)
			stdout = out
			stdin = bufio.NewReader(strings.NewReader(test.stdin))

			resp, err := promptUser("Enter the URL.", "Repository URL",
				test.defaultAnswer, test.currAnswer)
			require.NoError(t, err)
			assert.Equal(t, test.expResult, resp)
			assert.Equal(t, test.expPrompt, out.String())
		})
	}
}

func TestPromptUserClosedInput(t *testing.T) {
	stdout = bytes.NewBuffer(nil)
	stdin = bufio.NewReader(strings.NewReader(""))

	_, err := promptUser("help", "prompt", "", "")
	assert.Equal(t, io.EOF, err)
}

func TestGenerateConfig(t *testing.T) {
	tests := []struct {
		name      string
		curr      config.Config
		cliOpts   Options
		stdin     string
		token     string
		expOpts   Options
		expError  bool
		expOutput string
	}{
		{
			name:    "AllFromFlags",
			curr:    config.Config{Backend: config.BackendGitHub},
			cliOpts: Options{RepoURL: "https://github.com/owner/profiles", Token: "ghp_0123456789abcdef"},
			expOpts: Options{RepoURL: "https://github.com/owner/profiles", Token: "ghp_0123456789abcdef"},
		},
		{
			name:     "InvalidURLFlag",
			curr:     config.Config{Backend: config.BackendGitHub},
			cliOpts:  Options{RepoURL: "https://gitlab.com/owner/profiles"},
			expError: true,
		},
		{
			name:     "ShortTokenFlag",
			curr:     config.Config{Backend: config.BackendGitHub},
			cliOpts:  Options{RepoURL: "https://github.com/owner/profiles", Token: "short"},
			expError: true,
		},
		{
			name:    "PromptForBoth",
			curr:    config.Config{Backend: config.BackendGitHub},
			stdin:   "https://github.com/owner/profiles\n",
			token:   "ghp_0123456789abcdef",
			expOpts: Options{RepoURL: "https://github.com/owner/profiles", Token: "ghp_0123456789abcdef"},
		},
		{
			name:      "RetryInvalidURL",
			curr:      config.Config{Backend: config.BackendGitHub},
			stdin:     "git@github.com:owner/profiles.git\nhttps://github.com/owner/profiles\n",
			token:     "ghp_0123456789abcdef",
			expOpts:   Options{RepoURL: "https://github.com/owner/profiles", Token: "ghp_0123456789abcdef"},
			expOutput: `must start with "https://github.com/"`,
		},
		{
			name:    "KeepCurrentURL",
			curr:    config.Config{Backend: config.BackendGitHub, RepoURL: "https://github.com/owner/current"},
			stdin:   "1\n",
			token:   "ghp_0123456789abcdef",
			expOpts: Options{RepoURL: "https://github.com/owner/current", Token: "ghp_0123456789abcdef"},
		},
		{
			name:    "GitBackendSkipsToken",
			curr:    config.Config{Backend: config.BackendGit},
			stdin:   "git@github.com:owner/profiles.git\n",
			expOpts: Options{RepoURL: "git@github.com:owner/profiles.git"},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			out := bytes.NewBuffer(nil)
			stdout = out
			stdin = bufio.NewReader(strings.NewReader(test.stdin))
			promptSecret = func(string) (string, error) {
				if test.token == "" {
					return "", errors.New("unexpected token prompt")
				}
				return test.token, nil
			}

			opts, err := generateConfig(test.curr, test.cliOpts)
			if test.expError {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.expOpts, opts)
			assert.Contains(t, out.String(), test.expOutput)
		})
	}
}

func TestSetupConfig(t *testing.T) {
	stdout = bytes.NewBuffer(nil)
	loadConfig = func(string) (config.Config, error) {
		return config.Config{}, errors.New("no config")
	}

	written := map[string]string{}
	setEnv = func(baseDir, key, value string) error {
		assert.Equal(t, "/games/spt", baseDir)
		written[key] = value
		return nil
	}

	err := SetupConfig("/games/spt", Options{
		RepoURL: "https://github.com/owner/profiles",
		Token:   "ghp_0123456789abcdef",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		config.EnvRepoURL: "https://github.com/owner/profiles",
		config.EnvToken:   "ghp_0123456789abcdef",
	}, written)
}
